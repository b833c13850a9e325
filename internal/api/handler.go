package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"builders-core/internal/models"
	"builders-core/internal/service"
	"builders-core/internal/store"
	"builders-core/internal/util"
	"builders-core/internal/webhook"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// signatureHeader carries the provider's HMAC over the raw webhook body.
const signatureHeader = "Builders-Signature"

// userHeader carries the authenticated caller id, set by the edge proxy.
const userHeader = "X-User-ID"

// Handler contains HTTP handlers
type Handler struct {
	db       *store.Store
	listings *service.ListingService
	orders   *service.OrderService
	featured *service.FeaturedService
	wagers   *service.WagerService
	ingestor *webhook.Ingestor
}

// NewHandler creates a new HTTP handler
func NewHandler(
	db *store.Store,
	listings *service.ListingService,
	orders *service.OrderService,
	featured *service.FeaturedService,
	wagers *service.WagerService,
	ingestor *webhook.Ingestor,
) *Handler {
	return &Handler{
		db:       db,
		listings: listings,
		orders:   orders,
		featured: featured,
		wagers:   wagers,
		ingestor: ingestor,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.POST("/webhooks/payment", h.paymentWebhook)

	v1 := router.Group("/api/v1")
	{
		v1.POST("/listings", h.createListing)
		v1.GET("/listings", h.listListings)
		v1.GET("/listings/:id", h.getListing)
		v1.POST("/listings/:id/checkout", h.listingCheckout)
		v1.POST("/listings/:id/cancel", h.cancelListing)
		v1.DELETE("/listings/:id", h.deleteListing)

		v1.POST("/orders", h.createOrder)
		v1.GET("/orders", h.listOrders)
		v1.GET("/orders/:id", h.getOrder)
		v1.POST("/orders/:id/accept", h.orderAction(h.orders.Accept))
		v1.POST("/orders/:id/start", h.orderAction(h.orders.Start))
		v1.POST("/orders/:id/deliver", h.orderAction(h.orders.Deliver))
		v1.POST("/orders/:id/complete", h.orderAction(h.orders.Complete))
		v1.POST("/orders/:id/dispute", h.orderAction(h.orders.Dispute))
		v1.POST("/orders/:id/cancel", h.orderAction(h.orders.Cancel))
		v1.POST("/orders/:id/refund", h.orderAction(h.orders.Refund))

		v1.POST("/featured", h.submitFeatured)
		v1.POST("/featured/:id/checkout", h.featuredCheckout)
		v1.GET("/featured/current", h.currentFeatured)

		v1.POST("/projects", h.createProject)
		v1.GET("/projects/:id", h.getProject)

		v1.POST("/wagers", h.placeWager)
		v1.GET("/wagers", h.listWagers)
		v1.GET("/wagers/:id", h.getWager)
		v1.GET("/wallet", h.getWallet)
		v1.GET("/wallet/ledger", h.getLedger)

		admin := v1.Group("/admin")
		{
			admin.POST("/featured/:id/promote", h.forcePromoteFeatured)
			admin.POST("/wagers/:id/settle", h.settleWager)
			admin.POST("/projects/:id/resolve", h.resolveProject)
		}
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck reports ready only when the database answers a ping.
func (h *Handler) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.GetDB().PingContext(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"error":  err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// paymentWebhook hands the raw body to the ingestor. The signature covers the
// exact bytes on the wire, so nothing may be parsed before verification.
func (h *Handler) paymentWebhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}

	res := h.ingestor.Ingest(c.Request.Context(), body, c.GetHeader(signatureHeader))
	c.JSON(res.StatusCode, gin.H{"message": res.Message})
}

// createListing handles listing creation
func (h *Handler) createListing(c *gin.Context) {
	var req service.CreateListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	userID, ok := callerID(c)
	if !ok {
		return
	}
	req.UserID = userID

	listing, err := h.listings.Create(c.Request.Context(), &req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, listing)
}

// listListings returns the caller's listings
func (h *Handler) listListings(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	listings, err := h.listings.ListByUser(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"listings": listings})
}

// getListing handles get listing by ID
func (h *Handler) getListing(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	listing, err := h.listings.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, listing)
}

// listingCheckout starts payment for a draft listing
func (h *Handler) listingCheckout(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	userID, ok := callerID(c)
	if !ok {
		return
	}
	session, err := h.listings.BeginCheckout(c.Request.Context(), id, userID)
	if errors.Is(err, models.ErrAlreadyProcessed) && session != nil {
		c.JSON(http.StatusOK, session)
		return
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// cancelListing cancels an unactivated or active listing
func (h *Handler) cancelListing(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	userID, ok := callerID(c)
	if !ok {
		return
	}
	if err := h.listings.Cancel(c.Request.Context(), id, userID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cancelled"})
}

// deleteListing removes a listing entirely
func (h *Handler) deleteListing(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	userID, ok := callerID(c)
	if !ok {
		return
	}
	if err := h.listings.Delete(c.Request.Context(), id, userID); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// createOrder opens a service order
func (h *Handler) createOrder(c *gin.Context) {
	var req service.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	userID, ok := callerID(c)
	if !ok {
		return
	}
	req.BuyerID = userID

	order, err := h.orders.Create(c.Request.Context(), &req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

// listOrders returns orders the caller participates in
func (h *Handler) listOrders(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	orders, err := h.orders.ListByUser(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

// getOrder handles get order by ID
func (h *Handler) getOrder(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	userID, ok := callerID(c)
	if !ok {
		return
	}
	order, err := h.orders.Get(c.Request.Context(), id, userID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// orderAction adapts one order transition method into a handler.
func (h *Handler) orderAction(fn func(ctx context.Context, orderID, userID int64) (*models.ServiceOrder, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		userID, ok := callerID(c)
		if !ok {
			return
		}
		order, err := fn(c.Request.Context(), id, userID)
		if errors.Is(err, models.ErrAlreadyProcessed) && order != nil {
			// Duplicate submission; the transition already landed.
			c.JSON(http.StatusOK, order)
			return
		}
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

// submitFeatured queues a project for the featured slot
func (h *Handler) submitFeatured(c *gin.Context) {
	var req service.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	userID, ok := callerID(c)
	if !ok {
		return
	}
	req.UserID = userID

	entry, err := h.featured.Submit(c.Request.Context(), &req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

type featuredCheckoutRequest struct {
	PriceCents int64 `json:"price_cents" binding:"required,min=1"`
}

// featuredCheckout starts payment for a queue entry
func (h *Handler) featuredCheckout(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	userID, ok := callerID(c)
	if !ok {
		return
	}

	var req featuredCheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	session, err := h.featured.BeginCheckout(c.Request.Context(), id, userID, req.PriceCents)
	if errors.Is(err, models.ErrAlreadyProcessed) && session != nil {
		c.JSON(http.StatusOK, session)
		return
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// currentFeatured returns the entry holding the featured slot
func (h *Handler) currentFeatured(c *gin.Context) {
	entry, err := h.featured.Current(c.Request.Context())
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			c.JSON(http.StatusOK, gin.H{"featured": nil})
			return
		}
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"featured": entry})
}

// forcePromoteFeatured jumps a paid entry into the slot
func (h *Handler) forcePromoteFeatured(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	entry, err := h.featured.ForcePromote(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

// createProject registers a project for the showcase
func (h *Handler) createProject(c *gin.Context) {
	var req service.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	userID, ok := callerID(c)
	if !ok {
		return
	}
	req.UserID = userID

	project, err := h.wagers.CreateProject(c.Request.Context(), &req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, project)
}

// getProject handles get project by ID
func (h *Handler) getProject(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	project, err := h.wagers.GetProject(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, project)
}

// placeWager bets on a project's MRR growth
func (h *Handler) placeWager(c *gin.Context) {
	var req service.PlaceWagerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	userID, ok := callerID(c)
	if !ok {
		return
	}
	req.UserID = userID

	wager, err := h.wagers.Place(c.Request.Context(), &req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, wager)
}

// listWagers returns the caller's wagers
func (h *Handler) listWagers(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	wagers, err := h.wagers.ListByUser(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"wagers": wagers})
}

// getWager handles get wager by ID
func (h *Handler) getWager(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	userID, ok := callerID(c)
	if !ok {
		return
	}
	wager, err := h.wagers.Get(c.Request.Context(), id, userID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, wager)
}

// getWallet returns the caller's token balance
func (h *Handler) getWallet(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	wallet, err := h.wagers.GetBalance(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, wallet)
}

// getLedger returns the caller's balance audit trail
func (h *Handler) getLedger(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	entries, err := h.wagers.Ledger(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ledger": entries})
}

type settleWagerRequest struct {
	Outcome string `json:"outcome" binding:"required"`
}

// settleWager resolves a single wager
func (h *Handler) settleWager(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req settleWagerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	wager, err := h.wagers.Settle(c.Request.Context(), id, req.Outcome)
	if errors.Is(err, models.ErrAlreadyProcessed) && wager != nil {
		c.JSON(http.StatusOK, wager)
		return
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, wager)
}

type resolveProjectRequest struct {
	AchievedPercent int `json:"achieved_percent"`
}

// resolveProject settles all pending wagers on a project
func (h *Handler) resolveProject(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req resolveProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	settled, err := h.wagers.ResolveProject(c.Request.Context(), id, req.AchievedPercent)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"settled": settled})
}

// pathID parses the :id path parameter, writing the error response itself.
func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID"})
		return 0, false
	}
	return id, true
}

// callerID reads the authenticated user id the edge proxy injected.
func callerID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.GetHeader(userHeader), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing or invalid " + userHeader + " header"})
		return 0, false
	}
	return id, true
}

// writeError maps service errors onto HTTP statuses.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrUnauthorized):
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	case errors.Is(err, models.ErrAlreadyProcessed):
		// Duplicate submissions are no-op successes.
		c.JSON(http.StatusOK, gin.H{"message": "Already processed"})
	case errors.Is(err, models.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": "Invalid state transition"})
	case errors.Is(err, models.ErrInsufficientFunds):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Insufficient funds"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
	}
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
