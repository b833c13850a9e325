package service

import (
	"context"
	"fmt"

	"builders-core/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CheckoutSession is the external provider's handle for a payment flow. The
// core stores only the session id; activation arrives later via webhook.
type CheckoutSession struct {
	SessionID   string `json:"session_id"`
	RedirectURL string `json:"redirect_url"`
}

// CheckoutClient creates provider checkout sessions.
type CheckoutClient interface {
	CreateSession(ctx context.Context, paymentType string, entityID, priceCents int64) (*CheckoutSession, error)
}

// LocalCheckoutClient stands in for the payment provider's session API. It
// mints deterministic-shaped session ids and a redirect URL pointing at the
// local checkout page.
type LocalCheckoutClient struct {
	baseURL string
	logger  *zap.Logger
}

// NewLocalCheckoutClient creates a LocalCheckoutClient.
func NewLocalCheckoutClient(baseURL string) *LocalCheckoutClient {
	return &LocalCheckoutClient{
		baseURL: baseURL,
		logger:  util.GetLogger(),
	}
}

// CreateSession mints a checkout session for an entity.
func (c *LocalCheckoutClient) CreateSession(ctx context.Context, paymentType string, entityID, priceCents int64) (*CheckoutSession, error) {
	sessionID := fmt.Sprintf("cs_%s", uuid.New().String())

	util.CheckoutSessionsTotal.Inc()
	c.logger.Info("Checkout session created",
		zap.String("session_id", sessionID),
		zap.String("payment_type", paymentType),
		zap.Int64("entity_id", entityID),
		zap.Int64("price_cents", priceCents))

	return &CheckoutSession{
		SessionID:   sessionID,
		RedirectURL: fmt.Sprintf("%s/checkout/%s", c.baseURL, sessionID),
	}, nil
}
