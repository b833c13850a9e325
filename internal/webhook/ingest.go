package webhook

import (
	"context"
	"errors"
	"net/http"
	"time"

	"builders-core/internal/models"
	"builders-core/internal/util"

	"go.uber.org/zap"
)

// Activator applies payment-confirmed transitions. Implemented by the listing
// and featured services.
type Activator interface {
	ActivateListing(ctx context.Context, listingID int64, paymentRef string) error
	MarkFeaturedPaid(ctx context.Context, entryID int64, paymentRef string) error
}

// EventLog is the persistent event-id dedupe record.
type EventLog interface {
	IsEventProcessed(ctx context.Context, eventID string) (bool, error)
	MarkEventProcessed(ctx context.Context, eventID, eventType string) (bool, error)
}

// FastDedupe is an optional TTL-bounded duplicate check consulted before the
// durable event log. Any failure is treated as a miss; correctness never
// depends on it.
type FastDedupe interface {
	EventSeen(ctx context.Context, eventID string) (bool, error)
	MarkEventSeen(ctx context.Context, eventID string, ttl time.Duration) error
}

// seenTTL bounds the fast-path marker; providers stop retrying well within it.
const seenTTL = 24 * time.Hour

// Result is the HTTP-style outcome handed back to the provider. 2xx means
// "do not retry", including not-found and already-processed; 5xx means the
// provider's retry mechanism should re-deliver.
type Result struct {
	StatusCode int    `json:"-"`
	Message    string `json:"message"`
}

// Ingestor is the single ingestion entrypoint for provider webhooks.
type Ingestor struct {
	verifier  *Verifier
	activator Activator
	events    EventLog
	seen      FastDedupe
	logger    *zap.Logger
}

// NewIngestor creates a webhook ingestor. seen may be nil.
func NewIngestor(verifier *Verifier, activator Activator, events EventLog, seen FastDedupe) *Ingestor {
	return &Ingestor{
		verifier:  verifier,
		activator: activator,
		events:    events,
		seen:      seen,
		logger:    util.GetLogger(),
	}
}

// Ingest verifies, parses and applies one delivery. The activation itself is
// a conditional update, so the same provider event id produces the side
// effect at most once even under duplicate or concurrent delivery; the event
// log on top short-circuits redeliveries of already-completed events.
func (ing *Ingestor) Ingest(ctx context.Context, body []byte, signatureHeader string) Result {
	return ing.ingest(ctx, body, signatureHeader, time.Now().UTC())
}

func (ing *Ingestor) ingest(ctx context.Context, body []byte, signatureHeader string, now time.Time) Result {
	if err := ing.verifier.Verify(body, signatureHeader, now); err != nil {
		util.WebhookEventsTotal.WithLabelValues("signature_invalid").Inc()
		ing.logger.Warn("Webhook signature rejected", zap.Error(err))
		return Result{StatusCode: http.StatusBadRequest, Message: "invalid signature"}
	}

	event, err := ParseEvent(body)
	if err != nil {
		util.WebhookEventsTotal.WithLabelValues("malformed").Inc()
		ing.logger.Warn("Webhook payload rejected", zap.Error(err))
		return Result{StatusCode: http.StatusBadRequest, Message: "malformed event"}
	}

	if event.Type != EventCheckoutCompleted {
		util.WebhookEventsTotal.WithLabelValues("ignored").Inc()
		return Result{StatusCode: http.StatusOK, Message: "event type ignored"}
	}

	if ing.seen != nil {
		if dup, err := ing.seen.EventSeen(ctx, event.ID); err == nil && dup {
			util.WebhookEventsTotal.WithLabelValues("duplicate").Inc()
			return Result{StatusCode: http.StatusOK, Message: "already processed"}
		}
	}

	processed, err := ing.events.IsEventProcessed(ctx, event.ID)
	if err != nil {
		util.WebhookEventsTotal.WithLabelValues("transient_error").Inc()
		ing.logger.Error("Failed to check event log", zap.String("event_id", event.ID), zap.Error(err))
		return Result{StatusCode: http.StatusInternalServerError, Message: "transient failure"}
	}
	if processed {
		util.WebhookEventsTotal.WithLabelValues("duplicate").Inc()
		ing.logger.Info("Duplicate webhook delivery", zap.String("event_id", event.ID))
		return Result{StatusCode: http.StatusOK, Message: "already processed"}
	}

	switch event.PaymentType {
	case PaymentTypeLocalListing, PaymentTypeAdvertisement, PaymentTypeServiceListing:
		err = ing.activator.ActivateListing(ctx, event.EntityID, event.PaymentReference)
	case PaymentTypeFeaturedEntry:
		err = ing.activator.MarkFeaturedPaid(ctx, event.EntityID, event.PaymentReference)
	default:
		util.WebhookEventsTotal.WithLabelValues("unknown_type").Inc()
		ing.logger.Warn("Unknown payment type",
			zap.String("event_id", event.ID),
			zap.String("payment_type", event.PaymentType))
		return Result{StatusCode: http.StatusOK, Message: "unknown payment type, ignoring"}
	}

	switch {
	case err == nil:
		// fallthrough to marking processed
	case errors.Is(err, models.ErrAlreadyProcessed):
		util.WebhookEventsTotal.WithLabelValues("duplicate").Inc()
		ing.logger.Info("Entity already activated",
			zap.String("event_id", event.ID),
			zap.Int64("entity_id", event.EntityID))
		return Result{StatusCode: http.StatusOK, Message: "already processed"}
	case errors.Is(err, models.ErrNotFound):
		// Retrying an event that references a missing entity can never
		// succeed, so acknowledge it.
		util.WebhookEventsTotal.WithLabelValues("entity_missing").Inc()
		ing.logger.Warn("Webhook references unknown entity",
			zap.String("event_id", event.ID),
			zap.Int64("entity_id", event.EntityID))
		return Result{StatusCode: http.StatusOK, Message: "entity not found, ignoring"}
	case errors.Is(err, models.ErrInvalidTransition):
		util.WebhookEventsTotal.WithLabelValues("invalid_state").Inc()
		ing.logger.Warn("Webhook entity in unexpected state",
			zap.String("event_id", event.ID),
			zap.Int64("entity_id", event.EntityID))
		return Result{StatusCode: http.StatusOK, Message: "entity not payable, ignoring"}
	default:
		util.WebhookEventsTotal.WithLabelValues("transient_error").Inc()
		ing.logger.Error("Webhook transition failed",
			zap.String("event_id", event.ID),
			zap.Int64("entity_id", event.EntityID),
			zap.Error(err))
		return Result{StatusCode: http.StatusInternalServerError, Message: "transient failure"}
	}

	// Record the event id only after the transition landed; a crash before
	// this point leaves the event unrecorded and the retry converges via the
	// conditional update.
	if _, err := ing.events.MarkEventProcessed(ctx, event.ID, event.Type); err != nil {
		ing.logger.Error("Failed to record processed event",
			zap.String("event_id", event.ID), zap.Error(err))
	}
	if ing.seen != nil {
		if err := ing.seen.MarkEventSeen(ctx, event.ID, seenTTL); err != nil {
			ing.logger.Warn("Failed to mark event seen", zap.String("event_id", event.ID), zap.Error(err))
		}
	}

	util.WebhookEventsTotal.WithLabelValues("applied").Inc()
	ing.logger.Info("Webhook applied",
		zap.String("event_id", event.ID),
		zap.String("payment_type", event.PaymentType),
		zap.Int64("entity_id", event.EntityID))
	return Result{StatusCode: http.StatusOK, Message: "ok"}
}
