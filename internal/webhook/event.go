package webhook

import (
	"encoding/json"
	"fmt"
	"strconv"

	"builders-core/internal/models"
)

// Provider event types we act on. Anything else is acknowledged and ignored.
const (
	EventCheckoutCompleted = "checkout.session.completed"
)

// Payment types carried in event metadata, naming the entity kind to
// transition.
const (
	PaymentTypeLocalListing   = "local_listing"
	PaymentTypeAdvertisement  = "advertisement"
	PaymentTypeServiceListing = "service_listing"
	PaymentTypeFeaturedEntry  = "featured_entry"
)

// Event is the provider payload after boundary validation. EntityID arrives
// as a metadata string and is parsed here, before any component is invoked.
type Event struct {
	ID               string
	Type             string
	PaymentType      string
	EntityID         int64
	PaymentReference string
}

type rawEvent struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Metadata struct {
		Type     string `json:"type"`
		EntityID string `json:"entityId"`
	} `json:"metadata"`
	PaymentReference string `json:"paymentReference"`
}

// ParseEvent validates the raw body into a typed Event. All failures wrap
// models.ErrValidation; the sender gets a non-retryable client error.
func ParseEvent(body []byte) (*Event, error) {
	var raw rawEvent
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: malformed event body: %v", models.ErrValidation, err)
	}

	if raw.ID == "" {
		return nil, fmt.Errorf("%w: event id missing", models.ErrValidation)
	}
	if raw.Type == "" {
		return nil, fmt.Errorf("%w: event type missing", models.ErrValidation)
	}

	ev := &Event{
		ID:               raw.ID,
		Type:             raw.Type,
		PaymentType:      raw.Metadata.Type,
		PaymentReference: raw.PaymentReference,
	}

	// Metadata is only required for events we transition on.
	if raw.Type == EventCheckoutCompleted {
		if raw.Metadata.Type == "" || raw.Metadata.EntityID == "" {
			return nil, fmt.Errorf("%w: checkout event missing metadata", models.ErrValidation)
		}
		id, err := strconv.ParseInt(raw.Metadata.EntityID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: bad entity id %q", models.ErrValidation, raw.Metadata.EntityID)
		}
		ev.EntityID = id
	}

	return ev, nil
}
