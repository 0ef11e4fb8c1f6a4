package router

import (
	"fmt"
	"time"

	"github.com/loomline/storefront-backend/internal/analytics/types"
	analyticswriter "github.com/loomline/storefront-backend/internal/analytics/writer"
)

// buildBaseRow assembles the fields every lifecycle fact shares. An event
// timestamp of zero falls back to the envelope's occurred_at.
func buildBaseRow(envelope types.Envelope, orderID, orderNumber string, occurred time.Time, payload any) (types.OrderFactRow, error) {
	if occurred.IsZero() {
		occurred = envelope.OccurredAt
	}

	payloadJSON, err := analyticswriter.EncodeJSON(payload)
	if err != nil {
		return types.OrderFactRow{}, fmt.Errorf("encode payload json: %w", err)
	}

	return types.OrderFactRow{
		EventID:     envelope.EventID,
		EventType:   string(envelope.EventType),
		OccurredAt:  occurred.UTC(),
		OrderID:     stringPtr(orderID),
		OrderNumber: stringPtr(orderNumber),
		Payload:     payloadJSON,
	}, nil
}
