package router

import (
	"context"
	"fmt"

	"github.com/loomline/storefront-backend/internal/analytics/types"
	"github.com/loomline/storefront-backend/pkg/logger"
	"github.com/loomline/storefront-backend/pkg/outbox/payloads"
)

type orderPaidHandler struct {
	writer Writer
	logg   *logger.Logger
}

func newOrderPaidHandler(writer Writer, logg *logger.Logger) Handler {
	return &orderPaidHandler{writer: writer, logg: logg}
}

func (h *orderPaidHandler) Handle(ctx context.Context, envelope types.Envelope, payload any) error {
	event, ok := payload.(*payloads.OrderPaidEvent)
	if !ok {
		return fmt.Errorf("invalid payload for order_paid")
	}
	fields := map[string]any{
		"event_type":   envelope.EventType,
		"order_id":     event.OrderID,
		"order_number": event.Number,
		"amount_cents": event.AmountCents,
	}
	logCtx := h.logg.WithFields(ctx, fields)

	// Revenue counts under the moment the charge settled, not under the
	// publish time of the event.
	row, err := buildBaseRow(envelope, event.OrderID.String(), event.Number, event.PaidAt, event)
	if err != nil {
		h.logg.Error(logCtx, "failed to build order fact row", err)
		return err
	}
	row.SettledCents = int64Ptr(event.AmountCents)
	row.PaymentRef = stringPtr(event.PaymentRef)

	if err := h.writer.InsertOrderFact(logCtx, row); err != nil {
		h.logg.Error(logCtx, "failed to insert order fact row", err)
		return err
	}

	h.logg.Info(logCtx, "order_paid handler inserted fact row")
	return nil
}
