package router

import (
	"context"
	"fmt"

	"github.com/loomline/storefront-backend/internal/analytics/types"
	"github.com/loomline/storefront-backend/pkg/logger"
	"github.com/loomline/storefront-backend/pkg/outbox/payloads"
)

type orderExpiredHandler struct {
	writer Writer
	logg   *logger.Logger
}

func newOrderExpiredHandler(writer Writer, logg *logger.Logger) Handler {
	return &orderExpiredHandler{writer: writer, logg: logg}
}

func (h *orderExpiredHandler) Handle(ctx context.Context, envelope types.Envelope, payload any) error {
	event, ok := payload.(*payloads.OrderExpiredEvent)
	if !ok {
		return fmt.Errorf("invalid payload for order_expired")
	}
	fields := map[string]any{
		"event_type":   envelope.EventType,
		"order_id":     event.OrderID,
		"order_number": event.Number,
		"expired_at":   event.ExpiredAt,
	}
	logCtx := h.logg.WithFields(ctx, fields)

	row, err := buildBaseRow(envelope, event.OrderID.String(), event.Number, event.ExpiredAt, event)
	if err != nil {
		h.logg.Error(logCtx, "failed to build order fact row", err)
		return err
	}

	if err := h.writer.InsertOrderFact(logCtx, row); err != nil {
		h.logg.Error(logCtx, "failed to insert order fact row", err)
		return err
	}

	h.logg.Info(logCtx, "order_expired handler inserted fact row")
	return nil
}
