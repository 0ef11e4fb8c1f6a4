package router

import (
	"context"
	"fmt"

	"github.com/loomline/storefront-backend/internal/analytics/types"
	analyticswriter "github.com/loomline/storefront-backend/internal/analytics/writer"
	"github.com/loomline/storefront-backend/pkg/logger"
	"github.com/loomline/storefront-backend/pkg/outbox/payloads"
)

type orderCreatedHandler struct {
	writer Writer
	logg   *logger.Logger
}

func newOrderCreatedHandler(writer Writer, logg *logger.Logger) Handler {
	return &orderCreatedHandler{writer: writer, logg: logg}
}

func (h *orderCreatedHandler) Handle(ctx context.Context, envelope types.Envelope, payload any) error {
	event, ok := payload.(*payloads.OrderCreatedEvent)
	if !ok {
		return fmt.Errorf("invalid payload for order_created")
	}

	fields := map[string]any{
		"event_type":   envelope.EventType,
		"order_id":     event.OrderID,
		"order_number": event.Number,
		"total_cents":  event.TotalCents,
	}
	logCtx := h.logg.WithFields(ctx, fields)

	row, err := buildOrderCreatedRow(envelope, event)
	if err != nil {
		h.logg.Error(logCtx, "failed to build order fact row", err)
		return err
	}

	if err := h.writer.InsertOrderFact(logCtx, row); err != nil {
		h.logg.Error(logCtx, "failed to insert order fact row", err)
		return err
	}

	h.logg.Info(logCtx, "order_created handler inserted fact row")
	return nil
}

func buildOrderCreatedRow(envelope types.Envelope, event *payloads.OrderCreatedEvent) (types.OrderFactRow, error) {
	row, err := buildBaseRow(envelope, event.OrderID.String(), event.Number, envelope.OccurredAt, event)
	if err != nil {
		return types.OrderFactRow{}, err
	}

	itemsJSON, err := analyticswriter.EncodeJSON(event.Items)
	if err != nil {
		return types.OrderFactRow{}, fmt.Errorf("encode items json: %w", err)
	}

	var units int64
	for _, item := range event.Items {
		units += int64(item.Quantity)
	}

	row.UserID = stringPtr(event.UserID.String())
	row.Currency = stringPtr(string(event.Currency))
	row.ItemCount = int64Ptr(int64(len(event.Items)))
	row.UnitCount = int64Ptr(units)
	row.GrossCents = int64Ptr(event.TotalCents)
	row.Items = itemsJSON
	return row, nil
}
