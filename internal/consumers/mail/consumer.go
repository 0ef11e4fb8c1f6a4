package mail

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/loomline/storefront-backend/internal/mailer"
	"github.com/loomline/storefront-backend/pkg/enums"
	"github.com/loomline/storefront-backend/pkg/logger"
	"github.com/loomline/storefront-backend/pkg/outbox"
	"github.com/loomline/storefront-backend/pkg/outbox/payloads"
)

const mailConsumerName = "mail"

type idempotencyChecker interface {
	CheckAndMarkProcessed(ctx context.Context, consumer, eventID string) (bool, error)
	Delete(ctx context.Context, consumer, eventID string) error
}

// Consumer sends transactional order email off the order event stream while
// honoring Redis idempotency. A confirmation goes out when the order is
// placed and a receipt when payment settles; expiry events are ignored.
type Consumer struct {
	subscription *gcppubsub.Subscriber
	mailer       mailer.Service
	manager      idempotencyChecker
	logg         *logger.Logger
	eventFilter  map[enums.OutboxEventType]struct{}
}

// NewConsumer builds a new mail consumer.
func NewConsumer(subscription *gcppubsub.Subscriber, mailSvc mailer.Service, manager idempotencyChecker, logg *logger.Logger) (*Consumer, error) {
	if subscription == nil {
		return nil, fmt.Errorf("orders subscription required")
	}
	if mailSvc == nil {
		return nil, fmt.Errorf("mailer required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		subscription: subscription,
		mailer:       mailSvc,
		manager:      manager,
		logg:         logg,
		eventFilter: map[enums.OutboxEventType]struct{}{
			enums.EventOrderCreated: {},
			enums.EventOrderPaid:    {},
		},
	}, nil
}

type processResult struct {
	nack bool
}

// Run starts consuming order events until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return c.subscription.Receive(ctx, func(innerCtx context.Context, msg *gcppubsub.Message) {
		if c.process(innerCtx, msg).nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

func (c *Consumer) process(ctx context.Context, msg *gcppubsub.Message) processResult {
	logCtx := c.logg.WithFields(ctx, map[string]any{"message_id": msg.ID})

	var stored outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &stored); err != nil {
		c.logg.Warn(logCtx, "invalid order event envelope")
		return processResult{}
	}

	eventType, err := enums.ParseOutboxEventType(strings.TrimSpace(msg.Attributes["event_type"]))
	if err != nil {
		c.logg.Warn(logCtx, "unknown event type")
		return processResult{}
	}

	eventID := strings.TrimSpace(stored.EventID)
	if eventID == "" {
		eventID = strings.TrimSpace(msg.Attributes["event_id"])
	}

	logCtx = c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_id":   eventID,
		"event_type": eventType,
	})

	if _, ok := c.eventFilter[eventType]; !ok {
		c.logg.Info(logCtx, "event not handled by mail consumer")
		return processResult{}
	}

	parsed, err := uuid.Parse(eventID)
	if err != nil {
		c.logg.Warn(logCtx, "invalid event id")
		return processResult{}
	}

	already, err := c.manager.CheckAndMarkProcessed(logCtx, mailConsumerName, parsed.String())
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{}
	}

	if err := c.dispatch(logCtx, eventType, stored); err != nil {
		c.logg.Error(logCtx, "order email failed", err)
		_ = c.manager.Delete(logCtx, mailConsumerName, parsed.String())
		return processResult{nack: true}
	}

	c.logg.Info(logCtx, "order email sent")
	return processResult{}
}

func (c *Consumer) dispatch(ctx context.Context, eventType enums.OutboxEventType, stored outbox.PayloadEnvelope) error {
	switch eventType {
	case enums.EventOrderCreated:
		var event payloads.OrderCreatedEvent
		if err := json.Unmarshal(stored.Data, &event); err != nil {
			return fmt.Errorf("decode order_created payload: %w", err)
		}
		return c.mailer.SendOrderConfirmation(ctx, confirmationEmail(event, stored.OccurredAt))
	case enums.EventOrderPaid:
		var event payloads.OrderPaidEvent
		if err := json.Unmarshal(stored.Data, &event); err != nil {
			return fmt.Errorf("decode order_paid payload: %w", err)
		}
		return c.mailer.SendOrderReceipt(ctx, receiptEmail(event))
	default:
		return errors.New("event type not routed")
	}
}

func confirmationEmail(event payloads.OrderCreatedEvent, placedAt time.Time) mailer.OrderEmail {
	items := make([]mailer.OrderEmailItem, 0, len(event.Items))
	for _, item := range event.Items {
		items = append(items, mailer.OrderEmailItem{
			Name:           item.Name,
			SKU:            item.SKU,
			Quantity:       item.Quantity,
			UnitPriceCents: item.UnitPriceCents,
			TotalCents:     item.UnitPriceCents * int64(item.Quantity),
		})
	}
	return mailer.OrderEmail{
		Number:     event.Number,
		Email:      event.Email,
		Name:       event.Name,
		TotalCents: event.TotalCents,
		Currency:   event.Currency,
		PlacedAt:   placedAt,
		Items:      items,
	}
}

func receiptEmail(event payloads.OrderPaidEvent) mailer.OrderEmail {
	return mailer.OrderEmail{
		Number:     event.Number,
		Email:      event.Email,
		TotalCents: event.AmountCents,
		PaymentRef: event.PaymentRef,
		PlacedAt:   event.PaidAt,
	}
}
