package squarewebhook

import (
	"context"
	"fmt"
	"strings"

	pkgerrors "github.com/loomline/storefront-backend/pkg/errors"
	"github.com/loomline/storefront-backend/pkg/logger"
)

// paymentCompleted is the terminal Square payment status that settles an order.
const paymentCompleted = "COMPLETED"

type ordersService interface {
	ConfirmPayment(ctx context.Context, number, paymentRef string) error
}

// Event is the Square webhook envelope.
type Event struct {
	EventID string    `json:"event_id"`
	Type    string    `json:"type"`
	Data    EventData `json:"data"`
}

// EventData carries the typed object the event describes.
type EventData struct {
	Type   string      `json:"type"`
	ID     string      `json:"id"`
	Object EventObject `json:"object"`
}

// EventObject wraps the payment payload for payment.* events.
type EventObject struct {
	Payment *Payment `json:"payment"`
}

// Payment is the slice of Square's payment object the storefront reads.
// ReferenceID carries the order number the charge was created with.
type Payment struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	ReferenceID string `json:"reference_id"`
}

// Service settles orders from Square payment notifications.
type Service struct {
	orders ordersService
	logg   *logger.Logger
}

// NewService constructs the webhook service.
func NewService(orders ordersService, logg *logger.Logger) (*Service, error) {
	if orders == nil {
		return nil, fmt.Errorf("orders service is required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &Service{orders: orders, logg: logg}, nil
}

// HandleEvent processes one verified Square event. Non-payment events and
// non-terminal payment statuses are acknowledged without action; failed
// charges leave the order pending so the customer can retry before the
// expiry sweep reclaims it.
func (s *Service) HandleEvent(ctx context.Context, event *Event) error {
	if event == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "square event required")
	}

	switch strings.ToLower(event.Type) {
	case "payment.created", "payment.updated":
		return s.handlePayment(ctx, event)
	default:
		return nil
	}
}

func (s *Service) handlePayment(ctx context.Context, event *Event) error {
	payment := event.Data.Object.Payment
	if payment == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment payload missing")
	}
	if !strings.EqualFold(payment.Status, paymentCompleted) {
		return nil
	}

	number := strings.TrimSpace(payment.ReferenceID)
	if number == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment reference missing")
	}

	if err := s.orders.ConfirmPayment(ctx, number, payment.ID); err != nil {
		// Sandbox test events and deleted orders reference numbers we never
		// issued; retrying those forever helps nobody.
		if pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
			s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
				"order_number": number,
				"payment_id":   payment.ID,
			}), "payment notification for unknown order")
			return nil
		}
		return err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"order_number": number,
		"payment_id":   payment.ID,
	}), "order settled from payment notification")
	return nil
}
