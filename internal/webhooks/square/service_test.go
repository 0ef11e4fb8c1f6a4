package squarewebhook

import (
	"context"
	"testing"

	pkgerrors "github.com/loomline/storefront-backend/pkg/errors"
	"github.com/loomline/storefront-backend/pkg/logger"
)

type confirmCall struct {
	number     string
	paymentRef string
}

type stubOrders struct {
	calls []confirmCall
	err   error
}

func (s *stubOrders) ConfirmPayment(ctx context.Context, number, paymentRef string) error {
	s.calls = append(s.calls, confirmCall{number: number, paymentRef: paymentRef})
	return s.err
}

func newWebhookService(t *testing.T, orders *stubOrders) *Service {
	t.Helper()
	svc, err := NewService(orders, logger.New(logger.Options{ServiceName: "test"}))
	if err != nil {
		t.Fatalf("new webhook service: %v", err)
	}
	return svc
}

func paymentEvent(eventType, status, reference string) *Event {
	return &Event{
		EventID: "evt-1",
		Type:    eventType,
		Data: EventData{
			Type: "payment",
			ID:   "pay-1",
			Object: EventObject{
				Payment: &Payment{
					ID:          "pay-1",
					Status:      status,
					ReferenceID: reference,
				},
			},
		},
	}
}

func TestHandleEventSettlesCompletedPayment(t *testing.T) {
	orders := &stubOrders{}
	svc := newWebhookService(t, orders)

	err := svc.HandleEvent(context.Background(), paymentEvent("payment.updated", "COMPLETED", "LL-20260601-0001"))
	if err != nil {
		t.Fatalf("handle event: %v", err)
	}
	if len(orders.calls) != 1 {
		t.Fatalf("expected one confirmation, got %d", len(orders.calls))
	}
	if orders.calls[0].number != "LL-20260601-0001" || orders.calls[0].paymentRef != "pay-1" {
		t.Fatalf("unexpected confirmation args: %+v", orders.calls[0])
	}
}

func TestHandleEventIgnoresNonTerminalStatus(t *testing.T) {
	orders := &stubOrders{}
	svc := newWebhookService(t, orders)
	ctx := context.Background()

	for _, status := range []string{"APPROVED", "PENDING", "FAILED", "CANCELED"} {
		if err := svc.HandleEvent(ctx, paymentEvent("payment.updated", status, "LL-20260601-0001")); err != nil {
			t.Fatalf("status %s: %v", status, err)
		}
	}
	if len(orders.calls) != 0 {
		t.Fatalf("expected no confirmations, got %d", len(orders.calls))
	}
}

func TestHandleEventIgnoresUnrelatedTypes(t *testing.T) {
	orders := &stubOrders{}
	svc := newWebhookService(t, orders)

	event := &Event{EventID: "evt-2", Type: "refund.created"}
	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("handle unrelated event: %v", err)
	}
	if len(orders.calls) != 0 {
		t.Fatalf("expected no confirmations, got %d", len(orders.calls))
	}
}

func TestHandleEventValidatesPayload(t *testing.T) {
	orders := &stubOrders{}
	svc := newWebhookService(t, orders)
	ctx := context.Background()

	err := svc.HandleEvent(ctx, nil)
	requireCode(t, err, pkgerrors.CodeValidation)

	missing := &Event{Type: "payment.updated"}
	err = svc.HandleEvent(ctx, missing)
	requireCode(t, err, pkgerrors.CodeValidation)

	err = svc.HandleEvent(ctx, paymentEvent("payment.updated", "COMPLETED", "   "))
	requireCode(t, err, pkgerrors.CodeValidation)
}

func TestHandleEventToleratesUnknownOrder(t *testing.T) {
	orders := &stubOrders{err: pkgerrors.New(pkgerrors.CodeNotFound, "order not found")}
	svc := newWebhookService(t, orders)

	err := svc.HandleEvent(context.Background(), paymentEvent("payment.updated", "COMPLETED", "LL-TEST-0000"))
	if err != nil {
		t.Fatalf("expected unknown order to be tolerated, got %v", err)
	}
}

func TestHandleEventPropagatesFailures(t *testing.T) {
	orders := &stubOrders{err: pkgerrors.New(pkgerrors.CodeDependency, "db: load order")}
	svc := newWebhookService(t, orders)

	err := svc.HandleEvent(context.Background(), paymentEvent("payment.updated", "COMPLETED", "LL-20260601-0001"))
	requireCode(t, err, pkgerrors.CodeDependency)
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with code %s, got nil", code)
	}
	pkgErr := pkgerrors.As(err)
	if pkgErr == nil {
		t.Fatalf("expected *errors.Error, got %T: %v", err, err)
	}
	if pkgErr.Code() != code {
		t.Fatalf("expected code %s, got %s (%v)", code, pkgErr.Code(), err)
	}
}
