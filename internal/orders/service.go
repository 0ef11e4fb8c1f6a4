package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	qrcode "github.com/skip2/go-qrcode"
	sq "github.com/square/square-go-sdk"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/loomline/storefront-backend/internal/products"
	"github.com/loomline/storefront-backend/pkg/db"
	"github.com/loomline/storefront-backend/pkg/db/models"
	"github.com/loomline/storefront-backend/pkg/enums"
	pkgerrors "github.com/loomline/storefront-backend/pkg/errors"
	"github.com/loomline/storefront-backend/pkg/outbox"
	"github.com/loomline/storefront-backend/pkg/outbox/payloads"
	"github.com/loomline/storefront-backend/pkg/square"
)

// qrSize is the pixel edge of the generated payment QR PNG.
const qrSize = 512

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type paymentGateway interface {
	CreatePayment(ctx context.Context, params square.PaymentCreateParams) (*sq.Payment, error)
	LocationID() string
}

// Service exposes order reads and lifecycle mutations. Checkout itself
// lives in the checkout package; everything after order creation is here.
type Service interface {
	ListMine(ctx context.Context, userID uuid.UUID, input ListOrdersInput) (*ListResult, error)
	GetMine(ctx context.Context, userID, orderID uuid.UUID) (*OrderDTO, error)
	List(ctx context.Context, input ListOrdersInput) (*ListResult, error)
	Get(ctx context.Context, orderID uuid.UUID) (*OrderDTO, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, input UpdateStatusInput) (*OrderDTO, error)
	Pay(ctx context.Context, userID, orderID uuid.UUID, input PayOrderInput) (*OrderDTO, error)
	ConfirmPayment(ctx context.Context, number, paymentRef string) error
	QRCode(ctx context.Context, userID, orderID uuid.UUID) ([]byte, error)
	ExpirePending(ctx context.Context, cutoff time.Time) (int, error)
}

type service struct {
	repo     Repository
	products *products.Repository
	dbClient *db.Client
	outbox   outboxPublisher
	gateway  paymentGateway
}

// NewService builds the order service. The payment gateway is optional;
// deployments on the QR/manual-transfer flow run without one.
func NewService(repo Repository, productsRepo *products.Repository, dbClient *db.Client, publisher outboxPublisher, gateway paymentGateway) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if productsRepo == nil {
		return nil, fmt.Errorf("products repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		repo:     repo,
		products: productsRepo,
		dbClient: dbClient,
		outbox:   publisher,
		gateway:  gateway,
	}, nil
}

// ListMine returns one page of the user's own orders.
func (s *service) ListMine(ctx context.Context, userID uuid.UUID, input ListOrdersInput) (*ListResult, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	return s.list(ctx, &userID, input)
}

// GetMine returns the order when it belongs to the user.
func (s *service) GetMine(ctx context.Context, userID, orderID uuid.UUID) (*OrderDTO, error) {
	order, err := s.loadOwned(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	return NewOrderDTO(order), nil
}

// List returns one page across all users, optionally filtered by status.
func (s *service) List(ctx context.Context, input ListOrdersInput) (*ListResult, error) {
	return s.list(ctx, nil, input)
}

// Get returns any order by id.
func (s *service) Get(ctx context.Context, orderID uuid.UUID) (*OrderDTO, error) {
	order, err := s.findOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return NewOrderDTO(order), nil
}

// UpdateStatus moves the order along the lifecycle graph. Reclaiming a
// pending order (cancel or expire) puts its stock back.
func (s *service) UpdateStatus(ctx context.Context, orderID uuid.UUID, input UpdateStatusInput) (*OrderDTO, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	if !input.Status.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid order status %q", string(input.Status))
	}

	var actor *outbox.ActorRef
	if input.ActorUserID != uuid.Nil {
		actor = &outbox.ActorRef{UserID: input.ActorUserID, Role: input.ActorRole}
	}

	var result *models.Order
	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		order, err := s.repo.WithTx(tx).FindByID(ctx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load order")
		}
		if err := s.applyTransition(ctx, tx, order, input.Status, nil, actor); err != nil {
			return err
		}
		result, err = s.repo.WithTx(tx).FindByID(ctx, order.ID)
		return err
	}); err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
	}
	return NewOrderDTO(result), nil
}

// Pay charges the tokenized card source through the gateway. A completed
// payment marks the order paid immediately; anything still in flight keeps
// the order pending and lets the webhook finish it.
func (s *service) Pay(ctx context.Context, userID, orderID uuid.UUID, input PayOrderInput) (*OrderDTO, error) {
	if s.gateway == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payment gateway not configured")
	}
	input.SourceID = strings.TrimSpace(input.SourceID)
	if input.SourceID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "source_id is required")
	}

	order, err := s.loadOwned(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != enums.OrderStatusPending {
		return nil, pkgerrors.Newf(pkgerrors.CodeStateConflict, "order %s is not awaiting payment", order.Number)
	}

	payment, err := s.gateway.CreatePayment(ctx, square.PaymentCreateParams{
		AmountCents: order.TotalCents,
		Currency:    string(order.Currency),
		LocationID:  s.gateway.LocationID(),
		SourceID:    input.SourceID,
		ReferenceID: order.Number,
		BuyerEmail:  order.Email,
		Note:        "Loomline order " + order.Number,
	})
	if err != nil {
		return nil, err
	}

	paymentRef := stringValue(payment.GetID())
	if paymentRef == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "square returned a payment without an id")
	}

	if strings.EqualFold(stringValue(payment.GetStatus()), "COMPLETED") {
		if err := s.markPaid(ctx, order.ID, paymentRef); err != nil {
			return nil, err
		}
	} else {
		// Approved-but-uncaptured payments are finished by the webhook;
		// keep the reference so the two can be matched up.
		if err := s.repo.UpdateFields(ctx, order.ID, map[string]any{"payment_ref": paymentRef}); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: store payment reference")
		}
	}

	return s.Get(ctx, order.ID)
}

// ConfirmPayment marks the order referenced by a gateway notification as
// paid. Replayed notifications on an already paid order are no-ops.
func (s *service) ConfirmPayment(ctx context.Context, number, paymentRef string) error {
	number = strings.TrimSpace(number)
	if number == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "order number is required")
	}

	order, err := s.repo.FindByNumber(ctx, number)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load order")
	}
	if order.Status == enums.OrderStatusPaid {
		return nil
	}

	return s.markPaid(ctx, order.ID, paymentRef)
}

// QRCode renders a PNG encoding the payment reference and amount so a
// banking app can pre-fill the transfer.
func (s *service) QRCode(ctx context.Context, userID, orderID uuid.UUID) ([]byte, error) {
	order, err := s.loadOwned(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != enums.OrderStatusPending {
		return nil, pkgerrors.Newf(pkgerrors.CodeStateConflict, "order %s is not awaiting payment", order.Number)
	}

	payload := fmt.Sprintf("loomline:pay?order=%s&amount=%d&currency=%s", order.Number, order.TotalCents, order.Currency)
	png, err := qrcode.Encode(payload, qrcode.Medium, qrSize)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode qr code")
	}
	return png, nil
}

// ExpirePending reclaims pending orders created before cutoff. Each order
// expires in its own transaction so one failure does not abort the sweep.
func (s *service) ExpirePending(ctx context.Context, cutoff time.Time) (int, error) {
	candidates, err := s.repo.FindPendingBefore(ctx, cutoff)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list pending orders")
	}

	expired := 0
	var errs error
	for i := range candidates {
		id := candidates[i].ID
		err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
			order, err := s.repo.WithTx(tx).FindByID(ctx, id)
			if err != nil {
				return err
			}
			if order.Status != enums.OrderStatusPending {
				return nil
			}
			return s.applyTransition(ctx, tx, order, enums.OrderStatusExpired, nil, nil)
		})
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("expire order %s: %w", id, err))
			continue
		}
		expired++
	}
	return expired, errs
}

func (s *service) list(ctx context.Context, userID *uuid.UUID, input ListOrdersInput) (*ListResult, error) {
	query := ListQuery{UserID: userID, Pagination: input.Pagination}
	if raw := strings.TrimSpace(input.Status); raw != "" {
		status, err := enums.ParseOrderStatus(raw)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter")
		}
		query.Status = &status
	}

	rows, nextCursor, err := s.repo.List(ctx, query)
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}

	dtos := make([]OrderDTO, 0, len(rows))
	for i := range rows {
		dtos = append(dtos, *NewOrderDTO(&rows[i]))
	}
	return &ListResult{Orders: dtos, NextCursor: nextCursor}, nil
}

func (s *service) findOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load order")
	}
	return order, nil
}

func (s *service) loadOwned(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	order, err := s.findOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to user")
	}
	return order, nil
}

func (s *service) markPaid(ctx context.Context, orderID uuid.UUID, paymentRef string) error {
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		order, err := s.repo.WithTx(tx).FindByID(ctx, orderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load order")
		}
		var ref *string
		if paymentRef != "" {
			ref = &paymentRef
		}
		return s.applyTransition(ctx, tx, order, enums.OrderStatusPaid, ref, nil)
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return err
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark order paid")
	}
	return nil
}

// applyTransition enforces the lifecycle graph and performs the side
// effects of the step: timestamps, stock restoration, outbox events. Runs
// inside the caller's transaction.
func (s *service) applyTransition(ctx context.Context, tx *gorm.DB, order *models.Order, next enums.OrderStatus, paymentRef *string, actor *outbox.ActorRef) error {
	if order.Status == next {
		return nil
	}
	if !order.Status.CanTransitionTo(next) {
		return pkgerrors.Newf(pkgerrors.CodeStateConflict, "order cannot move from %s to %s", order.Status, next).
			WithDetails(map[string]string{
				"from": order.Status.String(),
				"to":   next.String(),
			})
	}

	now := time.Now().UTC()
	updates := map[string]any{"status": next}
	switch next {
	case enums.OrderStatusPaid:
		updates["paid_at"] = now
		if paymentRef != nil {
			updates["payment_ref"] = *paymentRef
		}
	case enums.OrderStatusCanceled:
		updates["canceled_at"] = now
	}

	if err := s.repo.WithTx(tx).UpdateFields(ctx, order.ID, updates); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update order")
	}

	restocked := 0
	if order.Status == enums.OrderStatusPending &&
		(next == enums.OrderStatusCanceled || next == enums.OrderStatusExpired) {
		txProducts := s.products.WithTx(tx)
		for _, item := range order.Items {
			if item.ProductID == nil {
				continue
			}
			if err := txProducts.RestoreStock(ctx, *item.ProductID, item.Quantity); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: restore stock")
			}
			restocked++
		}
	}

	switch next {
	case enums.OrderStatusPaid:
		ref := ""
		if paymentRef != nil {
			ref = *paymentRef
		} else if order.PaymentRef != nil {
			ref = *order.PaymentRef
		}
		event := outbox.DomainEvent{
			EventType:     enums.EventOrderPaid,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actor,
			Version:       1,
			Data: payloads.OrderPaidEvent{
				OrderID:     order.ID,
				Number:      order.Number,
				Email:       order.Email,
				PaymentRef:  ref,
				AmountCents: order.TotalCents,
				PaidAt:      now,
			},
		}
		if err := s.outbox.EmitIfNotExists(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order paid")
		}
	case enums.OrderStatusExpired:
		event := outbox.DomainEvent{
			EventType:     enums.EventOrderExpired,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actor,
			Version:       1,
			Data: payloads.OrderExpiredEvent{
				OrderID:        order.ID,
				Number:         order.Number,
				Email:          order.Email,
				ExpiredAt:      now,
				RestockedItems: restocked,
			},
		}
		if err := s.outbox.EmitIfNotExists(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order expired")
		}
	}
	return nil
}

func stringValue(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}
