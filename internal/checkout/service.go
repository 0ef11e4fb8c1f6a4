package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/loomline/storefront-backend/internal/cart"
	"github.com/loomline/storefront-backend/internal/orders"
	"github.com/loomline/storefront-backend/internal/products"
	"github.com/loomline/storefront-backend/pkg/db"
	"github.com/loomline/storefront-backend/pkg/db/models"
	"github.com/loomline/storefront-backend/pkg/enums"
	pkgerrors "github.com/loomline/storefront-backend/pkg/errors"
	"github.com/loomline/storefront-backend/pkg/outbox"
	"github.com/loomline/storefront-backend/pkg/outbox/payloads"
)

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// sequenceSource hands out the per-day counter behind order numbers.
// *redis.Client satisfies it.
type sequenceSource interface {
	NextOrderSequence(ctx context.Context, day string) (int64, error)
}

// Service converts a cart into an order.
type Service interface {
	Execute(ctx context.Context, userID, cartID uuid.UUID, input CheckoutInput) (*orders.OrderDTO, error)
}

// CheckoutInput carries the shipping details collected at checkout.
type CheckoutInput struct {
	Name       string  `json:"name"`
	Email      string  `json:"email"`
	Phone      *string `json:"phone,omitempty"`
	Address1   string  `json:"address1"`
	Address2   *string `json:"address2,omitempty"`
	City       string  `json:"city"`
	PostalCode string  `json:"postal_code"`
	Country    string  `json:"country"`
}

type service struct {
	dbClient *db.Client
	carts    *cart.Repository
	products *products.Repository
	orders   orders.Repository
	outbox   outboxPublisher
	numbers  sequenceSource
}

// NewService builds the checkout service.
func NewService(
	dbClient *db.Client,
	carts *cart.Repository,
	productsRepo *products.Repository,
	ordersRepo orders.Repository,
	publisher outboxPublisher,
	numbers sequenceSource,
) (Service, error) {
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	if carts == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if productsRepo == nil {
		return nil, fmt.Errorf("products repository required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if numbers == nil {
		return nil, fmt.Errorf("sequence source required")
	}
	return &service{
		dbClient: dbClient,
		carts:    carts,
		products: productsRepo,
		orders:   ordersRepo,
		outbox:   publisher,
		numbers:  numbers,
	}, nil
}

// Execute runs the whole checkout in one transaction: stock is claimed with
// a guarded decrement, the order and its frozen line items are written, the
// cart is emptied, and the order.created event rides the same commit. Any
// failure rolls the lot back.
func (s *service) Execute(ctx context.Context, userID, cartID uuid.UUID, input CheckoutInput) (*orders.OrderDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if cartID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart id required")
	}
	shipping, err := validateShipping(input)
	if err != nil {
		return nil, err
	}

	var result *models.Order
	txErr := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		cartRepo := s.carts.WithTx(tx)
		ordersRepo := s.orders.WithTx(tx)
		productsRepo := s.products.WithTx(tx)

		lines, err := cartRepo.ListLines(ctx, cartID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load cart")
		}
		if len(lines) == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
		}

		if err := reserveStock(ctx, productsRepo, lines); err != nil {
			return err
		}

		number, err := s.nextNumber(ctx)
		if err != nil {
			return err
		}

		var total int64
		for _, line := range lines {
			total += line.PriceCents * int64(line.Quantity)
		}

		order := &models.Order{
			Number:     number,
			UserID:     userID,
			Status:     enums.OrderStatusPending,
			TotalCents: total,
			Currency:   enums.CurrencyUSD,
			Email:      shipping.Email,
			Name:       shipping.Name,
			Phone:      shipping.Phone,
			Address1:   shipping.Address1,
			Address2:   shipping.Address2,
			City:       shipping.City,
			PostalCode: shipping.PostalCode,
			Country:    shipping.Country,
		}
		if err := ordersRepo.Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: create order")
		}

		items := make([]models.OrderItem, 0, len(lines))
		snapshots := make([]payloads.OrderItemSnapshot, 0, len(lines))
		for _, line := range lines {
			productID := line.ProductID
			items = append(items, models.OrderItem{
				OrderID:        order.ID,
				ProductID:      &productID,
				Name:           line.Name,
				SKU:            line.SKU,
				UnitPriceCents: line.PriceCents,
				Quantity:       line.Quantity,
				TotalCents:     line.PriceCents * int64(line.Quantity),
			})
			snapshots = append(snapshots, payloads.OrderItemSnapshot{
				ProductID:      &productID,
				Name:           line.Name,
				SKU:            line.SKU,
				UnitPriceCents: line.PriceCents,
				Quantity:       line.Quantity,
			})
		}
		if err := ordersRepo.CreateItems(ctx, items); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: create order items")
		}

		if err := cartRepo.Clear(ctx, cartID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: clear cart")
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: userID, Role: "customer"},
			Version:       1,
			Data: payloads.OrderCreatedEvent{
				OrderID:    order.ID,
				Number:     order.Number,
				UserID:     userID,
				Email:      order.Email,
				Name:       order.Name,
				TotalCents: order.TotalCents,
				Currency:   order.Currency,
				Items:      snapshots,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order created")
		}

		result, err = ordersRepo.FindByID(ctx, order.ID)
		return err
	})
	if txErr != nil {
		if pkgerrors.As(txErr) != nil {
			return nil, txErr
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, txErr, "checkout")
	}
	return orders.NewOrderDTO(result), nil
}

// reserveStock claims stock for every line with a guarded decrement. Any
// line that cannot be satisfied rejects the whole checkout; the per-product
// reasons ride on the error details.
func reserveStock(ctx context.Context, repo *products.Repository, lines []cart.Line) error {
	shortages := map[string]string{}
	for _, line := range lines {
		if !line.IsActive {
			shortages[line.ProductID.String()] = "product is no longer available"
			continue
		}
		if line.Quantity > line.Stock {
			shortages[line.ProductID.String()] = fmt.Sprintf("requested %d, only %d in stock", line.Quantity, line.Stock)
		}
	}
	if len(shortages) > 0 {
		return insufficientStock(shortages)
	}

	for _, line := range lines {
		ok, err := repo.DecrementStock(ctx, line.ProductID, line.Quantity)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: decrement stock")
		}
		if !ok {
			// Lost the race to a concurrent checkout between the cart read
			// and the guarded update.
			shortages[line.ProductID.String()] = fmt.Sprintf("requested %d, stock depleted", line.Quantity)
		}
	}
	if len(shortages) > 0 {
		return insufficientStock(shortages)
	}
	return nil
}

func insufficientStock(shortages map[string]string) error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, "insufficient stock for one or more items").
		WithDetails(shortages)
}

// nextNumber produces numbers like LL-20260114-0042: a UTC day bucket plus a
// counter that resets daily.
func (s *service) nextNumber(ctx context.Context) (string, error) {
	day := time.Now().UTC().Format("20060102")
	seq, err := s.numbers.NextOrderSequence(ctx, day)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redis: order sequence")
	}
	return fmt.Sprintf("LL-%s-%04d", day, seq), nil
}
