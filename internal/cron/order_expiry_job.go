package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/loomline/storefront-backend/pkg/logger"
)

const defaultPendingTTL = 30 * time.Minute

type pendingExpirer interface {
	ExpirePending(ctx context.Context, cutoff time.Time) (int, error)
}

// OrderExpiryJobParams configure the pending order sweep.
type OrderExpiryJobParams struct {
	Logger *logger.Logger
	Orders pendingExpirer
	// PendingTTL is how long a pending order holds its stock before the
	// sweep reclaims it.
	PendingTTL time.Duration
}

// NewOrderExpiryJob builds the cron job that expires stale pending orders.
// Restocking and the order_expired event happen inside the orders service,
// one transaction per order.
func NewOrderExpiryJob(params OrderExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders service required")
	}
	ttl := params.PendingTTL
	if ttl <= 0 {
		ttl = defaultPendingTTL
	}
	return &orderExpiryJob{
		logg:   params.Logger,
		orders: params.Orders,
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

type orderExpiryJob struct {
	logg   *logger.Logger
	orders pendingExpirer
	ttl    time.Duration
	now    func() time.Time
}

func (j *orderExpiryJob) Name() string { return "order-expiry" }

func (j *orderExpiryJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.ttl)
	expired, err := j.orders.ExpirePending(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("expire pending orders: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":  cutoff,
		"expired": expired,
	})
	j.logg.Info(logCtx, "order expiry sweep complete")
	return nil
}
