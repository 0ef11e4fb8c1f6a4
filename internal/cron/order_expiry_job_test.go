package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/loomline/storefront-backend/pkg/logger"
)

type stubExpirer struct {
	cutoffs []time.Time
	expired int
	err     error
}

func (s *stubExpirer) ExpirePending(ctx context.Context, cutoff time.Time) (int, error) {
	s.cutoffs = append(s.cutoffs, cutoff)
	return s.expired, s.err
}

func TestOrderExpiryJobUsesConfiguredTTL(t *testing.T) {
	expirer := &stubExpirer{expired: 3}
	job, err := NewOrderExpiryJob(OrderExpiryJobParams{
		Logger:     logger.New(logger.Options{ServiceName: "cron-test"}),
		Orders:     expirer,
		PendingTTL: 45 * time.Minute,
	})
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}
	frozen := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)
	job.(*orderExpiryJob).now = func() time.Time { return frozen }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run job: %v", err)
	}
	if len(expirer.cutoffs) != 1 {
		t.Fatalf("expected one sweep, got %d", len(expirer.cutoffs))
	}
	want := frozen.Add(-45 * time.Minute)
	if !expirer.cutoffs[0].Equal(want) {
		t.Fatalf("cutoff mismatch: got %v want %v", expirer.cutoffs[0], want)
	}
	if job.Name() != "order-expiry" {
		t.Fatalf("unexpected job name %s", job.Name())
	}
}

func TestOrderExpiryJobDefaultsTTL(t *testing.T) {
	expirer := &stubExpirer{}
	job, err := NewOrderExpiryJob(OrderExpiryJobParams{
		Logger: logger.New(logger.Options{ServiceName: "cron-test"}),
		Orders: expirer,
	})
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}
	if job.(*orderExpiryJob).ttl != defaultPendingTTL {
		t.Fatalf("expected default ttl, got %v", job.(*orderExpiryJob).ttl)
	}
}

func TestOrderExpiryJobPropagatesFailure(t *testing.T) {
	expirer := &stubExpirer{err: errors.New("db down")}
	job, err := NewOrderExpiryJob(OrderExpiryJobParams{
		Logger: logger.New(logger.Options{ServiceName: "cron-test"}),
		Orders: expirer,
	})
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected sweep failure to surface")
	}
}

func TestNewOrderExpiryJobValidation(t *testing.T) {
	if _, err := NewOrderExpiryJob(OrderExpiryJobParams{Orders: &stubExpirer{}}); err == nil {
		t.Fatal("expected error when logger missing")
	}
	if _, err := NewOrderExpiryJob(OrderExpiryJobParams{Logger: logger.New(logger.Options{ServiceName: "cron-test"})}); err == nil {
		t.Fatal("expected error when orders service missing")
	}
}
