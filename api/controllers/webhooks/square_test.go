package webhooks

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	squarewebhook "github.com/loomline/storefront-backend/internal/webhooks/square"
	pkgerrors "github.com/loomline/storefront-backend/pkg/errors"
)

func TestSquareWebhook_SuccessAndIdempotent(t *testing.T) {
	payload := buildPaymentEvent(t, "payment.updated", "COMPLETED")
	header := buildSquareSignature(payload, "secret")
	service := &fakeSquareEventService{}
	guard := newTestGuard(t)
	handler := SquareWebhook(service, &fakeSigningClient{secret: "secret"}, guard, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/square", bytes.NewReader(payload))
	req.Header.Set("Square-Signature", header)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if service.calls != 1 {
		t.Fatalf("expected service called once, got %d", service.calls)
	}

	req2 := httptest.NewRequest(http.MethodPost, "/api/webhooks/square", bytes.NewReader(payload))
	req2.Header.Set("Square-Signature", header)
	rec2 := httptest.NewRecorder()
	handler.ServeHTTP(rec2, req2)
	if rec2.Code != http.StatusOK {
		t.Fatalf("expected 200 on duplicate, got %d", rec2.Code)
	}
	if service.calls != 1 {
		t.Fatalf("duplicate should not increment calls, got %d", service.calls)
	}
}

func TestSquareWebhook_InvalidSignature(t *testing.T) {
	payload := buildPaymentEvent(t, "payment.updated", "COMPLETED")
	service := &fakeSquareEventService{}
	handler := SquareWebhook(service, &fakeSigningClient{secret: "secret"}, newTestGuard(t), nil)

	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/square", bytes.NewReader(payload))
	req.Header.Set("Square-Signature", "invalid")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502 for invalid signature, got %d", rec.Code)
	}
	if service.calls != 0 {
		t.Fatalf("service should not be invoked on invalid signature")
	}
}

func TestSquareWebhook_MissingSignature(t *testing.T) {
	payload := buildPaymentEvent(t, "payment.updated", "COMPLETED")
	handler := SquareWebhook(&fakeSquareEventService{}, &fakeSigningClient{secret: "secret"}, newTestGuard(t), nil)

	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/square", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without signature, got %d", rec.Code)
	}
}

func TestSquareWebhook_HandlerFailureReleasesGuard(t *testing.T) {
	payload := buildPaymentEvent(t, "payment.updated", "COMPLETED")
	header := buildSquareSignature(payload, "secret")
	service := &fakeSquareEventService{err: pkgerrors.New(pkgerrors.CodeDependency, "db: load order")}
	guard := newTestGuard(t)
	handler := SquareWebhook(service, &fakeSigningClient{secret: "secret"}, guard, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/square", bytes.NewReader(payload))
	req.Header.Set("Square-Signature", header)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502 on handler failure, got %d", rec.Code)
	}

	service.err = nil
	req2 := httptest.NewRequest(http.MethodPost, "/api/webhooks/square", bytes.NewReader(payload))
	req2.Header.Set("Square-Signature", header)
	rec2 := httptest.NewRecorder()
	handler.ServeHTTP(rec2, req2)
	if rec2.Code != http.StatusOK {
		t.Fatalf("expected retry to succeed after release, got %d", rec2.Code)
	}
	if service.calls != 2 {
		t.Fatalf("expected retry to reach the handler, got %d calls", service.calls)
	}
}

func newTestGuard(t *testing.T) *squarewebhook.IdempotencyGuard {
	t.Helper()
	guard, err := squarewebhook.NewIdempotencyGuard(newInMemoryStore(), time.Minute, "square-webhook")
	if err != nil {
		t.Fatalf("guard setup: %v", err)
	}
	return guard
}

func buildPaymentEvent(t *testing.T, eventType, status string) []byte {
	t.Helper()
	event := &squarewebhook.Event{
		EventID: "evt_" + uuid.NewString(),
		Type:    eventType,
		Data: squarewebhook.EventData{
			Type: "payment",
			ID:   "pay_" + uuid.NewString(),
			Object: squarewebhook.EventObject{
				Payment: &squarewebhook.Payment{
					ID:          "pay_1",
					Status:      status,
					ReferenceID: "LL-20260601-0001",
				},
			},
		},
	}
	payload, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	return payload
}

func buildSquareSignature(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

type fakeSquareEventService struct {
	calls int
	err   error
}

func (f *fakeSquareEventService) HandleEvent(ctx context.Context, event *squarewebhook.Event) error {
	f.calls++
	return f.err
}

type fakeSigningClient struct {
	secret string
}

func (c *fakeSigningClient) SigningSecret() string {
	return c.secret
}

type inMemoryStore struct {
	mu   sync.Mutex
	data map[string]string
}

func newInMemoryStore() *inMemoryStore {
	return &inMemoryStore{data: make(map[string]string)}
}

func (s *inMemoryStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data[key], nil
}

func (s *inMemoryStore) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = fmt.Sprintf("%v", value)
	return nil
}

func (s *inMemoryStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.data[key]; exists {
		return false, nil
	}
	s.data[key] = fmt.Sprintf("%v", value)
	return true, nil
}

func (s *inMemoryStore) IdempotencyKey(scope, id string) string {
	return fmt.Sprintf("ll:idempotency:%s:%s", scope, id)
}

func (s *inMemoryStore) Del(ctx context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.data, key)
	}
	return nil
}
