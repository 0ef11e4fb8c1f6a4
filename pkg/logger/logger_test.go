package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func newTestLogger(buf *bytes.Buffer, warnStack bool) *Logger {
	return New(Options{
		ServiceName: "test",
		Level:       zerolog.DebugLevel,
		WarnStack:   warnStack,
		Output:      buf,
	})
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	line := strings.TrimSpace(buf.String())
	if line == "" {
		t.Fatalf("expected log output")
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(line), &payload); err != nil {
		t.Fatalf("decode log line %q: %v", line, err)
	}
	return payload
}

func TestInfoCarriesServiceAndMessage(t *testing.T) {
	var buf bytes.Buffer
	logg := newTestLogger(&buf, false)

	logg.Info(context.Background(), "catalog ready")

	payload := decodeLine(t, &buf)
	if payload["service"] != "test" {
		t.Fatalf("expected service field, got %v", payload["service"])
	}
	if payload["message"] != "catalog ready" {
		t.Fatalf("unexpected message %v", payload["message"])
	}
}

func TestContextFieldsPropagate(t *testing.T) {
	var buf bytes.Buffer
	logg := newTestLogger(&buf, false)

	ctx := logg.WithRequestID(context.Background(), "req-1")
	ctx = logg.WithFields(ctx, map[string]any{"cart_id": "cart-9", "items": 2})
	logg.Info(ctx, "cart updated")

	payload := decodeLine(t, &buf)
	if payload["request_id"] != "req-1" {
		t.Fatalf("request id missing: %v", payload)
	}
	if payload["cart_id"] != "cart-9" {
		t.Fatalf("cart id missing: %v", payload)
	}
	if payload["items"] != float64(2) {
		t.Fatalf("numeric field missing: %v", payload)
	}
}

func TestErrorIncludesStackAndErr(t *testing.T) {
	var buf bytes.Buffer
	logg := newTestLogger(&buf, false)

	logg.Error(context.Background(), "checkout failed", errors.New("stock short"))

	payload := decodeLine(t, &buf)
	if payload["error"] != "stock short" {
		t.Fatalf("expected error field, got %v", payload["error"])
	}
	if stack, ok := payload["stack"].(string); !ok || stack == "" {
		t.Fatalf("expected stack trace")
	}
}

func TestWarnStackToggle(t *testing.T) {
	var noStack bytes.Buffer
	newTestLogger(&noStack, false).Warn(context.Background(), "slow query")
	if _, ok := decodeLine(t, &noStack)["stack"]; ok {
		t.Fatalf("stack should be absent when WarnStack is off")
	}

	var withStack bytes.Buffer
	newTestLogger(&withStack, true).Warn(context.Background(), "slow query")
	if _, ok := decodeLine(t, &withStack)["stack"]; !ok {
		t.Fatalf("stack should be present when WarnStack is on")
	}
}

func TestParseLevel(t *testing.T) {
	if ParseLevel("debug") != zerolog.DebugLevel {
		t.Fatalf("debug level not parsed")
	}
	if ParseLevel("") != zerolog.InfoLevel {
		t.Fatalf("empty level should default to info")
	}
	if ParseLevel("nonsense") != zerolog.InfoLevel {
		t.Fatalf("unknown level should default to info")
	}
}
