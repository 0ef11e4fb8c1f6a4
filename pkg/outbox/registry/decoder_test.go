package registry

import (
	"encoding/json"
	"testing"

	"github.com/loomline/storefront-backend/pkg/enums"
	"github.com/loomline/storefront-backend/pkg/outbox/payloads"
)

func TestDecoderRegistry(t *testing.T) {
	reg := NewDecoderRegistry()
	reg.Register(enums.EventOrderPaid, 1, func(payload json.RawMessage) (interface{}, error) {
		var event payloads.OrderPaidEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			return nil, err
		}
		return &event, nil
	})

	decoded, err := reg.Decode(enums.EventOrderPaid, 1, json.RawMessage(`{"number":"LL-20260501-0007","amount_cents":1797}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	event, ok := decoded.(*payloads.OrderPaidEvent)
	if !ok {
		t.Fatalf("unexpected decoded type %T", decoded)
	}
	if event.Number != "LL-20260501-0007" || event.AmountCents != 1797 {
		t.Fatalf("decoded payload mismatch %+v", event)
	}
}

func TestDecoderRegistryUnknownVersion(t *testing.T) {
	reg := NewDecoderRegistry()
	reg.Register(enums.EventOrderPaid, 1, func(payload json.RawMessage) (interface{}, error) {
		return nil, nil
	})

	if _, err := reg.Decode(enums.EventOrderPaid, 2, json.RawMessage(`{}`)); err == nil {
		t.Fatalf("expected missing decoder error")
	}
	if _, err := reg.Decode(enums.EventOrderExpired, 1, json.RawMessage(`{}`)); err == nil {
		t.Fatalf("expected missing decoder error")
	}
}
