package enums

import "testing"

func TestOrderStatusTransitions(t *testing.T) {
	allowed := []struct {
		from, to OrderStatus
	}{
		{OrderStatusPending, OrderStatusPaid},
		{OrderStatusPending, OrderStatusCanceled},
		{OrderStatusPending, OrderStatusExpired},
		{OrderStatusPaid, OrderStatusShipped},
		{OrderStatusPaid, OrderStatusCanceled},
		{OrderStatusShipped, OrderStatusDelivered},
	}
	for _, tt := range allowed {
		if !tt.from.CanTransitionTo(tt.to) {
			t.Fatalf("expected %s -> %s to be legal", tt.from, tt.to)
		}
	}

	denied := []struct {
		from, to OrderStatus
	}{
		{OrderStatusPending, OrderStatusDelivered},
		{OrderStatusPending, OrderStatusShipped},
		{OrderStatusPaid, OrderStatusExpired},
		{OrderStatusShipped, OrderStatusCanceled},
		{OrderStatusDelivered, OrderStatusShipped},
		{OrderStatusCanceled, OrderStatusPaid},
		{OrderStatusExpired, OrderStatusPaid},
	}
	for _, tt := range denied {
		if tt.from.CanTransitionTo(tt.to) {
			t.Fatalf("expected %s -> %s to be illegal", tt.from, tt.to)
		}
	}
}

func TestOrderStatusTerminal(t *testing.T) {
	for _, s := range []OrderStatus{OrderStatusDelivered, OrderStatusCanceled, OrderStatusExpired} {
		if !s.IsTerminal() {
			t.Fatalf("expected %s to be terminal", s)
		}
	}
	for _, s := range []OrderStatus{OrderStatusPending, OrderStatusPaid, OrderStatusShipped} {
		if s.IsTerminal() {
			t.Fatalf("expected %s to be non-terminal", s)
		}
	}
}

func TestParseOrderStatus(t *testing.T) {
	if got, err := ParseOrderStatus("paid"); err != nil || got != OrderStatusPaid {
		t.Fatalf("ParseOrderStatus(paid) = %v, %v", got, err)
	}
	if _, err := ParseOrderStatus("refunded"); err == nil {
		t.Fatal("expected unknown status to fail parsing")
	}
}

func TestParseUserRole(t *testing.T) {
	if got, err := ParseUserRole("admin"); err != nil || got != UserRoleAdmin {
		t.Fatalf("ParseUserRole(admin) = %v, %v", got, err)
	}
	if _, err := ParseUserRole("owner"); err == nil {
		t.Fatal("expected unknown role to fail parsing")
	}
}

func TestParseMediaKind(t *testing.T) {
	if got, err := ParseMediaKind("image"); err != nil || got != MediaKindImage {
		t.Fatalf("ParseMediaKind(image) = %v, %v", got, err)
	}
	if _, err := ParseMediaKind("audio"); err == nil {
		t.Fatal("expected unknown kind to fail parsing")
	}
}
