package enums

import "testing"

func TestOrderStatusTerminalAndReviewable(t *testing.T) {
	tests := []struct {
		status     OrderStatus
		terminal   bool
		reviewable bool
	}{
		{OrderStatusRequested, false, false},
		{OrderStatusAccepted, false, true},
		{OrderStatusCompleted, true, true},
		{OrderStatusRejected, true, false},
		{OrderStatusCanceled, true, false},
	}
	for _, tt := range tests {
		if got := tt.status.IsTerminal(); got != tt.terminal {
			t.Fatalf("%s IsTerminal = %v, want %v", tt.status, got, tt.terminal)
		}
		if got := tt.status.IsReviewable(); got != tt.reviewable {
			t.Fatalf("%s IsReviewable = %v, want %v", tt.status, got, tt.reviewable)
		}
	}
}

func TestParseOrderStatus(t *testing.T) {
	for _, status := range OrderStatuses() {
		parsed, err := ParseOrderStatus(string(status))
		if err != nil || parsed != status {
			t.Fatalf("ParseOrderStatus(%q) = %q, %v", status, parsed, err)
		}
	}
	if _, err := ParseOrderStatus("requested"); err == nil {
		t.Fatal("expected lowercase status to be rejected")
	}
}

func TestParseActorRoleIgnoresCase(t *testing.T) {
	role, err := ParseActorRole(" Seller ")
	if err != nil || role != ActorRoleSeller {
		t.Fatalf("ParseActorRole = %q, %v", role, err)
	}
	if _, err := ParseActorRole("admin"); err == nil {
		t.Fatal("expected unknown role to be rejected")
	}
}

func TestProductStatusPurchasable(t *testing.T) {
	for _, status := range validProductStatuses {
		want := status == ProductStatusActive
		if got := status.IsPurchasable(); got != want {
			t.Fatalf("%s IsPurchasable = %v, want %v", status, got, want)
		}
	}
}

func TestParseOutboxEnums(t *testing.T) {
	if agg, err := ParseOutboxAggregateType("order"); err != nil || agg != AggregateOrder {
		t.Fatalf("expected order aggregate, got %q (%v)", agg, err)
	}
	if _, err := ParseOutboxAggregateType("store"); err == nil {
		t.Fatalf("expected unknown aggregate to fail")
	}
	if evt, err := ParseOutboxEventType("notification_requested"); err != nil || evt != EventNotificationRequested {
		t.Fatalf("expected notification_requested, got %q (%v)", evt, err)
	}
	if _, err := ParseOutboxEventType(""); err == nil {
		t.Fatalf("expected empty event type to fail")
	}
	if !OutboxDLQReasonMaxAttempts.IsValid() || OutboxDLQErrorReason("timeout").IsValid() {
		t.Fatalf("unexpected dlq reason validation")
	}
}
