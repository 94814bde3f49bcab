package orders

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
)

func TestAllowedTargets(t *testing.T) {
	t.Parallel()
	buyer := uuid.New()
	seller := uuid.New()
	stranger := uuid.New()

	cases := []struct {
		name   string
		actor  uuid.UUID
		role   enums.ActorRole
		status enums.OrderStatus
		want   []enums.OrderStatus
	}{
		{"seller requested", seller, enums.ActorRoleSeller, enums.OrderStatusRequested, []enums.OrderStatus{enums.OrderStatusAccepted, enums.OrderStatusRejected}},
		{"seller accepted", seller, enums.ActorRoleSeller, enums.OrderStatusAccepted, []enums.OrderStatus{enums.OrderStatusCompleted}},
		{"seller rejected", seller, enums.ActorRoleSeller, enums.OrderStatusRejected, []enums.OrderStatus{}},
		{"seller completed", seller, enums.ActorRoleSeller, enums.OrderStatusCompleted, []enums.OrderStatus{}},
		{"buyer requested", buyer, enums.ActorRoleBuyer, enums.OrderStatusRequested, []enums.OrderStatus{enums.OrderStatusCanceled}},
		{"buyer accepted", buyer, enums.ActorRoleBuyer, enums.OrderStatusAccepted, []enums.OrderStatus{}},
		{"buyer canceled", buyer, enums.ActorRoleBuyer, enums.OrderStatusCanceled, []enums.OrderStatus{}},
		{"buyer acting as seller", buyer, enums.ActorRoleSeller, enums.OrderStatusRequested, nil},
		{"seller acting as buyer", seller, enums.ActorRoleBuyer, enums.OrderStatusRequested, nil},
		{"stranger", stranger, enums.ActorRoleSeller, enums.OrderStatusRequested, nil},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			order := &models.Order{BuyerID: buyer, SellerID: seller, Status: tc.status}
			got := AllowedTargets(tc.actor, tc.role, order)
			if tc.want == nil {
				assert.Nil(t, got)
				return
			}
			assert.ElementsMatch(t, tc.want, got)
		})
	}
}

func TestCanTransitionRejectsSameStatus(t *testing.T) {
	t.Parallel()
	seller := uuid.New()
	for _, status := range enums.OrderStatuses() {
		order := &models.Order{BuyerID: uuid.New(), SellerID: seller, Status: status}
		assert.False(t, CanTransition(seller, enums.ActorRoleSeller, order, status), "status %s", status)
	}
}

func TestAllowedTargetsDoesNotLeakTable(t *testing.T) {
	t.Parallel()
	seller := uuid.New()
	order := &models.Order{SellerID: seller, Status: enums.OrderStatusRequested}
	got := AllowedTargets(seller, enums.ActorRoleSeller, order)
	got[0] = enums.OrderStatusCanceled

	again := AllowedTargets(seller, enums.ActorRoleSeller, order)
	assert.Equal(t, enums.OrderStatusAccepted, again[0])
}
