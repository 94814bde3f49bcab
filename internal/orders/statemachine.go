package orders

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
)

var sellerTransitions = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusRequested: {enums.OrderStatusAccepted, enums.OrderStatusRejected},
	enums.OrderStatusAccepted:  {enums.OrderStatusCompleted},
}

var buyerTransitions = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusRequested: {enums.OrderStatusCanceled},
}

// IsParty reports whether actorID is the order's buyer (role buyer) or its
// seller (role seller).
func IsParty(actorID uuid.UUID, role enums.ActorRole, order *models.Order) bool {
	if order == nil || actorID == uuid.Nil {
		return false
	}
	switch role {
	case enums.ActorRoleBuyer:
		return order.BuyerID == actorID
	case enums.ActorRoleSeller:
		return order.SellerID == actorID
	}
	return false
}

// AllowedTargets returns the statuses the actor may move the order to. It is
// empty for non-parties and for terminal orders.
func AllowedTargets(actorID uuid.UUID, role enums.ActorRole, order *models.Order) []enums.OrderStatus {
	if !IsParty(actorID, role, order) {
		return nil
	}
	var table map[enums.OrderStatus][]enums.OrderStatus
	switch role {
	case enums.ActorRoleSeller:
		table = sellerTransitions
	case enums.ActorRoleBuyer:
		table = buyerTransitions
	}
	targets := table[order.Status]
	out := make([]enums.OrderStatus, len(targets))
	copy(out, targets)
	return out
}

// CanTransition reports whether target is among AllowedTargets.
func CanTransition(actorID uuid.UUID, role enums.ActorRole, order *models.Order, target enums.OrderStatus) bool {
	for _, allowed := range AllowedTargets(actorID, role, order) {
		if allowed == target {
			return true
		}
	}
	return false
}
