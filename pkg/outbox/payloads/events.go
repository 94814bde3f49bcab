// Package payloads holds the data structs carried inside outbox envelopes.
package payloads

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/angelmondragon/bazaar-backend/pkg/enums"
)

// NotificationRequestedEvent asks the notification worker to materialize one
// notification for RecipientID.
type NotificationRequestedEvent struct {
	RecipientID uuid.UUID              `json:"recipient_id"`
	Type        enums.NotificationType `json:"type"`
	Payload     json.RawMessage        `json:"payload"`
}

// NewOrderPayload tells a seller a buyer placed an order with them.
type NewOrderPayload struct {
	OrderID uuid.UUID `json:"order_id"`
	BuyerID uuid.UUID `json:"buyer_id"`
}

// NewReviewPayload tells a seller a buyer reviewed one of their products.
type NewReviewPayload struct {
	ProductID    uuid.UUID `json:"product_id"`
	ReviewUserID uuid.UUID `json:"review_user_id"`
	OrderID      uuid.UUID `json:"order_id"`
}
