package controllers

import (
	"net/http"

	"github.com/google/uuid"

	ordersctl "github.com/angelmondragon/bazaar-backend/api/controllers/orders"
	"github.com/angelmondragon/bazaar-backend/api/middleware"
	"github.com/angelmondragon/bazaar-backend/api/responses"
	"github.com/angelmondragon/bazaar-backend/api/validators"
	checkoutsvc "github.com/angelmondragon/bazaar-backend/internal/checkout"
	"github.com/angelmondragon/bazaar-backend/internal/checkout/helpers"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
)

// checkoutRequest mirrors the delivery bounds so malformed bodies stop here.
// The service trims and re-checks the same bounds.
type checkoutRequest struct {
	FullName string  `json:"full_name" validate:"required,min=2,max=255"`
	Phone    string  `json:"phone" validate:"required,min=5,max=50"`
	Address  string  `json:"address" validate:"required,min=5,max=1000"`
	Comment  *string `json:"comment" validate:"omitempty,max=1000"`
}

type checkoutResponse struct {
	CheckoutBatchID   uuid.UUID         `json:"checkout_batch_id"`
	Orders            []ordersctl.Order `json:"orders"`
	TotalOrders       int               `json:"total_orders"`
	DroppedProductIDs []uuid.UUID       `json:"dropped_product_ids"`
}

// Checkout converts the caller's cart into one order per seller.
func Checkout(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		buyerID, err := requireUser(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Checkout(r.Context(), buyerID, helpers.DeliveryInfo{
			FullName: payload.FullName,
			Phone:    payload.Phone,
			Address:  payload.Address,
			Comment:  payload.Comment,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dropped := result.DroppedProductIDs
		if dropped == nil {
			dropped = []uuid.UUID{}
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, checkoutResponse{
			CheckoutBatchID:   result.BatchID,
			Orders:            ordersctl.NewOrders(result.Orders, buyerID, enums.ActorRoleBuyer),
			TotalOrders:       len(result.Orders),
			DroppedProductIDs: dropped,
		})
	}
}

func requireUser(r *http.Request) (uuid.UUID, error) {
	id := middleware.ActorIDFromContext(r.Context())
	if id == uuid.Nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	return id, nil
}
