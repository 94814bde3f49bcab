package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	checkoutsvc "github.com/angelmondragon/bazaar-backend/internal/checkout"
	"github.com/angelmondragon/bazaar-backend/internal/checkout/helpers"
	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
)

type stubCheckoutService struct {
	result       *checkoutsvc.Result
	err          error
	lastBuyer    uuid.UUID
	lastDelivery helpers.DeliveryInfo
}

func (s *stubCheckoutService) Checkout(ctx context.Context, buyerID uuid.UUID, delivery helpers.DeliveryInfo) (*checkoutsvc.Result, error) {
	s.lastBuyer = buyerID
	s.lastDelivery = delivery
	return s.result, s.err
}

const checkoutBody = `{"full_name":"Ada Buyer","phone":"+15550100","address":"1 Main St","comment":"ring twice"}`

func TestCheckoutReturnsCreatedBatch(t *testing.T) {
	buyerID := uuid.New()
	dropped := uuid.New()
	batchID := uuid.New()
	svc := &stubCheckoutService{result: &checkoutsvc.Result{
		BatchID: batchID,
		Orders: []models.Order{
			{ID: uuid.New(), CheckoutBatchID: batchID, BuyerID: buyerID, SellerID: uuid.New(), Status: enums.OrderStatusRequested, TotalAmount: decimal.RequireFromString("50")},
			{ID: uuid.New(), CheckoutBatchID: batchID, BuyerID: buyerID, SellerID: uuid.New(), Status: enums.OrderStatusRequested, TotalAmount: decimal.RequireFromString("40")},
		},
		DroppedProductIDs: []uuid.UUID{dropped},
	}}

	req := withUser(httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(checkoutBody)), buyerID)
	resp := httptest.NewRecorder()
	Checkout(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.lastBuyer != buyerID {
		t.Fatalf("unexpected buyer %s", svc.lastBuyer)
	}
	if svc.lastDelivery.Comment == nil || *svc.lastDelivery.Comment != "ring twice" {
		t.Fatalf("comment not forwarded: %+v", svc.lastDelivery)
	}

	var envelope struct {
		Data checkoutResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Data.TotalOrders != 2 || len(envelope.Data.Orders) != 2 {
		t.Fatalf("unexpected orders %+v", envelope.Data)
	}
	if envelope.Data.CheckoutBatchID != batchID {
		t.Fatalf("unexpected batch %s", envelope.Data.CheckoutBatchID)
	}
	if envelope.Data.Orders[0].TotalAmount != "50.00" {
		t.Fatalf("unexpected total %q", envelope.Data.Orders[0].TotalAmount)
	}
	if len(envelope.Data.DroppedProductIDs) != 1 || envelope.Data.DroppedProductIDs[0] != dropped {
		t.Fatalf("unexpected dropped %v", envelope.Data.DroppedProductIDs)
	}
}

func TestCheckoutRendersEmptyDroppedList(t *testing.T) {
	svc := &stubCheckoutService{result: &checkoutsvc.Result{BatchID: uuid.New()}}

	req := withUser(httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(checkoutBody)), uuid.New())
	resp := httptest.NewRecorder()
	Checkout(svc, nil).ServeHTTP(resp, req)

	if !strings.Contains(resp.Body.String(), `"dropped_product_ids":[]`) {
		t.Fatalf("expected empty dropped list, got %s", resp.Body.String())
	}
}

func TestCheckoutMapsDomainErrors(t *testing.T) {
	cases := map[string]pkgerrors.Code{
		"empty cart":      pkgerrors.CodeEmptyCart,
		"no purchasable":  pkgerrors.CodeNoPurchasableItems,
		"invalid details": pkgerrors.CodeValidation,
	}
	for name, code := range cases {
		t.Run(name, func(t *testing.T) {
			svc := &stubCheckoutService{err: pkgerrors.New(code, name)}
			req := withUser(httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(checkoutBody)), uuid.New())
			resp := httptest.NewRecorder()
			Checkout(svc, nil).ServeHTTP(resp, req)

			if want := pkgerrors.MetadataFor(code).HTTPStatus; resp.Code != want {
				t.Fatalf("expected %d got %d", want, resp.Code)
			}
			var envelope struct {
				Error struct {
					Code string `json:"code"`
				} `json:"error"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if envelope.Error.Code != string(code) {
				t.Fatalf("expected code %s got %s", code, envelope.Error.Code)
			}
		})
	}
}

func TestCheckoutRejectsInvalidDeliveryBody(t *testing.T) {
	svc := &stubCheckoutService{}
	body := `{"phone":"12","address":"1 Main St","comment":"` + strings.Repeat("c", 1001) + `"}`
	req := withUser(httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(body)), uuid.New())
	resp := httptest.NewRecorder()
	Checkout(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	var envelope struct {
		Error struct {
			Code    string            `json:"code"`
			Details map[string]string `json:"details"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Error.Code != string(pkgerrors.CodeValidation) {
		t.Fatalf("expected validation code got %s", envelope.Error.Code)
	}
	want := map[string]string{
		"full_name": "is required",
		"phone":     "must be at least 5",
		"comment":   "must be at most 1000",
	}
	for field, problem := range want {
		if got := envelope.Error.Details[field]; got != problem {
			t.Fatalf("details[%s] = %q, want %q", field, got, problem)
		}
	}
	if svc.lastBuyer != uuid.Nil {
		t.Fatal("service should not be called")
	}
}

func TestCheckoutRequiresIdentity(t *testing.T) {
	svc := &stubCheckoutService{}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(checkoutBody))
	resp := httptest.NewRecorder()
	Checkout(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
	if svc.lastBuyer != uuid.Nil {
		t.Fatal("service should not be called")
	}
}
