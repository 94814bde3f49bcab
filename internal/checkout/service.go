package checkout

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/internal/cart"
	"github.com/angelmondragon/bazaar-backend/internal/catalog"
	"github.com/angelmondragon/bazaar-backend/internal/checkout/helpers"
	"github.com/angelmondragon/bazaar-backend/internal/notifications"
	"github.com/angelmondragon/bazaar-backend/internal/orders"
	"github.com/angelmondragon/bazaar-backend/pkg/db"
	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
	"github.com/angelmondragon/bazaar-backend/pkg/metrics"
	"github.com/angelmondragon/bazaar-backend/pkg/outbox"
	"github.com/angelmondragon/bazaar-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service executes checkout orchestration.
type Service interface {
	Checkout(ctx context.Context, buyerID uuid.UUID, delivery helpers.DeliveryInfo) (*Result, error)
}

// Result is the outcome of one checkout batch.
type Result struct {
	BatchID           uuid.UUID
	Orders            []models.Order
	DroppedProductIDs []uuid.UUID
}

type service struct {
	tx         txRunner
	cart       cart.Drainer
	catalog    catalog.Reader
	ordersRepo orders.Repository
	repo       Repository
	notifier   notifications.Emitter
	logg       *logger.Logger
	metrics    *metrics.OrderMetrics
}

// NewService builds the checkout service. m may be nil.
func NewService(
	tx txRunner,
	drainer cart.Drainer,
	reader catalog.Reader,
	ordersRepo orders.Repository,
	repo Repository,
	notifier notifications.Emitter,
	logg *logger.Logger,
	m *metrics.OrderMetrics,
) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if drainer == nil {
		return nil, fmt.Errorf("cart drainer required")
	}
	if reader == nil {
		return nil, fmt.Errorf("catalog reader required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if repo == nil {
		return nil, fmt.Errorf("checkout repository required")
	}
	if notifier == nil {
		return nil, fmt.Errorf("notification emitter required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		tx:         tx,
		cart:       drainer,
		catalog:    reader,
		ordersRepo: ordersRepo,
		repo:       repo,
		notifier:   notifier,
		logg:       logg,
		metrics:    m,
	}, nil
}

func (s *service) Checkout(ctx context.Context, buyerID uuid.UUID, delivery helpers.DeliveryInfo) (*Result, error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	delivery = delivery.Normalize()
	if err := helpers.ValidateDelivery(delivery); err != nil {
		s.metrics.ObserveCheckout(metrics.Outcome(err, pkgerrors.Label), 0, 0)
		return nil, err
	}

	var result *Result
	err := db.RetryTransient(ctx, func(ctx context.Context) error {
		var err error
		result, err = s.checkout(ctx, buyerID, delivery)
		return err
	})
	if err != nil {
		s.metrics.ObserveCheckout(metrics.Outcome(err, pkgerrors.Label), 0, 0)
		return nil, err
	}
	s.metrics.ObserveCheckout(metrics.Outcome(nil, pkgerrors.Label), len(result.Orders), len(result.DroppedProductIDs))

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"buyer_id":      buyerID.String(),
		"batch_id":      result.BatchID.String(),
		"orders":        len(result.Orders),
		"dropped_lines": len(result.DroppedProductIDs),
	})
	s.logg.Info(logCtx, "checkout completed")
	return result, nil
}

func (s *service) checkout(ctx context.Context, buyerID uuid.UUID, delivery helpers.DeliveryInfo) (*Result, error) {
	var result *Result
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		lines, err := s.cart.DrainTx(ctx, tx, buyerID)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return pkgerrors.New(pkgerrors.CodeEmptyCart, "cart is empty")
		}

		productIDs := make([]uuid.UUID, len(lines))
		for i, line := range lines {
			productIDs[i] = line.ProductID
		}
		products, err := s.catalog.WithTx(tx).ResolveProducts(ctx, productIDs)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve cart products")
		}

		priced, dropped := helpers.PriceLines(lines, products)
		if len(priced) == 0 {
			return pkgerrors.New(pkgerrors.CodeNoPurchasableItems, "no purchasable items in cart").
				WithDetails(map[string]any{"dropped_product_ids": dropped})
		}

		groups := helpers.GroupLinesBySeller(priced)
		sort.Slice(groups, func(i, j int) bool {
			return groups[i].SellerID.String() < groups[j].SellerID.String()
		})

		batchID := models.NewID()
		ordersRepo := s.ordersRepo.WithTx(tx)
		for _, group := range groups {
			order := buildOrder(batchID, buyerID, delivery, group)
			if err := ordersRepo.Create(ctx, order); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
			}
			s.notifier.Emit(ctx, tx, notifications.Request{
				RecipientID:   group.SellerID,
				Type:          enums.NotificationTypeNewOrder,
				AggregateType: enums.AggregateOrder,
				AggregateID:   order.ID,
				Actor:         &outbox.ActorRef{UserID: buyerID, Role: enums.ActorRoleBuyer.String()},
				Payload:       payloads.NewOrderPayload{OrderID: order.ID, BuyerID: buyerID},
			})
		}

		created, err := s.repo.WithTx(tx).FindBatch(ctx, buyerID, batchID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load checkout batch")
		}
		result = &Result{BatchID: batchID, Orders: created, DroppedProductIDs: dropped}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func buildOrder(batchID, buyerID uuid.UUID, delivery helpers.DeliveryInfo, group helpers.SellerGroup) *models.Order {
	lines := make([]models.OrderLine, 0, len(group.Lines))
	for _, line := range group.Lines {
		productID := line.ProductID
		lines = append(lines, models.OrderLine{
			ID:                   models.NewID(),
			ProductID:            &productID,
			ProductTitleSnapshot: line.Title,
			ProductPriceSnapshot: line.UnitPrice,
			Qty:                  line.Qty,
			Subtotal:             line.Subtotal,
		})
	}
	return &models.Order{
		ID:              models.NewID(),
		CheckoutBatchID: batchID,
		BuyerID:         buyerID,
		SellerID:        group.SellerID,
		Status:          enums.OrderStatusRequested,
		FullName:        delivery.FullName,
		Phone:           delivery.Phone,
		Address:         delivery.Address,
		Comment:         delivery.Comment,
		TotalAmount:     group.Total,
		Lines:           lines,
	}
}
