package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/pkg/db"
	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
	"github.com/angelmondragon/bazaar-backend/pkg/metrics"
	"github.com/angelmondragon/bazaar-backend/pkg/pagination"
)

// errStatusMoved signals that the conditional status write matched no row
// because another writer changed the status after it was read.
var errStatusMoved = errors.New("order status changed concurrently")

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes the order state machine and party-scoped reads.
type Service interface {
	Transition(ctx context.Context, input TransitionInput) (*models.Order, error)
	Get(ctx context.Context, orderID, actorID uuid.UUID, role enums.ActorRole) (*models.Order, error)
	List(ctx context.Context, actorID uuid.UUID, role enums.ActorRole, params pagination.Params) (*OrderList, error)
}

// TransitionInput names the order, the acting party and the requested status.
type TransitionInput struct {
	OrderID uuid.UUID
	ActorID uuid.UUID
	Role    enums.ActorRole
	Target  enums.OrderStatus
}

// OrderList is one page of orders plus the cursor for the next page.
type OrderList struct {
	Orders     []models.Order
	NextCursor string
}

type service struct {
	repo    Repository
	tx      txRunner
	logg    *logger.Logger
	metrics *metrics.OrderMetrics
}

// NewService builds the order service.
func NewService(repo Repository, tx txRunner, logg *logger.Logger, m *metrics.OrderMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, tx: tx, logg: logg, metrics: m}, nil
}

func (s *service) Transition(ctx context.Context, input TransitionInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.ActorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if !input.Role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid actor role")
	}
	if !input.Target.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}

	var from enums.OrderStatus
	err := db.RetryTransient(ctx, func(ctx context.Context) error {
		var err error
		from, err = s.transition(ctx, input)
		return err
	})
	s.metrics.ObserveTransition(input.Target.String(), metrics.Outcome(err, pkgerrors.Label))
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithFields(ctx, map[string]any{
		"order_id": input.OrderID.String(),
		"from":     from.String(),
		"to":       input.Target.String(),
	})
	s.logg.Info(ctx, "order status changed")

	order, err := s.repo.FindByID(ctx, input.OrderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

// transition runs one transaction: lock, authorize, decide, then the
// conditional write. A lost write is re-read and re-decided once.
func (s *service) transition(ctx context.Context, input TransitionInput) (enums.OrderStatus, error) {
	var from enums.OrderStatus
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		for attempt := 0; attempt < 2; attempt++ {
			order, err := repo.LockByID(ctx, input.OrderID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
			}
			if order == nil {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			if !IsParty(input.ActorID, input.Role, order) {
				return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to actor")
			}
			if !CanTransition(input.ActorID, input.Role, order, input.Target) {
				return pkgerrors.New(pkgerrors.CodeInvalidTransition, "transition not allowed").
					WithDetails(map[string]any{
						"from": order.Status.String(),
						"to":   input.Target.String(),
						"role": input.Role.String(),
					})
			}

			updated, err := repo.CompareAndSetStatus(ctx, order.ID, order.Status, input.Target)
			if err != nil {
				if db.IsTransient(err) {
					return err
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
			}
			if updated {
				from = order.Status
				return nil
			}
		}
		return pkgerrors.Wrap(pkgerrors.CodeConflict, errStatusMoved, "order changed concurrently")
	})
	return from, err
}

func (s *service) Get(ctx context.Context, orderID, actorID uuid.UUID, role enums.ActorRole) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if !IsParty(actorID, role, order) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to actor")
	}
	return order, nil
}

func (s *service) List(ctx context.Context, actorID uuid.UUID, role enums.ActorRole, params pagination.Params) (*OrderList, error) {
	if actorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if !role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid actor role")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	rows, err := s.repo.List(ctx, ListQuery{
		ActorID: actorID,
		Role:    role,
		Cursor:  cursor,
		Limit:   pagination.LimitWithBuffer(params.Limit),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}

	page, next := pagination.Trim(rows, params.Limit, func(o models.Order) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	})
	list := &OrderList{Orders: page}
	if next != nil {
		list.NextCursor = pagination.EncodeCursor(*next)
	}
	return list, nil
}
