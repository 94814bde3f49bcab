package reviews

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/internal/notifications"
	"github.com/angelmondragon/bazaar-backend/pkg/db"
	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
	"github.com/angelmondragon/bazaar-backend/pkg/metrics"
	"github.com/angelmondragon/bazaar-backend/pkg/outbox"
	"github.com/angelmondragon/bazaar-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/bazaar-backend/pkg/pagination"
)

// sqlite drops the index name from unique errors and reports the column.
const reviewLineColumn = "reviews.order_line_id"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams groups dependencies for the review service.
type ServiceParams struct {
	Repo     *Repository
	Tx       txRunner
	Notifier notifications.Emitter
	Logger   *logger.Logger
	Metrics  *metrics.OrderMetrics
	TextMin  int
	TextMax  int
}

// Service exposes the purchase-gated review flow.
type Service interface {
	CreateReview(ctx context.Context, input CreateInput) (*models.Review, error)
	ListForProduct(ctx context.Context, productID uuid.UUID, params pagination.Params) (*ReviewPage, error)
}

type service struct {
	repo     *Repository
	tx       txRunner
	notifier notifications.Emitter
	logg     *logger.Logger
	metrics  *metrics.OrderMetrics
	textMin  int
	textMax  int
}

// NewService builds a review service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "review repo is required")
	}
	if params.Tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner is required")
	}
	if params.Notifier == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notification emitter is required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger is required")
	}
	textMin, textMax := params.TextMin, params.TextMax
	if textMin <= 0 {
		textMin = DefaultTextMin
	}
	if textMax <= 0 {
		textMax = DefaultTextMax
	}
	return &service{
		repo:     params.Repo,
		tx:       params.Tx,
		notifier: params.Notifier,
		logg:     params.Logger,
		metrics:  params.Metrics,
		textMin:  textMin,
		textMax:  textMax,
	}, nil
}

// CreateReview records a review against the buyer's latest eligible purchase
// of the product.
func (s *service) CreateReview(ctx context.Context, input CreateInput) (*models.Review, error) {
	review, err := s.createReview(ctx, input)
	s.metrics.ObserveReview(metrics.Outcome(err, pkgerrors.Label))
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"review_id":     review.ID.String(),
		"product_id":    review.ProductID.String(),
		"order_line_id": review.OrderLineID.String(),
	})
	s.logg.Info(logCtx, "review created")
	return review, nil
}

func (s *service) createReview(ctx context.Context, input CreateInput) (*models.Review, error) {
	if input.BuyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	text := strings.TrimSpace(input.Text)
	if err := s.validate(input.ProductID, input.Rating, text); err != nil {
		return nil, err
	}

	var created *models.Review
	err := db.RetryTransient(ctx, func(ctx context.Context) error {
		return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)

			line, err := repo.FindLatestReviewableLine(ctx, input.BuyerID, input.ProductID)
			if err != nil {
				return err
			}
			if line == nil {
				return pkgerrors.New(pkgerrors.CodePurchaseRequired, "an accepted or completed purchase is required to review this product")
			}

			exists, err := repo.ExistsForLine(ctx, line.OrderLineID)
			if err != nil {
				return err
			}
			if exists {
				return alreadyReviewed()
			}

			review := &models.Review{
				ID:          models.NewID(),
				BuyerID:     input.BuyerID,
				ProductID:   input.ProductID,
				OrderLineID: line.OrderLineID,
				Rating:      input.Rating,
				Text:        text,
			}
			if err := repo.Create(ctx, review); err != nil {
				return err
			}

			s.notifier.Emit(ctx, tx, notifications.Request{
				RecipientID:   line.SellerID,
				Type:          enums.NotificationTypeNewReview,
				AggregateType: enums.AggregateReview,
				AggregateID:   review.ID,
				Actor:         &outbox.ActorRef{UserID: input.BuyerID, Role: enums.ActorRoleBuyer.String()},
				Payload: payloads.NewReviewPayload{
					ProductID:    input.ProductID,
					ReviewUserID: input.BuyerID,
					OrderID:      line.OrderID,
				},
			})
			created = review
			return nil
		})
	})
	if err != nil {
		return nil, mapStoreError(err)
	}
	return created, nil
}

func (s *service) validate(productID uuid.UUID, rating int, text string) error {
	details := map[string]string{}
	if productID == uuid.Nil {
		details["product_id"] = "is required"
	}
	if rating < MinRating || rating > MaxRating {
		details["rating"] = fmt.Sprintf("must be between %d and %d", MinRating, MaxRating)
	}
	if n := utf8.RuneCountInString(text); n < s.textMin || n > s.textMax {
		details["text"] = fmt.Sprintf("must be between %d and %d characters", s.textMin, s.textMax)
	}
	if len(details) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid review").WithDetails(details)
	}
	return nil
}

func (s *service) ListForProduct(ctx context.Context, productID uuid.UUID, params pagination.Params) (*ReviewPage, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	rows, err := s.repo.ListForProduct(ctx, productID, cursor, pagination.LimitWithBuffer(params.Limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list reviews")
	}
	items, next := pagination.Trim(rows, params.Limit, func(r models.Review) pagination.Cursor {
		return pagination.Cursor{CreatedAt: r.CreatedAt, ID: r.ID}
	})
	page := &ReviewPage{Items: items}
	if next != nil {
		page.Cursor = pagination.EncodeCursor(*next)
	}
	return page, nil
}

func alreadyReviewed() error {
	return pkgerrors.New(pkgerrors.CodeAlreadyReviewed, "this purchase has already been reviewed")
}

func mapStoreError(err error) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	switch {
	case db.IsUniqueViolation(err, models.ReviewOrderLineConstraint),
		db.IsUniqueViolation(err, reviewLineColumn):
		return alreadyReviewed()
	case db.IsUniqueViolation(err, ""):
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "review conflicts with existing data")
	default:
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create review")
	}
}
