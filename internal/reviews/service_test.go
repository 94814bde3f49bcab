package reviews

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/internal/notifications"
	"github.com/angelmondragon/bazaar-backend/internal/testdb"
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

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	conn := testdb.Open(t)
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	emitter, err := notifications.NewEmitter(outbox.NewService(outbox.NewRepository(conn), logg), logg)
	require.NoError(t, err)
	svc, err := NewService(ServiceParams{
		Repo:     NewRepository(conn),
		Tx:       db.NewFromConn(conn),
		Notifier: emitter,
		Logger:   logg,
		Metrics:  metrics.NewOrderMetrics(prometheus.NewRegistry()),
	})
	require.NoError(t, err)
	return svc, conn
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed, "expected typed error, got %v", err)
	assert.Equal(t, code, typed.Code())
}

func TestCreateReviewRequiresAcceptedPurchase(t *testing.T) {
	t.Parallel()
	svc, conn := newTestService(t)
	ctx := context.Background()
	buyer, seller := uuid.New(), uuid.New()
	product := testdb.SeedProduct(t, conn, seller, "Teapot", "18.00", enums.ProductStatusActive)

	input := CreateInput{BuyerID: buyer, ProductID: product.ID, Rating: 5, Text: "Lovely teapot"}
	_, err := svc.CreateReview(ctx, input)
	requireCode(t, err, pkgerrors.CodePurchaseRequired)

	for _, status := range []enums.OrderStatus{enums.OrderStatusRequested, enums.OrderStatusRejected, enums.OrderStatusCanceled} {
		testdb.SeedOrder(t, conn, buyer, seller, status, product, 1)
	}
	_, err = svc.CreateReview(ctx, input)
	requireCode(t, err, pkgerrors.CodePurchaseRequired)

	// another buyer's accepted order does not count
	testdb.SeedOrder(t, conn, uuid.New(), seller, enums.OrderStatusAccepted, product, 1)
	_, err = svc.CreateReview(ctx, input)
	requireCode(t, err, pkgerrors.CodePurchaseRequired)
}

func TestCreateReviewAttachesToLatestLineOnce(t *testing.T) {
	t.Parallel()
	svc, conn := newTestService(t)
	ctx := context.Background()
	buyer, seller := uuid.New(), uuid.New()
	product := testdb.SeedProduct(t, conn, seller, "Teapot", "18.00", enums.ProductStatusActive)

	older := testdb.SeedOrder(t, conn, buyer, seller, enums.OrderStatusCompleted, product, 1)
	newer := testdb.SeedOrder(t, conn, buyer, seller, enums.OrderStatusAccepted, product, 2)

	review, err := svc.CreateReview(ctx, CreateInput{BuyerID: buyer, ProductID: product.ID, Rating: 4, Text: "  Pours well  "})
	require.NoError(t, err)
	assert.Equal(t, newer.Lines[0].ID, review.OrderLineID)
	assert.Equal(t, "Pours well", review.Text)
	assert.False(t, review.IsHidden)

	_, err = svc.CreateReview(ctx, CreateInput{BuyerID: buyer, ProductID: product.ID, Rating: 1, Text: "Second try"})
	requireCode(t, err, pkgerrors.CodeAlreadyReviewed)

	var count int64
	require.NoError(t, conn.Model(&models.Review{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
	assert.NotEqual(t, older.Lines[0].ID, review.OrderLineID)
}

func TestCreateReviewEmitsNewReview(t *testing.T) {
	t.Parallel()
	svc, conn := newTestService(t)
	buyer, seller := uuid.New(), uuid.New()
	product := testdb.SeedProduct(t, conn, seller, "Scarf", "25.00", enums.ProductStatusActive)
	order := testdb.SeedOrder(t, conn, buyer, seller, enums.OrderStatusCompleted, product, 1)

	review, err := svc.CreateReview(context.Background(), CreateInput{BuyerID: buyer, ProductID: product.ID, Rating: 5, Text: "Warm"})
	require.NoError(t, err)

	var events []models.OutboxEvent
	require.NoError(t, conn.Find(&events).Error)
	require.Len(t, events, 1)
	assert.Equal(t, enums.AggregateReview, events[0].AggregateType)
	assert.Equal(t, review.ID, events[0].AggregateID)

	var envelope outbox.PayloadEnvelope
	require.NoError(t, json.Unmarshal(events[0].Payload, &envelope))
	var requested payloads.NotificationRequestedEvent
	require.NoError(t, json.Unmarshal(envelope.Data, &requested))
	assert.Equal(t, seller, requested.RecipientID)
	assert.Equal(t, enums.NotificationTypeNewReview, requested.Type)

	var body payloads.NewReviewPayload
	require.NoError(t, json.Unmarshal(requested.Payload, &body))
	assert.Equal(t, payloads.NewReviewPayload{ProductID: product.ID, ReviewUserID: buyer, OrderID: order.ID}, body)
}

func TestCreateReviewValidation(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t)
	buyer := uuid.New()
	product := uuid.New()

	cases := []struct {
		name   string
		rating int
		text   string
	}{
		{"rating too low", 0, "fine text"},
		{"rating too high", 6, "fine text"},
		{"text too short", 3, "  ab  "},
		{"text too long", 3, strings.Repeat("x", 2001)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateReview(context.Background(), CreateInput{BuyerID: buyer, ProductID: product, Rating: tc.rating, Text: tc.text})
			requireCode(t, err, pkgerrors.CodeValidation)
		})
	}

	_, err := svc.CreateReview(context.Background(), CreateInput{ProductID: product, Rating: 3, Text: "fine text"})
	requireCode(t, err, pkgerrors.CodeUnauthorized)
}

func TestUniqueViolationMapsToAlreadyReviewed(t *testing.T) {
	t.Parallel()
	conn := testdb.Open(t)
	lineID := uuid.New()
	first := models.Review{BuyerID: uuid.New(), ProductID: uuid.New(), OrderLineID: lineID, Rating: 5, Text: "first"}
	require.NoError(t, conn.Create(&first).Error)

	dup := models.Review{BuyerID: first.BuyerID, ProductID: first.ProductID, OrderLineID: lineID, Rating: 4, Text: "dup"}
	err := conn.Create(&dup).Error
	require.Error(t, err)
	requireCode(t, mapStoreError(err), pkgerrors.CodeAlreadyReviewed)
}

func TestListForProductHidesHiddenReviews(t *testing.T) {
	t.Parallel()
	svc, conn := newTestService(t)
	product := uuid.New()
	base := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	var visible []models.Review
	for i := 0; i < 3; i++ {
		r := models.Review{
			ID: models.NewID(), BuyerID: uuid.New(), ProductID: product, OrderLineID: uuid.New(),
			Rating: 4, Text: "visible", CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}
		require.NoError(t, conn.Create(&r).Error)
		visible = append(visible, r)
	}
	hidden := models.Review{
		ID: models.NewID(), BuyerID: uuid.New(), ProductID: product, OrderLineID: uuid.New(),
		Rating: 1, Text: "hidden", IsHidden: true, CreatedAt: base.Add(10 * time.Hour),
	}
	require.NoError(t, conn.Create(&hidden).Error)

	page, err := svc.ListForProduct(context.Background(), product, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, visible[2].ID, page.Items[0].ID)
	assert.Equal(t, visible[1].ID, page.Items[1].ID)
	require.NotEmpty(t, page.Cursor)

	next, err := svc.ListForProduct(context.Background(), product, pagination.Params{Limit: 2, Cursor: page.Cursor})
	require.NoError(t, err)
	require.Len(t, next.Items, 1)
	assert.Equal(t, visible[0].ID, next.Items[0].ID)
	assert.Empty(t, next.Cursor)
}

func TestFindLatestReviewableLinePicksNewestQualifyingOrder(t *testing.T) {
	t.Parallel()
	conn := testdb.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	buyer, seller := uuid.New(), uuid.New()
	product := testdb.SeedProduct(t, conn, seller, "Mug", "9.00", enums.ProductStatusActive)

	line, err := repo.FindLatestReviewableLine(ctx, buyer, product.ID)
	require.NoError(t, err)
	require.Nil(t, line)

	testdb.SeedOrder(t, conn, buyer, seller, enums.OrderStatusCompleted, product, 1)
	latest := testdb.SeedOrder(t, conn, buyer, seller, enums.OrderStatusAccepted, product, 2)
	testdb.SeedOrder(t, conn, buyer, seller, enums.OrderStatusRequested, product, 1)

	var found *ReviewableLine
	found, err = repo.FindLatestReviewableLine(ctx, buyer, product.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, latest.ID, found.OrderID)
	assert.Equal(t, latest.Lines[0].ID, found.OrderLineID)
	assert.Equal(t, seller, found.SellerID)
}
