//go:build integration

package orders

import (
	"context"
	"io"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/bazaar-backend/internal/testdb"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
)

func TestConcurrentTransitionsApplyExactlyOne(t *testing.T) {
	client := testdb.Postgres(t)
	conn := client.DB()
	svc, err := NewService(NewRepository(conn), client, logger.New(logger.Options{ServiceName: "integration", Output: io.Discard}), nil)
	require.NoError(t, err)

	buyer, seller := uuid.New(), uuid.New()
	product := testdb.SeedProduct(t, conn, seller, "Vase", "30.00", enums.ProductStatusActive)

	for round := 0; round < 5; round++ {
		order := testdb.SeedOrder(t, conn, buyer, seller, enums.OrderStatusRequested, product, 1)
		inputs := []TransitionInput{
			{OrderID: order.ID, ActorID: seller, Role: enums.ActorRoleSeller, Target: enums.OrderStatusAccepted},
			{OrderID: order.ID, ActorID: seller, Role: enums.ActorRoleSeller, Target: enums.OrderStatusRejected},
			{OrderID: order.ID, ActorID: buyer, Role: enums.ActorRoleBuyer, Target: enums.OrderStatusCanceled},
		}

		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			applied []enums.OrderStatus
		)
		start := make(chan struct{})
		for _, input := range inputs {
			wg.Add(1)
			go func(input TransitionInput) {
				defer wg.Done()
				<-start
				_, err := svc.Transition(context.Background(), input)
				if err != nil {
					assert.True(t,
						pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition) || pkgerrors.IsCode(err, pkgerrors.CodeConflict),
						"unexpected error: %v", err)
					return
				}
				mu.Lock()
				applied = append(applied, input.Target)
				mu.Unlock()
			}(input)
		}
		close(start)
		wg.Wait()

		require.Len(t, applied, 1, "round %d", round)
		stored, err := svc.Get(context.Background(), order.ID, buyer, enums.ActorRoleBuyer)
		require.NoError(t, err)
		assert.Equal(t, applied[0], stored.Status)
	}
}
