package bindingservice

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"orderChat/internal/domain/models"
	"orderChat/internal/repository/memory"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type flakyRepo struct {
	*memory.Repository
	ensureErr error
}

func (f *flakyRepo) EnsureChatRoom(ctx context.Context, room models.ChatRoom) (models.ChatRoom, bool, error) {
	if f.ensureErr != nil {
		return models.ChatRoom{}, false, f.ensureErr
	}
	return f.Repository.EnsureChatRoom(ctx, room)
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func seedUser(t *testing.T, repo *memory.Repository) uuid.UUID {
	t.Helper()
	id := uuid.New()
	require.NoError(t, repo.SaveUser(context.Background(), models.User{ID: id, Email: id.String()}))
	return id
}

func TestCreateOrderBindsExactlyOneOpenRoom(t *testing.T) {
	repo := memory.New()
	b := New(discard(), repo)
	ctx := context.Background()

	order := models.Order{ID: uuid.New(), UserID: seedUser(t, repo), Quantity: 1, State: models.OrderStateOpen, CreatedAt: time.Now()}

	created, err := b.CreateOrder(ctx, order)
	require.NoError(t, err)
	require.NotNil(t, created.ChatRoom)
	require.False(t, created.ChatRoom.IsClosed)
	require.Equal(t, order.ID, created.ChatRoom.OrderID)

	room, err := b.EnsureChatRoom(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, created.ChatRoom.ID, room.ID)
}

func TestCreateOrderFailureIsInternal(t *testing.T) {
	repo := memory.New()
	b := New(discard(), repo)

	_, err := b.CreateOrder(context.Background(), models.Order{ID: uuid.New(), UserID: uuid.New()})
	require.ErrorIs(t, err, models.ErrUserNotFound)
}

func TestEnsureChatRoomFailureIsDistinct(t *testing.T) {
	repo := &flakyRepo{Repository: memory.New(), ensureErr: errors.New("connection reset")}
	b := New(discard(), repo)

	_, err := b.EnsureChatRoom(context.Background(), uuid.New())
	require.ErrorIs(t, err, models.ErrChatRoomBinding)
	require.True(t, models.IsRetryable(err))
}

func TestReconcileRepairsRoomlessOrders(t *testing.T) {
	repo := memory.New()
	b := New(discard(), repo)
	ctx := context.Background()
	user := seedUser(t, repo)

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.SaveOrder(ctx, models.Order{ID: uuid.New(), UserID: user, State: models.OrderStateOpen}))
	}
	_, err := b.CreateOrder(ctx, models.Order{ID: uuid.New(), UserID: user, State: models.OrderStateOpen})
	require.NoError(t, err)

	n, err := b.ReconcileChatRooms(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, n)

	n, err = b.ReconcileChatRooms(ctx)
	require.NoError(t, err)
	require.Zero(t, n)

	ids, err := repo.OrdersWithoutChatRoom(ctx, 10)
	require.NoError(t, err)
	require.Empty(t, ids)
}

func TestReconcileReportsFailures(t *testing.T) {
	mem := memory.New()
	repo := &flakyRepo{Repository: mem, ensureErr: errors.New("boom")}
	b := New(discard(), repo)
	ctx := context.Background()

	require.NoError(t, mem.SaveOrder(ctx, models.Order{ID: uuid.New(), UserID: seedUser(t, mem)}))

	n, err := b.ReconcileChatRooms(ctx)
	require.Zero(t, n)
	require.ErrorIs(t, err, models.ErrChatRoomBinding)
}
