package postgres

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"orderChat/internal/domain/models"
	"orderChat/internal/repository/postgres/migrations"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// newTestRepository connects to the database named by ORDER_CHAT_TEST_DSN
// and skips the test when it is unset.
func newTestRepository(t *testing.T) *Repository {
	t.Helper()

	dsn := os.Getenv("ORDER_CHAT_TEST_DSN")
	if dsn == "" {
		t.Skip("ORDER_CHAT_TEST_DSN is not set")
	}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	require.NoError(t, RunMigrations(log, dsn, migrations.FS))

	pool, err := NewConnPoolFromURL(dsn, 5)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	return New(pool)
}

func seed(t *testing.T, r *Repository) (models.User, models.Order, models.ChatRoom) {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	u := models.User{
		ID:         uuid.New(),
		Email:      uuid.NewString() + "@example.com",
		PassHash:   []byte("hash"),
		Role:       models.RoleUser,
		IsVerified: true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	require.NoError(t, r.SaveUser(ctx, u))

	o := models.Order{
		ID:          uuid.New(),
		UserID:      u.ID,
		Description: "pump",
		Quantity:    2,
		State:       models.OrderStateOpen,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	room := models.ChatRoom{ID: uuid.New(), OrderID: o.ID, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, r.CreateOrderWithChatRoom(ctx, o, room))

	return u, o, room
}

func TestPostgresCreateOrderWithChatRoom(t *testing.T) {
	r := newTestRepository(t)
	u, o, room := seed(t, r)

	got, err := r.Order(context.Background(), o.ID)
	require.NoError(t, err)
	require.Equal(t, u.ID, got.UserID)
	require.NotNil(t, got.ChatRoom)
	require.Equal(t, room.ID, got.ChatRoom.ID)

	err = r.SaveUser(context.Background(), models.User{ID: uuid.New(), Email: u.Email, PassHash: []byte("x")})
	require.ErrorIs(t, err, models.ErrUserExists)
}

func TestPostgresCloseChatRoomIsAtomicAndOnce(t *testing.T) {
	r := newTestRepository(t)
	ctx := context.Background()
	u, o, room := seed(t, r)

	require.NoError(t, r.SaveMessage(ctx, models.Message{
		ID: uuid.New(), ChatRoomID: room.ID, SenderID: u.ID, Content: "hello", Timestamp: time.Now().UTC(),
	}))

	closed, err := r.CloseChatRoom(ctx, room.ID, "reviewed", time.Now().UTC())
	require.NoError(t, err)
	require.Equal(t, models.OrderStateProcessing, closed.Order.State)

	_, err = r.CloseChatRoom(ctx, room.ID, "again", time.Now().UTC())
	require.ErrorIs(t, err, models.ErrChatRoomAlreadyClosed)

	err = r.SaveMessage(ctx, models.Message{
		ID: uuid.New(), ChatRoomID: room.ID, SenderID: u.ID, Content: "late", Timestamp: time.Now().UTC(),
	})
	require.ErrorIs(t, err, models.ErrChatRoomClosed)

	got, err := r.Order(ctx, o.ID)
	require.NoError(t, err)
	require.Equal(t, "reviewed", got.ChatRoom.Summary)

	open := models.OrderStateOpen
	_, err = r.UpdateOrder(ctx, o.ID, models.OrderUpdate{State: &open}, time.Now().UTC())
	require.ErrorIs(t, err, models.ErrOrderRoomClosed)

	qty := 3
	updated, err := r.UpdateOrder(ctx, o.ID, models.OrderUpdate{Quantity: &qty}, time.Now().UTC())
	require.NoError(t, err)
	require.Equal(t, 3, updated.Quantity)
	require.Equal(t, models.OrderStateProcessing, updated.State)
}

func TestPostgresSendRacingCloseNeverLandsAfterClose(t *testing.T) {
	r := newTestRepository(t)
	ctx := context.Background()
	u, _, room := seed(t, r)

	var (
		wg       sync.WaitGroup
		closeErr error
	)

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = r.SaveMessage(ctx, models.Message{
				ID: uuid.New(), ChatRoomID: room.ID, SenderID: u.ID, Content: "x", Timestamp: time.Now().UTC(),
			})
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		_, closeErr = r.CloseChatRoom(ctx, room.ID, "done", time.Now().UTC())
	}()

	wg.Wait()
	require.NoError(t, closeErr)

	err := r.SaveMessage(ctx, models.Message{
		ID: uuid.New(), ChatRoomID: room.ID, SenderID: u.ID, Content: "after", Timestamp: time.Now().UTC(),
	})
	require.ErrorIs(t, err, models.ErrChatRoomClosed)

	msgs, err := r.Messages(ctx, room.ID)
	require.NoError(t, err)
	for i := 1; i < len(msgs); i++ {
		require.False(t, msgs[i].Timestamp.Before(msgs[i-1].Timestamp))
	}
}

func TestPostgresEnsureChatRoom(t *testing.T) {
	r := newTestRepository(t)
	ctx := context.Background()
	_, o, room := seed(t, r)

	got, created, err := r.EnsureChatRoom(ctx, models.ChatRoom{ID: uuid.New(), OrderID: o.ID})
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, room.ID, got.ID)

	_, _, err = r.EnsureChatRoom(ctx, models.ChatRoom{ID: uuid.New(), OrderID: uuid.New()})
	require.ErrorIs(t, err, models.ErrOrderNotFound)
}
