package memory

import (
	"context"
	"testing"
	"time"

	"orderChat/internal/domain/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func seedUser(t *testing.T, r *Repository) models.User {
	t.Helper()

	u := models.User{ID: uuid.New(), Email: uuid.NewString() + "@example.com", Role: models.RoleUser, IsVerified: true}
	require.NoError(t, r.SaveUser(context.Background(), u))

	return u
}

func seedOrder(t *testing.T, r *Repository, owner uuid.UUID, at time.Time) (models.Order, models.ChatRoom) {
	t.Helper()

	o := models.Order{ID: uuid.New(), UserID: owner, Quantity: 1, State: models.OrderStateOpen, CreatedAt: at}
	room := models.ChatRoom{ID: uuid.New(), OrderID: o.ID, CreatedAt: at}
	require.NoError(t, r.CreateOrderWithChatRoom(context.Background(), o, room))

	return o, room
}

func TestSaveUserRejectsDuplicateEmail(t *testing.T) {
	r := New()
	ctx := context.Background()

	u := models.User{ID: uuid.New(), Email: "A@example.com"}
	require.NoError(t, r.SaveUser(ctx, u))

	err := r.SaveUser(ctx, models.User{ID: uuid.New(), Email: "a@example.com"})
	require.ErrorIs(t, err, models.ErrUserExists)

	got, err := r.UserByEmail(ctx, "a@EXAMPLE.com")
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)
}

func TestCreateOrderWithChatRoomBindsRoom(t *testing.T) {
	r := New()
	u := seedUser(t, r)
	o, room := seedOrder(t, r, u.ID, time.Now())

	got, err := r.Order(context.Background(), o.ID)
	require.NoError(t, err)
	require.NotNil(t, got.ChatRoom)
	require.Equal(t, room.ID, got.ChatRoom.ID)
	require.False(t, got.ChatRoom.IsClosed)

	owner, err := r.ChatRoomOwner(context.Background(), room.ID)
	require.NoError(t, err)
	require.Equal(t, u.ID, owner)
}

func TestCloseChatRoomAdvancesOrderOnce(t *testing.T) {
	r := New()
	ctx := context.Background()
	u := seedUser(t, r)
	o, room := seedOrder(t, r, u.ID, time.Now())

	closed, err := r.CloseChatRoom(ctx, room.ID, "reviewed", time.Now())
	require.NoError(t, err)
	require.True(t, closed.IsClosed)
	require.Equal(t, "reviewed", closed.Summary)
	require.Equal(t, models.OrderStateProcessing, closed.Order.State)

	state := models.OrderStateCompleted
	_, err = r.UpdateOrder(ctx, o.ID, models.OrderUpdate{State: &state}, time.Now())
	require.NoError(t, err)

	_, err = r.CloseChatRoom(ctx, room.ID, "again", time.Now())
	require.ErrorIs(t, err, models.ErrChatRoomAlreadyClosed)

	got, err := r.Order(ctx, o.ID)
	require.NoError(t, err)
	require.Equal(t, models.OrderStateCompleted, got.State)
	require.Equal(t, "reviewed", got.ChatRoom.Summary)
}

func TestSaveMessageRejectsClosedRoom(t *testing.T) {
	r := New()
	ctx := context.Background()
	u := seedUser(t, r)
	_, room := seedOrder(t, r, u.ID, time.Now())

	msg := models.Message{ID: uuid.New(), ChatRoomID: room.ID, SenderID: u.ID, Content: "hi", Timestamp: time.Now()}
	require.NoError(t, r.SaveMessage(ctx, msg))

	_, err := r.CloseChatRoom(ctx, room.ID, "done", time.Now())
	require.NoError(t, err)

	msg.ID = uuid.New()
	require.ErrorIs(t, r.SaveMessage(ctx, msg), models.ErrChatRoomClosed)

	msgs, err := r.Messages(ctx, room.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
}

func TestEnsureChatRoomIsIdempotent(t *testing.T) {
	r := New()
	ctx := context.Background()
	u := seedUser(t, r)

	o := models.Order{ID: uuid.New(), UserID: u.ID, State: models.OrderStateOpen}
	require.NoError(t, r.SaveOrder(ctx, o))

	ids, err := r.OrdersWithoutChatRoom(ctx, 10)
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{o.ID}, ids)

	first, created, err := r.EnsureChatRoom(ctx, models.ChatRoom{ID: uuid.New(), OrderID: o.ID})
	require.NoError(t, err)
	require.True(t, created)

	second, created, err := r.EnsureChatRoom(ctx, models.ChatRoom{ID: uuid.New(), OrderID: o.ID})
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, first.ID, second.ID)

	ids, err = r.OrdersWithoutChatRoom(ctx, 10)
	require.NoError(t, err)
	require.Empty(t, ids)
}

func TestOrdersPagination(t *testing.T) {
	r := New()
	ctx := context.Background()
	a := seedUser(t, r)
	b := seedUser(t, r)

	base := time.Now()
	for i := 0; i < 5; i++ {
		seedOrder(t, r, a.ID, base.Add(time.Duration(i)*time.Second))
	}
	seedOrder(t, r, b.ID, base)

	page, total, err := r.OrdersByUser(ctx, a.ID, models.Page{Page: 1, Limit: 2})
	require.NoError(t, err)
	require.Equal(t, 5, total)
	require.Len(t, page, 2)
	require.True(t, page[0].CreatedAt.After(page[1].CreatedAt))

	page, _, err = r.OrdersByUser(ctx, a.ID, models.Page{Page: 3, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 1)

	_, total, err = r.Orders(ctx, models.Page{Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Equal(t, 6, total)
}

func TestExpiredContextIsRetryable(t *testing.T) {
	r := New()

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	_, err := r.ChatRoom(ctx, uuid.New())
	require.ErrorIs(t, err, models.ErrStorageTimeout)
	require.True(t, models.IsRetryable(err))
}
