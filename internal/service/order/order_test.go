package orderservice

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"orderChat/internal/domain/models"
	"orderChat/internal/repository/memory"
	bindingservice "orderChat/internal/service/binding"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type notifierStub struct{ texts []string }

func (n *notifierStub) SendMessage(text string) error {
	n.texts = append(n.texts, text)
	return nil
}

type fixture struct {
	repo  *memory.Repository
	svc   *OrderService
	notif *notifierStub
	owner models.Principal
	other models.Principal
	admin models.Principal
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	repo := memory.New()
	notif := &notifierStub{}

	f := &fixture{
		repo:  repo,
		notif: notif,
		svc:   New(log, repo, repo, repo, bindingservice.New(log, repo), notif),
	}

	for _, p := range []*models.Principal{&f.owner, &f.other, &f.admin} {
		*p = models.Principal{UserID: uuid.New(), Role: models.RoleUser, Verified: true}
		require.NoError(t, repo.SaveUser(context.Background(), models.User{ID: p.UserID, Email: p.UserID.String()}))
	}
	f.admin.Role = models.RoleAdmin

	return f
}

func (f *fixture) create(t *testing.T, p models.Principal) models.Order {
	t.Helper()
	o, err := f.svc.Create(context.Background(), p, CreateOrderInput{Description: "pump", Specifications: "steel", Quantity: 2})
	require.NoError(t, err)
	return o
}

func TestCreateYieldsOneOpenRoom(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	o := f.create(t, f.owner)
	require.Equal(t, models.OrderStateOpen, o.State)
	require.Equal(t, f.owner.UserID, o.UserID)
	require.NotNil(t, o.ChatRoom)
	require.False(t, o.ChatRoom.IsClosed)

	got, err := f.svc.Order(ctx, f.owner, o.ID)
	require.NoError(t, err)
	require.Equal(t, o.ChatRoom.ID, got.ChatRoom.ID)

	require.Len(t, f.notif.texts, 1)
	require.Contains(t, f.notif.texts[0], o.ID.String())
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, f.owner, CreateOrderInput{Description: " ", Quantity: 1})
	require.ErrorIs(t, err, models.ErrInvalidInput)

	_, err = f.svc.Create(ctx, f.owner, CreateOrderInput{Description: "x", Quantity: 0})
	require.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestOrderHidesOtherUsersOrders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.create(t, f.owner)

	_, err := f.svc.Order(ctx, f.other, o.ID)
	require.ErrorIs(t, err, models.ErrOrderNotFound)

	_, err = f.svc.AnyOrder(ctx, f.other, o.ID)
	require.ErrorIs(t, err, models.ErrAdminOnly)

	got, err := f.svc.AnyOrder(ctx, f.admin, o.ID)
	require.NoError(t, err)
	require.Equal(t, o.ID, got.ID)
}

func TestListing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		f.create(t, f.owner)
	}
	f.create(t, f.other)

	own, err := f.svc.Orders(ctx, f.owner, models.Page{})
	require.NoError(t, err)
	require.Equal(t, 3, own.Total)
	require.Equal(t, 1, own.Page)
	require.Equal(t, models.DefaultPageLimit, own.Limit)
	for _, o := range own.Orders {
		require.Equal(t, f.owner.UserID, o.UserID)
		require.NotNil(t, o.ChatRoom)
	}

	_, err = f.svc.AllOrders(ctx, f.owner, models.Page{})
	require.ErrorIs(t, err, models.ErrAdminOnly)

	all, err := f.svc.AllOrders(ctx, f.admin, models.Page{Page: 1, Limit: 2})
	require.NoError(t, err)
	require.Equal(t, 4, all.Total)
	require.Len(t, all.Orders, 2)

	byUser, err := f.svc.OrdersByUser(ctx, f.admin, f.other.UserID, models.Page{})
	require.NoError(t, err)
	require.Equal(t, 1, byUser.Total)

	_, err = f.svc.OrdersByUser(ctx, f.admin, uuid.New(), models.Page{})
	require.ErrorIs(t, err, models.ErrUserNotFound)
}

func TestRoomlessOrderIsRepairedOnRead(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	legacy := models.Order{ID: uuid.New(), UserID: f.owner.UserID, Description: "old", Quantity: 1, State: models.OrderStateOpen}
	require.NoError(t, f.repo.SaveOrder(ctx, legacy))

	got, err := f.svc.Order(ctx, f.owner, legacy.ID)
	require.NoError(t, err)
	require.NotNil(t, got.ChatRoom)

	again, err := f.svc.Order(ctx, f.owner, legacy.ID)
	require.NoError(t, err)
	require.Equal(t, got.ChatRoom.ID, again.ChatRoom.ID)
}

func TestUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.create(t, f.owner)

	state := models.OrderStateCompleted
	qty := 5

	_, err := f.svc.Update(ctx, f.owner, o.ID, models.OrderUpdate{State: &state})
	require.ErrorIs(t, err, models.ErrAdminOnly)

	updated, err := f.svc.Update(ctx, f.admin, o.ID, models.OrderUpdate{State: &state, Quantity: &qty})
	require.NoError(t, err)
	require.Equal(t, models.OrderStateCompleted, updated.State)
	require.Equal(t, 5, updated.Quantity)
	require.Equal(t, "pump", updated.Description)

	bad := models.OrderState("LOST")
	_, err = f.svc.Update(ctx, f.admin, o.ID, models.OrderUpdate{State: &bad})
	require.ErrorIs(t, err, models.ErrInvalidInput)

	_, err = f.svc.Update(ctx, f.admin, o.ID, models.OrderUpdate{})
	require.ErrorIs(t, err, models.ErrInvalidInput)

	_, err = f.svc.Update(ctx, f.admin, uuid.New(), models.OrderUpdate{State: &state})
	require.ErrorIs(t, err, models.ErrOrderNotFound)
}

func TestUpdateCannotReopenClosedRoom(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.create(t, f.owner)

	_, err := f.repo.CloseChatRoom(ctx, o.ChatRoom.ID, "reviewed", time.Now())
	require.NoError(t, err)

	open := models.OrderStateOpen
	_, err = f.svc.Update(ctx, f.admin, o.ID, models.OrderUpdate{State: &open})
	require.ErrorIs(t, err, models.ErrOrderRoomClosed)
	require.ErrorIs(t, err, models.ErrConflict)

	got, err := f.svc.Order(ctx, f.owner, o.ID)
	require.NoError(t, err)
	require.Equal(t, models.OrderStateProcessing, got.State)

	completed := models.OrderStateCompleted
	updated, err := f.svc.Update(ctx, f.admin, o.ID, models.OrderUpdate{State: &completed})
	require.NoError(t, err)
	require.Equal(t, models.OrderStateCompleted, updated.State)
}
