// Package bindingservice guarantees that every order owns exactly one chat
// room. New orders get their room in the same transaction; orders that
// predate that rule are repaired through EnsureChatRoom.
package bindingservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"orderChat/internal/domain/models"
	"orderChat/internal/pkg/logger/sl"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	reconcileBatch   = 500
	reconcileWorkers = 8
)

type Repository interface {
	CreateOrderWithChatRoom(ctx context.Context, order models.Order, room models.ChatRoom) error
	EnsureChatRoom(ctx context.Context, room models.ChatRoom) (models.ChatRoom, bool, error)
	OrdersWithoutChatRoom(ctx context.Context, limit int) ([]uuid.UUID, error)
}

type Binding struct {
	log  *slog.Logger
	repo Repository
	now  func() time.Time
}

func New(log *slog.Logger, repo Repository) *Binding {
	return &Binding{
		log:  log,
		repo: repo,
		now:  time.Now,
	}
}

func (b *Binding) newChatRoom(orderID uuid.UUID) models.ChatRoom {
	now := b.now().UTC()
	return models.ChatRoom{
		ID:        uuid.New(),
		OrderID:   orderID,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// CreateOrder persists order together with its open chat room and returns
// the order with the room attached.
func (b *Binding) CreateOrder(ctx context.Context, order models.Order) (models.Order, error) {
	const op = "binding.CreateOrder"

	log := b.log.With(
		slog.String("op", op),
		slog.String("order_id", order.ID.String()),
	)

	room := b.newChatRoom(order.ID)

	if err := b.repo.CreateOrderWithChatRoom(ctx, order, room); err != nil {
		log.Error("failed to create order with chat room", sl.Err(err))
		return models.Order{}, models.Sanitize(err)
	}

	order.ChatRoom = &room

	log.Info("order created", slog.String("room_id", room.ID.String()))

	return order, nil
}

// EnsureChatRoom returns the room of orderID, creating it when missing.
// Failures other than a missing order surface as ErrChatRoomBinding.
func (b *Binding) EnsureChatRoom(ctx context.Context, orderID uuid.UUID) (models.ChatRoom, error) {
	const op = "binding.EnsureChatRoom"

	log := b.log.With(
		slog.String("op", op),
		slog.String("order_id", orderID.String()),
	)

	room, created, err := b.repo.EnsureChatRoom(ctx, b.newChatRoom(orderID))
	if err != nil {
		if errors.Is(err, models.ErrOrderNotFound) {
			return models.ChatRoom{}, err
		}
		log.Error("failed to bind chat room", sl.Err(err))
		return models.ChatRoom{}, fmt.Errorf("%w: %w", models.ErrChatRoomBinding, err)
	}

	if created {
		log.Warn("chat room created for roomless order", slog.String("room_id", room.ID.String()))
	}

	return room, nil
}

// ReconcileChatRooms repairs one batch of roomless orders and reports how
// many rooms it created.
func (b *Binding) ReconcileChatRooms(ctx context.Context) (int, error) {
	const op = "binding.ReconcileChatRooms"

	log := b.log.With(slog.String("op", op))

	ids, err := b.repo.OrdersWithoutChatRoom(ctx, reconcileBatch)
	if err != nil {
		log.Error("failed to list roomless orders", sl.Err(err))
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	results := make([]error, len(ids))

	g := new(errgroup.Group)
	g.SetLimit(reconcileWorkers)

	for i, id := range ids {
		g.Go(func() error {
			_, results[i] = b.EnsureChatRoom(ctx, id)
			return nil
		})
	}
	_ = g.Wait()

	var (
		repaired int
		errs     []error
	)

	for _, err := range results {
		switch {
		case err == nil:
			repaired++
		case errors.Is(err, models.ErrOrderNotFound):
		default:
			errs = append(errs, err)
		}
	}

	if repaired > 0 || len(errs) > 0 {
		log.Info("chat room reconciliation finished",
			slog.Int("repaired", repaired),
			slog.Int("failed", len(errs)),
		)
	}

	return repaired, errors.Join(errs...)
}
