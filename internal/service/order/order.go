package orderservice

import (
	"context"
	"log/slog"
	"time"

	"orderChat/internal/domain/models"

	"github.com/google/uuid"
)

type OrderProvider interface {
	Order(ctx context.Context, id uuid.UUID) (models.Order, error)
	Orders(ctx context.Context, page models.Page) ([]models.Order, int, error)
	OrdersByUser(ctx context.Context, userID uuid.UUID, page models.Page) ([]models.Order, int, error)
}

type OrderSaver interface {
	UpdateOrder(ctx context.Context, id uuid.UUID, upd models.OrderUpdate, now time.Time) (models.Order, error)
}

type UserProvider interface {
	User(ctx context.Context, id uuid.UUID) (models.User, error)
}

// Binder creates orders together with their chat room and repairs orders
// that have none.
type Binder interface {
	CreateOrder(ctx context.Context, order models.Order) (models.Order, error)
	EnsureChatRoom(ctx context.Context, orderID uuid.UUID) (models.ChatRoom, error)
}

type Notifier interface {
	SendMessage(message string) error
}

type OrderService struct {
	log      *slog.Logger
	provider OrderProvider
	saver    OrderSaver
	users    UserProvider
	binder   Binder
	notifier Notifier
	now      func() time.Time
}

func New(
	log *slog.Logger,
	provider OrderProvider,
	saver OrderSaver,
	users UserProvider,
	binder Binder,
	notifier Notifier,
) *OrderService {
	return &OrderService{
		log:      log,
		provider: provider,
		saver:    saver,
		users:    users,
		binder:   binder,
		notifier: notifier,
		now:      time.Now,
	}
}

type CreateOrderInput struct {
	Description    string
	Specifications string
	Quantity       int
}
