package orderservice

import (
	"context"
	"errors"
	"log/slog"

	"orderChat/internal/domain/models"
	"orderChat/internal/pkg/logger/sl"

	"github.com/google/uuid"
)

// Orders lists the caller's own orders, newest first.
func (s *OrderService) Orders(ctx context.Context, p models.Principal, page models.Page) (models.OrderPage, error) {
	const op = "order.Orders"

	log := s.log.With(
		slog.String("op", op),
		slog.String("user_id", p.UserID.String()),
	)

	page = page.Normalize()

	orders, total, err := s.provider.OrdersByUser(ctx, p.UserID, page)
	if err != nil {
		log.Error("failed to list orders", sl.Err(err))
		return models.OrderPage{}, models.Sanitize(err)
	}

	return s.pageOf(ctx, orders, total, page)
}

func (s *OrderService) AllOrders(ctx context.Context, p models.Principal, page models.Page) (models.OrderPage, error) {
	const op = "order.AllOrders"

	log := s.log.With(
		slog.String("op", op),
		slog.String("user_id", p.UserID.String()),
	)

	if !p.IsAdmin() {
		return models.OrderPage{}, models.ErrAdminOnly
	}

	page = page.Normalize()

	orders, total, err := s.provider.Orders(ctx, page)
	if err != nil {
		log.Error("failed to list orders", sl.Err(err))
		return models.OrderPage{}, models.Sanitize(err)
	}

	return s.pageOf(ctx, orders, total, page)
}

func (s *OrderService) OrdersByUser(
	ctx context.Context,
	p models.Principal,
	userID uuid.UUID,
	page models.Page,
) (models.OrderPage, error) {
	const op = "order.OrdersByUser"

	log := s.log.With(
		slog.String("op", op),
		slog.String("user_id", p.UserID.String()),
		slog.String("owner_id", userID.String()),
	)

	if !p.IsAdmin() {
		return models.OrderPage{}, models.ErrAdminOnly
	}

	if _, err := s.users.User(ctx, userID); err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			return models.OrderPage{}, err
		}
		log.Error("failed to get user", sl.Err(err))
		return models.OrderPage{}, models.Sanitize(err)
	}

	page = page.Normalize()

	orders, total, err := s.provider.OrdersByUser(ctx, userID, page)
	if err != nil {
		log.Error("failed to list orders", sl.Err(err))
		return models.OrderPage{}, models.Sanitize(err)
	}

	return s.pageOf(ctx, orders, total, page)
}

func (s *OrderService) pageOf(ctx context.Context, orders []models.Order, total int, page models.Page) (models.OrderPage, error) {
	for i := range orders {
		if err := s.ensureRoom(ctx, &orders[i]); err != nil {
			return models.OrderPage{}, err
		}
	}

	return models.OrderPage{
		Orders: orders,
		Total:  total,
		Page:   page.Page,
		Limit:  page.Limit,
	}, nil
}

// Order returns one of the caller's own orders. Orders of other users are
// reported as missing.
func (s *OrderService) Order(ctx context.Context, p models.Principal, id uuid.UUID) (models.Order, error) {
	order, err := s.order(ctx, id)
	if err != nil {
		return models.Order{}, err
	}

	if order.UserID != p.UserID {
		return models.Order{}, models.ErrOrderNotFound
	}

	return order, nil
}

func (s *OrderService) AnyOrder(ctx context.Context, p models.Principal, id uuid.UUID) (models.Order, error) {
	if !p.IsAdmin() {
		return models.Order{}, models.ErrAdminOnly
	}

	return s.order(ctx, id)
}

func (s *OrderService) order(ctx context.Context, id uuid.UUID) (models.Order, error) {
	const op = "order.order"

	log := s.log.With(
		slog.String("op", op),
		slog.String("order_id", id.String()),
	)

	order, err := s.provider.Order(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrOrderNotFound) {
			return models.Order{}, err
		}
		log.Error("failed to get order", sl.Err(err))
		return models.Order{}, models.Sanitize(err)
	}

	if err := s.ensureRoom(ctx, &order); err != nil {
		return models.Order{}, err
	}

	return order, nil
}

func (s *OrderService) ensureRoom(ctx context.Context, order *models.Order) error {
	if order.ChatRoom != nil {
		return nil
	}

	room, err := s.binder.EnsureChatRoom(ctx, order.ID)
	if err != nil {
		return err
	}

	order.ChatRoom = &room

	return nil
}
