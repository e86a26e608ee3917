package orderservice

import (
	"context"
	"errors"
	"log/slog"

	"orderChat/internal/domain/models"
	"orderChat/internal/pkg/logger/sl"

	"github.com/google/uuid"
)

func (s *OrderService) Update(
	ctx context.Context,
	p models.Principal,
	id uuid.UUID,
	upd models.OrderUpdate,
) (models.Order, error) {
	const op = "order.Update"

	log := s.log.With(
		slog.String("op", op),
		slog.String("user_id", p.UserID.String()),
		slog.String("order_id", id.String()),
	)

	if !p.IsAdmin() {
		return models.Order{}, models.ErrAdminOnly
	}

	if upd.Empty() {
		return models.Order{}, models.InvalidInput("nothing to update")
	}
	if upd.Quantity != nil && *upd.Quantity < 1 {
		return models.Order{}, models.InvalidInput("quantity must be positive")
	}
	if upd.State != nil && !upd.State.Valid() {
		return models.Order{}, models.InvalidInput("unknown order state")
	}

	order, err := s.saver.UpdateOrder(ctx, id, upd, s.now().UTC())
	if err != nil {
		if errors.Is(err, models.ErrOrderNotFound) || errors.Is(err, models.ErrOrderRoomClosed) {
			return models.Order{}, err
		}
		log.Error("failed to update order", sl.Err(err))
		return models.Order{}, models.Sanitize(err)
	}

	if err := s.ensureRoom(ctx, &order); err != nil {
		return models.Order{}, err
	}

	log.Info("order updated", slog.String("state", string(order.State)))

	return order, nil
}
