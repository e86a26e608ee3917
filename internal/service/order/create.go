package orderservice

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"orderChat/internal/domain/models"
	"orderChat/internal/pkg/logger/sl"

	"github.com/google/uuid"
)

func (s *OrderService) Create(ctx context.Context, p models.Principal, in CreateOrderInput) (models.Order, error) {
	const op = "order.Create"

	log := s.log.With(
		slog.String("op", op),
		slog.String("user_id", p.UserID.String()),
	)

	in.Description = strings.TrimSpace(in.Description)
	if in.Description == "" {
		return models.Order{}, models.InvalidInput("description is required")
	}
	if in.Quantity < 1 {
		return models.Order{}, models.InvalidInput("quantity must be positive")
	}

	now := s.now().UTC()
	order := models.Order{
		ID:             uuid.New(),
		UserID:         p.UserID,
		Description:    in.Description,
		Specifications: in.Specifications,
		Quantity:       in.Quantity,
		State:          models.OrderStateOpen,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	order, err := s.binder.CreateOrder(ctx, order)
	if err != nil {
		return models.Order{}, err
	}

	if s.notifier != nil {
		text := fmt.Sprintf("New order %s (qty %d): %s", order.ID, order.Quantity, order.Description)
		if err := s.notifier.SendMessage(text); err != nil {
			log.Warn("failed to notify staff", sl.Err(err))
		}
	}

	return order, nil
}
