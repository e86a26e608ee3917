package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"orderChat/internal/domain/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const selectOrder = `
	SELECT o.id, o.user_id, o.description, o.specifications, o.quantity, o.state, o.created_at, o.updated_at,
	       c.id, c.is_closed, COALESCE(c.summary, ''), c.created_at, c.updated_at
	FROM orders o
	LEFT JOIN chat_rooms c ON c.order_id = o.id`

func scanOrder(row rowScanner) (models.Order, error) {
	var o models.Order
	var state string

	var (
		roomID        *uuid.UUID
		roomClosed    *bool
		roomSummary   string
		roomCreatedAt *time.Time
		roomUpdatedAt *time.Time
	)

	err := row.Scan(
		&o.ID,
		&o.UserID,
		&o.Description,
		&o.Specifications,
		&o.Quantity,
		&state,
		&o.CreatedAt,
		&o.UpdatedAt,
		&roomID,
		&roomClosed,
		&roomSummary,
		&roomCreatedAt,
		&roomUpdatedAt,
	)
	if err != nil {
		return models.Order{}, err
	}

	o.State = models.OrderState(state)

	if roomID != nil {
		o.ChatRoom = &models.ChatRoom{
			ID:        *roomID,
			OrderID:   o.ID,
			IsClosed:  *roomClosed,
			Summary:   roomSummary,
			CreatedAt: *roomCreatedAt,
			UpdatedAt: *roomUpdatedAt,
		}
	}

	return o, nil
}

func (r *Repository) CreateOrderWithChatRoom(ctx context.Context, order models.Order, room models.ChatRoom) error {
	const op = "postgres.CreateOrderWithChatRoom"

	err := r.withTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(
			ctx,
			`INSERT INTO orders (id, user_id, description, specifications, quantity, state, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			order.ID,
			order.UserID,
			order.Description,
			order.Specifications,
			order.Quantity,
			string(order.State),
			order.CreatedAt,
			order.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert order: %w", err)
		}

		_, err = tx.Exec(
			ctx,
			`INSERT INTO chat_rooms (id, order_id, is_closed, created_at, updated_at)
			 VALUES ($1, $2, FALSE, $3, $4)`,
			room.ID,
			order.ID,
			room.CreatedAt,
			room.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert chat room: %w", err)
		}

		return nil
	})
	if err != nil {
		return wrap(op, err)
	}

	return nil
}

func (r *Repository) EnsureChatRoom(ctx context.Context, room models.ChatRoom) (models.ChatRoom, bool, error) {
	const op = "postgres.EnsureChatRoom"

	var (
		res     models.ChatRoom
		created bool
	)

	err := r.withTx(ctx, func(tx pgx.Tx) error {
		var exists bool
		err := tx.QueryRow(ctx, `SELECT TRUE FROM orders WHERE id = $1 FOR UPDATE`, room.OrderID).Scan(&exists)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return models.ErrOrderNotFound
			}
			return err
		}

		tag, err := tx.Exec(
			ctx,
			`INSERT INTO chat_rooms (id, order_id, is_closed, created_at, updated_at)
			 VALUES ($1, $2, FALSE, $3, $4)
			 ON CONFLICT (order_id) DO NOTHING`,
			room.ID,
			room.OrderID,
			room.CreatedAt,
			room.UpdatedAt,
		)
		if err != nil {
			return err
		}
		created = tag.RowsAffected() == 1

		return tx.QueryRow(
			ctx,
			`SELECT id, order_id, is_closed, COALESCE(summary, ''), created_at, updated_at
			 FROM chat_rooms WHERE order_id = $1`,
			room.OrderID,
		).Scan(&res.ID, &res.OrderID, &res.IsClosed, &res.Summary, &res.CreatedAt, &res.UpdatedAt)
	})
	if err != nil {
		if errors.Is(err, models.ErrOrderNotFound) {
			return models.ChatRoom{}, false, err
		}
		return models.ChatRoom{}, false, wrap(op, err)
	}

	return res, created, nil
}

func (r *Repository) OrdersWithoutChatRoom(ctx context.Context, limit int) ([]uuid.UUID, error) {
	const op = "postgres.OrdersWithoutChatRoom"

	rows, err := r.db.Query(
		ctx,
		`SELECT o.id FROM orders o
		 LEFT JOIN chat_rooms c ON c.order_id = o.id
		 WHERE c.id IS NULL
		 ORDER BY o.created_at
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, wrap(op, err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, wrap(op, err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, wrap(op, err)
	}

	return ids, nil
}

func (r *Repository) Order(ctx context.Context, id uuid.UUID) (models.Order, error) {
	const op = "postgres.Order"

	o, err := scanOrder(r.db.QueryRow(ctx, selectOrder+` WHERE o.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Order{}, models.ErrOrderNotFound
		}
		return models.Order{}, wrap(op, err)
	}

	return o, nil
}

func (r *Repository) Orders(ctx context.Context, page models.Page) ([]models.Order, int, error) {
	const op = "postgres.Orders"

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM orders`).Scan(&total); err != nil {
		return nil, 0, wrap(op, err)
	}

	orders, err := r.queryOrders(
		ctx,
		selectOrder+` ORDER BY o.created_at DESC, o.id LIMIT $1 OFFSET $2`,
		page.Limit,
		page.Offset(),
	)
	if err != nil {
		return nil, 0, wrap(op, err)
	}

	return orders, total, nil
}

func (r *Repository) OrdersByUser(ctx context.Context, userID uuid.UUID, page models.Page) ([]models.Order, int, error) {
	const op = "postgres.OrdersByUser"

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM orders WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, wrap(op, err)
	}

	orders, err := r.queryOrders(
		ctx,
		selectOrder+` WHERE o.user_id = $1 ORDER BY o.created_at DESC, o.id LIMIT $2 OFFSET $3`,
		userID,
		page.Limit,
		page.Offset(),
	)
	if err != nil {
		return nil, 0, wrap(op, err)
	}

	return orders, total, nil
}

func (r *Repository) queryOrders(ctx context.Context, query string, args ...any) ([]models.Order, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := make([]models.Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}

	return orders, rows.Err()
}

func (r *Repository) UpdateOrder(ctx context.Context, id uuid.UUID, upd models.OrderUpdate, now time.Time) (models.Order, error) {
	const op = "postgres.UpdateOrder"

	var state *string
	if upd.State != nil {
		s := string(*upd.State)
		state = &s
	}

	err := r.withTx(ctx, func(tx pgx.Tx) error {
		// FOR SHARE waits for a concurrent close, so its result is seen here.
		if upd.State != nil && *upd.State == models.OrderStateOpen {
			var closed bool
			err := tx.QueryRow(
				ctx,
				`SELECT is_closed FROM chat_rooms WHERE order_id = $1 FOR SHARE`,
				id,
			).Scan(&closed)
			if err != nil && !errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("lock chat room: %w", err)
			}
			if closed {
				return models.ErrOrderRoomClosed
			}
		}

		tag, err := tx.Exec(
			ctx,
			`UPDATE orders
			 SET description    = COALESCE($2, description),
			     specifications = COALESCE($3, specifications),
			     quantity       = COALESCE($4, quantity),
			     state          = COALESCE($5, state),
			     updated_at     = $6
			 WHERE id = $1`,
			id,
			upd.Description,
			upd.Specifications,
			upd.Quantity,
			state,
			now,
		)
		if err != nil {
			return err
		}

		if tag.RowsAffected() == 0 {
			return models.ErrOrderNotFound
		}

		return nil
	})
	if err != nil {
		var domainErr *models.Error
		if errors.As(err, &domainErr) {
			return models.Order{}, err
		}
		return models.Order{}, wrap(op, err)
	}

	return r.Order(ctx, id)
}
