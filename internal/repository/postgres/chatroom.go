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

func (r *Repository) ChatRoom(ctx context.Context, id uuid.UUID) (models.ChatRoom, error) {
	const op = "postgres.ChatRoom"

	var (
		room  models.ChatRoom
		order models.Order
		state string
	)

	err := r.db.QueryRow(
		ctx,
		`SELECT c.id, c.order_id, c.is_closed, COALESCE(c.summary, ''), c.created_at, c.updated_at,
		        o.id, o.user_id, o.description, o.specifications, o.quantity, o.state, o.created_at, o.updated_at
		 FROM chat_rooms c
		 JOIN orders o ON o.id = c.order_id
		 WHERE c.id = $1`,
		id,
	).Scan(
		&room.ID,
		&room.OrderID,
		&room.IsClosed,
		&room.Summary,
		&room.CreatedAt,
		&room.UpdatedAt,
		&order.ID,
		&order.UserID,
		&order.Description,
		&order.Specifications,
		&order.Quantity,
		&state,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.ChatRoom{}, models.ErrChatRoomNotFound
		}
		return models.ChatRoom{}, wrap(op, err)
	}

	order.State = models.OrderState(state)
	room.Order = &order

	return room, nil
}

func (r *Repository) ChatRoomOwner(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	const op = "postgres.ChatRoomOwner"

	var owner uuid.UUID

	err := r.db.QueryRow(
		ctx,
		`SELECT o.user_id FROM chat_rooms c JOIN orders o ON o.id = c.order_id WHERE c.id = $1`,
		id,
	).Scan(&owner)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, models.ErrChatRoomNotFound
		}
		return uuid.Nil, wrap(op, err)
	}

	return owner, nil
}

// SaveMessage inserts msg while holding a share lock on its room, so a
// concurrent close either waits for this insert or makes it fail.
func (r *Repository) SaveMessage(ctx context.Context, msg models.Message) error {
	const op = "postgres.SaveMessage"

	err := r.withTx(ctx, func(tx pgx.Tx) error {
		var closed bool
		err := tx.QueryRow(
			ctx,
			`SELECT is_closed FROM chat_rooms WHERE id = $1 FOR SHARE`,
			msg.ChatRoomID,
		).Scan(&closed)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return models.ErrChatRoomNotFound
			}
			return err
		}

		if closed {
			return models.ErrChatRoomClosed
		}

		_, err = tx.Exec(
			ctx,
			`INSERT INTO messages (id, chat_room_id, sender_id, content, created_at)
			 VALUES ($1, $2, $3, $4, $5)`,
			msg.ID,
			msg.ChatRoomID,
			msg.SenderID,
			msg.Content,
			msg.Timestamp,
		)
		return err
	})
	if err != nil {
		var domainErr *models.Error
		if errors.As(err, &domainErr) {
			return err
		}
		return wrap(op, err)
	}

	return nil
}

func (r *Repository) Messages(ctx context.Context, roomID uuid.UUID) ([]models.Message, error) {
	const op = "postgres.Messages"

	rows, err := r.db.Query(
		ctx,
		`SELECT id, chat_room_id, sender_id, content, created_at
		 FROM messages
		 WHERE chat_room_id = $1
		 ORDER BY created_at ASC, seq ASC`,
		roomID,
	)
	if err != nil {
		return nil, wrap(op, err)
	}
	defer rows.Close()

	messages := make([]models.Message, 0)
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.ChatRoomID, &m.SenderID, &m.Content, &m.Timestamp); err != nil {
			return nil, wrap(op, err)
		}
		messages = append(messages, m)
	}

	if err := rows.Err(); err != nil {
		return nil, wrap(op, err)
	}

	return messages, nil
}

// CloseChatRoom marks the room closed, stores the summary and moves the
// bound order to PROCESSING in one transaction.
func (r *Repository) CloseChatRoom(ctx context.Context, id uuid.UUID, summary string, now time.Time) (models.ChatRoom, error) {
	const op = "postgres.CloseChatRoom"

	var (
		room  models.ChatRoom
		order models.Order
		state string
	)

	err := r.withTx(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(
			ctx,
			`SELECT id, order_id, is_closed, created_at FROM chat_rooms WHERE id = $1 FOR UPDATE`,
			id,
		).Scan(&room.ID, &room.OrderID, &room.IsClosed, &room.CreatedAt)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return models.ErrChatRoomNotFound
			}
			return err
		}

		if room.IsClosed {
			return models.ErrChatRoomAlreadyClosed
		}

		_, err = tx.Exec(
			ctx,
			`UPDATE chat_rooms SET is_closed = TRUE, summary = $2, updated_at = $3 WHERE id = $1`,
			id,
			summary,
			now,
		)
		if err != nil {
			return fmt.Errorf("update chat room: %w", err)
		}

		err = tx.QueryRow(
			ctx,
			`UPDATE orders SET state = $2, updated_at = $3 WHERE id = $1
			 RETURNING id, user_id, description, specifications, quantity, state, created_at, updated_at`,
			room.OrderID,
			string(models.OrderStateProcessing),
			now,
		).Scan(
			&order.ID,
			&order.UserID,
			&order.Description,
			&order.Specifications,
			&order.Quantity,
			&state,
			&order.CreatedAt,
			&order.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("advance order: %w", err)
		}

		return nil
	})
	if err != nil {
		var domainErr *models.Error
		if errors.As(err, &domainErr) {
			return models.ChatRoom{}, err
		}
		return models.ChatRoom{}, wrap(op, err)
	}

	room.IsClosed = true
	room.Summary = summary
	room.UpdatedAt = now
	order.State = models.OrderState(state)
	room.Order = &order

	return room, nil
}
