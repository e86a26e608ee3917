package chatroomservice

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"orderChat/internal/domain/models"
	"orderChat/internal/pkg/logger/sl"
	"orderChat/internal/realtime"
	"orderChat/internal/service/access"

	"github.com/google/uuid"
)

func (c *ChatRoomService) SendMessage(
	ctx context.Context,
	p models.Principal,
	roomID uuid.UUID,
	content string,
) (models.Message, error) {
	const op = "chatroom.SendMessage"

	log := c.log.With(
		slog.String("op", op),
		slog.String("user_id", p.UserID.String()),
		slog.String("room_id", roomID.String()),
	)

	if strings.TrimSpace(content) == "" {
		return models.Message{}, models.ErrEmptyContent
	}

	if err := c.gate.Authorize(ctx, p, roomID, access.OpWrite); err != nil {
		return models.Message{}, err
	}

	unlock := c.locks.Lock(roomID)
	defer unlock()

	msg := models.Message{
		ID:         uuid.New(),
		ChatRoomID: roomID,
		SenderID:   p.UserID,
		Content:    content,
		Timestamp:  c.timestamp(),
	}

	if err := c.saver.SaveMessage(ctx, msg); err != nil {
		if errors.Is(err, models.ErrChatRoomClosed) {
			log.Info("message rejected, chat room is closed")
			return models.Message{}, err
		}
		log.Error("failed to save message", sl.Err(err))
		return models.Message{}, models.Sanitize(err)
	}

	res := c.publisher.Publish(roomID, realtime.NewMessageEvent(msg))

	log.Debug("message sent",
		slog.String("message_id", msg.ID.String()),
		slog.Int("delivered", res.Delivered),
		slog.Int("dropped", res.Dropped),
	)

	return msg, nil
}

// History returns every message of the room in timestamp order together
// with the summary, which stays empty while the room is open.
func (c *ChatRoomService) History(ctx context.Context, p models.Principal, roomID uuid.UUID) (models.History, error) {
	const op = "chatroom.History"

	log := c.log.With(
		slog.String("op", op),
		slog.String("user_id", p.UserID.String()),
		slog.String("room_id", roomID.String()),
	)

	if err := c.gate.Authorize(ctx, p, roomID, access.OpRead); err != nil {
		return models.History{}, err
	}

	room, err := c.provider.ChatRoom(ctx, roomID)
	if err != nil {
		log.Error("failed to get chat room", sl.Err(err))
		return models.History{}, models.Sanitize(err)
	}

	messages, err := c.provider.Messages(ctx, roomID)
	if err != nil {
		log.Error("failed to get messages", sl.Err(err))
		return models.History{}, models.Sanitize(err)
	}

	return models.History{
		Messages: messages,
		Summary:  room.Summary,
	}, nil
}
