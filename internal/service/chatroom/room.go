package chatroomservice

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"orderChat/internal/domain/models"
	"orderChat/internal/pkg/logger/sl"
	"orderChat/internal/realtime"
	"orderChat/internal/service/access"

	"github.com/google/uuid"
)

func (c *ChatRoomService) ChatRoom(ctx context.Context, p models.Principal, roomID uuid.UUID) (models.ChatRoom, error) {
	const op = "chatroom.ChatRoom"

	log := c.log.With(
		slog.String("op", op),
		slog.String("user_id", p.UserID.String()),
		slog.String("room_id", roomID.String()),
	)

	if err := c.gate.Authorize(ctx, p, roomID, access.OpRead); err != nil {
		return models.ChatRoom{}, err
	}

	room, err := c.provider.ChatRoom(ctx, roomID)
	if err != nil {
		log.Error("failed to get chat room", sl.Err(err))
		return models.ChatRoom{}, models.Sanitize(err)
	}

	return room, nil
}

// Close is admin only. It closes the room, stores the summary and moves the
// order to PROCESSING atomically. A second close fails with
// ErrChatRoomAlreadyClosed and changes nothing.
func (c *ChatRoomService) Close(
	ctx context.Context,
	p models.Principal,
	roomID uuid.UUID,
	summary string,
) (models.ChatRoom, error) {
	const op = "chatroom.Close"

	log := c.log.With(
		slog.String("op", op),
		slog.String("user_id", p.UserID.String()),
		slog.String("room_id", roomID.String()),
	)

	if !p.IsAdmin() {
		log.Info("close rejected, caller is not an admin")
		return models.ChatRoom{}, models.ErrAdminOnly
	}

	summary = strings.TrimSpace(summary)
	if summary == "" {
		return models.ChatRoom{}, models.ErrEmptySummary
	}

	unlock := c.locks.Lock(roomID)

	room, err := c.saver.CloseChatRoom(ctx, roomID, summary, c.timestamp())
	if err != nil {
		unlock()
		if models.KindOf(err) != models.KindInternal {
			log.Info("close rejected", slog.String("reason", err.Error()))
			return models.ChatRoom{}, err
		}
		log.Error("failed to close chat room", sl.Err(err))
		return models.ChatRoom{}, models.Sanitize(err)
	}

	res := c.publisher.Publish(roomID, realtime.RoomClosedEvent(room))
	unlock()

	log.Info("chat room closed",
		slog.String("order_id", room.OrderID.String()),
		slog.Int("delivered", res.Delivered),
	)

	c.afterClose(ctx, log, room)

	return room, nil
}

// afterClose archives the transcript and notifies staff. Failures are
// logged and never undo the close.
func (c *ChatRoomService) afterClose(ctx context.Context, log *slog.Logger, room models.ChatRoom) {
	if c.archiver != nil {
		messages, err := c.provider.Messages(ctx, room.ID)
		if err != nil {
			log.Warn("failed to load transcript", sl.Err(err))
		} else if err := c.archiver.ArchiveTranscript(ctx, room, messages); err != nil {
			log.Warn("failed to archive transcript", sl.Err(err))
		}
	}

	if c.notifier != nil {
		text := fmt.Sprintf("Chat room %s closed, order %s moved to %s.\nSummary: %s",
			room.ID, room.OrderID, models.OrderStateProcessing, room.Summary)
		if err := c.notifier.SendMessage(text); err != nil {
			log.Warn("failed to notify staff", sl.Err(err))
		}
	}
}
