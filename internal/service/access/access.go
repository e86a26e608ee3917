package access

import (
	"context"
	"errors"
	"log/slog"

	"orderChat/internal/domain/models"
	"orderChat/internal/pkg/logger/sl"

	"github.com/google/uuid"
)

type Op int

const (
	OpRead Op = iota
	OpWrite
)

func (o Op) String() string {
	if o == OpWrite {
		return "write"
	}
	return "read"
}

type RoomOwnerProvider interface {
	ChatRoomOwner(ctx context.Context, roomID uuid.UUID) (uuid.UUID, error)
}

// Gate decides who may read or write a chat room. Every entry point that
// touches a room goes through Authorize.
type Gate struct {
	log      *slog.Logger
	provider RoomOwnerProvider
}

func New(log *slog.Logger, provider RoomOwnerProvider) *Gate {
	return &Gate{
		log:      log,
		provider: provider,
	}
}

// Authorize allows admins and the owner of the room's order. Read and write
// share the same rule.
func (g *Gate) Authorize(ctx context.Context, p models.Principal, roomID uuid.UUID, op Op) error {
	const fn = "access.Authorize"

	log := g.log.With(
		slog.String("op", fn),
		slog.String("user_id", p.UserID.String()),
		slog.String("room_id", roomID.String()),
		slog.String("access", op.String()),
	)

	owner, err := g.provider.ChatRoomOwner(ctx, roomID)
	if err != nil {
		if errors.Is(err, models.ErrChatRoomNotFound) {
			return models.ErrChatRoomNotFound
		}
		log.Error("failed to resolve chat room owner", sl.Err(err))
		if models.IsRetryable(err) {
			return err
		}
		return models.ErrInternal
	}

	if p.IsAdmin() || owner == p.UserID {
		return nil
	}

	log.Info("access denied")

	return models.ErrForbiddenRoom
}
