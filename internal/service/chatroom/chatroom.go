package chatroomservice

import (
	"context"
	"log/slog"
	"time"

	"orderChat/internal/domain/models"
	"orderChat/internal/pkg/roomlock"
	"orderChat/internal/realtime"
	"orderChat/internal/service/access"

	"github.com/google/uuid"
)

type Authorizer interface {
	Authorize(ctx context.Context, p models.Principal, roomID uuid.UUID, op access.Op) error
}

type RoomProvider interface {
	ChatRoom(ctx context.Context, id uuid.UUID) (models.ChatRoom, error)
	Messages(ctx context.Context, roomID uuid.UUID) ([]models.Message, error)
}

type RoomSaver interface {
	SaveMessage(ctx context.Context, msg models.Message) error
	CloseChatRoom(ctx context.Context, id uuid.UUID, summary string, now time.Time) (models.ChatRoom, error)
}

type Publisher interface {
	Publish(roomID uuid.UUID, ev realtime.Event) realtime.PublishResult
}

type Archiver interface {
	ArchiveTranscript(ctx context.Context, room models.ChatRoom, messages []models.Message) error
}

type Notifier interface {
	SendMessage(message string) error
}

// ChatRoomService drives the room lifecycle. Sends and closes on the same
// room are serialized by a per-room lock held across persistence and
// publish, so subscribers see messages in commit order and nothing after
// the close.
type ChatRoomService struct {
	log       *slog.Logger
	gate      Authorizer
	provider  RoomProvider
	saver     RoomSaver
	publisher Publisher
	locks     *roomlock.Locker

	archiver Archiver
	notifier Notifier
	now      func() time.Time
}

type Option func(*ChatRoomService)

func WithArchiver(a Archiver) Option {
	return func(c *ChatRoomService) { c.archiver = a }
}

func WithNotifier(n Notifier) Option {
	return func(c *ChatRoomService) { c.notifier = n }
}

func WithClock(now func() time.Time) Option {
	return func(c *ChatRoomService) { c.now = now }
}

func New(
	log *slog.Logger,
	gate Authorizer,
	provider RoomProvider,
	saver RoomSaver,
	publisher Publisher,
	opts ...Option,
) *ChatRoomService {
	c := &ChatRoomService{
		log:       log,
		gate:      gate,
		provider:  provider,
		saver:     saver,
		publisher: publisher,
		locks:     roomlock.New(),
		now:       time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// timestamp is the current time at the precision Postgres stores, so live
// events and history agree.
func (c *ChatRoomService) timestamp() time.Time {
	return c.now().UTC().Truncate(time.Microsecond)
}
