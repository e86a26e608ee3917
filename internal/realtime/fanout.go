package realtime

import (
	"log/slog"

	"github.com/google/uuid"
)

type PublishResult struct {
	Delivered int
	Dropped   int
}

// Fanout delivers room events to every joined session, best effort. A slow
// or gone session loses the event without affecting the others.
type Fanout struct {
	log      *slog.Logger
	registry *Registry
}

func NewFanout(log *slog.Logger, registry *Registry) *Fanout {
	return &Fanout{
		log:      log,
		registry: registry,
	}
}

func (f *Fanout) Publish(roomID uuid.UUID, ev Event) PublishResult {
	var res PublishResult

	f.registry.forEachMember(roomID, func(s Session) {
		if s.Send(ev) {
			res.Delivered++
			return
		}
		res.Dropped++
	})

	if res.Dropped > 0 {
		f.log.Warn("events dropped",
			slog.String("op", "realtime.Publish"),
			slog.String("room_id", roomID.String()),
			slog.String("event", ev.Name),
			slog.Int("dropped", res.Dropped),
		)
	}

	return res
}
