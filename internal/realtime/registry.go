package realtime

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"orderChat/internal/domain/models"
	"orderChat/internal/service/access"

	"github.com/google/uuid"
)

var (
	ErrRegistryClosed    = errors.New("session registry is closed")
	ErrSessionRegistered = errors.New("session is already registered")
)

// Session is a live connection of one authenticated user.
type Session interface {
	ID() string
	// Send queues ev without blocking and reports whether it was accepted.
	Send(ev Event) bool
	Close()
}

type Authorizer interface {
	Authorize(ctx context.Context, p models.Principal, roomID uuid.UUID, op access.Op) error
}

type set map[string]struct{}

type member struct {
	session   Session
	principal models.Principal
	rooms     map[uuid.UUID]struct{}
}

// Registry maps users to their live sessions and sessions to joined rooms.
// It is owned by the application and torn down with Close on shutdown.
type Registry struct {
	log  *slog.Logger
	gate Authorizer

	mu       sync.RWMutex
	sessions map[string]*member
	users    map[uuid.UUID]set
	rooms    map[uuid.UUID]set
	closed   bool
}

func NewRegistry(log *slog.Logger, gate Authorizer) *Registry {
	return &Registry{
		log:      log,
		gate:     gate,
		sessions: make(map[string]*member),
		users:    make(map[uuid.UUID]set),
		rooms:    make(map[uuid.UUID]set),
	}
}

func (r *Registry) Register(p models.Principal, s Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrRegistryClosed
	}

	if _, ok := r.sessions[s.ID()]; ok {
		return ErrSessionRegistered
	}

	r.sessions[s.ID()] = &member{
		session:   s,
		principal: p,
		rooms:     make(map[uuid.UUID]struct{}),
	}

	if _, ok := r.users[p.UserID]; !ok {
		r.users[p.UserID] = make(set)
	}
	r.users[p.UserID][s.ID()] = struct{}{}

	r.log.Debug("session registered",
		slog.String("session_id", s.ID()),
		slog.String("user_id", p.UserID.String()),
	)

	return nil
}

// Unregister drops s from every room and from its owner. Calling it for an
// unknown session is a no-op.
func (r *Registry) Unregister(s Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.removeLocked(s.ID())
}

func (r *Registry) removeLocked(id string) bool {
	m, ok := r.sessions[id]
	if !ok {
		return false
	}

	for roomID := range m.rooms {
		r.leaveLocked(id, roomID)
	}

	if owned, ok := r.users[m.principal.UserID]; ok {
		delete(owned, id)
		if len(owned) == 0 {
			delete(r.users, m.principal.UserID)
		}
	}

	delete(r.sessions, id)

	r.log.Debug("session unregistered", slog.String("session_id", id))

	return true
}

func (r *Registry) leaveLocked(id string, roomID uuid.UUID) {
	if members, ok := r.rooms[roomID]; ok {
		delete(members, id)
		if len(members) == 0 {
			delete(r.rooms, roomID)
		}
	}
}

// Join authorizes the session owner for roomID and subscribes the session.
// A denied join leaves no trace in the registry.
func (r *Registry) Join(ctx context.Context, s Session, roomID uuid.UUID) error {
	r.mu.RLock()
	m, ok := r.sessions[s.ID()]
	var p models.Principal
	if ok {
		p = m.principal
	}
	r.mu.RUnlock()

	if !ok {
		return models.ErrSessionNotFound
	}

	if err := r.gate.Authorize(ctx, p, roomID, access.OpRead); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// The session may have disconnected while we were authorizing.
	m, ok = r.sessions[s.ID()]
	if !ok {
		return models.ErrSessionNotFound
	}

	m.rooms[roomID] = struct{}{}
	if _, ok := r.rooms[roomID]; !ok {
		r.rooms[roomID] = make(set)
	}
	r.rooms[roomID][s.ID()] = struct{}{}

	return nil
}

func (r *Registry) Leave(s Session, roomID uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.sessions[s.ID()]
	if !ok {
		return false
	}
	if _, joined := m.rooms[roomID]; !joined {
		return false
	}

	delete(m.rooms, roomID)
	r.leaveLocked(s.ID(), roomID)

	return true
}

// MembersOf returns the sessions currently registered and joined to roomID.
func (r *Registry) MembersOf(roomID uuid.UUID) []Session {
	var res []Session
	r.forEachMember(roomID, func(s Session) {
		res = append(res, s)
	})
	return res
}

// forEachMember calls fn for every member of roomID while holding the read
// lock, so no session removed by a completed Unregister is ever visited.
// fn must not block or call back into the registry.
func (r *Registry) forEachMember(roomID uuid.UUID, fn func(Session)) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for id := range r.rooms[roomID] {
		if m, ok := r.sessions[id]; ok {
			fn(m.session)
		}
	}
}

func (r *Registry) SessionsOf(userID uuid.UUID) []Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	res := make([]Session, 0, len(r.users[userID]))
	for id := range r.users[userID] {
		res = append(res, r.sessions[id].session)
	}
	return res
}

func (r *Registry) RoomsOf(s Session) []uuid.UUID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.sessions[s.ID()]
	if !ok {
		return nil
	}

	res := make([]uuid.UUID, 0, len(m.rooms))
	for roomID := range m.rooms {
		res = append(res, roomID)
	}
	return res
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Close rejects further registrations, drops every session and closes its
// connection.
func (r *Registry) Close() {
	r.mu.Lock()
	r.closed = true
	sessions := make([]Session, 0, len(r.sessions))
	for id, m := range r.sessions {
		sessions = append(sessions, m.session)
		r.removeLocked(id)
	}
	r.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}

	r.log.Info("session registry closed", slog.Int("sessions", len(sessions)))
}
