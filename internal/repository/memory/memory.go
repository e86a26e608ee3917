// Package memory keeps every entity in process memory. It backs the
// `storage: memory` mode and the service tests, and gives the same
// atomicity guarantees as the postgres repository by doing every
// composite operation under one lock.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"orderChat/internal/domain/models"

	"github.com/google/uuid"
)

type Repository struct {
	mu sync.RWMutex

	users  map[uuid.UUID]models.User
	emails map[string]uuid.UUID

	orders      map[uuid.UUID]models.Order
	orderSeq    map[uuid.UUID]int64
	rooms       map[uuid.UUID]models.ChatRoom
	roomByOrder map[uuid.UUID]uuid.UUID
	messages    map[uuid.UUID][]models.Message

	seq int64
}

func New() *Repository {
	return &Repository{
		users:       make(map[uuid.UUID]models.User),
		emails:      make(map[string]uuid.UUID),
		orders:      make(map[uuid.UUID]models.Order),
		orderSeq:    make(map[uuid.UUID]int64),
		rooms:       make(map[uuid.UUID]models.ChatRoom),
		roomByOrder: make(map[uuid.UUID]uuid.UUID),
		messages:    make(map[uuid.UUID][]models.Message),
	}
}

func checkCtx(op string, ctx context.Context) error {
	err := ctx.Err()
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w: %w", op, models.ErrStorageTimeout, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (r *Repository) SaveUser(ctx context.Context, u models.User) error {
	const op = "memory.SaveUser"

	if err := checkCtx(op, ctx); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	email := strings.ToLower(u.Email)
	if _, ok := r.emails[email]; ok {
		return models.ErrUserExists
	}
	if _, ok := r.users[u.ID]; ok {
		return models.ErrUserExists
	}

	r.users[u.ID] = u
	r.emails[email] = u.ID

	return nil
}

func (r *Repository) User(ctx context.Context, id uuid.UUID) (models.User, error) {
	const op = "memory.User"

	if err := checkCtx(op, ctx); err != nil {
		return models.User{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return models.User{}, models.ErrUserNotFound
	}

	return u, nil
}

func (r *Repository) UserByEmail(ctx context.Context, email string) (models.User, error) {
	const op = "memory.UserByEmail"

	if err := checkCtx(op, ctx); err != nil {
		return models.User{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.emails[strings.ToLower(email)]
	if !ok {
		return models.User{}, models.ErrUserNotFound
	}

	return r.users[id], nil
}

func (r *Repository) CreateOrderWithChatRoom(ctx context.Context, order models.Order, room models.ChatRoom) error {
	const op = "memory.CreateOrderWithChatRoom"

	if err := checkCtx(op, ctx); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[order.UserID]; !ok {
		return models.ErrUserNotFound
	}
	if _, ok := r.orders[order.ID]; ok {
		return fmt.Errorf("%s: duplicate order id %s", op, order.ID)
	}
	if room.OrderID != order.ID {
		return fmt.Errorf("%s: room bound to another order", op)
	}

	r.insertOrder(order)
	r.insertRoom(room)

	return nil
}

// SaveOrder stores an order without a chat room. It exists to seed orders
// created before rooms were bound in the same transaction.
func (r *Repository) SaveOrder(ctx context.Context, order models.Order) error {
	const op = "memory.SaveOrder"

	if err := checkCtx(op, ctx); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.orders[order.ID]; ok {
		return fmt.Errorf("%s: duplicate order id %s", op, order.ID)
	}

	r.insertOrder(order)

	return nil
}

func (r *Repository) insertOrder(order models.Order) {
	order.ChatRoom = nil
	r.seq++
	r.orders[order.ID] = order
	r.orderSeq[order.ID] = r.seq
}

func (r *Repository) insertRoom(room models.ChatRoom) {
	room.Order = nil
	r.rooms[room.ID] = room
	r.roomByOrder[room.OrderID] = room.ID
}

func (r *Repository) EnsureChatRoom(ctx context.Context, room models.ChatRoom) (models.ChatRoom, bool, error) {
	const op = "memory.EnsureChatRoom"

	if err := checkCtx(op, ctx); err != nil {
		return models.ChatRoom{}, false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.orders[room.OrderID]; !ok {
		return models.ChatRoom{}, false, models.ErrOrderNotFound
	}

	if id, ok := r.roomByOrder[room.OrderID]; ok {
		return r.rooms[id], false, nil
	}

	r.insertRoom(room)

	return room, true, nil
}

func (r *Repository) OrdersWithoutChatRoom(ctx context.Context, limit int) ([]uuid.UUID, error) {
	const op = "memory.OrdersWithoutChatRoom"

	if err := checkCtx(op, ctx); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var ids []uuid.UUID
	for _, o := range r.sortedOrders(func(models.Order) bool { return true }) {
		if _, ok := r.roomByOrder[o.ID]; ok {
			continue
		}
		ids = append(ids, o.ID)
		if limit > 0 && len(ids) == limit {
			break
		}
	}

	return ids, nil
}

func (r *Repository) withRoom(o models.Order) models.Order {
	if id, ok := r.roomByOrder[o.ID]; ok {
		room := r.rooms[id]
		o.ChatRoom = &room
	}
	return o
}

// sortedOrders returns matching orders newest first.
func (r *Repository) sortedOrders(match func(models.Order) bool) []models.Order {
	res := make([]models.Order, 0, len(r.orders))
	for _, o := range r.orders {
		if match(o) {
			res = append(res, o)
		}
	}

	sort.Slice(res, func(i, j int) bool {
		if !res[i].CreatedAt.Equal(res[j].CreatedAt) {
			return res[i].CreatedAt.After(res[j].CreatedAt)
		}
		return r.orderSeq[res[i].ID] > r.orderSeq[res[j].ID]
	})

	return res
}

func (r *Repository) pageOf(all []models.Order, page models.Page) []models.Order {
	from := page.Offset()
	if from >= len(all) {
		return []models.Order{}
	}
	to := from + page.Limit
	if to > len(all) {
		to = len(all)
	}

	res := make([]models.Order, 0, to-from)
	for _, o := range all[from:to] {
		res = append(res, r.withRoom(o))
	}

	return res
}

func (r *Repository) Order(ctx context.Context, id uuid.UUID) (models.Order, error) {
	const op = "memory.Order"

	if err := checkCtx(op, ctx); err != nil {
		return models.Order{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	o, ok := r.orders[id]
	if !ok {
		return models.Order{}, models.ErrOrderNotFound
	}

	return r.withRoom(o), nil
}

func (r *Repository) Orders(ctx context.Context, page models.Page) ([]models.Order, int, error) {
	const op = "memory.Orders"

	if err := checkCtx(op, ctx); err != nil {
		return nil, 0, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	all := r.sortedOrders(func(models.Order) bool { return true })

	return r.pageOf(all, page), len(all), nil
}

func (r *Repository) OrdersByUser(ctx context.Context, userID uuid.UUID, page models.Page) ([]models.Order, int, error) {
	const op = "memory.OrdersByUser"

	if err := checkCtx(op, ctx); err != nil {
		return nil, 0, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	all := r.sortedOrders(func(o models.Order) bool { return o.UserID == userID })

	return r.pageOf(all, page), len(all), nil
}

func (r *Repository) UpdateOrder(ctx context.Context, id uuid.UUID, upd models.OrderUpdate, now time.Time) (models.Order, error) {
	const op = "memory.UpdateOrder"

	if err := checkCtx(op, ctx); err != nil {
		return models.Order{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[id]
	if !ok {
		return models.Order{}, models.ErrOrderNotFound
	}

	if upd.State != nil && *upd.State == models.OrderStateOpen {
		if roomID, ok := r.roomByOrder[id]; ok && r.rooms[roomID].IsClosed {
			return models.Order{}, models.ErrOrderRoomClosed
		}
	}

	if upd.Description != nil {
		o.Description = *upd.Description
	}
	if upd.Specifications != nil {
		o.Specifications = *upd.Specifications
	}
	if upd.Quantity != nil {
		o.Quantity = *upd.Quantity
	}
	if upd.State != nil {
		o.State = *upd.State
	}
	o.UpdatedAt = now

	r.orders[id] = o

	return r.withRoom(o), nil
}

func (r *Repository) ChatRoom(ctx context.Context, id uuid.UUID) (models.ChatRoom, error) {
	const op = "memory.ChatRoom"

	if err := checkCtx(op, ctx); err != nil {
		return models.ChatRoom{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	room, ok := r.rooms[id]
	if !ok {
		return models.ChatRoom{}, models.ErrChatRoomNotFound
	}

	o := r.orders[room.OrderID]
	room.Order = &o

	return room, nil
}

func (r *Repository) ChatRoomOwner(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	const op = "memory.ChatRoomOwner"

	if err := checkCtx(op, ctx); err != nil {
		return uuid.Nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	room, ok := r.rooms[id]
	if !ok {
		return uuid.Nil, models.ErrChatRoomNotFound
	}

	return r.orders[room.OrderID].UserID, nil
}

func (r *Repository) SaveMessage(ctx context.Context, msg models.Message) error {
	const op = "memory.SaveMessage"

	if err := checkCtx(op, ctx); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[msg.ChatRoomID]
	if !ok {
		return models.ErrChatRoomNotFound
	}
	if room.IsClosed {
		return models.ErrChatRoomClosed
	}

	r.messages[msg.ChatRoomID] = append(r.messages[msg.ChatRoomID], msg)

	return nil
}

func (r *Repository) Messages(ctx context.Context, roomID uuid.UUID) ([]models.Message, error) {
	const op = "memory.Messages"

	if err := checkCtx(op, ctx); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.rooms[roomID]; !ok {
		return nil, models.ErrChatRoomNotFound
	}

	res := make([]models.Message, len(r.messages[roomID]))
	copy(res, r.messages[roomID])

	sort.SliceStable(res, func(i, j int) bool {
		return res[i].Timestamp.Before(res[j].Timestamp)
	})

	return res, nil
}

func (r *Repository) CloseChatRoom(ctx context.Context, id uuid.UUID, summary string, now time.Time) (models.ChatRoom, error) {
	const op = "memory.CloseChatRoom"

	if err := checkCtx(op, ctx); err != nil {
		return models.ChatRoom{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[id]
	if !ok {
		return models.ChatRoom{}, models.ErrChatRoomNotFound
	}
	if room.IsClosed {
		return models.ChatRoom{}, models.ErrChatRoomAlreadyClosed
	}

	o, ok := r.orders[room.OrderID]
	if !ok {
		return models.ChatRoom{}, fmt.Errorf("%s: room %s has no order", op, id)
	}

	room.IsClosed = true
	room.Summary = summary
	room.UpdatedAt = now
	r.rooms[id] = room

	o.State = models.OrderStateProcessing
	o.UpdatedAt = now
	r.orders[o.ID] = o

	room.Order = &o

	return room, nil
}
