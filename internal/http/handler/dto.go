package handler

import (
	"time"

	"orderChat/internal/domain/models"

	"github.com/samber/lo"
)

type userResponse struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	Role       string `json:"role"`
	IsVerified bool   `json:"is_verified"`
}

type authResponse struct {
	User        userResponse `json:"user"`
	AccessToken string       `json:"access_token"`
}

type chatRoomResponse struct {
	ID        string         `json:"id"`
	OrderID   string         `json:"order_id"`
	IsClosed  bool           `json:"is_closed"`
	Summary   *string        `json:"summary"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	Order     *orderResponse `json:"order,omitempty"`
}

type orderResponse struct {
	ID             string            `json:"id"`
	UserID         string            `json:"user_id"`
	Description    string            `json:"description"`
	Specifications string            `json:"specifications"`
	Quantity       int               `json:"quantity"`
	State          string            `json:"state"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
	ChatRoom       *chatRoomResponse `json:"chat_room"`
}

type ordersPageResponse struct {
	Orders []orderResponse `json:"orders"`
	Total  int             `json:"total"`
	Page   int             `json:"page"`
	Limit  int             `json:"limit"`
}

type messageResponse struct {
	ID         string    `json:"id"`
	ChatRoomID string    `json:"chat_room_id"`
	SenderID   string    `json:"sender_id"`
	Content    string    `json:"content"`
	Timestamp  time.Time `json:"timestamp"`
}

type historyResponse struct {
	Chats   []messageResponse `json:"chats"`
	Summary string            `json:"summary"`
}

func toUser(u models.User) userResponse {
	return userResponse{
		ID:         u.ID.String(),
		Email:      u.Email,
		Name:       u.Name,
		Role:       string(u.Role),
		IsVerified: u.IsVerified,
	}
}

func toChatRoom(c models.ChatRoom) chatRoomResponse {
	res := chatRoomResponse{
		ID:        c.ID.String(),
		OrderID:   c.OrderID.String(),
		IsClosed:  c.IsClosed,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}

	if c.Summary != "" {
		summary := c.Summary
		res.Summary = &summary
	}

	if c.Order != nil {
		o := toOrder(*c.Order)
		o.ChatRoom = nil
		res.Order = &o
	}

	return res
}

func toOrder(o models.Order) orderResponse {
	res := orderResponse{
		ID:             o.ID.String(),
		UserID:         o.UserID.String(),
		Description:    o.Description,
		Specifications: o.Specifications,
		Quantity:       o.Quantity,
		State:          string(o.State),
		CreatedAt:      o.CreatedAt,
		UpdatedAt:      o.UpdatedAt,
	}

	if o.ChatRoom != nil {
		room := toChatRoom(*o.ChatRoom)
		room.Order = nil
		res.ChatRoom = &room
	}

	return res
}

func toOrdersPage(p models.OrderPage) ordersPageResponse {
	return ordersPageResponse{
		Orders: lo.Map(p.Orders, func(o models.Order, _ int) orderResponse { return toOrder(o) }),
		Total:  p.Total,
		Page:   p.Page,
		Limit:  p.Limit,
	}
}

func toMessage(m models.Message) messageResponse {
	return messageResponse{
		ID:         m.ID.String(),
		ChatRoomID: m.ChatRoomID.String(),
		SenderID:   m.SenderID.String(),
		Content:    m.Content,
		Timestamp:  m.Timestamp,
	}
}

func toHistory(h models.History) historyResponse {
	return historyResponse{
		Chats:   lo.Map(h.Messages, func(m models.Message, _ int) messageResponse { return toMessage(m) }),
		Summary: h.Summary,
	}
}
