package models

import (
	"time"

	"github.com/google/uuid"
)

type ChatRoom struct {
	ID        uuid.UUID
	OrderID   uuid.UUID
	IsClosed  bool
	Summary   string
	CreatedAt time.Time
	UpdatedAt time.Time

	Order *Order
}

type Message struct {
	ID         uuid.UUID
	ChatRoomID uuid.UUID
	SenderID   uuid.UUID
	Content    string
	Timestamp  time.Time
}

type History struct {
	Messages []Message
	Summary  string
}
