package realtime

import (
	"time"

	"orderChat/internal/domain/models"
)

// Client to server events.
const (
	EventJoinRoom    = "join_room"
	EventLeaveRoom   = "leave_room"
	EventSendMessage = "send_message"

	// Names used by older clients, which also send the room as chatRoomId.
	EventJoinChatRoom = "join_chat_room"
	EventMessage      = "message"
)

// Server to client events.
const (
	EventJoinedRoom = "joined_room"
	EventLeftRoom   = "left_room"
	EventNewMessage = "new_message"
	EventRoomClosed = "room_closed"
	EventError      = "error"
)

type Event struct {
	Name string `json:"event"`
	Data any    `json:"data,omitempty"`
}

type RoomPayload struct {
	RoomID string `json:"room_id"`
}

// NewMessagePayload deliberately carries no message id.
type NewMessagePayload struct {
	ChatRoomID string    `json:"chat_room_id"`
	SenderID   string    `json:"sender_id"`
	Content    string    `json:"content"`
	Timestamp  time.Time `json:"timestamp"`
}

type RoomClosedPayload struct {
	RoomID  string `json:"room_id"`
	Summary string `json:"summary"`
}

func NewMessageEvent(m models.Message) Event {
	return Event{
		Name: EventNewMessage,
		Data: NewMessagePayload{
			ChatRoomID: m.ChatRoomID.String(),
			SenderID:   m.SenderID.String(),
			Content:    m.Content,
			Timestamp:  m.Timestamp,
		},
	}
}

func RoomClosedEvent(room models.ChatRoom) Event {
	return Event{
		Name: EventRoomClosed,
		Data: RoomClosedPayload{
			RoomID:  room.ID.String(),
			Summary: room.Summary,
		},
	}
}

func JoinedRoomEvent(roomID string) Event {
	return Event{Name: EventJoinedRoom, Data: RoomPayload{RoomID: roomID}}
}

func LeftRoomEvent(roomID string) Event {
	return Event{Name: EventLeftRoom, Data: RoomPayload{RoomID: roomID}}
}

func ErrorEvent(reason string) Event {
	return Event{Name: EventError, Data: reason}
}
