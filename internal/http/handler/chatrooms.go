package handler

import (
	"context"
	"log/slog"
	"net/http"

	"orderChat/internal/domain/models"

	"github.com/google/uuid"
)

type ChatRoomService interface {
	ChatRoom(ctx context.Context, p models.Principal, roomID uuid.UUID) (models.ChatRoom, error)
	SendMessage(ctx context.Context, p models.Principal, roomID uuid.UUID, content string) (models.Message, error)
	History(ctx context.Context, p models.Principal, roomID uuid.UUID) (models.History, error)
	Close(ctx context.Context, p models.Principal, roomID uuid.UUID, summary string) (models.ChatRoom, error)
}

// Emptiness of message and summary is checked by the service so the caller
// gets the domain reason.
type SendMessageRequest struct {
	Message string `json:"message" validate:"max=10000"`
}

type CloseChatRoomRequest struct {
	Summary string `json:"summary" validate:"max=10000"`
}

func GetChatRoomHandler(log *slog.Logger, rooms ChatRoomService) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handler.GetChatRoomHandler"

		log := log.With(slog.String("op", op))

		roomID, err := pathID(r, "room_id")
		if err != nil {
			respondError(w, log, err)
			return
		}

		room, err := rooms.ChatRoom(r.Context(), principal(r), roomID)
		if err != nil {
			respondError(w, log, err)
			return
		}

		respondOK(w, log, http.StatusOK, "Chat room fetched successfully", toChatRoom(room))
	}
}

func SendMessageHandler(log *slog.Logger, rooms ChatRoomService) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handler.SendMessageHandler"

		log := log.With(slog.String("op", op))

		roomID, err := pathID(r, "room_id")
		if err != nil {
			respondError(w, log, err)
			return
		}

		var req SendMessageRequest
		if err := decode(w, r, &req); err != nil {
			respondError(w, log, err)
			return
		}

		msg, err := rooms.SendMessage(r.Context(), principal(r), roomID, req.Message)
		if err != nil {
			respondError(w, log, err)
			return
		}

		respondOK(w, log, http.StatusCreated, "Message sent successfully", toMessage(msg))
	}
}

func HistoryHandler(log *slog.Logger, rooms ChatRoomService) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handler.HistoryHandler"

		log := log.With(slog.String("op", op))

		roomID, err := pathID(r, "room_id")
		if err != nil {
			respondError(w, log, err)
			return
		}

		h, err := rooms.History(r.Context(), principal(r), roomID)
		if err != nil {
			respondError(w, log, err)
			return
		}

		respondOK(w, log, http.StatusOK, "Chat history fetched successfully", toHistory(h))
	}
}

func CloseChatRoomHandler(log *slog.Logger, rooms ChatRoomService) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handler.CloseChatRoomHandler"

		log := log.With(slog.String("op", op))

		roomID, err := pathID(r, "room_id")
		if err != nil {
			respondError(w, log, err)
			return
		}

		var req CloseChatRoomRequest
		if err := decode(w, r, &req); err != nil {
			respondError(w, log, err)
			return
		}

		room, err := rooms.Close(r.Context(), principal(r), roomID, req.Summary)
		if err != nil {
			respondError(w, log, err)
			return
		}

		respondOK(w, log, http.StatusOK, "Chat room closed successfully", toChatRoom(room))
	}
}
