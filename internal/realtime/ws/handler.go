package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"orderChat/internal/domain/models"
	"orderChat/internal/pkg/logger/sl"
	"orderChat/internal/realtime"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (models.Principal, error)
}

type Registry interface {
	Register(p models.Principal, s realtime.Session) error
	Unregister(s realtime.Session) bool
	Join(ctx context.Context, s realtime.Session, roomID uuid.UUID) error
	Leave(s realtime.Session, roomID uuid.UUID) bool
}

type MessageSender interface {
	SendMessage(ctx context.Context, p models.Principal, roomID uuid.UUID, content string) (models.Message, error)
}

type inbound struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type roomData struct {
	RoomID     string `json:"room_id"`
	ChatRoomID string `json:"chatRoomId"`
	Content    string `json:"content"`
}

func (d roomData) room() string {
	if d.RoomID != "" {
		return d.RoomID
	}
	return d.ChatRoomID
}

// Handler upgrades authenticated requests to websocket sessions and
// dispatches client events.
type Handler struct {
	log      *slog.Logger
	cfg      Config
	auth     Authenticator
	registry Registry
	messages MessageSender
	upgrader websocket.Upgrader
}

// NewHandler builds the websocket endpoint. An empty allowedOrigins accepts
// any origin.
func NewHandler(
	log *slog.Logger,
	cfg Config,
	auth Authenticator,
	registry Registry,
	messages MessageSender,
	allowedOrigins []string,
) *Handler {
	origins := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = true
	}

	return &Handler{
		log:      log,
		cfg:      cfg.withDefaults(),
		auth:     auth,
		registry: registry,
		messages: messages,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return len(origins) == 0 || origin == "" || origins[origin]
			},
		},
	}
}

func tokenOf(r *http.Request) string {
	if t := r.URL.Query().Get("token"); t != "" {
		return t
	}

	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "ws.ServeHTTP"

	log := h.log.With(slog.String("op", op))

	p, err := h.auth.Authenticate(r.Context(), tokenOf(r))
	if err != nil {
		log.Info("connection rejected", slog.String("reason", models.ReasonOf(err)))

		status := http.StatusUnauthorized
		if models.KindOf(err) != models.KindUnauthorized {
			status = http.StatusInternalServerError
			if models.IsRetryable(err) {
				status = http.StatusServiceUnavailable
			}
		}
		http.Error(w, models.ReasonOf(err), status)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client.
		log.Info("upgrade failed", sl.Err(err))
		return
	}

	c := newClient(h.log, conn, p, h.cfg)

	if err := h.registry.Register(p, c); err != nil {
		log.Warn("failed to register session", sl.Err(err))
		_ = conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server is shutting down"),
			time.Now().Add(h.cfg.WriteTimeout),
		)
		_ = conn.Close()
		return
	}

	go c.writePump()

	h.readPump(r.Context(), c)

	h.registry.Unregister(c)
	c.Close()
}

func (h *Handler) readPump(ctx context.Context, c *Client) {
	const op = "ws.readPump"

	log := c.log.With(slog.String("op", op))

	c.conn.SetReadLimit(h.cfg.MaxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(h.cfg.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(h.cfg.PongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Info("connection closed unexpectedly", sl.Err(err))
			}
			return
		}

		var in inbound
		if err := json.Unmarshal(data, &in); err != nil {
			c.Send(realtime.ErrorEvent("invalid event payload"))
			continue
		}

		h.dispatch(ctx, c, in)
	}
}

func (h *Handler) dispatch(ctx context.Context, c *Client, in inbound) {
	const op = "ws.dispatch"

	log := c.log.With(
		slog.String("op", op),
		slog.String("event", in.Event),
	)

	var payload roomData
	if len(in.Data) > 0 {
		if err := json.Unmarshal(in.Data, &payload); err != nil {
			c.Send(realtime.ErrorEvent("invalid event payload"))
			return
		}
	}

	switch in.Event {
	case realtime.EventJoinRoom, realtime.EventJoinChatRoom, realtime.EventLeaveRoom,
		realtime.EventSendMessage, realtime.EventMessage:
	default:
		c.Send(realtime.ErrorEvent("unknown event"))
		return
	}

	roomID, err := uuid.Parse(payload.room())
	if err != nil {
		c.Send(realtime.ErrorEvent("invalid room_id"))
		return
	}

	ctx, cancel := context.WithTimeout(ctx, h.cfg.EventTimeout)
	defer cancel()

	switch in.Event {
	case realtime.EventJoinRoom, realtime.EventJoinChatRoom:
		if err := h.registry.Join(ctx, c, roomID); err != nil {
			c.Send(realtime.ErrorEvent(h.reason(log, err)))
			return
		}
		c.Send(realtime.JoinedRoomEvent(roomID.String()))

	case realtime.EventLeaveRoom:
		if !h.registry.Leave(c, roomID) {
			c.Send(realtime.ErrorEvent("not a member of this chat room"))
			return
		}
		c.Send(realtime.LeftRoomEvent(roomID.String()))

	default:
		// new_message reaches the sender through fanout when it has joined.
		if _, err := h.messages.SendMessage(ctx, c.principal, roomID, payload.Content); err != nil {
			c.Send(realtime.ErrorEvent(h.reason(log, err)))
		}
	}
}

func (h *Handler) reason(log *slog.Logger, err error) string {
	if models.KindOf(err) == models.KindInternal {
		log.Error("event failed", sl.Err(err))
	}
	if errors.Is(err, realtime.ErrRegistryClosed) {
		return "server is shutting down"
	}
	return models.ReasonOf(err)
}
