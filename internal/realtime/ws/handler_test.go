package ws

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"orderChat/internal/domain/models"
	"orderChat/internal/realtime"
	"orderChat/internal/repository/memory"
	"orderChat/internal/service/access"
	authservice "orderChat/internal/service/auth"
	chatroomservice "orderChat/internal/service/chatroom"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type env struct {
	server   *httptest.Server
	registry *realtime.Registry
	rooms    *chatroomservice.ChatRoomService

	owner, admin, stranger models.User
	tokens                 map[uuid.UUID]string
	room                   models.ChatRoom
}

func newEnv(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	repo := memory.New()
	gate := access.New(log, repo)
	registry := realtime.NewRegistry(log, gate)
	rooms := chatroomservice.New(log, gate, repo, repo, realtime.NewFanout(log, registry))
	auth := authservice.New(log, repo, repo, authservice.Config{
		JWTSecret:   "secret",
		TokenTTL:    time.Hour,
		AdminSecret: "letmein",
		BcryptCost:  bcrypt.MinCost,
	})

	e := &env{registry: registry, rooms: rooms, tokens: make(map[uuid.UUID]string)}

	register := func(email, secret string) models.User {
		u, token, err := auth.Register(ctx, authservice.RegisterInput{Email: email, Name: email, Password: "password", AdminSecret: secret})
		require.NoError(t, err)
		e.tokens[u.ID] = token
		return u
	}
	e.owner = register("owner@example.com", "")
	e.admin = register("admin@example.com", "letmein")
	e.stranger = register("stranger@example.com", "")

	now := time.Now().UTC()
	order := models.Order{ID: uuid.New(), UserID: e.owner.ID, Description: "pump", Quantity: 1, State: models.OrderStateOpen, CreatedAt: now}
	e.room = models.ChatRoom{ID: uuid.New(), OrderID: order.ID, CreatedAt: now}
	require.NoError(t, repo.CreateOrderWithChatRoom(ctx, order, e.room))

	h := NewHandler(log, Config{SendBuffer: 16}, auth, registry, rooms, nil)
	e.server = httptest.NewServer(h)
	t.Cleanup(e.server.Close)

	return e
}

func (e *env) url() string {
	return "ws" + strings.TrimPrefix(e.server.URL, "http")
}

func (e *env) dial(t *testing.T, u models.User) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(e.url()+"?token="+e.tokens[u.ID], nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

type received struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func emit(t *testing.T, conn *websocket.Conn, event string, data any) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(map[string]any{"event": event, "data": data}))
}

func next(t *testing.T, conn *websocket.Conn) received {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ev received
	require.NoError(t, conn.ReadJSON(&ev))
	return ev
}

func errorReason(t *testing.T, ev received) string {
	t.Helper()
	require.Equal(t, realtime.EventError, ev.Event)
	var reason string
	require.NoError(t, json.Unmarshal(ev.Data, &reason))
	return reason
}

func TestRejectsMissingOrInvalidToken(t *testing.T) {
	e := newEnv(t)

	_, resp, err := websocket.DefaultDialer.Dial(e.url(), nil)
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, resp, err = websocket.DefaultDialer.Dial(e.url()+"?token=garbage", nil)
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	header := http.Header{"Authorization": {"Bearer " + e.tokens[e.owner.ID]}}
	conn, _, err := websocket.DefaultDialer.Dial(e.url(), header)
	require.NoError(t, err)
	_ = conn.Close()
}

func TestChatFlow(t *testing.T) {
	e := newEnv(t)
	roomID := e.room.ID.String()

	owner := e.dial(t, e.owner)
	admin := e.dial(t, e.admin)
	stranger := e.dial(t, e.stranger)

	emit(t, admin, realtime.EventJoinRoom, map[string]string{"room_id": roomID})
	require.Equal(t, realtime.EventJoinedRoom, next(t, admin).Event)

	emit(t, owner, realtime.EventJoinRoom, map[string]string{"room_id": roomID})
	require.Equal(t, realtime.EventJoinedRoom, next(t, owner).Event)

	emit(t, stranger, realtime.EventJoinRoom, map[string]string{"room_id": roomID})
	require.Equal(t, "unauthorized for this chat room", errorReason(t, next(t, stranger)))

	emit(t, owner, realtime.EventSendMessage, map[string]string{"room_id": roomID, "content": "hello"})

	for _, conn := range []*websocket.Conn{owner, admin} {
		ev := next(t, conn)
		require.Equal(t, realtime.EventNewMessage, ev.Event)

		var payload map[string]any
		require.NoError(t, json.Unmarshal(ev.Data, &payload))
		require.Equal(t, "hello", payload["content"])
		require.Equal(t, e.owner.ID.String(), payload["sender_id"])
		require.NotContains(t, payload, "id")
	}

	emit(t, stranger, realtime.EventMessage, map[string]string{"room_id": roomID, "content": "let me in"})
	require.Equal(t, "unauthorized for this chat room", errorReason(t, next(t, stranger)))

	emit(t, owner, realtime.EventSendMessage, map[string]string{"room_id": roomID, "content": ""})
	require.Equal(t, "chat content cannot be empty", errorReason(t, next(t, owner)))

	_, err := e.rooms.Close(context.Background(), models.PrincipalOf(e.admin), e.room.ID, "reviewed")
	require.NoError(t, err)
	require.Equal(t, realtime.EventRoomClosed, next(t, admin).Event)
	require.Equal(t, realtime.EventRoomClosed, next(t, owner).Event)

	emit(t, owner, realtime.EventSendMessage, map[string]string{"room_id": roomID, "content": "still there?"})
	require.Equal(t, "chat room is closed", errorReason(t, next(t, owner)))
}

func TestLeaveStopsDelivery(t *testing.T) {
	e := newEnv(t)
	roomID := e.room.ID.String()

	owner := e.dial(t, e.owner)
	admin := e.dial(t, e.admin)

	emit(t, admin, realtime.EventJoinRoom, map[string]string{"room_id": roomID})
	require.Equal(t, realtime.EventJoinedRoom, next(t, admin).Event)

	emit(t, admin, realtime.EventLeaveRoom, map[string]string{"room_id": roomID})
	require.Equal(t, realtime.EventLeftRoom, next(t, admin).Event)

	emit(t, owner, realtime.EventSendMessage, map[string]string{"room_id": roomID, "content": "anyone?"})
	emit(t, owner, "dance", nil)
	require.Equal(t, "unknown event", errorReason(t, next(t, owner)))

	require.NoError(t, admin.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	_, _, err := admin.ReadMessage()
	require.Error(t, err)
}

func TestLegacyEventNames(t *testing.T) {
	e := newEnv(t)
	roomID := e.room.ID.String()

	owner := e.dial(t, e.owner)
	stranger := e.dial(t, e.stranger)

	emit(t, owner, realtime.EventJoinChatRoom, map[string]string{"chatRoomId": roomID})
	joined := next(t, owner)
	require.Equal(t, realtime.EventJoinedRoom, joined.Event)
	require.JSONEq(t, `{"room_id":"`+roomID+`"}`, string(joined.Data))

	emit(t, owner, realtime.EventMessage, map[string]string{"chatRoomId": roomID, "content": "hi"})
	ev := next(t, owner)
	require.Equal(t, realtime.EventNewMessage, ev.Event)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(ev.Data, &payload))
	require.Equal(t, "hi", payload["content"])

	emit(t, stranger, realtime.EventJoinChatRoom, map[string]string{"chatRoomId": roomID})
	require.Equal(t, "unauthorized for this chat room", errorReason(t, next(t, stranger)))

	history, err := e.rooms.History(context.Background(), models.PrincipalOf(e.owner), e.room.ID)
	require.NoError(t, err)
	require.Len(t, history.Messages, 1)
}

func TestLeaveWithoutJoin(t *testing.T) {
	e := newEnv(t)
	owner := e.dial(t, e.owner)

	emit(t, owner, realtime.EventLeaveRoom, map[string]string{"room_id": e.room.ID.String()})
	require.Equal(t, "not a member of this chat room", errorReason(t, next(t, owner)))
}

func TestInvalidPayloads(t *testing.T) {
	e := newEnv(t)
	owner := e.dial(t, e.owner)

	require.NoError(t, owner.WriteMessage(websocket.TextMessage, []byte("{not json")))
	require.Equal(t, "invalid event payload", errorReason(t, next(t, owner)))

	emit(t, owner, realtime.EventJoinRoom, map[string]string{"room_id": "nope"})
	require.Equal(t, "invalid room_id", errorReason(t, next(t, owner)))

	emit(t, owner, realtime.EventJoinRoom, map[string]string{"room_id": uuid.NewString()})
	require.Equal(t, "chat room not found", errorReason(t, next(t, owner)))
}

func TestDisconnectUnregistersSession(t *testing.T) {
	e := newEnv(t)

	owner := e.dial(t, e.owner)
	e.dial(t, e.admin)

	require.Eventually(t, func() bool { return e.registry.Len() == 2 }, time.Second, 10*time.Millisecond)

	require.NoError(t, owner.Close())
	require.Eventually(t, func() bool { return e.registry.Len() == 1 }, time.Second, 10*time.Millisecond)
}

func TestRegistryCloseDisconnectsClients(t *testing.T) {
	e := newEnv(t)
	admin := e.dial(t, e.admin)

	require.Eventually(t, func() bool { return e.registry.Len() == 1 }, time.Second, 10*time.Millisecond)
	e.registry.Close()

	require.NoError(t, admin.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := admin.ReadMessage()
	require.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
}
