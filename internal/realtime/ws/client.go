package ws

import (
	"log/slog"
	"sync"
	"time"

	"orderChat/internal/domain/models"
	"orderChat/internal/pkg/logger/sl"
	"orderChat/internal/realtime"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

type Config struct {
	SendBuffer     int           `yaml:"send_buffer" env:"REALTIME_SEND_BUFFER" env-default:"64"`
	WriteTimeout   time.Duration `yaml:"write_timeout" env:"REALTIME_WRITE_TIMEOUT" env-default:"10s"`
	PongWait       time.Duration `yaml:"pong_wait" env:"REALTIME_PONG_WAIT" env-default:"60s"`
	PingPeriod     time.Duration `yaml:"ping_period" env:"REALTIME_PING_PERIOD" env-default:"54s"`
	MaxMessageSize int64         `yaml:"max_message_size" env:"REALTIME_MAX_MESSAGE_SIZE" env-default:"65536"`
	EventTimeout   time.Duration `yaml:"event_timeout" env:"REALTIME_EVENT_TIMEOUT" env-default:"10s"`
}

func (c Config) withDefaults() Config {
	if c.SendBuffer <= 0 {
		c.SendBuffer = 64
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 10 * time.Second
	}
	if c.PongWait <= 0 {
		c.PongWait = 60 * time.Second
	}
	if c.PingPeriod <= 0 || c.PingPeriod >= c.PongWait {
		c.PingPeriod = c.PongWait * 9 / 10
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = 64 << 10
	}
	if c.EventTimeout <= 0 {
		c.EventTimeout = 10 * time.Second
	}
	return c
}

// Client is one websocket connection. It implements realtime.Session.
// Events are queued on a bounded buffer and written by a single writer
// goroutine; a full buffer drops the event instead of blocking the publisher.
type Client struct {
	id        string
	principal models.Principal
	conn      *websocket.Conn
	cfg       Config
	log       *slog.Logger

	send      chan realtime.Event
	done      chan struct{}
	closeOnce sync.Once
}

func newClient(log *slog.Logger, conn *websocket.Conn, p models.Principal, cfg Config) *Client {
	id := uuid.NewString()

	return &Client{
		id:        id,
		principal: p,
		conn:      conn,
		cfg:       cfg,
		log: log.With(
			slog.String("session_id", id),
			slog.String("user_id", p.UserID.String()),
		),
		send: make(chan realtime.Event, cfg.SendBuffer),
		done: make(chan struct{}),
	}
}

func (c *Client) ID() string { return c.id }

func (c *Client) Send(ev realtime.Event) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- ev:
		return true
	default:
		c.log.Warn("send buffer is full, event dropped", slog.String("event", ev.Name))
		return false
	}
}

// Close stops the writer, which sends a close frame and releases the
// connection. Safe to call more than once.
func (c *Client) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

func (c *Client) writePump() {
	const op = "ws.writePump"

	log := c.log.With(slog.String("op", op))

	ticker := time.NewTicker(c.cfg.PingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case ev := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
			if err := c.conn.WriteJSON(ev); err != nil {
				log.Debug("write failed", sl.Err(err))
				c.Close()
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Debug("ping failed", sl.Err(err))
				c.Close()
				return
			}

		case <-c.done:
			_ = c.conn.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(c.cfg.WriteTimeout),
			)
			return
		}
	}
}
