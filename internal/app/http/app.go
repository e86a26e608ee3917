package httpapp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"orderChat/internal/http/handler"
	"orderChat/internal/pkg/logger/sl"
)

type Config struct {
	Port            int           `yaml:"port" env:"HTTP_PORT" env-default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"HTTP_READ_TIMEOUT" env-default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"HTTP_WRITE_TIMEOUT" env-default:"15s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" env:"HTTP_IDLE_TIMEOUT" env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"HTTP_SHUTDOWN_TIMEOUT" env-default:"10s"`
	AllowedOrigins  []string      `yaml:"allowed_origins" env:"HTTP_ALLOWED_ORIGINS" env-separator:","`
}

type AuthService interface {
	handler.AuthService
	handler.GoogleAuthService
	handler.Authenticator
}

type App struct {
	log        *slog.Logger
	httpServer *http.Server
	port       int
	shutdown   time.Duration
}

func New(
	log *slog.Logger,
	config *Config,
	auth AuthService,
	orders handler.OrderService,
	rooms handler.ChatRoomService,
	realtime http.Handler,
) *App {
	router := http.NewServeMux()

	router.HandleFunc("GET /{$}", handler.RootHandler(log))
	router.HandleFunc("GET /api", handler.RootHandler(log))

	router.HandleFunc("POST /api/auth/register", handler.RegisterHandler(log, auth))
	router.HandleFunc("POST /api/auth/login", handler.LoginHandler(log, auth))
	router.HandleFunc("POST /api/auth/google-auth", handler.GoogleSignInHandler(log, auth))
	router.HandleFunc("GET /api/auth/google", handler.GoogleRedirectHandler(log, auth))
	router.HandleFunc("GET /api/auth/google/callback", handler.GoogleCallbackHandler(log, auth))

	protected := func(h http.HandlerFunc) http.HandlerFunc {
		return handler.RequireAuth(log, auth, h)
	}

	router.HandleFunc(
		"POST /api/orders",
		protected(handler.CreateOrderHandler(log, orders)),
	)

	router.HandleFunc(
		"GET /api/orders",
		protected(handler.ListOrdersHandler(log, orders)),
	)

	router.HandleFunc(
		"GET /api/orders/admin",
		protected(handler.ListAllOrdersHandler(log, orders)),
	)

	router.HandleFunc(
		"GET /api/orders/users/{user_id}",
		protected(handler.ListUserOrdersHandler(log, orders)),
	)

	router.HandleFunc(
		"GET /api/orders/{id}",
		protected(handler.GetOrderHandler(log, orders)),
	)

	// "/api/orders/{id}/admin" would conflict with "/api/orders/users/{user_id}"
	// in ServeMux, so the admin view is matched on its last segment.
	anyOrder := handler.GetAnyOrderHandler(log, orders)
	router.HandleFunc(
		"GET /api/orders/{id}/{view}",
		protected(func(w http.ResponseWriter, r *http.Request) {
			if r.PathValue("view") != "admin" {
				http.NotFound(w, r)
				return
			}
			anyOrder(w, r)
		}),
	)

	router.HandleFunc(
		"PATCH /api/orders/{id}",
		protected(handler.UpdateOrderHandler(log, orders)),
	)

	router.HandleFunc(
		"GET /api/chat-rooms/{room_id}",
		protected(handler.GetChatRoomHandler(log, rooms)),
	)

	router.HandleFunc(
		"POST /api/chat-rooms/{room_id}/message",
		protected(handler.SendMessageHandler(log, rooms)),
	)

	router.HandleFunc(
		"GET /api/chat-rooms/{room_id}/history",
		protected(handler.HistoryHandler(log, rooms)),
	)

	router.HandleFunc(
		"PATCH /api/chat-rooms/{room_id}/close",
		protected(handler.CloseChatRoomHandler(log, rooms)),
	)

	if realtime != nil {
		router.Handle("GET /ws", realtime)
	}

	srv := &http.Server{
		Addr:        ":" + strconv.Itoa(config.Port),
		Handler:     corsMiddleware(log, config.AllowedOrigins, router),
		ReadTimeout: config.ReadTimeout,
		IdleTimeout: config.IdleTimeout,
		// Websocket connections are hijacked, so WriteTimeout only bounds
		// regular responses.
		WriteTimeout: config.WriteTimeout,
	}

	return &App{
		log:        log,
		httpServer: srv,
		port:       config.Port,
		shutdown:   config.ShutdownTimeout,
	}
}

func (a *App) MustRun() {
	if err := a.Run(); err != nil {
		panic(err)
	}
}

func (a *App) Run() error {
	const op = "httpapp.Run"

	a.log.With(slog.String("op", op)).
		Info("server started", slog.Int("port", a.port))

	if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		a.log.Error("failed to start http server", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (a *App) Stop() {
	const op = "httpapp.Stop"

	a.log.With(slog.String("op", op)).
		Info("stopping HTTP server", slog.Int("port", a.port))

	timeout := a.shutdown
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := a.httpServer.Shutdown(ctx); err != nil {
		a.log.Error("server closed with error", sl.Err(err))
		return
	}

	a.log.Info("gracefully stopped")
}

func corsMiddleware(log *slog.Logger, allowed []string, next http.Handler) http.Handler {
	allowedOrigins := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		allowedOrigins[strings.TrimRight(o, "/")] = true
	}

	return http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			if origin != "" && allowedOrigins[origin] {
				w.Header().Set("Access-Control-Allow-Credentials", "true")
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set(
					"Access-Control-Allow-Methods",
					"GET, POST, OPTIONS, PUT, DELETE, PATCH, HEAD",
				)
				w.Header().Set(
					"Access-Control-Allow-Headers",
					"Origin, Content-Type, Authorization, Accept, X-Requested-With",
				)
				w.Header().Set("Access-Control-Max-Age", "43200") // 12 hours
			} else if origin != "" {
				log.Debug("origin not allowed", slog.String("origin", origin))
			}

			w.Header().Set(
				"Cache-Control",
				"no-store, no-cache, must-revalidate, private",
			)

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		},
	)
}
