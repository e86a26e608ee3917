package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"orderChat/internal/domain/models"
)

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (models.Principal, error)
}

type principalKey struct{}

func withPrincipal(ctx context.Context, p models.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func PrincipalFrom(ctx context.Context) (models.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(models.Principal)
	return p, ok
}

// BearerToken extracts the token of an "Authorization: Bearer <token>" header.
func BearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// RequireAuth resolves the caller from the bearer token before next runs.
func RequireAuth(log *slog.Logger, auth Authenticator, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handler.RequireAuth"

		log := log.With(
			slog.String("op", op),
			slog.String("path", r.URL.Path),
		)

		p, err := auth.Authenticate(r.Context(), BearerToken(r))
		if err != nil {
			log.Info("request rejected", slog.String("reason", models.ReasonOf(err)))
			respondError(w, log, err)
			return
		}

		next(w, r.WithContext(withPrincipal(r.Context(), p)))
	}
}

func principal(r *http.Request) models.Principal {
	p, _ := PrincipalFrom(r.Context())
	return p
}
