package handler

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"
	"time"

	"orderChat/internal/domain/models"

	"github.com/google/uuid"
)

const (
	oauthStateCookie = "oauth_state"
	oauthStateTTL    = 10 * time.Minute
)

type GoogleAuthService interface {
	GoogleAuthURL(state string) (string, error)
	GoogleCallback(ctx context.Context, code string) (models.User, string, error)
	GoogleSignIn(ctx context.Context, idToken string) (models.User, string, error)
}

// GoogleRedirectHandler sends the browser to the Google consent page. The
// state is echoed back to the callback through a short-lived cookie.
func GoogleRedirectHandler(log *slog.Logger, auth GoogleAuthService) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handler.GoogleRedirectHandler"

		log := log.With(slog.String("op", op))

		state := uuid.NewString()

		target, err := auth.GoogleAuthURL(state)
		if err != nil {
			respondError(w, log, err)
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     oauthStateCookie,
			Value:    state,
			Path:     "/api/auth/google",
			MaxAge:   int(oauthStateTTL.Seconds()),
			HttpOnly: true,
			Secure:   r.TLS != nil,
			SameSite: http.SameSiteLaxMode,
		})

		http.Redirect(w, r, target, http.StatusFound)
	}
}

func GoogleCallbackHandler(log *slog.Logger, auth GoogleAuthService) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handler.GoogleCallbackHandler"

		log := log.With(slog.String("op", op))

		query := r.URL.Query()

		cookie, err := r.Cookie(oauthStateCookie)
		if err != nil || cookie.Value == "" ||
			subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(query.Get("state"))) != 1 {
			log.Info("oauth state mismatch")
			respondError(w, log, models.ErrOAuthState)
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     oauthStateCookie,
			Path:     "/api/auth/google",
			MaxAge:   -1,
			HttpOnly: true,
		})

		if reason := query.Get("error"); reason != "" {
			log.Info("google consent denied", slog.String("reason", reason))
			respondError(w, log, models.ErrGoogleToken)
			return
		}

		user, token, err := auth.GoogleCallback(r.Context(), query.Get("code"))
		if err != nil {
			respondError(w, log, err)
			return
		}

		respondOK(w, log, http.StatusOK, "Successful google authentication", authResponse{
			User:        toUser(user),
			AccessToken: token,
		})
	}
}

// GoogleSignInHandler signs in with an id token obtained by the client
// itself, passed as the token query parameter.
func GoogleSignInHandler(log *slog.Logger, auth GoogleAuthService) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handler.GoogleSignInHandler"

		log := log.With(slog.String("op", op))

		user, token, err := auth.GoogleSignIn(r.Context(), r.URL.Query().Get("token"))
		if err != nil {
			respondError(w, log, err)
			return
		}

		respondOK(w, log, http.StatusOK, "Successfully signed in user", authResponse{
			User:        toUser(user),
			AccessToken: token,
		})
	}
}
