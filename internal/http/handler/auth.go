package handler

import (
	"context"
	"log/slog"
	"net/http"

	"orderChat/internal/domain/models"
	authservice "orderChat/internal/service/auth"
)

type AuthService interface {
	Register(ctx context.Context, in authservice.RegisterInput) (models.User, string, error)
	Login(ctx context.Context, email string, password string) (models.User, string, error)
}

type RegisterRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Name        string `json:"name" validate:"required,max=200"`
	Password    string `json:"password" validate:"required,min=6,max=72"`
	AdminSecret string `json:"admin_secret,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func RegisterHandler(log *slog.Logger, auth AuthService) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handler.RegisterHandler"

		log := log.With(slog.String("op", op))

		var req RegisterRequest
		if err := decode(w, r, &req); err != nil {
			respondError(w, log, err)
			return
		}

		user, token, err := auth.Register(r.Context(), authservice.RegisterInput{
			Email:       req.Email,
			Name:        req.Name,
			Password:    req.Password,
			AdminSecret: req.AdminSecret,
		})
		if err != nil {
			respondError(w, log, err)
			return
		}

		respondOK(w, log, http.StatusCreated, "User registered successfully", authResponse{
			User:        toUser(user),
			AccessToken: token,
		})
	}
}

func LoginHandler(log *slog.Logger, auth AuthService) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handler.LoginHandler"

		log := log.With(slog.String("op", op))

		var req LoginRequest
		if err := decode(w, r, &req); err != nil {
			respondError(w, log, err)
			return
		}

		user, token, err := auth.Login(r.Context(), req.Email, req.Password)
		if err != nil {
			respondError(w, log, err)
			return
		}

		respondOK(w, log, http.StatusOK, "User logged in successfully", authResponse{
			User:        toUser(user),
			AccessToken: token,
		})
	}
}
