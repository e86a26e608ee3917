package handler

import (
	"log/slog"
	"net/http"
)

const rootMessage = "API responder for Order-Chat Management API"

func RootHandler(log *slog.Logger) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		respondOK(w, log, http.StatusOK, rootMessage, nil)
	}
}
