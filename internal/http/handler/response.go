package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"orderChat/internal/domain/models"
	"orderChat/internal/pkg/logger/sl"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

const maxBodyBytes = 1 << 20

var validate = validator.New(validator.WithRequiredStructEnabled())

// Response is the envelope of every JSON reply.
type Response struct {
	Success    bool   `json:"success"`
	StatusCode int    `json:"status_code"`
	Message    string `json:"message"`
	ErrorCode  string `json:"error_code,omitempty"`
	Data       any    `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, log *slog.Logger, status int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Error("failed to encode response", sl.Err(err))
	}
}

func respondOK(w http.ResponseWriter, log *slog.Logger, status int, message string, data any) {
	writeJSON(w, log, status, Response{
		Success:    true,
		StatusCode: status,
		Message:    message,
		Data:       data,
	})
}

func errorCode(kind models.Kind) string {
	switch kind {
	case models.KindUnauthorized:
		return "UNAUTHORIZED"
	case models.KindNotFound:
		return "NOT_FOUND"
	case models.KindConflict:
		return "CONFLICT"
	case models.KindInvalidInput:
		return "INVALID_INPUT"
	default:
		return "INTERNAL"
	}
}

func statusOf(err error) int {
	if errors.Is(err, models.ErrForbiddenRoom) || errors.Is(err, models.ErrAdminOnly) {
		return http.StatusForbidden
	}

	switch models.KindOf(err) {
	case models.KindUnauthorized:
		return http.StatusUnauthorized
	case models.KindNotFound:
		return http.StatusNotFound
	case models.KindConflict:
		return http.StatusConflict
	case models.KindInvalidInput:
		return http.StatusBadRequest
	}

	if models.IsRetryable(err) {
		return http.StatusServiceUnavailable
	}

	return http.StatusInternalServerError
}

// respondError writes the classified reason of err. Unclassified errors are
// reported as an internal error without detail.
func respondError(w http.ResponseWriter, log *slog.Logger, err error) {
	status := statusOf(err)

	if status >= http.StatusInternalServerError {
		log.Error("request failed", sl.Err(err))
	}
	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "1")
	}

	writeJSON(w, log, status, Response{
		Success:    false,
		StatusCode: status,
		Message:    models.ReasonOf(err),
		ErrorCode:  errorCode(models.KindOf(err)),
	})
}

// decode reads a JSON body into dst and runs struct validation on it.
func decode(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return models.InvalidInput("invalid request body")
	}

	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := lo.Map(verrs, func(fe validator.FieldError, _ int) string {
				return fmt.Sprintf("%s failed on '%s'", strings.ToLower(fe.Field()), fe.Tag())
			})
			return models.InvalidInput(strings.Join(msgs, "; "))
		}
		return models.InvalidInput(err.Error())
	}

	return nil
}

func pathID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		return uuid.Nil, models.InvalidInput("invalid " + name)
	}
	return id, nil
}

func pageOf(r *http.Request) (models.Page, error) {
	var p models.Page

	q := r.URL.Query()

	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return models.Page{}, models.InvalidInput("page must be a positive integer")
		}
		p.Page = n
	}

	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return models.Page{}, models.InvalidInput("limit must be a positive integer")
		}
		p.Limit = n
	}

	return p.Normalize(), nil
}
