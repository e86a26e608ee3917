package models

import "errors"

// Kind is the stable classification exposed to callers.
type Kind int

const (
	KindInternal Kind = iota
	KindUnauthorized
	KindNotFound
	KindConflict
	KindInvalidInput
)

func (k Kind) String() string {
	switch k {
	case KindUnauthorized:
		return "unauthorized"
	case KindNotFound:
		return "not found"
	case KindConflict:
		return "conflict"
	case KindInvalidInput:
		return "invalid input"
	default:
		return "internal"
	}
}

// Error is a classified failure. A target with an empty Reason matches every
// error of the same Kind, so ErrConflict matches ErrChatRoomClosed.
type Error struct {
	Kind      Kind
	Reason    string
	Retryable bool
}

func (e *Error) Error() string {
	if e.Reason == "" {
		return e.Kind.String()
	}
	return e.Reason
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Reason == "" || t.Reason == e.Reason
}

var (
	ErrUnauthorized = &Error{Kind: KindUnauthorized}
	ErrNotFound     = &Error{Kind: KindNotFound}
	ErrConflict     = &Error{Kind: KindConflict}
	ErrInvalidInput = &Error{Kind: KindInvalidInput}
	ErrInternal     = &Error{Kind: KindInternal, Reason: "internal server error"}

	ErrInvalidToken       = &Error{Kind: KindUnauthorized, Reason: "invalid token"}
	ErrUserUnverified     = &Error{Kind: KindUnauthorized, Reason: "user is unverified"}
	ErrAccountUnverified  = &Error{Kind: KindUnauthorized, Reason: "user account is not verified"}
	ErrInvalidCredentials = &Error{Kind: KindUnauthorized, Reason: "invalid user credentials"}
	ErrAdminOnly          = &Error{Kind: KindUnauthorized, Reason: "admin access required"}
	ErrForbiddenRoom      = &Error{Kind: KindUnauthorized, Reason: "unauthorized for this chat room"}
	ErrGoogleToken        = &Error{Kind: KindUnauthorized, Reason: "failed to verify google token"}
	ErrGoogleNoEmail      = &Error{Kind: KindUnauthorized, Reason: "email not found in google token"}
	ErrOAuthState         = &Error{Kind: KindUnauthorized, Reason: "invalid oauth state"}

	ErrUserNotFound     = &Error{Kind: KindNotFound, Reason: "user not found"}
	ErrOrderNotFound    = &Error{Kind: KindNotFound, Reason: "order not found"}
	ErrChatRoomNotFound = &Error{Kind: KindNotFound, Reason: "chat room not found"}
	ErrSessionNotFound  = &Error{Kind: KindNotFound, Reason: "session is not registered"}
	ErrGoogleDisabled   = &Error{Kind: KindNotFound, Reason: "google sign-in is not configured"}

	ErrUserExists            = &Error{Kind: KindConflict, Reason: "user already exists"}
	ErrChatRoomClosed        = &Error{Kind: KindConflict, Reason: "chat room is closed"}
	ErrChatRoomAlreadyClosed = &Error{Kind: KindConflict, Reason: "chat room is already closed"}
	ErrOrderRoomClosed       = &Error{Kind: KindConflict, Reason: "cannot reopen an order with a closed chat room"}

	ErrEmptyContent = &Error{Kind: KindInvalidInput, Reason: "chat content cannot be empty"}
	ErrEmptySummary = &Error{Kind: KindInvalidInput, Reason: "summary is required"}

	ErrStorageTimeout  = &Error{Kind: KindInternal, Reason: "storage timeout", Retryable: true}
	ErrChatRoomBinding = &Error{Kind: KindInternal, Reason: "chat room binding failed", Retryable: true}
)

func InvalidInput(reason string) error {
	return &Error{Kind: KindInvalidInput, Reason: reason}
}

// KindOf reports the classification of err. Unclassified errors are internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// ReasonOf returns the public reason of err. Unclassified errors never leak
// their message.
func ReasonOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Error()
	}
	return ErrInternal.Reason
}

func IsRetryable(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Retryable
}

// Sanitize keeps classified and retryable errors and replaces everything
// else with ErrInternal. Callers log the original before sanitizing.
func Sanitize(err error) error {
	var e *Error
	if !errors.As(err, &e) {
		return ErrInternal
	}
	if e.Kind == KindInternal && !e.Retryable {
		return ErrInternal
	}
	return err
}
