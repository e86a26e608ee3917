package models

import (
	"time"

	"github.com/google/uuid"
)

type OrderState string

const (
	OrderStateOpen       OrderState = "OPEN"
	OrderStateProcessing OrderState = "PROCESSING"
	OrderStateCompleted  OrderState = "COMPLETED"
	OrderStateCancelled  OrderState = "CANCELLED"
)

func (s OrderState) Valid() bool {
	switch s {
	case OrderStateOpen, OrderStateProcessing, OrderStateCompleted, OrderStateCancelled:
		return true
	}
	return false
}

type Order struct {
	ID             uuid.UUID
	UserID         uuid.UUID
	Description    string
	Specifications string
	Quantity       int
	State          OrderState
	CreatedAt      time.Time
	UpdatedAt      time.Time

	// ChatRoom is nil only for orders created before rooms were bound
	// atomically; such orders are repaired by the binding reconciler.
	ChatRoom *ChatRoom
}

// OrderUpdate carries the fields an admin may change. Nil fields are kept.
type OrderUpdate struct {
	Description    *string
	Specifications *string
	Quantity       *int
	State          *OrderState
}

func (u OrderUpdate) Empty() bool {
	return u.Description == nil && u.Specifications == nil && u.Quantity == nil && u.State == nil
}

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
)

type Page struct {
	Page  int
	Limit int
}

// Normalize fills defaults for missing or out of range values.
func (p Page) Normalize() Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	return p
}

func (p Page) Offset() int {
	return (p.Page - 1) * p.Limit
}

type OrderPage struct {
	Orders []Order
	Total  int
	Page   int
	Limit  int
}
