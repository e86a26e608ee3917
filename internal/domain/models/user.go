package models

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

type User struct {
	ID         uuid.UUID
	Email      string
	Name       string
	PassHash   []byte
	Role       Role
	IsVerified bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Principal is the authenticated caller of an operation.
type Principal struct {
	UserID   uuid.UUID
	Role     Role
	Verified bool
}

func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

func PrincipalOf(u User) Principal {
	return Principal{
		UserID:   u.ID,
		Role:     u.Role,
		Verified: u.IsVerified,
	}
}
