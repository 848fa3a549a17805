package users

import (
	"time"

	"github.com/yln-platform/mentorship-backend/internal/dualwrite"
	"github.com/yln-platform/mentorship-backend/pkg/enums"
	pkgerrors "github.com/yln-platform/mentorship-backend/pkg/errors"
)

// User is the store-independent view of an account row. Either store
// may have produced it, so it is assembled through the tolerant record
// accessors.
type User struct {
	ID           int64      `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Role         enums.Role `json:"role"`
	IsVerified   bool       `json:"is_verified"`
	CreatedAt    time.Time  `json:"created_at,omitempty"`
}

// FromRecord builds a User from a store record.
func FromRecord(record dualwrite.Record) (*User, error) {
	id, ok := record.ID()
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "user record has no id")
	}
	email := record.String("email")
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "user record has no email")
	}

	user := &User{
		ID:           id,
		Email:        email,
		PasswordHash: record.String("password_hash"),
		Role:         enums.Role(record.String("role")),
		IsVerified:   record.Bool("is_verified"),
	}
	if createdAt, ok := record.Time("created_at"); ok {
		user.CreatedAt = createdAt
	}
	return user, nil
}
