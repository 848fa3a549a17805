package mentors

import (
	"time"

	"github.com/yln-platform/mentorship-backend/internal/dualwrite"
	pkgerrors "github.com/yln-platform/mentorship-backend/pkg/errors"
)

// Mentor is the store-independent view of a mentor row.
type Mentor struct {
	ID          int64     `json:"id"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	Phone       string    `json:"phone,omitempty"`
	Email       string    `json:"email"`
	WorkProfile string    `json:"work_profile,omitempty"`
	Bio         string    `json:"bio,omitempty"`
	ProfilePic  string    `json:"profile_pic,omitempty"`
	IsActive    bool      `json:"is_active"`
	// Available means active and not currently paired. Computed on read,
	// never stored.
	Available bool      `json:"available"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

type CreateRequest struct {
	FirstName   string `json:"first_name" validate:"required,max=100"`
	LastName    string `json:"last_name" validate:"required,max=100"`
	Email       string `json:"email" validate:"required,email"`
	Phone       string `json:"phone" validate:"omitempty,max=32"`
	WorkProfile string `json:"work_profile" validate:"omitempty,max=2000"`
	Bio         string `json:"bio" validate:"omitempty,max=4000"`
	ProfilePic  string `json:"profile_pic" validate:"omitempty,url"`
}

type UpdateRequest struct {
	FirstName   *string `json:"first_name" validate:"omitempty,max=100"`
	LastName    *string `json:"last_name" validate:"omitempty,max=100"`
	Email       *string `json:"email" validate:"omitempty,email"`
	Phone       *string `json:"phone" validate:"omitempty,max=32"`
	WorkProfile *string `json:"work_profile" validate:"omitempty,max=2000"`
	Bio         *string `json:"bio" validate:"omitempty,max=4000"`
	ProfilePic  *string `json:"profile_pic" validate:"omitempty,url"`
	IsActive    *bool   `json:"is_active"`
}

// FromRecord builds a Mentor from a store record.
func FromRecord(record dualwrite.Record) (*Mentor, error) {
	id, ok := record.ID()
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "mentor record has no id")
	}
	mentor := &Mentor{
		ID:          id,
		FirstName:   record.String("first_name"),
		LastName:    record.String("last_name"),
		Phone:       record.String("phone"),
		Email:       record.String("email"),
		WorkProfile: record.String("work_profile"),
		Bio:         record.String("bio"),
		ProfilePic:  record.String("profile_pic"),
		IsActive:    record.Bool("is_active"),
	}
	if createdAt, ok := record.Time("created_at"); ok {
		mentor.CreatedAt = createdAt
	}
	return mentor, nil
}
