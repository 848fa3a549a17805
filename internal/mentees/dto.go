package mentees

import (
	"time"

	"github.com/yln-platform/mentorship-backend/internal/dualwrite"
	pkgerrors "github.com/yln-platform/mentorship-backend/pkg/errors"
)

// Mentee is the store-independent view of a mentee profile row.
type Mentee struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	Phone       string    `json:"phone,omitempty"`
	Email       string    `json:"email"`
	WorkProfile string    `json:"work_profile,omitempty"`
	ProfilePic  string    `json:"profile_pic,omitempty"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
}

type CreateRequest struct {
	FirstName   string `json:"first_name" validate:"required,max=100"`
	LastName    string `json:"last_name" validate:"required,max=100"`
	Phone       string `json:"phone" validate:"omitempty,max=32"`
	WorkProfile string `json:"work_profile" validate:"omitempty,max=2000"`
	ProfilePic  string `json:"profile_pic" validate:"omitempty,url"`
}

type UpdateRequest struct {
	FirstName   *string `json:"first_name" validate:"omitempty,max=100"`
	LastName    *string `json:"last_name" validate:"omitempty,max=100"`
	Phone       *string `json:"phone" validate:"omitempty,max=32"`
	WorkProfile *string `json:"work_profile" validate:"omitempty,max=2000"`
	ProfilePic  *string `json:"profile_pic" validate:"omitempty,url"`
}

// FromRecord builds a Mentee from a store record.
func FromRecord(record dualwrite.Record) (*Mentee, error) {
	id, ok := record.ID()
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "mentee record has no id")
	}
	userID, ok := record.Int64("user_id")
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "mentee record has no user id")
	}
	mentee := &Mentee{
		ID:          id,
		UserID:      userID,
		FirstName:   record.String("first_name"),
		LastName:    record.String("last_name"),
		Phone:       record.String("phone"),
		Email:       record.String("email"),
		WorkProfile: record.String("work_profile"),
		ProfilePic:  record.String("profile_pic"),
	}
	if createdAt, ok := record.Time("created_at"); ok {
		mentee.CreatedAt = createdAt
	}
	return mentee, nil
}
