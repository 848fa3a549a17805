package mentorships

import (
	"time"

	"github.com/yln-platform/mentorship-backend/internal/dualwrite"
	pkgerrors "github.com/yln-platform/mentorship-backend/pkg/errors"
)

// Pairing is one mentor/mentee assignment. Both sides are exclusive:
// a mentor carries one mentee and a mentee has one mentor.
type Pairing struct {
	ID        int64     `json:"id"`
	MentorID  int64     `json:"mentor_id"`
	MenteeID  int64     `json:"mentee_id"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// PairingDetail augments a pairing with the display fields the admin
// dashboard lists.
type PairingDetail struct {
	Pairing
	MentorName  string `json:"mentor_name,omitempty"`
	MentorEmail string `json:"mentor_email,omitempty"`
	MenteeName  string `json:"mentee_name,omitempty"`
	MenteeEmail string `json:"mentee_email,omitempty"`
}

type CreateRequest struct {
	MentorID int64 `json:"mentor_id" validate:"required,gt=0"`
	MenteeID int64 `json:"mentee_id" validate:"required,gt=0"`
}

// FromRecord builds a Pairing from a store record.
func FromRecord(record dualwrite.Record) (*Pairing, error) {
	id, ok := record.ID()
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "mentorship record has no id")
	}
	mentorID, ok := record.Int64("mentor_id")
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "mentorship record has no mentor id")
	}
	menteeID, ok := record.Int64("mentee_id")
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "mentorship record has no mentee id")
	}
	pairing := &Pairing{
		ID:       id,
		MentorID: mentorID,
		MenteeID: menteeID,
	}
	if createdAt, ok := record.Time("created_at"); ok {
		pairing.CreatedAt = createdAt
	}
	return pairing, nil
}
