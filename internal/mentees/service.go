package mentees

import (
	"context"
	"fmt"
	"strings"

	"github.com/yln-platform/mentorship-backend/internal/dualwrite"
	"github.com/yln-platform/mentorship-backend/pkg/enums"
	pkgerrors "github.com/yln-platform/mentorship-backend/pkg/errors"
)

// Service defines the mentee profile operations. A registered user owns
// at most one profile; the email on the profile is the account email.
type Service interface {
	Create(ctx context.Context, userID int64, email string, req CreateRequest) (*Mentee, error)
	Get(ctx context.Context, id int64) (*Mentee, error)
	GetByUserID(ctx context.Context, userID int64) (*Mentee, error)
	List(ctx context.Context) ([]*Mentee, error)
	Update(ctx context.Context, id int64, req UpdateRequest) (*Mentee, error)
	Delete(ctx context.Context, id int64) error
}

type entityStore interface {
	Insert(ctx context.Context, entity enums.EntityType, payload dualwrite.Record) (dualwrite.Record, error)
	Update(ctx context.Context, entity enums.EntityType, id int64, changes dualwrite.Record) (dualwrite.Record, error)
	Delete(ctx context.Context, entity enums.EntityType, id int64) error
	Read(ctx context.Context, entity enums.EntityType, filter dualwrite.Filter) ([]dualwrite.Record, error)
}

type service struct {
	store entityStore
}

// ServiceParams bundles the dependencies required to build a mentees service.
type ServiceParams struct {
	Store entityStore
}

func NewService(params ServiceParams) (Service, error) {
	if params.Store == nil {
		return nil, fmt.Errorf("entity store is required")
	}
	return &service{store: params.Store}, nil
}

func (s *service) Create(ctx context.Context, userID int64, email string, req CreateRequest) (*Mentee, error) {
	existing, err := s.store.Read(ctx, enums.EntityMentees, dualwrite.Filter{"user_id": userID})
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "a mentee profile already exists for this account")
	}

	payload := dualwrite.Record{
		"user_id":    userID,
		"first_name": strings.TrimSpace(req.FirstName),
		"last_name":  strings.TrimSpace(req.LastName),
		"email":      strings.ToLower(strings.TrimSpace(email)),
	}
	setOptional(payload, "phone", req.Phone)
	setOptional(payload, "work_profile", req.WorkProfile)
	setOptional(payload, "profile_pic", req.ProfilePic)

	record, err := s.store.Insert(ctx, enums.EntityMentees, payload)
	if err != nil {
		return nil, err
	}
	return FromRecord(record)
}

func (s *service) Get(ctx context.Context, id int64) (*Mentee, error) {
	records, err := s.store.Read(ctx, enums.EntityMentees, dualwrite.Filter{"id": id})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "mentee not found")
	}
	return FromRecord(records[0])
}

func (s *service) GetByUserID(ctx context.Context, userID int64) (*Mentee, error) {
	records, err := s.store.Read(ctx, enums.EntityMentees, dualwrite.Filter{"user_id": userID})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "mentee profile not found")
	}
	return FromRecord(records[0])
}

func (s *service) List(ctx context.Context) ([]*Mentee, error) {
	records, err := s.store.Read(ctx, enums.EntityMentees, nil)
	if err != nil {
		return nil, err
	}
	out := make([]*Mentee, 0, len(records))
	for _, record := range records {
		mentee, err := FromRecord(record)
		if err != nil {
			return nil, err
		}
		out = append(out, mentee)
	}
	return out, nil
}

func (s *service) Update(ctx context.Context, id int64, req UpdateRequest) (*Mentee, error) {
	changes := dualwrite.Record{}
	setUpdated(changes, "first_name", req.FirstName)
	setUpdated(changes, "last_name", req.LastName)
	setUpdated(changes, "phone", req.Phone)
	setUpdated(changes, "work_profile", req.WorkProfile)
	setUpdated(changes, "profile_pic", req.ProfilePic)
	if len(changes) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no fields to update")
	}

	record, err := s.store.Update(ctx, enums.EntityMentees, id, changes)
	if err != nil {
		return nil, err
	}
	return FromRecord(record)
}

func (s *service) Delete(ctx context.Context, id int64) error {
	pairings, err := s.store.Read(ctx, enums.EntityMentorships, dualwrite.Filter{"mentee_id": id})
	if err != nil {
		return err
	}
	if len(pairings) > 0 {
		return pkgerrors.New(pkgerrors.CodeConflict, "mentee has an active mentorship, remove the pairing first")
	}
	return s.store.Delete(ctx, enums.EntityMentees, id)
}

func setOptional(payload dualwrite.Record, key string, value string) {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		payload[key] = trimmed
	}
}

func setUpdated(changes dualwrite.Record, key string, value *string) {
	if value != nil {
		changes[key] = strings.TrimSpace(*value)
	}
}
