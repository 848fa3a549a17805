package mentors

import (
	"context"
	"fmt"
	"strings"

	"github.com/yln-platform/mentorship-backend/internal/dualwrite"
	"github.com/yln-platform/mentorship-backend/pkg/enums"
	pkgerrors "github.com/yln-platform/mentorship-backend/pkg/errors"
)

// Service defines the mentor catalog operations.
type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Mentor, error)
	Get(ctx context.Context, id int64) (*Mentor, error)
	List(ctx context.Context, activeOnly bool) ([]*Mentor, error)
	Update(ctx context.Context, id int64, req UpdateRequest) (*Mentor, error)
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

// ServiceParams bundles the dependencies required to build a mentors service.
type ServiceParams struct {
	Store entityStore
}

func NewService(params ServiceParams) (Service, error) {
	if params.Store == nil {
		return nil, fmt.Errorf("entity store is required")
	}
	return &service{store: params.Store}, nil
}

func (s *service) Create(ctx context.Context, req CreateRequest) (*Mentor, error) {
	payload := dualwrite.Record{
		"first_name": strings.TrimSpace(req.FirstName),
		"last_name":  strings.TrimSpace(req.LastName),
		"email":      strings.ToLower(strings.TrimSpace(req.Email)),
		"is_active":  true,
	}
	setOptional(payload, "phone", req.Phone)
	setOptional(payload, "work_profile", req.WorkProfile)
	setOptional(payload, "bio", req.Bio)
	setOptional(payload, "profile_pic", req.ProfilePic)

	record, err := s.store.Insert(ctx, enums.EntityMentors, payload)
	if err != nil {
		return nil, err
	}
	return FromRecord(record)
}

func (s *service) Get(ctx context.Context, id int64) (*Mentor, error) {
	records, err := s.store.Read(ctx, enums.EntityMentors, dualwrite.Filter{"id": id})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "mentor not found")
	}
	mentor, err := FromRecord(records[0])
	if err != nil {
		return nil, err
	}
	pairings, err := s.store.Read(ctx, enums.EntityMentorships, dualwrite.Filter{"mentor_id": mentor.ID})
	if err != nil {
		return nil, err
	}
	mentor.Available = mentor.IsActive && len(pairings) == 0
	return mentor, nil
}

func (s *service) List(ctx context.Context, activeOnly bool) ([]*Mentor, error) {
	var filter dualwrite.Filter
	if activeOnly {
		filter = dualwrite.Filter{"is_active": true}
	}
	records, err := s.store.Read(ctx, enums.EntityMentors, filter)
	if err != nil {
		return nil, err
	}

	paired, err := s.pairedMentorIDs(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]*Mentor, 0, len(records))
	for _, record := range records {
		mentor, err := FromRecord(record)
		if err != nil {
			return nil, err
		}
		mentor.Available = mentor.IsActive && !paired[mentor.ID]
		out = append(out, mentor)
	}
	return out, nil
}

func (s *service) pairedMentorIDs(ctx context.Context) (map[int64]bool, error) {
	pairings, err := s.store.Read(ctx, enums.EntityMentorships, nil)
	if err != nil {
		return nil, err
	}
	paired := make(map[int64]bool, len(pairings))
	for _, pairing := range pairings {
		if mentorID, ok := pairing.Int64("mentor_id"); ok {
			paired[mentorID] = true
		}
	}
	return paired, nil
}

func (s *service) Update(ctx context.Context, id int64, req UpdateRequest) (*Mentor, error) {
	changes := dualwrite.Record{}
	setUpdated(changes, "first_name", req.FirstName)
	setUpdated(changes, "last_name", req.LastName)
	setUpdated(changes, "phone", req.Phone)
	setUpdated(changes, "work_profile", req.WorkProfile)
	setUpdated(changes, "bio", req.Bio)
	setUpdated(changes, "profile_pic", req.ProfilePic)
	if req.Email != nil {
		changes["email"] = strings.ToLower(strings.TrimSpace(*req.Email))
	}
	if req.IsActive != nil {
		changes["is_active"] = *req.IsActive
	}
	if len(changes) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no fields to update")
	}

	record, err := s.store.Update(ctx, enums.EntityMentors, id, changes)
	if err != nil {
		return nil, err
	}
	return FromRecord(record)
}

func (s *service) Delete(ctx context.Context, id int64) error {
	pairings, err := s.store.Read(ctx, enums.EntityMentorships, dualwrite.Filter{"mentor_id": id})
	if err != nil {
		return err
	}
	if len(pairings) > 0 {
		return pkgerrors.New(pkgerrors.CodeConflict, "mentor has an active mentorship, remove the pairing first")
	}
	return s.store.Delete(ctx, enums.EntityMentors, id)
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
