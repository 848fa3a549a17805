package dualwrite

import (
	"encoding/json"
	"fmt"

	"github.com/yln-platform/mentorship-backend/pkg/db/models"
	"github.com/yln-platform/mentorship-backend/pkg/enums"
	pkgerrors "github.com/yln-platform/mentorship-backend/pkg/errors"
)

// descriptor fixes the shape of one mirrored entity: its local table, the
// columns a payload may carry, and the fields a mirror row must expose for
// reads to trust it.
type descriptor struct {
	table    string
	newModel func() any
	fields   []string
	required []string
}

var registry = map[enums.EntityType]descriptor{
	enums.EntityUsers: {
		table:    "users",
		newModel: func() any { return &models.User{} },
		fields:   []string{"id", "email", "password_hash", "role", "is_verified", "created_at"},
		required: []string{"id", "email", "password_hash"},
	},
	enums.EntityMentors: {
		table:    "mentors",
		newModel: func() any { return &models.Mentor{} },
		fields:   []string{"id", "first_name", "last_name", "phone", "email", "work_profile", "bio", "profile_pic", "is_active", "created_at"},
		required: []string{"id"},
	},
	enums.EntityMentees: {
		table:    "mentees",
		newModel: func() any { return &models.Mentee{} },
		fields:   []string{"id", "user_id", "first_name", "last_name", "phone", "email", "work_profile", "profile_pic", "created_at"},
		required: []string{"id", "user_id"},
	},
	enums.EntityMentorships: {
		table:    "mentorships",
		newModel: func() any { return &models.Mentorship{} },
		fields:   []string{"id", "mentor_id", "mentee_id", "created_at"},
		required: []string{"id", "mentor_id", "mentee_id"},
	},
	enums.EntitySessions: {
		table:    "sessions",
		newModel: func() any { return &models.Session{} },
		fields:   []string{"id", "user_id", "token", "expires_at", "created_at"},
		required: []string{"id", "user_id", "token", "expires_at"},
	},
}

// Entities lists the mirrored entity types in dependency order, parents
// before the rows that reference them.
func Entities() []enums.EntityType {
	return []enums.EntityType{
		enums.EntityUsers,
		enums.EntityMentors,
		enums.EntityMentees,
		enums.EntityMentorships,
		enums.EntitySessions,
	}
}

// FieldsFor returns the column order of a mirrored entity. Mirror
// implementations use it to lay out worksheet headers.
func FieldsFor(entity enums.EntityType) ([]string, error) {
	desc, err := descriptorFor(entity)
	if err != nil {
		return nil, err
	}
	fields := make([]string, len(desc.fields))
	copy(fields, desc.fields)
	return fields, nil
}

func descriptorFor(entity enums.EntityType) (descriptor, error) {
	desc, ok := registry[entity]
	if !ok {
		return descriptor{}, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown entity type %q", entity))
	}
	return desc, nil
}

// validatePayload rejects fields that are not columns of the entity. The
// record shape is fixed at the store boundary rather than trusted from
// callers.
func (d descriptor) validatePayload(payload Record) error {
	allowed := make(map[string]struct{}, len(d.fields))
	for _, field := range d.fields {
		allowed[field] = struct{}{}
	}
	for key := range payload {
		if _, ok := allowed[key]; !ok {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("field %q is not part of entity %q", key, d.table))
		}
	}
	return nil
}

// decode builds a fresh model from the payload via a JSON round trip, which
// keeps the column naming in one place (the model json tags).
func (d descriptor) decode(payload Record) (any, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	model := d.newModel()
	if err := json.Unmarshal(raw, model); err != nil {
		return nil, fmt.Errorf("decode payload into %s model: %w", d.table, err)
	}
	return model, nil
}

// encode flattens a model back into a Record.
func (d descriptor) encode(model any) (Record, error) {
	raw, err := json.Marshal(model)
	if err != nil {
		return nil, fmt.Errorf("encode %s model: %w", d.table, err)
	}
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode %s model into record: %w", d.table, err)
	}
	return rec, nil
}
