package dualwrite

import (
	"context"
	"errors"

	"github.com/yln-platform/mentorship-backend/pkg/enums"
)

// ErrRowNotFound is the sentinel a Mirror returns from Update or Delete
// when the target row is absent from the external copy.
var ErrRowNotFound = errors.New("mirror row not found")

// Mirror is the external spreadsheet-backed copy of the entity tables.
// Implementations identify rows by the id carried in the record's first
// column and must return ErrRowNotFound when an update or delete target
// does not exist, so the store can apply its recovery policy.
type Mirror interface {
	Insert(ctx context.Context, entity enums.EntityType, record Record) error
	Update(ctx context.Context, entity enums.EntityType, id int64, record Record) error
	Delete(ctx context.Context, entity enums.EntityType, id int64) error
	ReadAll(ctx context.Context, entity enums.EntityType) ([]Record, error)
}
