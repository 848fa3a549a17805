package dualwrite

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/yln-platform/mentorship-backend/pkg/config"
	"github.com/yln-platform/mentorship-backend/pkg/enums"
	pkgerrors "github.com/yln-platform/mentorship-backend/pkg/errors"
	"github.com/yln-platform/mentorship-backend/pkg/logger"
)

// Database is the slice of the db client the store needs.
type Database interface {
	DB() *gorm.DB
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Store is the reconciling dual-write entry point. Every entity mutation
// goes through it: the local table is written synchronously and is
// authoritative, the spreadsheet mirror is written best effort with a
// durable retry queue behind it.
type Store struct {
	db     Database
	mirror Mirror
	queue  *queueRepository
	log    *logger.Logger
	cfg    config.SyncConfig
	now    func() time.Time

	drainMu sync.Mutex
}

type StoreParams struct {
	Database Database
	Mirror   Mirror
	Logger   *logger.Logger
	Sync     config.SyncConfig

	// Now overrides the clock in tests.
	Now func() time.Time
}

func NewStore(params StoreParams) (*Store, error) {
	if params.Database == nil {
		return nil, fmt.Errorf("dualwrite store requires a database")
	}
	if params.Sync.BatchSize <= 0 {
		params.Sync.BatchSize = 10
	}
	if params.Sync.MaxAttempts <= 0 {
		params.Sync.MaxAttempts = 5
	}
	if params.Sync.RetryBackoff <= 0 {
		params.Sync.RetryBackoff = time.Minute
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Store{
		db:     params.Database,
		mirror: params.Mirror,
		queue:  newQueueRepository(params.Database.DB()),
		log:    params.Logger,
		cfg:    params.Sync,
		now:    now,
	}, nil
}

// Insert writes a new row locally, then mirrors it. The local store
// assigns the id; the returned record carries the full row including it.
func (s *Store) Insert(ctx context.Context, entity enums.EntityType, payload Record) (Record, error) {
	desc, err := descriptorFor(entity)
	if err != nil {
		return nil, err
	}
	if _, ok := payload["id"]; ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "id is assigned by the store and cannot be supplied")
	}
	if err := desc.validatePayload(payload); err != nil {
		return nil, err
	}

	model, err := desc.decode(payload)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payload")
	}
	if err := s.db.DB().WithContext(ctx).Create(model).Error; err != nil {
		return nil, translateDBError(err, desc.table)
	}

	record, err := desc.encode(model)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode inserted row")
	}

	s.mirrorWrite(ctx, entity, enums.OpInsert, record)
	return record, nil
}

// Update applies a partial change to an existing row, then mirrors the
// full row so the external copy never holds a blanked-out version.
func (s *Store) Update(ctx context.Context, entity enums.EntityType, id int64, changes Record) (Record, error) {
	desc, err := descriptorFor(entity)
	if err != nil {
		return nil, err
	}
	if len(changes) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no fields to update")
	}
	if _, ok := changes["id"]; ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "id cannot be changed")
	}
	if err := desc.validatePayload(changes); err != nil {
		return nil, err
	}

	fresh := desc.newModel()
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		existing := desc.newModel()
		if err := tx.First(existing, "id = ?", id).Error; err != nil {
			return translateDBError(err, desc.table)
		}
		if err := tx.Table(desc.table).Where("id = ?", id).Updates(map[string]any(changes)).Error; err != nil {
			return translateDBError(err, desc.table)
		}
		return tx.First(fresh, "id = ?", id).Error
	})
	if err != nil {
		return nil, err
	}

	record, err := desc.encode(fresh)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode updated row")
	}

	s.mirrorWrite(ctx, entity, enums.OpUpdate, record)
	return record, nil
}

// Delete removes a row locally, then from the mirror.
func (s *Store) Delete(ctx context.Context, entity enums.EntityType, id int64) error {
	desc, err := descriptorFor(entity)
	if err != nil {
		return err
	}

	res := s.db.DB().WithContext(ctx).Where("id = ?", id).Delete(desc.newModel())
	if res.Error != nil {
		return translateDBError(res.Error, desc.table)
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("%s row %d not found", desc.table, id))
	}

	s.mirrorWrite(ctx, entity, enums.OpDelete, Record{"id": id})
	return nil
}

// Read lists rows of an entity, preferring the mirror. The local store
// answers instead when the mirror errors, when a matching mirror row is
// missing a field the entity requires, or when the mirror has no match
// at all. The last case covers rows whose mirror write is still queued:
// the local store is authoritative, so a true miss re-answers empty.
func (s *Store) Read(ctx context.Context, entity enums.EntityType, filter Filter) ([]Record, error) {
	desc, err := descriptorFor(entity)
	if err != nil {
		return nil, err
	}

	if s.mirror != nil {
		records, mirrorErr := s.mirror.ReadAll(ctx, entity)
		if mirrorErr == nil {
			matched, trusted := selectRecords(records, filter, desc.required)
			if trusted && len(matched) > 0 {
				return matched, nil
			}
			if !trusted {
				s.warn(ctx, entity, "mirror rows missing required fields, reading local store", nil)
			}
		} else {
			s.warn(ctx, entity, "mirror read failed, reading local store", mirrorErr)
		}
	}

	return s.readLocal(ctx, desc, filter)
}

// DrainResult summarizes one pass over the retry queue.
type DrainResult struct {
	Claimed     int
	Succeeded   int
	Rescheduled int
	Failed      int
	Skipped     bool
}

// DrainPendingWrites retries queued mirror writes, oldest first, up to
// the configured batch size. Only one drain runs at a time; a concurrent
// call returns immediately with Skipped set.
func (s *Store) DrainPendingWrites(ctx context.Context) (DrainResult, error) {
	if !s.drainMu.TryLock() {
		return DrainResult{Skipped: true}, nil
	}
	defer s.drainMu.Unlock()

	var result DrainResult
	if s.mirror == nil {
		return result, nil
	}

	writes, err := s.queue.FetchDue(ctx, s.now(), s.cfg.BatchSize)
	if err != nil {
		return result, err
	}

	var errs error
	for _, write := range writes {
		claimed, err := s.queue.MarkProcessing(ctx, write.ID)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		if !claimed {
			continue
		}
		result.Claimed++

		var payload Record
		if err := json.Unmarshal(write.Payload, &payload); err != nil {
			// A payload that cannot decode will never succeed.
			if err := s.queue.MarkFailed(ctx, write.ID, write.Attempts+1, err); err != nil {
				errs = multierr.Append(errs, err)
			}
			result.Failed++
			continue
		}

		applyErr := s.applyToMirror(ctx, write.EntityType, write.Operation, payload)
		if applyErr == nil {
			if err := s.queue.Delete(ctx, write.ID); err != nil {
				errs = multierr.Append(errs, err)
				continue
			}
			result.Succeeded++
			continue
		}

		attempts := write.Attempts + 1
		if attempts >= s.cfg.MaxAttempts {
			if err := s.queue.MarkFailed(ctx, write.ID, attempts, applyErr); err != nil {
				errs = multierr.Append(errs, err)
				continue
			}
			result.Failed++
			s.warn(ctx, write.EntityType, "pending write exhausted its attempts", applyErr)
		} else {
			next := s.now().Add(s.backoff(attempts))
			if err := s.queue.Reschedule(ctx, write.ID, attempts, next, applyErr); err != nil {
				errs = multierr.Append(errs, err)
				continue
			}
			result.Rescheduled++
		}
	}
	return result, errs
}

// Backfill pushes every local row of every entity onto the mirror,
// upserting by id. Used to rebuild an empty or stale spreadsheet from
// the authoritative store.
func (s *Store) Backfill(ctx context.Context) (int, error) {
	if s.mirror == nil {
		return 0, nil
	}

	pushed := 0
	var errs error
	for _, entity := range Entities() {
		desc, err := descriptorFor(entity)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		records, err := s.readLocal(ctx, desc, nil)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		for _, record := range records {
			if err := s.applyToMirror(ctx, entity, enums.OpUpdate, record); err != nil {
				errs = multierr.Append(errs, fmt.Errorf("backfill %s: %w", entity, err))
				continue
			}
			pushed++
		}
	}
	return pushed, errs
}

// ResetFailedWrites returns terminally failed rows to the queue so the
// next drain retries them from scratch.
func (s *Store) ResetFailedWrites(ctx context.Context) (int64, error) {
	return s.queue.ResetFailed(ctx, s.now())
}

// QueueStats reports the retry queue backlog.
type QueueStats struct {
	Pending int64 `json:"pending"`
	Failed  int64 `json:"failed"`
}

func (s *Store) QueueStats(ctx context.Context) (QueueStats, error) {
	pending, failed, err := s.queue.Counts(ctx)
	if err != nil {
		return QueueStats{}, err
	}
	return QueueStats{Pending: pending, Failed: failed}, nil
}

// mirrorWrite pushes one mutation to the mirror on the request path. A
// failure never surfaces to the caller: the local write already
// committed, so the mutation is queued for the drain loop instead.
func (s *Store) mirrorWrite(ctx context.Context, entity enums.EntityType, op enums.WriteOperation, record Record) {
	if s.mirror == nil {
		return
	}
	err := s.applyToMirror(ctx, entity, op, record)
	if err == nil {
		return
	}

	next := s.now().Add(s.backoff(1))
	if _, qErr := s.queue.Enqueue(ctx, entity, op, record, next, err); qErr != nil {
		s.error(ctx, entity, "mirror write failed and could not be queued", multierr.Append(err, qErr))
		return
	}
	s.warn(ctx, entity, "mirror write failed, queued for retry", err)
}

// applyToMirror dispatches one operation. An update whose target row is
// gone from the sheet is replayed as an insert, and a delete whose
// target is already gone counts as done.
func (s *Store) applyToMirror(ctx context.Context, entity enums.EntityType, op enums.WriteOperation, record Record) error {
	switch op {
	case enums.OpInsert:
		return s.mirror.Insert(ctx, entity, record)
	case enums.OpUpdate:
		id, ok := record.ID()
		if !ok {
			return fmt.Errorf("update payload for %s has no id", entity)
		}
		err := s.mirror.Update(ctx, entity, id, record)
		if errors.Is(err, ErrRowNotFound) {
			return s.mirror.Insert(ctx, entity, record)
		}
		return err
	case enums.OpDelete:
		id, ok := record.ID()
		if !ok {
			return fmt.Errorf("delete payload for %s has no id", entity)
		}
		err := s.mirror.Delete(ctx, entity, id)
		if errors.Is(err, ErrRowNotFound) {
			return nil
		}
		return err
	default:
		return fmt.Errorf("unknown write operation %q", op)
	}
}

func (s *Store) readLocal(ctx context.Context, desc descriptor, filter Filter) ([]Record, error) {
	var rows []map[string]any
	err := s.db.DB().WithContext(ctx).Table(desc.table).Order("id ASC").Find(&rows).Error
	if err != nil {
		return nil, translateDBError(err, desc.table)
	}

	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		record := make(Record, len(row))
		for key, value := range row {
			record[key] = normalizeValue(value)
		}
		if len(filter) == 0 || record.Matches(filter) {
			records = append(records, record)
		}
	}
	return records, nil
}

// selectRecords filters mirror rows and reports whether every match can
// be trusted, i.e. carries the entity's required fields.
func selectRecords(records []Record, filter Filter, required []string) ([]Record, bool) {
	matched := make([]Record, 0, len(records))
	for _, record := range records {
		if len(filter) > 0 && !record.Matches(filter) {
			continue
		}
		if !record.HasFields(required) {
			return nil, false
		}
		matched = append(matched, record)
	}
	return matched, true
}

// backoff grows linearly with the attempt count.
func (s *Store) backoff(attempts int) time.Duration {
	if attempts < 1 {
		attempts = 1
	}
	return s.cfg.RetryBackoff * time.Duration(attempts)
}

func normalizeValue(value any) any {
	switch v := value.(type) {
	case []byte:
		return string(v)
	case time.Time:
		return v.Format(time.RFC3339Nano)
	default:
		return v
	}
}

func translateDBError(err error, table string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, fmt.Sprintf("%s row not found", table))
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, fmt.Sprintf("%s row conflicts with an existing one", table))
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, fmt.Sprintf("%s query failed", table))
}

func (s *Store) warn(ctx context.Context, entity enums.EntityType, msg string, err error) {
	if s.log == nil {
		return
	}
	warnCtx := s.log.WithEntity(ctx, string(entity))
	if err != nil {
		warnCtx = s.log.WithField(warnCtx, "error", err.Error())
	}
	s.log.Warn(warnCtx, msg)
}

func (s *Store) error(ctx context.Context, entity enums.EntityType, msg string, err error) {
	if s.log == nil {
		return
	}
	s.log.Error(s.log.WithEntity(ctx, string(entity)), msg, err)
}
