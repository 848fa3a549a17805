package dualwrite

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/yln-platform/mentorship-backend/pkg/config"
	"github.com/yln-platform/mentorship-backend/pkg/db/models"
	"github.com/yln-platform/mentorship-backend/pkg/enums"
	pkgerrors "github.com/yln-platform/mentorship-backend/pkg/errors"
)

type testDatabase struct {
	conn *gorm.DB
}

func (d *testDatabase) DB() *gorm.DB {
	return d.conn
}

func (d *testDatabase) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return d.conn.WithContext(ctx).Transaction(fn)
}

func newTestDatabase(t *testing.T) *testDatabase {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(
		&models.User{},
		&models.Mentor{},
		&models.Mentee{},
		&models.Mentorship{},
		&models.Session{},
		&models.PendingWrite{},
	))
	return &testDatabase{conn: conn}
}

// fakeMirror keeps rows in memory and fails on demand.
type fakeMirror struct {
	mu   sync.Mutex
	rows map[enums.EntityType][]Record

	insertErr error
	updateErr error
	deleteErr error
	readErr   error
}

func newFakeMirror() *fakeMirror {
	return &fakeMirror{rows: make(map[enums.EntityType][]Record)}
}

func (m *fakeMirror) Insert(_ context.Context, entity enums.EntityType, record Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return m.insertErr
	}
	m.rows[entity] = append(m.rows[entity], record)
	return nil
}

func (m *fakeMirror) Update(_ context.Context, entity enums.EntityType, id int64, record Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	for i, row := range m.rows[entity] {
		if rowID, ok := row.ID(); ok && rowID == id {
			m.rows[entity][i] = record
			return nil
		}
	}
	return ErrRowNotFound
}

func (m *fakeMirror) Delete(_ context.Context, entity enums.EntityType, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	for i, row := range m.rows[entity] {
		if rowID, ok := row.ID(); ok && rowID == id {
			m.rows[entity] = append(m.rows[entity][:i], m.rows[entity][i+1:]...)
			return nil
		}
	}
	return ErrRowNotFound
}

func (m *fakeMirror) ReadAll(_ context.Context, entity enums.EntityType) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readErr != nil {
		return nil, m.readErr
	}
	out := make([]Record, len(m.rows[entity]))
	copy(out, m.rows[entity])
	return out, nil
}

func (m *fakeMirror) setInsertErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.insertErr = err
}

func (m *fakeMirror) rowCount(entity enums.EntityType) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows[entity])
}

type storeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *storeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *storeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestStore(t *testing.T, mirror Mirror) (*Store, *testDatabase, *storeClock) {
	t.Helper()

	database := newTestDatabase(t)
	clock := &storeClock{now: time.Date(2026, time.March, 1, 9, 0, 0, 0, time.UTC)}
	store, err := NewStore(StoreParams{
		Database: database,
		Mirror:   mirror,
		Sync: config.SyncConfig{
			BatchSize:    10,
			MaxAttempts:  5,
			RetryBackoff: time.Minute,
		},
		Now: clock.Now,
	})
	require.NoError(t, err)
	return store, database, clock
}

func mentorPayload(email string) Record {
	return Record{
		"first_name": "Amira",
		"last_name":  "Khan",
		"email":      email,
		"is_active":  true,
	}
}

func pendingWrites(t *testing.T, database *testDatabase) []models.PendingWrite {
	t.Helper()
	var writes []models.PendingWrite
	require.NoError(t, database.conn.Order("id ASC").Find(&writes).Error)
	return writes
}

func TestInsertAssignsIDAndMirrors(t *testing.T) {
	mirror := newFakeMirror()
	store, database, _ := newTestStore(t, mirror)

	record, err := store.Insert(context.Background(), enums.EntityMentors, mentorPayload("amira@yln.org"))
	require.NoError(t, err)

	id, ok := record.ID()
	require.True(t, ok)
	require.Equal(t, int64(1), id)
	require.Equal(t, 1, mirror.rowCount(enums.EntityMentors))
	require.Empty(t, pendingWrites(t, database))
}

func TestInsertRejectsUnknownAndIDFields(t *testing.T) {
	store, _, _ := newTestStore(t, newFakeMirror())

	_, err := store.Insert(context.Background(), enums.EntityMentors, Record{"email": "a@b.c", "favorite_color": "blue"})
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	_, err = store.Insert(context.Background(), enums.EntityMentors, Record{"id": 7, "email": "a@b.c"})
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestInsertMirrorFailureQueuesExactlyOneWrite(t *testing.T) {
	mirror := newFakeMirror()
	mirror.setInsertErr(errors.New("sheet unavailable"))
	store, database, clock := newTestStore(t, mirror)

	record, err := store.Insert(context.Background(), enums.EntityMentors, mentorPayload("amira@yln.org"))
	require.NoError(t, err)

	id, ok := record.ID()
	require.True(t, ok)
	require.Equal(t, int64(1), id)

	writes := pendingWrites(t, database)
	require.Len(t, writes, 1)
	write := writes[0]
	require.Equal(t, enums.EntityMentors, write.EntityType)
	require.Equal(t, enums.OpInsert, write.Operation)
	require.Equal(t, enums.PendingWritePending, write.Status)
	require.Equal(t, 0, write.Attempts)
	require.NotEmpty(t, write.IdempotencyKey)
	require.NotNil(t, write.LastError)
	require.Equal(t, clock.Now().Add(time.Minute).Unix(), write.NextRetryAt.Unix())
}

func TestUpdateMirrorsTheFullRow(t *testing.T) {
	mirror := newFakeMirror()
	store, _, _ := newTestStore(t, mirror)

	inserted, err := store.Insert(context.Background(), enums.EntityMentors, mentorPayload("amira@yln.org"))
	require.NoError(t, err)
	id, _ := inserted.ID()

	updated, err := store.Update(context.Background(), enums.EntityMentors, id, Record{"first_name": "Nadia"})
	require.NoError(t, err)
	require.Equal(t, "Nadia", updated["first_name"])
	require.Equal(t, "amira@yln.org", updated["email"])

	rows, err := mirror.ReadAll(context.Background(), enums.EntityMentors)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "Nadia", rows[0]["first_name"])
	require.Equal(t, "amira@yln.org", rows[0]["email"])
}

func TestUpdateMissingRowIsNotFound(t *testing.T) {
	store, _, _ := newTestStore(t, newFakeMirror())

	_, err := store.Update(context.Background(), enums.EntityMentors, 999, Record{"first_name": "Nadia"})
	require.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestUpdateReplaysAsInsertWhenMirrorRowVanished(t *testing.T) {
	mirror := newFakeMirror()
	store, database, _ := newTestStore(t, mirror)

	inserted, err := store.Insert(context.Background(), enums.EntityMentors, mentorPayload("amira@yln.org"))
	require.NoError(t, err)
	id, _ := inserted.ID()

	// Someone removed the row on the spreadsheet side.
	require.NoError(t, mirror.Delete(context.Background(), enums.EntityMentors, id))
	require.Equal(t, 0, mirror.rowCount(enums.EntityMentors))

	_, err = store.Update(context.Background(), enums.EntityMentors, id, Record{"first_name": "Nadia"})
	require.NoError(t, err)
	require.Equal(t, 1, mirror.rowCount(enums.EntityMentors))
	require.Empty(t, pendingWrites(t, database))
}

func TestDeleteRemovesBothCopies(t *testing.T) {
	mirror := newFakeMirror()
	store, database, _ := newTestStore(t, mirror)

	inserted, err := store.Insert(context.Background(), enums.EntityMentors, mentorPayload("amira@yln.org"))
	require.NoError(t, err)
	id, _ := inserted.ID()

	require.NoError(t, store.Delete(context.Background(), enums.EntityMentors, id))
	require.Equal(t, 0, mirror.rowCount(enums.EntityMentors))
	require.Empty(t, pendingWrites(t, database))

	records, err := store.Read(context.Background(), enums.EntityMentors, nil)
	require.NoError(t, err)
	require.Empty(t, records)

	err = store.Delete(context.Background(), enums.EntityMentors, id)
	require.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestReadPrefersTheMirror(t *testing.T) {
	mirror := newFakeMirror()
	store, _, _ := newTestStore(t, mirror)

	inserted, err := store.Insert(context.Background(), enums.EntityMentors, mentorPayload("amira@yln.org"))
	require.NoError(t, err)
	id, _ := inserted.ID()

	// Drift: the sheet holds an edit the local store never saw.
	require.NoError(t, mirror.Update(context.Background(), enums.EntityMentors, id, Record{
		"id":         float64(id),
		"first_name": "Edited On Sheet",
		"email":      "amira@yln.org",
	}))

	records, err := store.Read(context.Background(), enums.EntityMentors, nil)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "Edited On Sheet", records[0]["first_name"])
}

func TestReadFiltersRecords(t *testing.T) {
	mirror := newFakeMirror()
	store, _, _ := newTestStore(t, mirror)

	_, err := store.Insert(context.Background(), enums.EntityMentors, mentorPayload("amira@yln.org"))
	require.NoError(t, err)
	_, err = store.Insert(context.Background(), enums.EntityMentors, mentorPayload("tariq@yln.org"))
	require.NoError(t, err)

	records, err := store.Read(context.Background(), enums.EntityMentors, Filter{"email": "TARIQ@yln.org"})
	require.NoError(t, err)
	require.Len(t, records, 1)

	id, ok := records[0].ID()
	require.True(t, ok)
	require.Equal(t, int64(2), id)
}

func TestReadFallsBackToLocalOnMirrorError(t *testing.T) {
	mirror := newFakeMirror()
	store, _, _ := newTestStore(t, mirror)

	_, err := store.Insert(context.Background(), enums.EntityMentors, mentorPayload("amira@yln.org"))
	require.NoError(t, err)

	mirror.mu.Lock()
	mirror.readErr = errors.New("sheet unavailable")
	mirror.mu.Unlock()

	records, err := store.Read(context.Background(), enums.EntityMentors, nil)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "amira@yln.org", records[0]["email"])
}

func TestReadFallsBackToLocalOnShapeMismatch(t *testing.T) {
	mirror := newFakeMirror()
	store, _, _ := newTestStore(t, mirror)

	record, err := store.Insert(context.Background(), enums.EntityUsers, Record{
		"email":         "admin@mtn.com",
		"password_hash": "$2a$04$hash",
		"role":          "admin",
		"is_verified":   true,
	})
	require.NoError(t, err)
	id, _ := record.ID()

	// The sheet row lost its credential column.
	require.NoError(t, mirror.Update(context.Background(), enums.EntityUsers, id, Record{
		"id":            float64(id),
		"email":         "admin@mtn.com",
		"password_hash": "",
	}))

	records, err := store.Read(context.Background(), enums.EntityUsers, Filter{"email": "admin@mtn.com"})
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "$2a$04$hash", records[0]["password_hash"])
}

func TestReadFallsBackToLocalWhenMirrorLagsBehind(t *testing.T) {
	mirror := newFakeMirror()
	mirror.setInsertErr(errors.New("sheet unavailable"))
	store, database, _ := newTestStore(t, mirror)

	// The row commits locally; its mirror write sits in the queue.
	_, err := store.Insert(context.Background(), enums.EntityUsers, Record{
		"email":         "a@mtn.com",
		"password_hash": "$2a$04$hash",
		"role":          "mentee",
		"is_verified":   false,
	})
	require.NoError(t, err)
	require.Len(t, pendingWrites(t, database), 1)

	// The sheet recovers before the drain runs: healthy but still empty.
	mirror.setInsertErr(nil)
	require.Equal(t, 0, mirror.rowCount(enums.EntityUsers))

	records, err := store.Read(context.Background(), enums.EntityUsers, Filter{"email": "a@mtn.com"})
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "a@mtn.com", records[0]["email"])
}

func TestReadTrueMissIsEmptyOnBothStores(t *testing.T) {
	store, _, _ := newTestStore(t, newFakeMirror())

	records, err := store.Read(context.Background(), enums.EntityUsers, Filter{"email": "nobody@mtn.com"})
	require.NoError(t, err)
	require.Empty(t, records)
}

func TestDrainRetriesAndClearsTheQueue(t *testing.T) {
	mirror := newFakeMirror()
	mirror.setInsertErr(errors.New("sheet unavailable"))
	store, database, clock := newTestStore(t, mirror)

	_, err := store.Insert(context.Background(), enums.EntityMentors, mentorPayload("amira@yln.org"))
	require.NoError(t, err)
	require.Len(t, pendingWrites(t, database), 1)

	mirror.setInsertErr(nil)
	clock.Advance(61 * time.Second)

	result, err := store.DrainPendingWrites(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, result.Claimed)
	require.Equal(t, 1, result.Succeeded)
	require.Empty(t, pendingWrites(t, database))
	require.Equal(t, 1, mirror.rowCount(enums.EntityMentors))
}

func TestDrainSkipsWritesNotYetDue(t *testing.T) {
	mirror := newFakeMirror()
	mirror.setInsertErr(errors.New("sheet unavailable"))
	store, database, _ := newTestStore(t, mirror)

	_, err := store.Insert(context.Background(), enums.EntityMentors, mentorPayload("amira@yln.org"))
	require.NoError(t, err)

	mirror.setInsertErr(nil)

	// The first retry is a minute out and the clock has not moved.
	result, err := store.DrainPendingWrites(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, result.Claimed)
	require.Len(t, pendingWrites(t, database), 1)
}

func TestDrainBacksOffLinearlyAndParksAtTheCeiling(t *testing.T) {
	mirror := newFakeMirror()
	mirror.setInsertErr(errors.New("sheet unavailable"))
	store, database, clock := newTestStore(t, mirror)

	_, err := store.Insert(context.Background(), enums.EntityMentors, mentorPayload("amira@yln.org"))
	require.NoError(t, err)

	for attempt := 1; attempt <= 5; attempt++ {
		clock.Advance(time.Duration(attempt) * time.Minute)

		result, err := store.DrainPendingWrites(context.Background())
		require.NoError(t, err)
		require.Equal(t, 1, result.Claimed)

		writes := pendingWrites(t, database)
		require.Len(t, writes, 1)
		require.Equal(t, attempt, writes[0].Attempts)

		if attempt < 5 {
			require.Equal(t, 1, result.Rescheduled)
			require.Equal(t, enums.PendingWritePending, writes[0].Status)
			require.Equal(t, clock.Now().Add(time.Duration(attempt)*time.Minute).Unix(), writes[0].NextRetryAt.Unix())
		} else {
			require.Equal(t, 1, result.Failed)
			require.Equal(t, enums.PendingWriteFailed, writes[0].Status)
		}
	}

	// A failed row is terminal for the drain loop.
	clock.Advance(time.Hour)
	result, err := store.DrainPendingWrites(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, result.Claimed)
}

func TestDrainHonorsTheBatchLimit(t *testing.T) {
	mirror := newFakeMirror()
	mirror.setInsertErr(errors.New("sheet unavailable"))
	store, database, clock := newTestStore(t, mirror)

	for i := 0; i < 12; i++ {
		_, err := store.Insert(context.Background(), enums.EntityMentors, mentorPayload(fmt.Sprintf("mentor%d@yln.org", i)))
		require.NoError(t, err)
	}
	require.Len(t, pendingWrites(t, database), 12)

	mirror.setInsertErr(nil)
	clock.Advance(61 * time.Second)

	result, err := store.DrainPendingWrites(context.Background())
	require.NoError(t, err)
	require.Equal(t, 10, result.Claimed)
	require.Equal(t, 10, result.Succeeded)
	require.Len(t, pendingWrites(t, database), 2)
}

func TestDrainIsSingleFlight(t *testing.T) {
	store, _, _ := newTestStore(t, newFakeMirror())

	store.drainMu.Lock()
	defer store.drainMu.Unlock()

	result, err := store.DrainPendingWrites(context.Background())
	require.NoError(t, err)
	require.True(t, result.Skipped)
}

func TestResetFailedWritesRequeues(t *testing.T) {
	mirror := newFakeMirror()
	mirror.setInsertErr(errors.New("sheet unavailable"))
	store, database, clock := newTestStore(t, mirror)

	_, err := store.Insert(context.Background(), enums.EntityMentors, mentorPayload("amira@yln.org"))
	require.NoError(t, err)

	for attempt := 1; attempt <= 5; attempt++ {
		clock.Advance(time.Duration(attempt) * time.Minute)
		_, err := store.DrainPendingWrites(context.Background())
		require.NoError(t, err)
	}
	require.Equal(t, enums.PendingWriteFailed, pendingWrites(t, database)[0].Status)

	reset, err := store.ResetFailedWrites(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(1), reset)

	mirror.setInsertErr(nil)
	result, err := store.DrainPendingWrites(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, result.Succeeded)
	require.Empty(t, pendingWrites(t, database))
}

func TestQueueStatsCountsBacklog(t *testing.T) {
	mirror := newFakeMirror()
	mirror.setInsertErr(errors.New("sheet unavailable"))
	store, _, clock := newTestStore(t, mirror)

	_, err := store.Insert(context.Background(), enums.EntityMentors, mentorPayload("a@yln.org"))
	require.NoError(t, err)
	_, err = store.Insert(context.Background(), enums.EntityMentors, mentorPayload("b@yln.org"))
	require.NoError(t, err)

	stats, err := store.QueueStats(context.Background())
	require.NoError(t, err)
	require.Equal(t, QueueStats{Pending: 2, Failed: 0}, stats)

	// Exhaust one write's attempts.
	for attempt := 1; attempt <= 5; attempt++ {
		clock.Advance(time.Duration(attempt) * time.Minute)
		_, err := store.DrainPendingWrites(context.Background())
		require.NoError(t, err)
	}

	stats, err = store.QueueStats(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(2), stats.Pending+stats.Failed)
	require.GreaterOrEqual(t, stats.Failed, int64(1))
}
