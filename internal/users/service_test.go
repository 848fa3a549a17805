package users

import (
	"context"
	"sync"
	"testing"

	"github.com/yln-platform/mentorship-backend/internal/dualwrite"
	"github.com/yln-platform/mentorship-backend/pkg/config"
	"github.com/yln-platform/mentorship-backend/pkg/enums"
	pkgerrors "github.com/yln-platform/mentorship-backend/pkg/errors"
	"github.com/yln-platform/mentorship-backend/pkg/security"
)

type fakeStore struct {
	mu     sync.Mutex
	rows   map[enums.EntityType][]dualwrite.Record
	nextID int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{rows: map[enums.EntityType][]dualwrite.Record{}}
}

func (f *fakeStore) Insert(ctx context.Context, entity enums.EntityType, payload dualwrite.Record) (dualwrite.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	record := dualwrite.Record{"id": f.nextID}
	for k, v := range payload {
		record[k] = v
	}
	f.rows[entity] = append(f.rows[entity], record)
	return record, nil
}

func (f *fakeStore) Update(ctx context.Context, entity enums.EntityType, id int64, changes dualwrite.Record) (dualwrite.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, record := range f.rows[entity] {
		if got, ok := record.ID(); ok && got == id {
			for k, v := range changes {
				record[k] = v
			}
			return record, nil
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "row not found")
}

func (f *fakeStore) Delete(ctx context.Context, entity enums.EntityType, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, record := range f.rows[entity] {
		if got, ok := record.ID(); ok && got == id {
			f.rows[entity] = append(f.rows[entity][:i], f.rows[entity][i+1:]...)
			return nil
		}
	}
	return pkgerrors.New(pkgerrors.CodeNotFound, "row not found")
}

func (f *fakeStore) Read(ctx context.Context, entity enums.EntityType, filter dualwrite.Filter) ([]dualwrite.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []dualwrite.Record
	for _, record := range f.rows[entity] {
		if record.Matches(filter) {
			out = append(out, record)
		}
	}
	return out, nil
}

func (f *fakeStore) count(entity enums.EntityType) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows[entity])
}

func newTestService(t *testing.T, store *fakeStore, admin config.AdminConfig) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Store:          store,
		PasswordConfig: config.PasswordConfig{BcryptCost: 4},
		AdminConfig:    admin,
	})
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	return svc
}

func TestCreateNormalizesEmailAndRejectsDuplicates(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(t, store, config.AdminConfig{})

	user, err := svc.Create(context.Background(), "  Mixed.Case@MTN.com ", "hash", enums.RoleMentee, false)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if user.Email != "mixed.case@mtn.com" {
		t.Fatalf("expected normalized email, got %s", user.Email)
	}

	_, err = svc.Create(context.Background(), "MIXED.CASE@mtn.com", "hash", enums.RoleMentee, false)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestCreateRejectsUnknownRoles(t *testing.T) {
	svc := newTestService(t, newFakeStore(), config.AdminConfig{})

	_, err := svc.Create(context.Background(), "a@mtn.com", "hash", enums.Role("superuser"), false)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestGetByIDMissingIsNotFound(t *testing.T) {
	svc := newTestService(t, newFakeStore(), config.AdminConfig{})

	_, err := svc.GetByID(context.Background(), 42)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDeleteRefusesWhileMenteeIsPaired(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(t, store, config.AdminConfig{})

	user, err := svc.Create(context.Background(), "paired@mtn.com", "hash", enums.RoleMentee, true)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	mentee, _ := store.Insert(context.Background(), enums.EntityMentees, dualwrite.Record{"user_id": user.ID})
	menteeID, _ := mentee.ID()
	store.Insert(context.Background(), enums.EntityMentorships, dualwrite.Record{"mentor_id": int64(1), "mentee_id": menteeID})

	err = svc.Delete(context.Background(), user.ID)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict while paired, got %v", err)
	}
	if store.count(enums.EntityUsers) != 1 {
		t.Fatalf("user must survive a refused delete")
	}
}

func TestDeleteRemovesProfileSessionsAndAccount(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(t, store, config.AdminConfig{})

	user, err := svc.Create(context.Background(), "leaver@mtn.com", "hash", enums.RoleMentee, true)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	store.Insert(context.Background(), enums.EntityMentees, dualwrite.Record{"user_id": user.ID})
	store.Insert(context.Background(), enums.EntitySessions, dualwrite.Record{"user_id": user.ID, "token": "x"})
	store.Insert(context.Background(), enums.EntitySessions, dualwrite.Record{"user_id": user.ID, "token": "y"})

	if err := svc.Delete(context.Background(), user.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if store.count(enums.EntityUsers) != 0 {
		t.Fatalf("expected the account to be gone")
	}
	if store.count(enums.EntityMentees) != 0 {
		t.Fatalf("expected the mentee profile to be gone")
	}
	if store.count(enums.EntitySessions) != 0 {
		t.Fatalf("expected the sessions to be gone")
	}
}

func TestSeedSuperAdminCreatesVerifiedAdminOnce(t *testing.T) {
	store := newFakeStore()
	admin := config.AdminConfig{Email: "boss@mtn.com", Password: "super-secret"}
	svc := newTestService(t, store, admin)

	if err := svc.SeedSuperAdmin(context.Background()); err != nil {
		t.Fatalf("seed: %v", err)
	}

	user, err := svc.FindByEmail(context.Background(), admin.Email)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if user.Role != enums.RoleAdmin {
		t.Fatalf("expected admin role, got %s", user.Role)
	}
	if !user.IsVerified {
		t.Fatalf("seeded admin must be verified")
	}
	ok, err := security.VerifyPassword(admin.Password, user.PasswordHash)
	if err != nil || !ok {
		t.Fatalf("stored hash should verify the configured password (ok=%v err=%v)", ok, err)
	}

	// Second boot is a no-op.
	if err := svc.SeedSuperAdmin(context.Background()); err != nil {
		t.Fatalf("second seed: %v", err)
	}
	if store.count(enums.EntityUsers) != 1 {
		t.Fatalf("seeding twice must not duplicate the account")
	}
}

func TestSeedSuperAdminSkipsWhenUnconfigured(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(t, store, config.AdminConfig{})

	if err := svc.SeedSuperAdmin(context.Background()); err != nil {
		t.Fatalf("seed without config should be a no-op: %v", err)
	}
	if store.count(enums.EntityUsers) != 0 {
		t.Fatalf("no account should be created without configuration")
	}
}
