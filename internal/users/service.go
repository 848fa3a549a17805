package users

import (
	"context"
	"fmt"
	"strings"

	"github.com/yln-platform/mentorship-backend/internal/dualwrite"
	"github.com/yln-platform/mentorship-backend/pkg/config"
	"github.com/yln-platform/mentorship-backend/pkg/enums"
	pkgerrors "github.com/yln-platform/mentorship-backend/pkg/errors"
	"github.com/yln-platform/mentorship-backend/pkg/logger"
	"github.com/yln-platform/mentorship-backend/pkg/security"
)

// Service defines the account operations the auth and admin surfaces use.
type Service interface {
	Create(ctx context.Context, email string, passwordHash string, role enums.Role, verified bool) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id int64) (*User, error)
	List(ctx context.Context) ([]*User, error)
	MarkVerified(ctx context.Context, id int64) error
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	Delete(ctx context.Context, id int64) error
	SeedSuperAdmin(ctx context.Context) error
}

type entityStore interface {
	Insert(ctx context.Context, entity enums.EntityType, payload dualwrite.Record) (dualwrite.Record, error)
	Update(ctx context.Context, entity enums.EntityType, id int64, changes dualwrite.Record) (dualwrite.Record, error)
	Delete(ctx context.Context, entity enums.EntityType, id int64) error
	Read(ctx context.Context, entity enums.EntityType, filter dualwrite.Filter) ([]dualwrite.Record, error)
}

type service struct {
	store    entityStore
	password config.PasswordConfig
	admin    config.AdminConfig
	log      *logger.Logger
}

// ServiceParams bundles the dependencies required to build a users service.
type ServiceParams struct {
	Store          entityStore
	PasswordConfig config.PasswordConfig
	AdminConfig    config.AdminConfig
	Logger         *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.Store == nil {
		return nil, fmt.Errorf("entity store is required")
	}
	return &service{
		store:    params.Store,
		password: params.PasswordConfig,
		admin:    params.AdminConfig,
		log:      params.Logger,
	}, nil
}

// NormalizeEmail is the canonical form every account lookup uses.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *service) Create(ctx context.Context, email string, passwordHash string, role enums.Role, verified bool) (*User, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	if !role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid role %q", role))
	}

	if _, err := s.FindByEmail(ctx, email); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "an account with this email already exists")
	} else if pkgerrors.As(err) == nil || pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		return nil, err
	}

	record, err := s.store.Insert(ctx, enums.EntityUsers, dualwrite.Record{
		"email":         email,
		"password_hash": passwordHash,
		"role":          string(role),
		"is_verified":   verified,
	})
	if err != nil {
		return nil, err
	}
	return FromRecord(record)
}

func (s *service) FindByEmail(ctx context.Context, email string) (*User, error) {
	records, err := s.store.Read(ctx, enums.EntityUsers, dualwrite.Filter{"email": NormalizeEmail(email)})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	return FromRecord(records[0])
}

func (s *service) GetByID(ctx context.Context, id int64) (*User, error) {
	records, err := s.store.Read(ctx, enums.EntityUsers, dualwrite.Filter{"id": id})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	return FromRecord(records[0])
}

func (s *service) List(ctx context.Context) ([]*User, error) {
	records, err := s.store.Read(ctx, enums.EntityUsers, nil)
	if err != nil {
		return nil, err
	}
	out := make([]*User, 0, len(records))
	for _, record := range records {
		user, err := FromRecord(record)
		if err != nil {
			return nil, err
		}
		out = append(out, user)
	}
	return out, nil
}

func (s *service) MarkVerified(ctx context.Context, id int64) error {
	_, err := s.store.Update(ctx, enums.EntityUsers, id, dualwrite.Record{"is_verified": true})
	return err
}

func (s *service) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	if passwordHash == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "password hash is required")
	}
	_, err := s.store.Update(ctx, enums.EntityUsers, id, dualwrite.Record{"password_hash": passwordHash})
	return err
}

// Delete removes an account along with its mentee profile and sessions.
// Going row by row through the store keeps the mirror in step; a bare
// SQL cascade would leave orphan rows on the spreadsheet side.
func (s *service) Delete(ctx context.Context, id int64) error {
	menteeRows, err := s.store.Read(ctx, enums.EntityMentees, dualwrite.Filter{"user_id": id})
	if err != nil {
		return err
	}
	for _, mentee := range menteeRows {
		menteeID, ok := mentee.ID()
		if !ok {
			continue
		}
		pairings, err := s.store.Read(ctx, enums.EntityMentorships, dualwrite.Filter{"mentee_id": menteeID})
		if err != nil {
			return err
		}
		if len(pairings) > 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "user has an active mentorship, remove the pairing first")
		}
		if err := s.store.Delete(ctx, enums.EntityMentees, menteeID); err != nil {
			return err
		}
	}

	sessionRows, err := s.store.Read(ctx, enums.EntitySessions, dualwrite.Filter{"user_id": id})
	if err != nil {
		return err
	}
	for _, session := range sessionRows {
		sessionID, ok := session.ID()
		if !ok {
			continue
		}
		if err := s.store.Delete(ctx, enums.EntitySessions, sessionID); err != nil {
			return err
		}
	}

	return s.store.Delete(ctx, enums.EntityUsers, id)
}

// SeedSuperAdmin creates the configured admin account on boot when it
// does not exist yet. A missing configuration is not an error.
func (s *service) SeedSuperAdmin(ctx context.Context) error {
	email := NormalizeEmail(s.admin.Email)
	if email == "" || s.admin.Password == "" {
		return nil
	}

	if _, err := s.FindByEmail(ctx, email); err == nil {
		return nil
	} else if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		return err
	}

	hash, err := security.HashPassword(s.admin.Password, s.password)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash super admin password")
	}
	if _, err := s.Create(ctx, email, hash, enums.RoleAdmin, true); err != nil {
		return err
	}
	if s.log != nil {
		s.log.Info(s.log.WithUserID(ctx, email), "super admin account created")
	}
	return nil
}
