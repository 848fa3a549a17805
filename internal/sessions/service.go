package sessions

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/yln-platform/mentorship-backend/internal/dualwrite"
	"github.com/yln-platform/mentorship-backend/pkg/config"
	"github.com/yln-platform/mentorship-backend/pkg/enums"
	pkgerrors "github.com/yln-platform/mentorship-backend/pkg/errors"
)

const tokenBytes = 32

// Session is one opaque login token. Sessions are store entities like
// any other, so they are mirrored and survive restarts.
type Session struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Service manages login sessions.
type Service interface {
	Create(ctx context.Context, userID int64) (*Session, error)
	Validate(ctx context.Context, token string) (*Session, error)
	Destroy(ctx context.Context, token string) error
	DestroyForUser(ctx context.Context, userID int64) error
	PurgeExpired(ctx context.Context) (int, error)
}

type entityStore interface {
	Insert(ctx context.Context, entity enums.EntityType, payload dualwrite.Record) (dualwrite.Record, error)
	Delete(ctx context.Context, entity enums.EntityType, id int64) error
	Read(ctx context.Context, entity enums.EntityType, filter dualwrite.Filter) ([]dualwrite.Record, error)
}

type service struct {
	store entityStore
	ttl   time.Duration
	now   func() time.Time
}

// ServiceParams bundles the dependencies required to build a session service.
type ServiceParams struct {
	Store         entityStore
	SessionConfig config.SessionConfig

	// Now overrides the clock in tests.
	Now func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Store == nil {
		return nil, fmt.Errorf("entity store is required")
	}
	if params.SessionConfig.TTL <= 0 {
		return nil, fmt.Errorf("session ttl must be positive")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		store: params.Store,
		ttl:   params.SessionConfig.TTL,
		now:   now,
	}, nil
}

func (s *service) Create(ctx context.Context, userID int64) (*Session, error) {
	token, err := newToken()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate session token")
	}

	record, err := s.store.Insert(ctx, enums.EntitySessions, dualwrite.Record{
		"user_id":    userID,
		"token":      token,
		"expires_at": s.now().UTC().Add(s.ttl).Format(time.RFC3339Nano),
	})
	if err != nil {
		return nil, err
	}
	return fromRecord(record)
}

func (s *service) Validate(ctx context.Context, token string) (*Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "session token is required")
	}

	records, err := s.store.Read(ctx, enums.EntitySessions, dualwrite.Filter{"token": token})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "session not found")
	}

	session, err := fromRecord(records[0])
	if err != nil {
		return nil, err
	}
	if s.now().After(session.ExpiresAt) {
		// Expired tokens are removed eagerly so the mirror does not
		// accumulate dead rows.
		_ = s.store.Delete(ctx, enums.EntitySessions, session.ID)
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "session expired")
	}
	return session, nil
}

func (s *service) Destroy(ctx context.Context, token string) error {
	records, err := s.store.Read(ctx, enums.EntitySessions, dualwrite.Filter{"token": strings.TrimSpace(token)})
	if err != nil {
		return err
	}
	if len(records) == 0 {
		// Logout is idempotent.
		return nil
	}
	session, err := fromRecord(records[0])
	if err != nil {
		return err
	}
	return s.store.Delete(ctx, enums.EntitySessions, session.ID)
}

// DestroyForUser revokes every session of one account, e.g. after a
// password reset.
func (s *service) DestroyForUser(ctx context.Context, userID int64) error {
	records, err := s.store.Read(ctx, enums.EntitySessions, dualwrite.Filter{"user_id": userID})
	if err != nil {
		return err
	}
	for _, record := range records {
		session, err := fromRecord(record)
		if err != nil {
			continue
		}
		if err := s.store.Delete(ctx, enums.EntitySessions, session.ID); err != nil {
			return err
		}
	}
	return nil
}

func (s *service) PurgeExpired(ctx context.Context) (int, error) {
	records, err := s.store.Read(ctx, enums.EntitySessions, nil)
	if err != nil {
		return 0, err
	}

	purged := 0
	now := s.now()
	for _, record := range records {
		session, err := fromRecord(record)
		if err != nil {
			continue
		}
		if now.After(session.ExpiresAt) {
			if err := s.store.Delete(ctx, enums.EntitySessions, session.ID); err != nil {
				return purged, err
			}
			purged++
		}
	}
	return purged, nil
}

func fromRecord(record dualwrite.Record) (*Session, error) {
	id, ok := record.ID()
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "session record has no id")
	}
	userID, ok := record.Int64("user_id")
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "session record has no user id")
	}
	expiresAt, ok := record.Time("expires_at")
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "session record has no expiry")
	}
	return &Session{
		ID:        id,
		UserID:    userID,
		Token:     record.String("token"),
		ExpiresAt: expiresAt,
	}, nil
}

func newToken() (string, error) {
	bytes := make([]byte, tokenBytes)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("generating session token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}
