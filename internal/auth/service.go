package auth

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/yln-platform/mentorship-backend/internal/sessions"
	"github.com/yln-platform/mentorship-backend/internal/users"
	"github.com/yln-platform/mentorship-backend/pkg/config"
	"github.com/yln-platform/mentorship-backend/pkg/enums"
	pkgerrors "github.com/yln-platform/mentorship-backend/pkg/errors"
	"github.com/yln-platform/mentorship-backend/pkg/logger"
	"github.com/yln-platform/mentorship-backend/pkg/security"
)

const (
	invalidCredentialsMessage = "invalid credentials"

	// Registration is limited to staff addresses.
	allowedEmailDomain = "@mtn.com"
)

// Service defines the behavior needed by the auth controller.
type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error)
	VerifyEmail(ctx context.Context, req VerifyRequest) (*LoginResponse, error)
	ResendVerification(ctx context.Context, req ResendVerificationRequest) error
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)
	Logout(ctx context.Context, token string) error
	ForgotPassword(ctx context.Context, req ForgotPasswordRequest) error
	ResetPassword(ctx context.Context, req ResetPasswordRequest) error
}

type userService interface {
	Create(ctx context.Context, email string, passwordHash string, role enums.Role, verified bool) (*users.User, error)
	FindByEmail(ctx context.Context, email string) (*users.User, error)
	MarkVerified(ctx context.Context, id int64) error
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
}

type sessionService interface {
	Create(ctx context.Context, userID int64) (*sessions.Session, error)
	Destroy(ctx context.Context, token string) error
	DestroyForUser(ctx context.Context, userID int64) error
}

type tokenRepository interface {
	IssueVerification(ctx context.Context, userID int64, code string, expiresAt time.Time) error
	ConsumeVerification(ctx context.Context, userID int64, code string, now time.Time) error
	IssueReset(ctx context.Context, userID int64, token string, expiresAt time.Time) error
	ConsumeReset(ctx context.Context, token string, now time.Time) (int64, error)
}

type mailSender interface {
	SendVerificationCode(ctx context.Context, to string, code string) error
	SendPasswordReset(ctx context.Context, to string, token string) error
}

type service struct {
	users    userService
	sessions sessionService
	tokens   tokenRepository
	mailer   mailSender
	password config.PasswordConfig
	session  config.SessionConfig
	log      *logger.Logger
	now      func() time.Time
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	Users          userService
	Sessions       sessionService
	Tokens         tokenRepository
	Mailer         mailSender
	PasswordConfig config.PasswordConfig
	SessionConfig  config.SessionConfig
	Logger         *logger.Logger

	// Now overrides the clock in tests.
	Now func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Users == nil {
		return nil, fmt.Errorf("user service is required")
	}
	if params.Sessions == nil {
		return nil, fmt.Errorf("session service is required")
	}
	if params.Tokens == nil {
		return nil, fmt.Errorf("token repository is required")
	}
	if params.Mailer == nil {
		return nil, fmt.Errorf("mailer is required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		users:    params.Users,
		sessions: params.Sessions,
		tokens:   params.Tokens,
		mailer:   params.Mailer,
		password: params.PasswordConfig,
		session:  params.SessionConfig,
		log:      params.Logger,
		now:      now,
	}, nil
}

func (s *service) Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error) {
	email := users.NormalizeEmail(req.Email)
	if !strings.HasSuffix(email, allowedEmailDomain) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("registration is limited to %s addresses", allowedEmailDomain))
	}

	hash, err := security.HashPassword(req.Password, s.password)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	user, err := s.users.Create(ctx, email, hash, enums.RoleMentee, false)
	if err != nil {
		return nil, err
	}

	if err := s.issueVerificationCode(ctx, user); err != nil {
		return nil, err
	}

	return &RegisterResponse{
		User:    user,
		Message: "account created, check your email for a verification code",
	}, nil
}

func (s *service) VerifyEmail(ctx context.Context, req VerifyRequest) (*LoginResponse, error) {
	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid verification code")
		}
		return nil, err
	}

	if err := s.tokens.ConsumeVerification(ctx, user.ID, strings.TrimSpace(req.Code), s.now()); err != nil {
		return nil, err
	}
	if !user.IsVerified {
		if err := s.users.MarkVerified(ctx, user.ID); err != nil {
			return nil, err
		}
		user.IsVerified = true
	}

	return s.startSession(ctx, user)
}

func (s *service) ResendVerification(ctx context.Context, req ResendVerificationRequest) error {
	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		// No account enumeration on this surface.
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeNotFound {
			return nil
		}
		return err
	}
	if user.IsVerified {
		return nil
	}
	return s.issueVerificationCode(ctx, user)
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	user, err := s.authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}
	if !user.IsVerified {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "email is not verified")
	}
	return s.startSession(ctx, user)
}

func (s *service) Logout(ctx context.Context, token string) error {
	return s.sessions.Destroy(ctx, token)
}

func (s *service) ForgotPassword(ctx context.Context, req ForgotPasswordRequest) error {
	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeNotFound {
			return nil
		}
		return err
	}

	token, err := newResetToken()
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate reset token")
	}
	expiresAt := s.now().UTC().Add(s.session.ResetTokenTTL)
	if err := s.tokens.IssueReset(ctx, user.ID, token, expiresAt); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store reset token")
	}
	if err := s.mailer.SendPasswordReset(ctx, user.Email, token); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "send reset mail")
	}
	return nil
}

func (s *service) ResetPassword(ctx context.Context, req ResetPasswordRequest) error {
	userID, err := s.tokens.ConsumeReset(ctx, strings.TrimSpace(req.Token), s.now())
	if err != nil {
		return err
	}

	hash, err := security.HashPassword(req.Password, s.password)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		return err
	}

	// All existing logins are revoked once the password changes.
	return s.sessions.DestroyForUser(ctx, userID)
}

func (s *service) authenticate(ctx context.Context, email, password string) (*users.User, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, err
	}

	valid, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !valid {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	return user, nil
}

func (s *service) startSession(ctx context.Context, user *users.User) (*LoginResponse, error) {
	session, err := s.sessions.Create(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if s.log != nil {
		s.log.Info(s.log.WithUserID(ctx, user.Email), "session created")
	}
	return &LoginResponse{
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
		User:      user,
	}, nil
}

func (s *service) issueVerificationCode(ctx context.Context, user *users.User) error {
	code, err := newVerificationCode()
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate verification code")
	}
	expiresAt := s.now().UTC().Add(s.session.VerificationTokenTTL)
	if err := s.tokens.IssueVerification(ctx, user.ID, code, expiresAt); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store verification code")
	}
	if err := s.mailer.SendVerificationCode(ctx, user.Email, code); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "send verification mail")
	}
	return nil
}

// newVerificationCode returns a 6 digit numeric code.
func newVerificationCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func newResetToken() (string, error) {
	n, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return "", err
	}
	return n.Text(62), nil
}
