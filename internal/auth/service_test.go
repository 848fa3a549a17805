package auth

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/yln-platform/mentorship-backend/internal/sessions"
	"github.com/yln-platform/mentorship-backend/internal/users"
	"github.com/yln-platform/mentorship-backend/pkg/config"
	"github.com/yln-platform/mentorship-backend/pkg/enums"
	pkgerrors "github.com/yln-platform/mentorship-backend/pkg/errors"
	"github.com/yln-platform/mentorship-backend/pkg/security"
)

type stubUsers struct {
	byEmail map[string]*users.User
	nextID  int64

	markedVerified  []int64
	passwordUpdates map[int64]string
}

func newStubUsers() *stubUsers {
	return &stubUsers{
		byEmail:         map[string]*users.User{},
		passwordUpdates: map[int64]string{},
	}
}

func (s *stubUsers) Create(ctx context.Context, email, passwordHash string, role enums.Role, verified bool) (*users.User, error) {
	if _, ok := s.byEmail[email]; ok {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "an account with this email already exists")
	}
	s.nextID++
	user := &users.User{
		ID:           s.nextID,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
		IsVerified:   verified,
	}
	s.byEmail[email] = user
	return user, nil
}

func (s *stubUsers) FindByEmail(ctx context.Context, email string) (*users.User, error) {
	user, ok := s.byEmail[users.NormalizeEmail(email)]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	copy := *user
	return &copy, nil
}

func (s *stubUsers) MarkVerified(ctx context.Context, id int64) error {
	s.markedVerified = append(s.markedVerified, id)
	for _, user := range s.byEmail {
		if user.ID == id {
			user.IsVerified = true
		}
	}
	return nil
}

func (s *stubUsers) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	s.passwordUpdates[id] = passwordHash
	return nil
}

type stubSessions struct {
	created   []int64
	destroyed []string
	revoked   []int64
}

func (s *stubSessions) Create(ctx context.Context, userID int64) (*sessions.Session, error) {
	s.created = append(s.created, userID)
	return &sessions.Session{
		ID:        int64(len(s.created)),
		UserID:    userID,
		Token:     "session-token",
		ExpiresAt: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
	}, nil
}

func (s *stubSessions) Destroy(ctx context.Context, token string) error {
	s.destroyed = append(s.destroyed, token)
	return nil
}

func (s *stubSessions) DestroyForUser(ctx context.Context, userID int64) error {
	s.revoked = append(s.revoked, userID)
	return nil
}

type stubTokens struct {
	verification map[int64]string
	resets       map[string]int64

	consumeVerificationErr error
}

func newStubTokens() *stubTokens {
	return &stubTokens{
		verification: map[int64]string{},
		resets:       map[string]int64{},
	}
}

func (s *stubTokens) IssueVerification(ctx context.Context, userID int64, code string, expiresAt time.Time) error {
	s.verification[userID] = code
	return nil
}

func (s *stubTokens) ConsumeVerification(ctx context.Context, userID int64, code string, now time.Time) error {
	if s.consumeVerificationErr != nil {
		return s.consumeVerificationErr
	}
	if s.verification[userID] != code {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid verification code")
	}
	delete(s.verification, userID)
	return nil
}

func (s *stubTokens) IssueReset(ctx context.Context, userID int64, token string, expiresAt time.Time) error {
	s.resets[token] = userID
	return nil
}

func (s *stubTokens) ConsumeReset(ctx context.Context, token string, now time.Time) (int64, error) {
	userID, ok := s.resets[token]
	if !ok {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "invalid or expired reset token")
	}
	delete(s.resets, token)
	return userID, nil
}

type stubMailer struct {
	codes  map[string]string
	resets map[string]string
}

func newStubMailer() *stubMailer {
	return &stubMailer{codes: map[string]string{}, resets: map[string]string{}}
}

func (s *stubMailer) SendVerificationCode(ctx context.Context, to, code string) error {
	s.codes[to] = code
	return nil
}

func (s *stubMailer) SendPasswordReset(ctx context.Context, to, token string) error {
	s.resets[to] = token
	return nil
}

type testHarness struct {
	svc      Service
	users    *stubUsers
	sessions *stubSessions
	tokens   *stubTokens
	mailer   *stubMailer
}

func newTestHarness(t *testing.T) *testHarness {
	t.Helper()
	h := &testHarness{
		users:    newStubUsers(),
		sessions: &stubSessions{},
		tokens:   newStubTokens(),
		mailer:   newStubMailer(),
	}
	svc, err := NewService(ServiceParams{
		Users:          h.users,
		Sessions:       h.sessions,
		Tokens:         h.tokens,
		Mailer:         h.mailer,
		PasswordConfig: config.PasswordConfig{BcryptCost: 4},
		SessionConfig: config.SessionConfig{
			TTL:                  time.Hour,
			VerificationTokenTTL: time.Hour,
			ResetTokenTTL:        time.Hour,
		},
	})
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	h.svc = svc
	return h
}

func (h *testHarness) register(t *testing.T, email, password string) *users.User {
	t.Helper()
	resp, err := h.svc.Register(context.Background(), RegisterRequest{Email: email, Password: password})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	return resp.User
}

func TestRegisterRejectsForeignDomains(t *testing.T) {
	h := newTestHarness(t)

	_, err := h.svc.Register(context.Background(), RegisterRequest{
		Email:    "outsider@gmail.com",
		Password: "password123",
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if !strings.Contains(typed.Message(), "@mtn.com") {
		t.Fatalf("error should name the allowed domain: %s", typed.Message())
	}
}

func TestRegisterCreatesUnverifiedMenteeAndMailsCode(t *testing.T) {
	h := newTestHarness(t)

	user := h.register(t, "New.Joiner@MTN.com", "password123")

	if user.Email != "new.joiner@mtn.com" {
		t.Fatalf("expected normalized email, got %s", user.Email)
	}
	if user.Role != enums.RoleMentee {
		t.Fatalf("expected mentee role, got %s", user.Role)
	}
	if user.IsVerified {
		t.Fatalf("new accounts must start unverified")
	}

	code, ok := h.mailer.codes[user.Email]
	if !ok {
		t.Fatalf("expected a verification mail")
	}
	if len(code) != 6 {
		t.Fatalf("expected a 6 digit code, got %q", code)
	}
	if h.tokens.verification[user.ID] != code {
		t.Fatalf("mailed code should match the stored code")
	}
}

func TestVerifyEmailMarksVerifiedAndStartsSession(t *testing.T) {
	h := newTestHarness(t)
	user := h.register(t, "joiner@mtn.com", "password123")
	code := h.mailer.codes[user.Email]

	resp, err := h.svc.VerifyEmail(context.Background(), VerifyRequest{Email: user.Email, Code: code})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if resp.Token == "" {
		t.Fatalf("expected a session token")
	}
	if !resp.User.IsVerified {
		t.Fatalf("expected user to be verified")
	}
	if len(h.users.markedVerified) != 1 || h.users.markedVerified[0] != user.ID {
		t.Fatalf("expected MarkVerified for user %d", user.ID)
	}
}

func TestVerifyEmailUnknownAccountLooksLikeABadCode(t *testing.T) {
	h := newTestHarness(t)

	_, err := h.svc.VerifyEmail(context.Background(), VerifyRequest{Email: "ghost@mtn.com", Code: "123456"})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if typed.Message() != "invalid verification code" {
		t.Fatalf("unknown accounts must get the generic message, got %q", typed.Message())
	}
}

func TestLoginRejectsUnverifiedAccounts(t *testing.T) {
	h := newTestHarness(t)
	user := h.register(t, "pending@mtn.com", "password123")

	_, err := h.svc.Login(context.Background(), LoginRequest{Email: user.Email, Password: "password123"})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestLoginWrongPasswordIsUnauthorized(t *testing.T) {
	h := newTestHarness(t)
	user := h.register(t, "member@mtn.com", "password123")
	code := h.mailer.codes[user.Email]
	if _, err := h.svc.VerifyEmail(context.Background(), VerifyRequest{Email: user.Email, Code: code}); err != nil {
		t.Fatalf("verify: %v", err)
	}

	_, err := h.svc.Login(context.Background(), LoginRequest{Email: user.Email, Password: "wrong-password"})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if typed.Message() != invalidCredentialsMessage {
		t.Fatalf("wrong password and unknown account must share a message, got %q", typed.Message())
	}
}

func TestLoginUnknownAccountSharesTheCredentialsMessage(t *testing.T) {
	h := newTestHarness(t)

	_, err := h.svc.Login(context.Background(), LoginRequest{Email: "ghost@mtn.com", Password: "password123"})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if typed.Message() != invalidCredentialsMessage {
		t.Fatalf("unknown account must not be distinguishable, got %q", typed.Message())
	}
}

func TestResendVerificationStaysSilentForUnknownAccounts(t *testing.T) {
	h := newTestHarness(t)

	if err := h.svc.ResendVerification(context.Background(), ResendVerificationRequest{Email: "ghost@mtn.com"}); err != nil {
		t.Fatalf("resend should not reveal the account is missing: %v", err)
	}
	if len(h.mailer.codes) != 0 {
		t.Fatalf("no mail should go out for unknown accounts")
	}
}

func TestResendVerificationIssuesAFreshCode(t *testing.T) {
	h := newTestHarness(t)
	user := h.register(t, "joiner@mtn.com", "password123")
	first := h.mailer.codes[user.Email]

	if err := h.svc.ResendVerification(context.Background(), ResendVerificationRequest{Email: user.Email}); err != nil {
		t.Fatalf("resend: %v", err)
	}
	if h.tokens.verification[user.ID] == "" {
		t.Fatalf("expected a stored code after resend")
	}
	_ = first // codes are random; equality is possible but the store must hold the latest
	if h.mailer.codes[user.Email] != h.tokens.verification[user.ID] {
		t.Fatalf("mailed code must match the stored one")
	}
}

func TestForgotPasswordStaysSilentForUnknownAccounts(t *testing.T) {
	h := newTestHarness(t)

	if err := h.svc.ForgotPassword(context.Background(), ForgotPasswordRequest{Email: "ghost@mtn.com"}); err != nil {
		t.Fatalf("forgot password should not reveal the account is missing: %v", err)
	}
	if len(h.mailer.resets) != 0 {
		t.Fatalf("no reset mail should go out for unknown accounts")
	}
}

func TestResetPasswordUpdatesHashAndRevokesSessions(t *testing.T) {
	h := newTestHarness(t)
	user := h.register(t, "member@mtn.com", "oldpassword1")

	if err := h.svc.ForgotPassword(context.Background(), ForgotPasswordRequest{Email: user.Email}); err != nil {
		t.Fatalf("forgot password: %v", err)
	}
	token := h.mailer.resets[user.Email]
	if token == "" {
		t.Fatalf("expected a reset token")
	}

	if err := h.svc.ResetPassword(context.Background(), ResetPasswordRequest{Token: token, Password: "newpassword1"}); err != nil {
		t.Fatalf("reset password: %v", err)
	}

	newHash := h.users.passwordUpdates[user.ID]
	if newHash == "" {
		t.Fatalf("expected the password hash to change")
	}
	ok, err := security.VerifyPassword("newpassword1", newHash)
	if err != nil || !ok {
		t.Fatalf("new hash should verify the new password (ok=%v err=%v)", ok, err)
	}
	if len(h.sessions.revoked) != 1 || h.sessions.revoked[0] != user.ID {
		t.Fatalf("expected every session of user %d to be revoked", user.ID)
	}
}

func TestResetPasswordRejectsUnknownTokens(t *testing.T) {
	h := newTestHarness(t)

	err := h.svc.ResetPassword(context.Background(), ResetPasswordRequest{Token: "bogus", Password: "newpassword1"})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}
