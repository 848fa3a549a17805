package users

import (
	"context"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/yln-platform/mentorship-backend/pkg/db/models"
	"github.com/yln-platform/mentorship-backend/pkg/enums"
	pkgerrors "github.com/yln-platform/mentorship-backend/pkg/errors"
)

func newTestRepo(t *testing.T) (*TokenRepository, int64) {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&models.User{}, &models.VerificationToken{}, &models.PasswordResetToken{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	user := &models.User{Email: "tokens@mtn.com", PasswordHash: "hash", Role: enums.RoleMentee}
	if err := conn.Create(user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}

	repo, err := NewTokenRepository(conn)
	if err != nil {
		t.Fatalf("build repo: %v", err)
	}
	return repo, int64(user.ID)
}

func TestVerificationCodeRoundTrip(t *testing.T) {
	repo, userID := newTestRepo(t)
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	if err := repo.IssueVerification(context.Background(), userID, "123456", now.Add(time.Hour)); err != nil {
		t.Fatalf("issue: %v", err)
	}
	if err := repo.ConsumeVerification(context.Background(), userID, "123456", now); err != nil {
		t.Fatalf("consume: %v", err)
	}

	// Codes are single use.
	err := repo.ConsumeVerification(context.Background(), userID, "123456", now)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error on reuse, got %v", err)
	}
}

func TestVerificationCodeWrongCodeFails(t *testing.T) {
	repo, userID := newTestRepo(t)
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	if err := repo.IssueVerification(context.Background(), userID, "123456", now.Add(time.Hour)); err != nil {
		t.Fatalf("issue: %v", err)
	}

	err := repo.ConsumeVerification(context.Background(), userID, "654321", now)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestVerificationCodeExpires(t *testing.T) {
	repo, userID := newTestRepo(t)
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	if err := repo.IssueVerification(context.Background(), userID, "123456", now.Add(time.Minute)); err != nil {
		t.Fatalf("issue: %v", err)
	}

	err := repo.ConsumeVerification(context.Background(), userID, "123456", now.Add(2*time.Minute))
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error after expiry, got %v", err)
	}
}

func TestReissueReplacesTheOutstandingCode(t *testing.T) {
	repo, userID := newTestRepo(t)
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	if err := repo.IssueVerification(context.Background(), userID, "111111", now.Add(time.Hour)); err != nil {
		t.Fatalf("first issue: %v", err)
	}
	if err := repo.IssueVerification(context.Background(), userID, "222222", now.Add(time.Hour)); err != nil {
		t.Fatalf("second issue: %v", err)
	}

	if err := repo.ConsumeVerification(context.Background(), userID, "111111", now); err == nil {
		t.Fatalf("the replaced code must no longer work")
	}
	if err := repo.ConsumeVerification(context.Background(), userID, "222222", now); err != nil {
		t.Fatalf("latest code should work: %v", err)
	}
}

func TestResetTokenRoundTrip(t *testing.T) {
	repo, userID := newTestRepo(t)
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	if err := repo.IssueReset(context.Background(), userID, "reset-token", now.Add(time.Hour)); err != nil {
		t.Fatalf("issue: %v", err)
	}

	got, err := repo.ConsumeReset(context.Background(), "reset-token", now)
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	if got != userID {
		t.Fatalf("expected user %d, got %d", userID, got)
	}

	if _, err := repo.ConsumeReset(context.Background(), "reset-token", now); err == nil {
		t.Fatalf("reset tokens are single use")
	}
}

func TestResetTokenExpires(t *testing.T) {
	repo, userID := newTestRepo(t)
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	if err := repo.IssueReset(context.Background(), userID, "reset-token", now.Add(time.Minute)); err != nil {
		t.Fatalf("issue: %v", err)
	}

	_, err := repo.ConsumeReset(context.Background(), "reset-token", now.Add(2*time.Minute))
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error after expiry, got %v", err)
	}
}
