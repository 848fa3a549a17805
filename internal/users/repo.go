package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/yln-platform/mentorship-backend/pkg/db/models"
	pkgerrors "github.com/yln-platform/mentorship-backend/pkg/errors"
)

// TokenRepository owns the single-use verification and reset tokens.
// Tokens are local-only rows: they never reach the spreadsheet mirror.
type TokenRepository struct {
	conn *gorm.DB
}

func NewTokenRepository(conn *gorm.DB) (*TokenRepository, error) {
	if conn == nil {
		return nil, fmt.Errorf("token repository requires a db connection")
	}
	return &TokenRepository{conn: conn}, nil
}

// IssueVerification replaces any outstanding verification codes for the
// user with a fresh one.
func (r *TokenRepository) IssueVerification(ctx context.Context, userID int64, code string, expiresAt time.Time) error {
	return r.conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&models.VerificationToken{}).Error; err != nil {
			return fmt.Errorf("clear verification tokens: %w", err)
		}
		token := &models.VerificationToken{
			UserID:    uint(userID),
			Token:     code,
			ExpiresAt: expiresAt,
		}
		if err := tx.Create(token).Error; err != nil {
			return fmt.Errorf("create verification token: %w", err)
		}
		return nil
	})
}

// ConsumeVerification burns a matching unused code for the user.
func (r *TokenRepository) ConsumeVerification(ctx context.Context, userID int64, code string, now time.Time) error {
	var token models.VerificationToken
	err := r.conn.WithContext(ctx).
		Where("user_id = ? AND token = ? AND used = ?", userID, code, false).
		First(&token).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeValidation, "invalid verification code")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup verification token")
	}
	if now.After(token.ExpiresAt) {
		return pkgerrors.New(pkgerrors.CodeValidation, "verification code expired")
	}

	err = r.conn.WithContext(ctx).
		Model(&models.VerificationToken{}).
		Where("id = ?", token.ID).
		Update("used", true).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "consume verification token")
	}
	return nil
}

// IssueReset replaces any outstanding reset tokens for the user.
func (r *TokenRepository) IssueReset(ctx context.Context, userID int64, token string, expiresAt time.Time) error {
	return r.conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&models.PasswordResetToken{}).Error; err != nil {
			return fmt.Errorf("clear reset tokens: %w", err)
		}
		reset := &models.PasswordResetToken{
			UserID:    uint(userID),
			Token:     token,
			ExpiresAt: expiresAt,
		}
		if err := tx.Create(reset).Error; err != nil {
			return fmt.Errorf("create reset token: %w", err)
		}
		return nil
	})
}

// ConsumeReset burns a reset token and returns the account it belongs to.
func (r *TokenRepository) ConsumeReset(ctx context.Context, token string, now time.Time) (int64, error) {
	var reset models.PasswordResetToken
	err := r.conn.WithContext(ctx).
		Where("token = ? AND used = ?", token, false).
		First(&reset).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, pkgerrors.New(pkgerrors.CodeValidation, "invalid reset token")
		}
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup reset token")
	}
	if now.After(reset.ExpiresAt) {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "reset token expired")
	}

	err = r.conn.WithContext(ctx).
		Model(&models.PasswordResetToken{}).
		Where("id = ?", reset.ID).
		Update("used", true).Error
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "consume reset token")
	}
	return int64(reset.UserID), nil
}
