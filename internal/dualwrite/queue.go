package dualwrite

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yln-platform/mentorship-backend/pkg/db/models"
	"github.com/yln-platform/mentorship-backend/pkg/enums"
)

// queueRepository owns the pending_sheets_writes table. Rows live only
// while a mirror write is outstanding; success deletes them.
type queueRepository struct {
	conn *gorm.DB
}

func newQueueRepository(conn *gorm.DB) *queueRepository {
	return &queueRepository{conn: conn}
}

// Enqueue records one failed mirror write. The idempotency key is minted
// here so that a crash between mirror call and enqueue can never produce
// two rows for the same failure.
func (r *queueRepository) Enqueue(ctx context.Context, entity enums.EntityType, op enums.WriteOperation, payload Record, nextRetryAt time.Time, cause error) (*models.PendingWrite, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode pending write payload: %w", err)
	}

	write := &models.PendingWrite{
		EntityType:     entity,
		Operation:      op,
		Payload:        raw,
		IdempotencyKey: uuid.NewString(),
		Status:         enums.PendingWritePending,
		Attempts:       0,
		NextRetryAt:    nextRetryAt,
		LastError:      errorText(cause),
	}
	if err := r.conn.WithContext(ctx).Create(write).Error; err != nil {
		return nil, fmt.Errorf("enqueue pending write: %w", err)
	}
	return write, nil
}

// FetchDue returns up to limit pending writes whose retry time has
// arrived, oldest first.
func (r *queueRepository) FetchDue(ctx context.Context, now time.Time, limit int) ([]models.PendingWrite, error) {
	var writes []models.PendingWrite
	err := r.conn.WithContext(ctx).
		Where("status = ? AND next_retry_at <= ?", enums.PendingWritePending, now).
		Order("created_at ASC, id ASC").
		Limit(limit).
		Find(&writes).Error
	if err != nil {
		return nil, fmt.Errorf("fetch due pending writes: %w", err)
	}
	return writes, nil
}

// MarkProcessing claims a pending row. The status guard in the WHERE
// clause makes the claim race-safe: a second claimant sees zero rows
// affected and skips the write.
func (r *queueRepository) MarkProcessing(ctx context.Context, id uint) (bool, error) {
	res := r.conn.WithContext(ctx).
		Model(&models.PendingWrite{}).
		Where("id = ? AND status = ?", id, enums.PendingWritePending).
		Update("status", enums.PendingWriteProcessing)
	if res.Error != nil {
		return false, fmt.Errorf("mark pending write processing: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// Reschedule returns a row to pending with its attempt counter bumped
// and the next retry pushed out.
func (r *queueRepository) Reschedule(ctx context.Context, id uint, attempts int, nextRetryAt time.Time, cause error) error {
	err := r.conn.WithContext(ctx).
		Model(&models.PendingWrite{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":        enums.PendingWritePending,
			"attempts":      attempts,
			"next_retry_at": nextRetryAt,
			"last_error":    errorText(cause),
		}).Error
	if err != nil {
		return fmt.Errorf("reschedule pending write: %w", err)
	}
	return nil
}

// MarkFailed parks a row terminally after the attempt ceiling is hit.
// Failed rows stay in the table for operator inspection and backfill.
func (r *queueRepository) MarkFailed(ctx context.Context, id uint, attempts int, cause error) error {
	err := r.conn.WithContext(ctx).
		Model(&models.PendingWrite{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     enums.PendingWriteFailed,
			"attempts":   attempts,
			"last_error": errorText(cause),
		}).Error
	if err != nil {
		return fmt.Errorf("mark pending write failed: %w", err)
	}
	return nil
}

// Delete removes a row once its write has landed on the mirror.
func (r *queueRepository) Delete(ctx context.Context, id uint) error {
	if err := r.conn.WithContext(ctx).Delete(&models.PendingWrite{}, id).Error; err != nil {
		return fmt.Errorf("delete pending write: %w", err)
	}
	return nil
}

// ResetFailed flips failed rows back to pending so a backfill pass can
// pick them up again.
func (r *queueRepository) ResetFailed(ctx context.Context, now time.Time) (int64, error) {
	res := r.conn.WithContext(ctx).
		Model(&models.PendingWrite{}).
		Where("status = ?", enums.PendingWriteFailed).
		Updates(map[string]any{
			"status":        enums.PendingWritePending,
			"attempts":      0,
			"next_retry_at": now,
		})
	if res.Error != nil {
		return 0, fmt.Errorf("reset failed pending writes: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// Counts reports the pending and failed backlog sizes.
func (r *queueRepository) Counts(ctx context.Context) (pending int64, failed int64, err error) {
	if err = r.conn.WithContext(ctx).Model(&models.PendingWrite{}).
		Where("status = ?", enums.PendingWritePending).Count(&pending).Error; err != nil {
		return 0, 0, fmt.Errorf("count pending writes: %w", err)
	}
	if err = r.conn.WithContext(ctx).Model(&models.PendingWrite{}).
		Where("status = ?", enums.PendingWriteFailed).Count(&failed).Error; err != nil {
		return 0, 0, fmt.Errorf("count failed writes: %w", err)
	}
	return pending, failed, nil
}

func errorText(err error) *string {
	if err == nil {
		return nil
	}
	text := err.Error()
	if len(text) > 1024 {
		text = text[:1024]
	}
	return &text
}
