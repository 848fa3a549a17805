package models

import (
	"encoding/json"
	"time"

	"github.com/yln-platform/mentorship-backend/pkg/enums"
)

// PendingWrite is a queued mutation that failed to reach the spreadsheet
// mirror. Exactly one row is created per failed mirror write; the row is
// deleted once the write finally lands.
type PendingWrite struct {
	ID             uint                     `gorm:"column:id;primaryKey;autoIncrement"`
	EntityType     enums.EntityType         `gorm:"column:entity_type;not null"`
	Operation      enums.WriteOperation     `gorm:"column:operation;not null"`
	Payload        json.RawMessage          `gorm:"column:payload_json;not null"`
	IdempotencyKey string                   `gorm:"column:idempotency_key;not null;uniqueIndex"`
	Status         enums.PendingWriteStatus `gorm:"column:status;not null;default:pending"`
	Attempts       int                      `gorm:"column:attempts;not null;default:0"`
	NextRetryAt    time.Time                `gorm:"column:next_retry_at;not null"`
	LastError      *string                  `gorm:"column:last_error"`
	CreatedAt      time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}

func (PendingWrite) TableName() string { return "pending_sheets_writes" }
