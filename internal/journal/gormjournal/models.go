package gormjournal

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// OperationRow mirrors the ledger_operations table.
type OperationRow struct {
	OperationID     string         `gorm:"type:uuid;primaryKey"`
	Operation       string         `gorm:"not null"`
	ClientID        uint16         `gorm:"not null;index:idx_operations_client_recorded,priority:1"`
	TransactionID   uint32         `gorm:"not null;index:idx_operations_tx"`
	AmountBaseUnits int64          `gorm:"not null"`
	Status          string         `gorm:"not null"`
	ErrorText       string         `gorm:""`
	Metadata        datatypes.JSON `gorm:"type:jsonb;not null"`
	RecordedAt      time.Time      `gorm:"not null;index:idx_operations_client_recorded,priority:2"`
}

func (OperationRow) TableName() string { return "ledger_operations" }

func (row *OperationRow) BeforeCreate(tx *gorm.DB) error {
	if row.OperationID == "" {
		row.OperationID = uuid.NewString()
	}
	return nil
}

// SnapshotRow mirrors the balance_snapshots table.
type SnapshotRow struct {
	SnapshotID         string    `gorm:"type:uuid;primaryKey"`
	ClientID           uint16    `gorm:"not null;index:idx_snapshots_client"`
	AvailableBaseUnits int64     `gorm:"not null"`
	HeldBaseUnits      int64     `gorm:"not null"`
	TotalBaseUnits     int64     `gorm:"not null"`
	Locked             bool      `gorm:"not null"`
	RecordedAt         time.Time `gorm:"not null"`
}

func (SnapshotRow) TableName() string { return "balance_snapshots" }

func (row *SnapshotRow) BeforeCreate(tx *gorm.DB) error {
	if row.SnapshotID == "" {
		row.SnapshotID = uuid.NewString()
	}
	return nil
}
