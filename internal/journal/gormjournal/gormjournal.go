// Package gormjournal implements journaltypes.Recorder using GORM, for sqlite
// and postgres targets.
package gormjournal

import (
	"context"
	"time"

	"github.com/MarkoPoloResearchLab/payments/internal/journal/journaltypes"
	"github.com/MarkoPoloResearchLab/payments/pkg/engine"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	defaultMetadataJSON = "{}"

	errorOperationJournal = "journal"
	errorSubjectOperation = "operation"
	errorSubjectSnapshot  = "snapshot"
	errorCodeInsert       = "insert"
	errorCodeMigrate      = "migrate"
)

// Store implements journaltypes.Recorder using gorm.DB.
type Store struct {
	db *gorm.DB
}

// New returns a Store backed by gorm.DB.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Migrate creates or updates the journal tables.
func (store *Store) Migrate() error {
	if err := store.db.AutoMigrate(&OperationRow{}, &SnapshotRow{}); err != nil {
		return wrapJournalError(errorSubjectOperation, errorCodeMigrate, err)
	}
	return nil
}

// RecordOperation appends one operation row.
func (store *Store) RecordOperation(ctx context.Context, operation journaltypes.Operation) error {
	row := OperationRow{
		Operation:       operation.Operation,
		ClientID:        uint16(operation.ClientID),
		TransactionID:   uint32(operation.TransactionID),
		AmountBaseUnits: operation.AmountBaseUnits,
		Status:          operation.Status,
		ErrorText:       operation.ErrorText,
		Metadata:        datatypesJSON(operation.MetadataJSON),
		RecordedAt:      time.Unix(operation.RecordedUnixUTC, 0).UTC(),
	}
	if row.RecordedAt.IsZero() {
		row.RecordedAt = time.Now().UTC()
	}
	if err := store.db.WithContext(ctx).Create(&row).Error; err != nil {
		return wrapJournalError(errorSubjectOperation, errorCodeInsert, err)
	}
	return nil
}

// SaveSnapshot persists the per-client balances in one transaction.
func (store *Store) SaveSnapshot(ctx context.Context, snapshots []journaltypes.Snapshot) error {
	if len(snapshots) == 0 {
		return nil
	}
	rows := make([]SnapshotRow, 0, len(snapshots))
	for _, snapshot := range snapshots {
		rows = append(rows, SnapshotRow{
			ClientID:           uint16(snapshot.ClientID),
			AvailableBaseUnits: snapshot.AvailableBaseUnits,
			HeldBaseUnits:      snapshot.HeldBaseUnits,
			TotalBaseUnits:     snapshot.TotalBaseUnits,
			Locked:             snapshot.Locked,
			RecordedAt:         time.Unix(snapshot.RecordedUnixUTC, 0).UTC(),
		})
	}
	err := store.db.WithContext(ctx).Transaction(func(transaction *gorm.DB) error {
		return transaction.Create(&rows).Error
	})
	if err != nil {
		return wrapJournalError(errorSubjectSnapshot, errorCodeInsert, err)
	}
	return nil
}

func wrapJournalError(subject string, code string, err error) error {
	return engine.WrapError(errorOperationJournal, subject, code, err)
}

func datatypesJSON(raw string) datatypes.JSON {
	if raw == "" {
		return datatypes.JSON([]byte(defaultMetadataJSON))
	}
	return datatypes.JSON([]byte(raw))
}
