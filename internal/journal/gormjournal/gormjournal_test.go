package gormjournal

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/MarkoPoloResearchLab/payments/internal/journal/journaltypes"
)

func openTestStore(test *testing.T) *Store {
	test.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		test.Fatalf("open sqlite: %v", err)
	}
	store := New(db)
	if err := store.Migrate(); err != nil {
		test.Fatalf("migrate: %v", err)
	}
	return store
}

func TestStoreRecordsOperations(test *testing.T) {
	store := openTestStore(test)
	ctx := context.Background()

	err := store.RecordOperation(ctx, journaltypes.Operation{
		Operation:       "deposit",
		ClientID:        7,
		TransactionID:   42,
		AmountBaseUnits: 25_000,
		Status:          "ok",
		MetadataJSON:    `{"source":"csv"}`,
		RecordedUnixUTC: 1_700_000_000,
	})
	if err != nil {
		test.Fatalf("record operation: %v", err)
	}

	var rows []OperationRow
	if err := store.db.Find(&rows).Error; err != nil {
		test.Fatalf("query operations: %v", err)
	}
	if len(rows) != 1 {
		test.Fatalf("expected one row, got %d", len(rows))
	}
	row := rows[0]
	if row.OperationID == "" {
		test.Fatalf("operation id must be assigned on create")
	}
	if row.Operation != "deposit" || row.ClientID != 7 || row.TransactionID != 42 {
		test.Fatalf("unexpected row: %+v", row)
	}
	if row.AmountBaseUnits != 25_000 || row.Status != "ok" {
		test.Fatalf("unexpected row: %+v", row)
	}
	if string(row.Metadata) != `{"source":"csv"}` {
		test.Fatalf("unexpected metadata: %s", row.Metadata)
	}
}

func TestStoreDefaultsEmptyMetadata(test *testing.T) {
	store := openTestStore(test)

	err := store.RecordOperation(context.Background(), journaltypes.Operation{
		Operation:     "withdrawal",
		ClientID:      1,
		TransactionID: 1,
		Status:        "error",
		ErrorText:     "insufficient funds available",
	})
	if err != nil {
		test.Fatalf("record operation: %v", err)
	}

	var row OperationRow
	if err := store.db.First(&row).Error; err != nil {
		test.Fatalf("query operation: %v", err)
	}
	if string(row.Metadata) != "{}" {
		test.Fatalf("expected empty metadata object, got %s", row.Metadata)
	}
	if row.ErrorText != "insufficient funds available" {
		test.Fatalf("unexpected error text: %q", row.ErrorText)
	}
}

func TestStoreSavesSnapshotBatch(test *testing.T) {
	store := openTestStore(test)
	ctx := context.Background()

	snapshots := []journaltypes.Snapshot{
		{ClientID: 1, AvailableBaseUnits: 1_000_000, HeldBaseUnits: 15_000, TotalBaseUnits: 1_015_000, RecordedUnixUTC: 1_700_000_000},
		{ClientID: 2, AvailableBaseUnits: -500_000, TotalBaseUnits: -500_000, Locked: true, RecordedUnixUTC: 1_700_000_000},
	}
	if err := store.SaveSnapshot(ctx, snapshots); err != nil {
		test.Fatalf("save snapshot: %v", err)
	}

	var rows []SnapshotRow
	if err := store.db.Order("client_id").Find(&rows).Error; err != nil {
		test.Fatalf("query snapshots: %v", err)
	}
	if len(rows) != 2 {
		test.Fatalf("expected two rows, got %d", len(rows))
	}
	if rows[0].ClientID != 1 || rows[0].AvailableBaseUnits != 1_000_000 || rows[0].Locked {
		test.Fatalf("unexpected row: %+v", rows[0])
	}
	if rows[1].ClientID != 2 || rows[1].TotalBaseUnits != -500_000 || !rows[1].Locked {
		test.Fatalf("unexpected row: %+v", rows[1])
	}
}

func TestStoreSkipsEmptySnapshot(test *testing.T) {
	store := openTestStore(test)

	if err := store.SaveSnapshot(context.Background(), nil); err != nil {
		test.Fatalf("save snapshot: %v", err)
	}

	var count int64
	if err := store.db.Model(&SnapshotRow{}).Count(&count).Error; err != nil {
		test.Fatalf("count snapshots: %v", err)
	}
	if count != 0 {
		test.Fatalf("expected no rows, got %d", count)
	}
}
