// Package journal defines the optional persistence contract for accepted
// and rejected ledger operations and for end-of-run balance snapshots.
// gormjournal and pgjournal implement it.
package journal

import (
	"context"
	"fmt"
	"time"

	"github.com/MarkoPoloResearchLab/payments/internal/journal/journaltypes"
	"github.com/MarkoPoloResearchLab/payments/pkg/engine"
	"go.uber.org/zap"
)

// Operation is one journal row describing an applied or rejected transaction.
type Operation = journaltypes.Operation

// Snapshot is one persisted per-client balance.
type Snapshot = journaltypes.Snapshot

// Recorder persists operations and snapshots.
type Recorder = journaltypes.Recorder

// OperationRecorder adapts a Recorder to the engine's OperationLogger
// callback. Journal failures are logged and swallowed: persistence problems
// must never abort ingestion.
type OperationRecorder struct {
	recorder Recorder
	logger   *zap.Logger
	metadata string
	nowFn    func() int64
}

// NewOperationRecorder wires the adapter. The source label names the
// ingestion surface ("csv", "http") and is stored with every row.
func NewOperationRecorder(recorder Recorder, logger *zap.Logger, source string) *OperationRecorder {
	return &OperationRecorder{
		recorder: recorder,
		logger:   logger,
		metadata: fmt.Sprintf(`{"source":%q}`, source),
		nowFn:    func() int64 { return time.Now().UTC().Unix() },
	}
}

// LogOperation implements engine.OperationLogger.
func (operationRecorder *OperationRecorder) LogOperation(ctx context.Context, entry engine.OperationLog) {
	errorText := ""
	if entry.Error != nil {
		errorText = entry.Error.Error()
	}
	operation := Operation{
		Operation:       entry.Operation,
		ClientID:        entry.ClientID,
		TransactionID:   entry.TransactionID,
		AmountBaseUnits: entry.Amount.Int64(),
		Status:          entry.Status,
		ErrorText:       errorText,
		MetadataJSON:    operationRecorder.metadata,
		RecordedUnixUTC: operationRecorder.nowFn(),
	}
	if err := operationRecorder.recorder.RecordOperation(ctx, operation); err != nil {
		operationRecorder.logger.Warn("journal write failed",
			zap.Uint32("tx", uint32(entry.TransactionID)),
			zap.Error(err),
		)
	}
}

// SnapshotsFromBalances converts engine snapshots into journal rows sharing
// one recording timestamp.
func SnapshotsFromBalances(balances []engine.ClientBalance, recordedUnixUTC int64) []Snapshot {
	snapshots := make([]Snapshot, 0, len(balances))
	for _, balance := range balances {
		snapshots = append(snapshots, Snapshot{
			ClientID:           balance.ClientID,
			AvailableBaseUnits: balance.Available.Int64(),
			HeldBaseUnits:      balance.Held.Int64(),
			TotalBaseUnits:     balance.Total.Int64(),
			Locked:             balance.Locked,
			RecordedUnixUTC:    recordedUnixUTC,
		})
	}
	return snapshots
}
