// Package journaltypes holds the journal row types and the Recorder
// contract shared between the journal package and its gormjournal and
// pgjournal implementations.
package journaltypes

import (
	"context"

	"github.com/MarkoPoloResearchLab/payments/pkg/engine"
)

// Operation is one journal row describing an applied or rejected transaction.
type Operation struct {
	Operation       string
	ClientID        engine.ClientID
	TransactionID   engine.TransactionID
	AmountBaseUnits int64
	Status          string
	ErrorText       string
	MetadataJSON    string
	RecordedUnixUTC int64
}

// Snapshot is one persisted per-client balance.
type Snapshot struct {
	ClientID           engine.ClientID
	AvailableBaseUnits int64
	HeldBaseUnits      int64
	TotalBaseUnits     int64
	Locked             bool
	RecordedUnixUTC    int64
}

// Recorder persists operations and snapshots.
type Recorder interface {
	RecordOperation(ctx context.Context, operation Operation) error
	SaveSnapshot(ctx context.Context, snapshots []Snapshot) error
}
