// Package pgjournal implements journaltypes.Recorder directly on a pgx
// connection pool.
package pgjournal

import (
	"context"

	"github.com/MarkoPoloResearchLab/payments/internal/journal/journaltypes"
	"github.com/MarkoPoloResearchLab/payments/pkg/engine"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	errorOperationJournal = "journal"
	errorSubjectOperation = "operation"
	errorSubjectSnapshot  = "snapshot"
	errorSubjectSchema    = "schema"
	errorCodeBegin        = "begin"
	errorCodeCommit       = "commit"
	errorCodeEnsure       = "ensure"
	errorCodeInsert       = "insert"

	sqlEnsureSchema = `
		create table if not exists ledger_operations (
			operation_id uuid primary key default gen_random_uuid(),
			operation text not null,
			client_id integer not null,
			transaction_id bigint not null,
			amount_base_units bigint not null,
			status text not null,
			error_text text not null default '',
			metadata jsonb not null default '{}',
			recorded_at timestamptz not null default now()
		);
		create index if not exists idx_operations_client_recorded
			on ledger_operations(client_id, recorded_at);
		create index if not exists idx_operations_tx
			on ledger_operations(transaction_id);
		create table if not exists balance_snapshots (
			snapshot_id uuid primary key default gen_random_uuid(),
			client_id integer not null,
			available_base_units bigint not null,
			held_base_units bigint not null,
			total_base_units bigint not null,
			locked boolean not null,
			recorded_at timestamptz not null default now()
		);
		create index if not exists idx_snapshots_client
			on balance_snapshots(client_id);
	`

	sqlInsertOperation = `
		insert into ledger_operations(
			operation, client_id, transaction_id, amount_base_units, status, error_text, metadata, recorded_at
		)
		values(
			$1, $2, $3, $4, $5, $6,
			coalesce(nullif($7,''),'{}')::jsonb,
			to_timestamp($8)
		)
	`

	sqlInsertSnapshot = `
		insert into balance_snapshots(
			client_id, available_base_units, held_base_units, total_base_units, locked, recorded_at
		)
		values($1, $2, $3, $4, $5, to_timestamp($6))
	`
)

// Store implements journaltypes.Recorder using a pgx pool (autocommit for single
// rows, an explicit transaction for snapshots).
type Store struct {
	pool *pgxpool.Pool
}

// New returns a Store backed by a pgx pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// EnsureSchema creates the journal tables when they do not exist yet.
func (store *Store) EnsureSchema(ctx context.Context) error {
	if _, err := store.pool.Exec(ctx, sqlEnsureSchema); err != nil {
		return wrapJournalError(errorSubjectSchema, errorCodeEnsure, err)
	}
	return nil
}

// RecordOperation appends one operation row.
func (store *Store) RecordOperation(ctx context.Context, operation journaltypes.Operation) error {
	_, err := store.pool.Exec(ctx, sqlInsertOperation,
		operation.Operation,
		int32(operation.ClientID),
		int64(operation.TransactionID),
		operation.AmountBaseUnits,
		operation.Status,
		operation.ErrorText,
		operation.MetadataJSON,
		operation.RecordedUnixUTC,
	)
	if err != nil {
		return wrapJournalError(errorSubjectOperation, errorCodeInsert, err)
	}
	return nil
}

// SaveSnapshot persists the per-client balances in one transaction.
func (store *Store) SaveSnapshot(ctx context.Context, snapshots []journaltypes.Snapshot) error {
	if len(snapshots) == 0 {
		return nil
	}
	tx, err := store.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return wrapJournalError(errorSubjectSnapshot, errorCodeBegin, err)
	}
	for _, snapshot := range snapshots {
		_, err := tx.Exec(ctx, sqlInsertSnapshot,
			int32(snapshot.ClientID),
			snapshot.AvailableBaseUnits,
			snapshot.HeldBaseUnits,
			snapshot.TotalBaseUnits,
			snapshot.Locked,
			snapshot.RecordedUnixUTC,
		)
		if err != nil {
			_ = tx.Rollback(ctx)
			return wrapJournalError(errorSubjectSnapshot, errorCodeInsert, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return wrapJournalError(errorSubjectSnapshot, errorCodeCommit, err)
	}
	return nil
}

func wrapJournalError(subject string, code string, err error) error {
	return engine.WrapError(errorOperationJournal, subject, code, err)
}
