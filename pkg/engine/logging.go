package engine

import "context"

// EngineOption configures an Engine instance.
type EngineOption func(*Engine)

// OperationLogger records domain-level events emitted by Accept.
type OperationLogger interface {
	LogOperation(ctx context.Context, entry OperationLog)
}

// OperationLog describes one applied or rejected transaction. Amount is the
// amount moved by the operation: the supplied amount for deposits and
// withdrawals, the referenced record's stored amount for the dispute
// family, and zero when the operation failed before an amount was known.
type OperationLog struct {
	Operation     string
	ClientID      ClientID
	TransactionID TransactionID
	Amount        Amount
	Status        string
	Error         error
}

// WithOperationLogger wires a logger that receives callbacks for every operation.
func WithOperationLogger(logger OperationLogger) EngineOption {
	return func(ledgerEngine *Engine) {
		ledgerEngine.logger = logger
	}
}

// LockedAccountPolicy decides whether a locked account keeps accepting
// deposits and withdrawals. Dispute-family operations are never blocked: a
// locked account must still be able to close out an in-flight dispute.
type LockedAccountPolicy string

const (
	// LockedAccountsAcceptAll preserves the lenient behavior: locking is
	// recorded but has no ingestion effect.
	LockedAccountsAcceptAll LockedAccountPolicy = "accept"
	// LockedAccountsRejectDebits rejects deposits and withdrawals against a
	// locked client with ErrAccountLocked.
	LockedAccountsRejectDebits LockedAccountPolicy = "reject-debits"
)

// ParseLockedAccountPolicy validates a textual policy name.
func ParseLockedAccountPolicy(raw string) (LockedAccountPolicy, error) {
	switch LockedAccountPolicy(raw) {
	case LockedAccountsAcceptAll:
		return LockedAccountsAcceptAll, nil
	case LockedAccountsRejectDebits:
		return LockedAccountsRejectDebits, nil
	}
	return "", ErrInvalidLockedAccountPolicy
}

// WithLockedAccountPolicy selects the locked-account enforcement policy.
func WithLockedAccountPolicy(policy LockedAccountPolicy) EngineOption {
	return func(ledgerEngine *Engine) {
		ledgerEngine.lockedPolicy = policy
	}
}
