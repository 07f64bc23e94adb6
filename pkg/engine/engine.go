package engine

import (
	"context"
	"fmt"
)

// Engine owns the per-client balances and the per-transaction records and
// applies incoming transactions one at a time, in input order. Neither map
// is ever aliased outside the engine; callers only see snapshot copies.
// The engine itself is not safe for concurrent use: callers that ingest
// from multiple goroutines must serialize access.
type Engine struct {
	balances     map[ClientID]*Balance
	transactions map[TransactionID]*record
	lockedPolicy LockedAccountPolicy
	logger       OperationLogger
}

// NewEngine wires an Engine with the lenient locked-account policy unless
// options say otherwise.
func NewEngine(options ...EngineOption) *Engine {
	ledgerEngine := &Engine{
		balances:     make(map[ClientID]*Balance),
		transactions: make(map[TransactionID]*record),
		lockedPolicy: LockedAccountsAcceptAll,
	}
	for _, option := range options {
		if option != nil {
			option(ledgerEngine)
		}
	}
	return ledgerEngine
}

// Accept validates and applies one transaction. Every failure is returned
// as a typed, recoverable error; the engine's state is unchanged whenever
// an error is returned. The context is forwarded to the operation logger
// only; the engine itself never blocks.
func (ledgerEngine *Engine) Accept(ctx context.Context, transaction Transaction) error {
	var (
		operation string
		amount    Amount
		err       error
	)
	switch typed := transaction.(type) {
	case Deposit:
		operation = operationDeposit
		amount, err = ledgerEngine.deposit(typed)
	case Withdrawal:
		operation = operationWithdrawal
		amount, err = ledgerEngine.withdraw(typed)
	case Dispute:
		operation = operationDispute
		amount, err = ledgerEngine.dispute(typed)
	case Resolve:
		operation = operationResolve
		amount, err = ledgerEngine.resolve(typed)
	case Chargeback:
		operation = operationChargeback
		amount, err = ledgerEngine.chargeback(typed)
	default:
		panic(fmt.Sprintf("unhandled transaction type %T", transaction))
	}
	ledgerEngine.logOperation(ctx, OperationLog{
		Operation:     operation,
		ClientID:      transaction.ClientID(),
		TransactionID: transaction.TransactionID(),
		Amount:        amount,
		Error:         err,
	})
	return err
}

func (ledgerEngine *Engine) deposit(transaction Deposit) (Amount, error) {
	if _, exists := ledgerEngine.transactions[transaction.TransactionID()]; exists {
		return 0, ErrDuplicateTransaction
	}
	balance := ledgerEngine.balanceFor(transaction.ClientID())
	if ledgerEngine.lockedPolicy == LockedAccountsRejectDebits && balance.Locked() {
		return 0, ErrAccountLocked
	}
	balance.deposit(transaction.Amount())
	ledgerEngine.insertRecord(&record{
		id:       transaction.TransactionID(),
		clientID: transaction.ClientID(),
		kind:     KindDeposit,
		amount:   transaction.Amount(),
		status:   StatusValid,
	})
	return transaction.Amount(), nil
}

func (ledgerEngine *Engine) withdraw(transaction Withdrawal) (Amount, error) {
	if _, exists := ledgerEngine.transactions[transaction.TransactionID()]; exists {
		return 0, ErrDuplicateTransaction
	}
	balance := ledgerEngine.balanceFor(transaction.ClientID())
	if ledgerEngine.lockedPolicy == LockedAccountsRejectDebits && balance.Locked() {
		return 0, ErrAccountLocked
	}
	// A failed withdrawal never happened: no record is stored.
	if err := balance.withdraw(transaction.Amount()); err != nil {
		return 0, err
	}
	ledgerEngine.insertRecord(&record{
		id:       transaction.TransactionID(),
		clientID: transaction.ClientID(),
		kind:     KindWithdrawal,
		amount:   transaction.Amount(),
		status:   StatusValid,
	})
	return transaction.Amount(), nil
}

func (ledgerEngine *Engine) dispute(transaction Dispute) (Amount, error) {
	disputed, exists := ledgerEngine.transactions[transaction.TransactionID()]
	if !exists {
		return 0, ErrDisputedTransactionNotFound
	}
	if disputed.clientID != transaction.ClientID() {
		return 0, ErrDisputeClientMismatch
	}
	if disputed.kind == KindWithdrawal {
		return 0, ErrDisputeWithdrawalNotSupported
	}
	if err := disputed.transition(StatusDisputed); err != nil {
		return 0, err
	}
	ledgerEngine.balanceFor(disputed.clientID).hold(disputed.amount)
	return disputed.amount, nil
}

func (ledgerEngine *Engine) resolve(transaction Resolve) (Amount, error) {
	disputed, exists := ledgerEngine.transactions[transaction.TransactionID()]
	if !exists {
		return 0, ErrDisputedTransactionNotFound
	}
	if disputed.clientID != transaction.ClientID() {
		return 0, ErrResolveClientMismatch
	}
	if err := disputed.transition(StatusResolved); err != nil {
		return 0, err
	}
	ledgerEngine.balanceFor(disputed.clientID).release(disputed.amount)
	return disputed.amount, nil
}

func (ledgerEngine *Engine) chargeback(transaction Chargeback) (Amount, error) {
	disputed, exists := ledgerEngine.transactions[transaction.TransactionID()]
	if !exists {
		return 0, ErrDisputedTransactionNotFound
	}
	if disputed.clientID != transaction.ClientID() {
		return 0, ErrChargebackClientMismatch
	}
	if err := disputed.transition(StatusChargeback); err != nil {
		return 0, err
	}
	ledgerEngine.balanceFor(disputed.clientID).chargeback(disputed.amount)
	return disputed.amount, nil
}

// balanceFor returns the client's balance, creating it on first reference.
func (ledgerEngine *Engine) balanceFor(clientID ClientID) *Balance {
	balance, exists := ledgerEngine.balances[clientID]
	if !exists {
		balance = NewBalance()
		ledgerEngine.balances[clientID] = balance
	}
	return balance
}

// insertRecord stores a new record. The duplicate check precedes every
// insert, so an occupied slot is an internal invariant violation.
func (ledgerEngine *Engine) insertRecord(stored *record) {
	if _, exists := ledgerEngine.transactions[stored.id]; exists {
		panic(fmt.Sprintf("duplicate transaction id %d slipped past the duplicate check", stored.id))
	}
	ledgerEngine.transactions[stored.id] = stored
}

// Balance returns a snapshot of one client's balance, reporting whether the
// client has been seen.
func (ledgerEngine *Engine) Balance(clientID ClientID) (ClientBalance, bool) {
	balance, exists := ledgerEngine.balances[clientID]
	if !exists {
		return ClientBalance{}, false
	}
	return balance.snapshot(clientID), true
}

// Balances returns a snapshot copy of every client's balance. No ordering
// guarantee is placed on the returned slice.
func (ledgerEngine *Engine) Balances() []ClientBalance {
	snapshots := make([]ClientBalance, 0, len(ledgerEngine.balances))
	for clientID, balance := range ledgerEngine.balances {
		snapshots = append(snapshots, balance.snapshot(clientID))
	}
	return snapshots
}

func (ledgerEngine *Engine) logOperation(ctx context.Context, entry OperationLog) {
	if ledgerEngine.logger == nil {
		return
	}
	if entry.Status == "" {
		if entry.Error != nil {
			entry.Status = operationStatusError
		} else {
			entry.Status = operationStatusOK
		}
	}
	ledgerEngine.logger.LogOperation(ctx, entry)
}
