package engine

import (
	"context"
	"errors"
	"testing"
)

func mustAmount(test *testing.T, raw int64) Amount {
	test.Helper()
	amount, err := NewAmount(raw)
	if err != nil {
		test.Fatalf("amount %d: %v", raw, err)
	}
	return amount
}

func mustDeposit(test *testing.T, id TransactionID, clientID ClientID, raw int64) Deposit {
	test.Helper()
	deposit, err := NewDeposit(id, clientID, mustAmount(test, raw))
	if err != nil {
		test.Fatalf("deposit: %v", err)
	}
	return deposit
}

func mustWithdrawal(test *testing.T, id TransactionID, clientID ClientID, raw int64) Withdrawal {
	test.Helper()
	withdrawal, err := NewWithdrawal(id, clientID, mustAmount(test, raw))
	if err != nil {
		test.Fatalf("withdrawal: %v", err)
	}
	return withdrawal
}

func mustAccept(test *testing.T, ledgerEngine *Engine, transaction Transaction) {
	test.Helper()
	if err := ledgerEngine.Accept(context.Background(), transaction); err != nil {
		test.Fatalf("accept %T tx=%d: %v", transaction, transaction.TransactionID(), err)
	}
}

func assertBalance(test *testing.T, ledgerEngine *Engine, clientID ClientID, available, held, total int64, locked bool) {
	test.Helper()
	balance, exists := ledgerEngine.Balance(clientID)
	if !exists {
		test.Fatalf("no balance for client %d", clientID)
	}
	if balance.Available.Int64() != available {
		test.Fatalf("client %d: expected available %d, got %d", clientID, available, balance.Available.Int64())
	}
	if balance.Held.Int64() != held {
		test.Fatalf("client %d: expected held %d, got %d", clientID, held, balance.Held.Int64())
	}
	if balance.Total.Int64() != total {
		test.Fatalf("client %d: expected total %d, got %d", clientID, total, balance.Total.Int64())
	}
	if balance.Locked != locked {
		test.Fatalf("client %d: expected locked=%v, got %v", clientID, locked, balance.Locked)
	}
}

func TestDepositCreditsBalanceAndStoresRecord(test *testing.T) {
	test.Parallel()
	ledgerEngine := NewEngine()

	mustAccept(test, ledgerEngine, mustDeposit(test, 1, 1, 100))
	assertBalance(test, ledgerEngine, 1, 100, 0, 100, false)

	stored := ledgerEngine.transactions[1]
	if stored.kind != KindDeposit || stored.clientID != 1 || stored.amount != 100 || stored.status != StatusValid {
		test.Fatalf("unexpected stored record: %+v", stored)
	}

	mustAccept(test, ledgerEngine, mustDeposit(test, 2, 1, 50))
	assertBalance(test, ledgerEngine, 1, 150, 0, 150, false)
}

func TestDepositsKeepClientsSeparate(test *testing.T) {
	test.Parallel()
	ledgerEngine := NewEngine()

	mustAccept(test, ledgerEngine, mustDeposit(test, 1, 1, 100))
	mustAccept(test, ledgerEngine, mustDeposit(test, 2, 2, 200))

	assertBalance(test, ledgerEngine, 1, 100, 0, 100, false)
	assertBalance(test, ledgerEngine, 2, 200, 0, 200, false)
}

func TestWithdrawalDebitsBalance(test *testing.T) {
	test.Parallel()
	ledgerEngine := NewEngine()

	mustAccept(test, ledgerEngine, mustDeposit(test, 1, 1, 100))
	mustAccept(test, ledgerEngine, mustWithdrawal(test, 2, 1, 50))

	assertBalance(test, ledgerEngine, 1, 50, 0, 50, false)
	if stored := ledgerEngine.transactions[2]; stored.kind != KindWithdrawal || stored.amount != 50 {
		test.Fatalf("unexpected stored record: %+v", stored)
	}
}

func TestWithdrawalOverdrawRejectedAndLeavesNoTrace(test *testing.T) {
	test.Parallel()
	ledgerEngine := NewEngine()

	mustAccept(test, ledgerEngine, mustDeposit(test, 1, 1, 100))

	err := ledgerEngine.Accept(context.Background(), mustWithdrawal(test, 2, 1, 101))
	if !errors.Is(err, ErrInsufficientFunds) {
		test.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	assertBalance(test, ledgerEngine, 1, 100, 0, 100, false)
	if _, exists := ledgerEngine.transactions[2]; exists {
		test.Fatalf("rejected withdrawal must not create a record")
	}
}

func TestDuplicateTransactionIDRejected(test *testing.T) {
	test.Parallel()
	ledgerEngine := NewEngine()

	mustAccept(test, ledgerEngine, mustDeposit(test, 1, 1, 100))

	err := ledgerEngine.Accept(context.Background(), mustDeposit(test, 1, 1, 100))
	if !errors.Is(err, ErrDuplicateTransaction) {
		test.Fatalf("expected ErrDuplicateTransaction, got %v", err)
	}
	assertBalance(test, ledgerEngine, 1, 100, 0, 100, false)

	err = ledgerEngine.Accept(context.Background(), mustWithdrawal(test, 1, 1, 10))
	if !errors.Is(err, ErrDuplicateTransaction) {
		test.Fatalf("expected ErrDuplicateTransaction for reused id, got %v", err)
	}
	assertBalance(test, ledgerEngine, 1, 100, 0, 100, false)
}

func TestDisputeUnknownTransaction(test *testing.T) {
	test.Parallel()
	ledgerEngine := NewEngine()

	err := ledgerEngine.Accept(context.Background(), NewDispute(1, 1))
	if !errors.Is(err, ErrDisputedTransactionNotFound) {
		test.Fatalf("expected ErrDisputedTransactionNotFound, got %v", err)
	}
}

func TestDisputeClientMismatchMutatesNothing(test *testing.T) {
	test.Parallel()
	ledgerEngine := NewEngine()

	mustAccept(test, ledgerEngine, mustDeposit(test, 1, 1, 100))

	err := ledgerEngine.Accept(context.Background(), NewDispute(1, 2))
	if !errors.Is(err, ErrDisputeClientMismatch) {
		test.Fatalf("expected ErrDisputeClientMismatch, got %v", err)
	}
	assertBalance(test, ledgerEngine, 1, 100, 0, 100, false)
	if ledgerEngine.transactions[1].status != StatusValid {
		test.Fatalf("mismatched dispute must not transition the record")
	}
}

func TestDisputeWithdrawalRejected(test *testing.T) {
	test.Parallel()
	ledgerEngine := NewEngine()

	mustAccept(test, ledgerEngine, mustDeposit(test, 1, 1, 100))
	mustAccept(test, ledgerEngine, mustWithdrawal(test, 2, 1, 100))

	err := ledgerEngine.Accept(context.Background(), NewDispute(2, 1))
	if !errors.Is(err, ErrDisputeWithdrawalNotSupported) {
		test.Fatalf("expected ErrDisputeWithdrawalNotSupported, got %v", err)
	}
	if ledgerEngine.transactions[2].status != StatusValid {
		test.Fatalf("rejected dispute must not transition the record")
	}
}

func TestDisputeHoldsDepositedAmount(test *testing.T) {
	test.Parallel()
	ledgerEngine := NewEngine()

	mustAccept(test, ledgerEngine, mustDeposit(test, 1, 1, 100))
	mustAccept(test, ledgerEngine, mustDeposit(test, 2, 1, 50))
	mustAccept(test, ledgerEngine, NewDispute(1, 1))

	if ledgerEngine.transactions[1].status != StatusDisputed {
		test.Fatalf("expected disputed status, got %s", ledgerEngine.transactions[1].status)
	}
	assertBalance(test, ledgerEngine, 1, 50, 100, 150, false)
}

func TestRepeatedDisputeRejected(test *testing.T) {
	test.Parallel()
	ledgerEngine := NewEngine()

	mustAccept(test, ledgerEngine, mustDeposit(test, 1, 1, 100))
	mustAccept(test, ledgerEngine, NewDispute(1, 1))

	err := ledgerEngine.Accept(context.Background(), NewDispute(1, 1))
	if !errors.Is(err, ErrInvalidStatusTransition) {
		test.Fatalf("expected invalid transition, got %v", err)
	}
	var transitionError StatusTransitionError
	if !errors.As(err, &transitionError) {
		test.Fatalf("expected StatusTransitionError, got %T", err)
	}
	if transitionError.From != StatusDisputed || transitionError.To != StatusDisputed {
		test.Fatalf("unexpected transition states: %+v", transitionError)
	}
	assertBalance(test, ledgerEngine, 1, 0, 100, 100, false)
}

func TestResolveReleasesHeldFunds(test *testing.T) {
	test.Parallel()
	ledgerEngine := NewEngine()

	mustAccept(test, ledgerEngine, mustDeposit(test, 1, 1, 100))
	mustAccept(test, ledgerEngine, mustDeposit(test, 2, 1, 50))
	mustAccept(test, ledgerEngine, NewDispute(1, 1))
	assertBalance(test, ledgerEngine, 1, 50, 100, 150, false)

	mustAccept(test, ledgerEngine, NewResolve(1, 1))

	if ledgerEngine.transactions[1].status != StatusResolved {
		test.Fatalf("expected resolved status, got %s", ledgerEngine.transactions[1].status)
	}
	assertBalance(test, ledgerEngine, 1, 150, 0, 150, false)
}

func TestResolveRequiresDisputedStatus(test *testing.T) {
	test.Parallel()
	ledgerEngine := NewEngine()

	mustAccept(test, ledgerEngine, mustDeposit(test, 1, 1, 100))

	err := ledgerEngine.Accept(context.Background(), NewResolve(1, 1))
	if !errors.Is(err, ErrInvalidStatusTransition) {
		test.Fatalf("expected invalid transition, got %v", err)
	}
	assertBalance(test, ledgerEngine, 1, 100, 0, 100, false)
}

func TestResolveClientMismatch(test *testing.T) {
	test.Parallel()
	ledgerEngine := NewEngine()

	mustAccept(test, ledgerEngine, mustDeposit(test, 1, 1, 100))
	mustAccept(test, ledgerEngine, NewDispute(1, 1))

	err := ledgerEngine.Accept(context.Background(), NewResolve(1, 2))
	if !errors.Is(err, ErrResolveClientMismatch) {
		test.Fatalf("expected ErrResolveClientMismatch, got %v", err)
	}
	assertBalance(test, ledgerEngine, 1, 0, 100, 100, false)
}

func TestChargebackWithdrawsHeldFundsAndLocks(test *testing.T) {
	test.Parallel()
	ledgerEngine := NewEngine()

	mustAccept(test, ledgerEngine, mustDeposit(test, 1, 1, 100))
	mustAccept(test, ledgerEngine, mustDeposit(test, 2, 1, 50))
	mustAccept(test, ledgerEngine, NewDispute(1, 1))
	mustAccept(test, ledgerEngine, NewChargeback(1, 1))

	if ledgerEngine.transactions[1].status != StatusChargeback {
		test.Fatalf("expected chargeback status, got %s", ledgerEngine.transactions[1].status)
	}
	assertBalance(test, ledgerEngine, 1, 50, 0, 50, true)
}

func TestChargebackClientMismatch(test *testing.T) {
	test.Parallel()
	ledgerEngine := NewEngine()

	mustAccept(test, ledgerEngine, mustDeposit(test, 1, 1, 100))
	mustAccept(test, ledgerEngine, NewDispute(1, 1))

	err := ledgerEngine.Accept(context.Background(), NewChargeback(1, 2))
	if !errors.Is(err, ErrChargebackClientMismatch) {
		test.Fatalf("expected ErrChargebackClientMismatch, got %v", err)
	}
	assertBalance(test, ledgerEngine, 1, 0, 100, 100, false)
}

func TestChargebackUnknownTransaction(test *testing.T) {
	test.Parallel()
	ledgerEngine := NewEngine()

	err := ledgerEngine.Accept(context.Background(), NewChargeback(1, 1))
	if !errors.Is(err, ErrDisputedTransactionNotFound) {
		test.Fatalf("expected ErrDisputedTransactionNotFound, got %v", err)
	}
}

// Disputing a deposit whose funds were already withdrawn drives available
// negative, and the following chargeback leaves total negative too: the
// client owes the difference.
func TestChargebackAfterSpendingDisputedFunds(test *testing.T) {
	test.Parallel()
	ledgerEngine := NewEngine()

	mustAccept(test, ledgerEngine, mustDeposit(test, 1, 1, 100))
	mustAccept(test, ledgerEngine, mustWithdrawal(test, 2, 1, 50))
	assertBalance(test, ledgerEngine, 1, 50, 0, 50, false)

	mustAccept(test, ledgerEngine, NewDispute(1, 1))
	assertBalance(test, ledgerEngine, 1, -50, 100, 50, false)

	mustAccept(test, ledgerEngine, NewChargeback(1, 1))
	assertBalance(test, ledgerEngine, 1, -50, 0, -50, true)
}

func TestLockedAccountStillAcceptsByDefault(test *testing.T) {
	test.Parallel()
	ledgerEngine := NewEngine()

	mustAccept(test, ledgerEngine, mustDeposit(test, 1, 1, 100))
	mustAccept(test, ledgerEngine, NewDispute(1, 1))
	mustAccept(test, ledgerEngine, NewChargeback(1, 1))

	mustAccept(test, ledgerEngine, mustDeposit(test, 2, 1, 30))
	assertBalance(test, ledgerEngine, 1, 30, 0, 30, true)
}

func TestLockedAccountRejectsDebitsUnderStrictPolicy(test *testing.T) {
	test.Parallel()
	ledgerEngine := NewEngine(WithLockedAccountPolicy(LockedAccountsRejectDebits))

	mustAccept(test, ledgerEngine, mustDeposit(test, 1, 1, 100))
	mustAccept(test, ledgerEngine, NewDispute(1, 1))
	mustAccept(test, ledgerEngine, NewChargeback(1, 1))

	err := ledgerEngine.Accept(context.Background(), mustDeposit(test, 2, 1, 30))
	if !errors.Is(err, ErrAccountLocked) {
		test.Fatalf("expected ErrAccountLocked for deposit, got %v", err)
	}
	err = ledgerEngine.Accept(context.Background(), mustWithdrawal(test, 3, 1, 10))
	if !errors.Is(err, ErrAccountLocked) {
		test.Fatalf("expected ErrAccountLocked for withdrawal, got %v", err)
	}
	assertBalance(test, ledgerEngine, 1, 0, 0, 0, true)
}

func TestStrictPolicyStillReportsDuplicatesFirst(test *testing.T) {
	test.Parallel()
	ledgerEngine := NewEngine(WithLockedAccountPolicy(LockedAccountsRejectDebits))

	mustAccept(test, ledgerEngine, mustDeposit(test, 1, 1, 100))
	mustAccept(test, ledgerEngine, NewDispute(1, 1))
	mustAccept(test, ledgerEngine, NewChargeback(1, 1))

	err := ledgerEngine.Accept(context.Background(), mustDeposit(test, 1, 1, 100))
	if !errors.Is(err, ErrDuplicateTransaction) {
		test.Fatalf("expected ErrDuplicateTransaction, got %v", err)
	}
}

func TestBalancesSnapshotIsIsolated(test *testing.T) {
	test.Parallel()
	ledgerEngine := NewEngine()

	mustAccept(test, ledgerEngine, mustDeposit(test, 1, 1, 100))

	snapshot := ledgerEngine.Balances()
	if len(snapshot) != 1 {
		test.Fatalf("expected one snapshot entry, got %d", len(snapshot))
	}
	snapshot[0].Available = 9999
	snapshot[0].Locked = true

	assertBalance(test, ledgerEngine, 1, 100, 0, 100, false)
}

func TestBalancesIdempotentWithoutIntermediateAccept(test *testing.T) {
	test.Parallel()
	ledgerEngine := NewEngine()

	mustAccept(test, ledgerEngine, mustDeposit(test, 1, 1, 100))
	mustAccept(test, ledgerEngine, mustDeposit(test, 2, 2, 200))

	first := ledgerEngine.Balances()
	second := ledgerEngine.Balances()
	if len(first) != len(second) {
		test.Fatalf("snapshot lengths differ: %d vs %d", len(first), len(second))
	}
	byClient := make(map[ClientID]ClientBalance, len(first))
	for _, balance := range first {
		byClient[balance.ClientID] = balance
	}
	for _, balance := range second {
		if byClient[balance.ClientID] != balance {
			test.Fatalf("snapshots diverge for client %d", balance.ClientID)
		}
	}
}

func TestBalanceUnknownClient(test *testing.T) {
	test.Parallel()
	ledgerEngine := NewEngine()

	if _, exists := ledgerEngine.Balance(42); exists {
		test.Fatalf("expected no balance for unseen client")
	}
}

func TestInsertRecordPanicsOnOccupiedSlot(test *testing.T) {
	test.Parallel()
	ledgerEngine := NewEngine()
	ledgerEngine.insertRecord(&record{id: 1, clientID: 1, kind: KindDeposit, amount: 1, status: StatusValid})

	defer func() {
		if recovered := recover(); recovered == nil {
			test.Fatalf("expected panic on duplicate insert")
		}
	}()
	ledgerEngine.insertRecord(&record{id: 1, clientID: 1, kind: KindDeposit, amount: 1, status: StatusValid})
}
