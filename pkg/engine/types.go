package engine

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ClientID identifies an account owner.
type ClientID uint16

// TransactionID identifies a transaction for the lifetime of the process.
// Identifiers are never reused.
type TransactionID uint32

// Amount is a fixed-point currency value counted in base units of 1/10000
// of a display unit. Balances may carry negative amounts; transaction
// amounts are validated strictly positive at construction.
type Amount int64

// baseUnitExponent is the number of fractional decimal digits one base unit carries.
const baseUnitExponent = 4

// NewAmount validates a transaction amount and ensures it is strictly positive.
func NewAmount(raw int64) (Amount, error) {
	if raw <= 0 {
		return 0, fmt.Errorf("%w: must be greater than zero", ErrAmountNotPositive)
	}
	return Amount(raw), nil
}

// Int64 returns the raw base-unit count.
func (amount Amount) Int64() int64 {
	return int64(amount)
}

// Decimal returns the amount in display units.
func (amount Amount) Decimal() decimal.Decimal {
	return decimal.New(int64(amount), -baseUnitExponent)
}

// String renders the amount in display units with up to four fractional
// digits, trailing zeros trimmed.
func (amount Amount) String() string {
	return amount.Decimal().String()
}

// TransactionKind enumerates the record kinds retained by the engine.
type TransactionKind string

const (
	KindDeposit    TransactionKind = "deposit"
	KindWithdrawal TransactionKind = "withdrawal"
)

// TransactionStatus tracks the dispute lifecycle of a stored record.
type TransactionStatus string

const (
	StatusValid      TransactionStatus = "valid"
	StatusDisputed   TransactionStatus = "disputed"
	StatusResolved   TransactionStatus = "resolved"
	StatusChargeback TransactionStatus = "chargeback"
)

// statusTransitions is the only authority on legal status moves.
var statusTransitions = map[TransactionStatus][]TransactionStatus{
	StatusValid:    {StatusDisputed},
	StatusDisputed: {StatusResolved, StatusChargeback},
}

func validateStatusTransition(from TransactionStatus, to TransactionStatus) error {
	for _, allowed := range statusTransitions[from] {
		if allowed == to {
			return nil
		}
	}
	return StatusTransitionError{From: from, To: to}
}

// Transaction is the closed set of inputs accepted by the engine. Deposit
// and Withdrawal carry an amount; the dispute-family kinds reference a
// stored record by id and carry none.
type Transaction interface {
	TransactionID() TransactionID
	ClientID() ClientID
	sealedTransaction()
}

// Deposit credits a client's available funds.
type Deposit struct {
	id       TransactionID
	clientID ClientID
	amount   Amount
}

// NewDeposit validates and constructs a deposit.
func NewDeposit(id TransactionID, clientID ClientID, amount Amount) (Deposit, error) {
	if amount <= 0 {
		return Deposit{}, fmt.Errorf("%w: deposit amount must be greater than zero", ErrAmountNotPositive)
	}
	return Deposit{id: id, clientID: clientID, amount: amount}, nil
}

func (transaction Deposit) TransactionID() TransactionID { return transaction.id }
func (transaction Deposit) ClientID() ClientID           { return transaction.clientID }

// Amount returns the deposited base units.
func (transaction Deposit) Amount() Amount { return transaction.amount }

func (Deposit) sealedTransaction() {}

// Withdrawal debits a client's available funds.
type Withdrawal struct {
	id       TransactionID
	clientID ClientID
	amount   Amount
}

// NewWithdrawal validates and constructs a withdrawal.
func NewWithdrawal(id TransactionID, clientID ClientID, amount Amount) (Withdrawal, error) {
	if amount <= 0 {
		return Withdrawal{}, fmt.Errorf("%w: withdrawal amount must be greater than zero", ErrAmountNotPositive)
	}
	return Withdrawal{id: id, clientID: clientID, amount: amount}, nil
}

func (transaction Withdrawal) TransactionID() TransactionID { return transaction.id }
func (transaction Withdrawal) ClientID() ClientID           { return transaction.clientID }

// Amount returns the withdrawn base units.
func (transaction Withdrawal) Amount() Amount { return transaction.amount }

func (Withdrawal) sealedTransaction() {}

// Dispute opens a claim against a stored deposit.
type Dispute struct {
	id       TransactionID
	clientID ClientID
}

// NewDispute constructs a dispute referencing a stored record.
func NewDispute(id TransactionID, clientID ClientID) Dispute {
	return Dispute{id: id, clientID: clientID}
}

func (transaction Dispute) TransactionID() TransactionID { return transaction.id }
func (transaction Dispute) ClientID() ClientID           { return transaction.clientID }
func (Dispute) sealedTransaction()                       {}

// Resolve settles a dispute in the client's favor, releasing held funds.
type Resolve struct {
	id       TransactionID
	clientID ClientID
}

// NewResolve constructs a resolve referencing a disputed record.
func NewResolve(id TransactionID, clientID ClientID) Resolve {
	return Resolve{id: id, clientID: clientID}
}

func (transaction Resolve) TransactionID() TransactionID { return transaction.id }
func (transaction Resolve) ClientID() ClientID           { return transaction.clientID }
func (Resolve) sealedTransaction()                       {}

// Chargeback settles a dispute against the client, withdrawing held funds
// and locking the account.
type Chargeback struct {
	id       TransactionID
	clientID ClientID
}

// NewChargeback constructs a chargeback referencing a disputed record.
func NewChargeback(id TransactionID, clientID ClientID) Chargeback {
	return Chargeback{id: id, clientID: clientID}
}

func (transaction Chargeback) TransactionID() TransactionID { return transaction.id }
func (transaction Chargeback) ClientID() ClientID           { return transaction.clientID }
func (Chargeback) sealedTransaction()                       {}

// record is the stored state of a deposit or withdrawal.
type record struct {
	id       TransactionID
	clientID ClientID
	kind     TransactionKind
	amount   Amount
	status   TransactionStatus
}

func (stored *record) transition(to TransactionStatus) error {
	if err := validateStatusTransition(stored.status, to); err != nil {
		return err
	}
	stored.status = to
	return nil
}

// ClientBalance is an immutable snapshot of one client's balance.
type ClientBalance struct {
	ClientID  ClientID
	Available Amount
	Held      Amount
	Total     Amount
	Locked    bool
}
