// Package csvio decodes transaction records from tabular input and renders
// the final balance table. Decode failures are reported per record and
// never reach the engine.
package csvio

import (
	"errors"
	"fmt"
	"strings"

	"github.com/MarkoPoloResearchLab/payments/pkg/engine"
	"github.com/shopspring/decimal"
)

// Decode-time error values.
var (
	ErrMissingAmount = errors.New("amount is required but missing")
	ErrInvalidAmount = errors.New("amount is zero, negative, or malformed")
	ErrUnknownKind   = errors.New("unknown transaction kind")
)

const (
	kindDeposit    = "deposit"
	kindWithdrawal = "withdrawal"
	kindDispute    = "dispute"
	kindResolve    = "resolve"
	kindChargeback = "chargeback"

	amountFractionalDigits = 4
)

// Record is one decoded transaction input row. Amount holds the raw decimal
// text and is empty when the column was blank or absent.
type Record struct {
	Kind   string
	Client engine.ClientID
	Tx     engine.TransactionID
	Amount string
}

// Transaction converts the record into the engine's transaction value,
// validating that deposits and withdrawals carry a strictly positive amount.
func (inputRecord Record) Transaction() (engine.Transaction, error) {
	switch strings.TrimSpace(inputRecord.Kind) {
	case kindDeposit:
		amount, err := inputRecord.parseAmount()
		if err != nil {
			return nil, err
		}
		deposit, err := engine.NewDeposit(inputRecord.Tx, inputRecord.Client, amount)
		if err != nil {
			return nil, err
		}
		return deposit, nil
	case kindWithdrawal:
		amount, err := inputRecord.parseAmount()
		if err != nil {
			return nil, err
		}
		withdrawal, err := engine.NewWithdrawal(inputRecord.Tx, inputRecord.Client, amount)
		if err != nil {
			return nil, err
		}
		return withdrawal, nil
	case kindDispute:
		return engine.NewDispute(inputRecord.Tx, inputRecord.Client), nil
	case kindResolve:
		return engine.NewResolve(inputRecord.Tx, inputRecord.Client), nil
	case kindChargeback:
		return engine.NewChargeback(inputRecord.Tx, inputRecord.Client), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, inputRecord.Kind)
}

// parseAmount decodes the decimal text into base units, rounding to four
// fractional digits the way the input format allows at most four.
func (inputRecord Record) parseAmount() (engine.Amount, error) {
	trimmed := strings.TrimSpace(inputRecord.Amount)
	if trimmed == "" {
		return 0, ErrMissingAmount
	}
	parsed, err := decimal.NewFromString(trimmed)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}
	baseUnits := parsed.Shift(amountFractionalDigits).Round(0).IntPart()
	amount, err := engine.NewAmount(baseUnits)
	if err != nil {
		return 0, fmt.Errorf("%w: must be greater than zero", ErrInvalidAmount)
	}
	return amount, nil
}
