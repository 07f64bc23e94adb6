package engine

// Balance holds the per-client accounting fields in base units. It applies
// pure arithmetic only; transaction legality is the engine's concern. Every
// mutation except chargeback preserves total == available + held.
type Balance struct {
	available Amount
	held      Amount
	total     Amount
	locked    bool
}

// NewBalance returns an empty, unlocked balance.
func NewBalance() *Balance {
	return &Balance{}
}

// Available returns the funds the client may withdraw or that may become held.
func (balance *Balance) Available() Amount {
	return balance.available
}

// Held returns the funds frozen pending dispute resolution.
func (balance *Balance) Held() Amount {
	return balance.held
}

// Total returns the sum of available and held funds, maintained incrementally.
func (balance *Balance) Total() Amount {
	return balance.total
}

// Locked reports whether a chargeback has locked the account.
func (balance *Balance) Locked() bool {
	return balance.locked
}

func (balance *Balance) deposit(amount Amount) {
	balance.available += amount
	balance.total += amount
}

func (balance *Balance) withdraw(amount Amount) error {
	if balance.available < amount {
		return ErrInsufficientFunds
	}
	balance.available -= amount
	balance.total -= amount
	return nil
}

// hold freezes a previously deposited amount. Availability is not
// re-checked: intervening withdrawals may already have spent the disputed
// funds, in which case available goes negative.
func (balance *Balance) hold(amount Amount) {
	balance.available -= amount
	balance.held += amount
}

func (balance *Balance) release(amount Amount) {
	balance.available += amount
	balance.held -= amount
}

// chargeback withdraws the disputed amount from held and total and locks
// the account. Available is untouched, so it may exceed total afterwards
// and total may go negative; the client then owes the difference.
func (balance *Balance) chargeback(amount Amount) {
	balance.total -= amount
	balance.held -= amount
	balance.locked = true
}

func (balance *Balance) snapshot(clientID ClientID) ClientBalance {
	return ClientBalance{
		ClientID:  clientID,
		Available: balance.available,
		Held:      balance.held,
		Total:     balance.total,
		Locked:    balance.locked,
	}
}
