package feetoken

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
)

var (
	// ErrNotOwner guards the owner-only administrative surface.
	ErrNotOwner = errors.New("feetoken: restricted to the ledger owner")
	// ErrNotCollector rejects fee collection from unregistered contracts.
	ErrNotCollector = errors.New("feetoken: caller is not a registered fee collector")
	// ErrInsufficientBalance fails a debit when the signer cannot cover it.
	ErrInsufficientBalance = errors.New("feetoken: insufficient balance")
	// ErrNotRegistered fails a debit for signers the ledger has never seen.
	ErrNotRegistered = errors.New("feetoken: account is not registered")
)

// CollectFeeMsg is the cross-contract request debiting the transaction signer
// in favour of the collecting contract.
type CollectFeeMsg struct {
	Collector string
	Amount    *big.Int
}

// Ledger is the external fee-token collaborator: it holds caller balances and
// debits fees on request from registered collector contracts. Transfer, mint
// and burn mechanics beyond what fee collection needs are out of scope.
type Ledger struct {
	owner      string
	balances   map[string]*big.Int
	collectors map[string]bool
}

// NewLedger creates a fee-token ledger crediting the full initial supply to
// the owner.
func NewLedger(owner string, totalSupply *big.Int) *Ledger {
	supply := big.NewInt(0)
	if totalSupply != nil {
		supply = new(big.Int).Set(totalSupply)
	}
	return &Ledger{
		owner:      owner,
		balances:   map[string]*big.Int{owner: supply},
		collectors: make(map[string]bool),
	}
}

// Receive dispatches cross-contract messages delivered by the host.
func (l *Ledger) Receive(signer string, msg any) (any, error) {
	switch m := msg.(type) {
	case CollectFeeMsg:
		return nil, l.CollectFee(m.Collector, signer, m.Amount)
	default:
		return nil, fmt.Errorf("feetoken: unsupported message %T", msg)
	}
}

// CollectFee debits amount from the signer and credits the collector. It
// fails when the collector is not registered, the signer is unknown, or the
// signer's balance cannot cover the fee.
func (l *Ledger) CollectFee(collector, signer string, amount *big.Int) error {
	if !l.collectors[collector] {
		return ErrNotCollector
	}
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("feetoken: invalid fee amount")
	}
	balance, ok := l.balances[signer]
	if !ok {
		return ErrNotRegistered
	}
	if balance.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	balance.Sub(balance, amount)
	collectorBalance, ok := l.balances[collector]
	if !ok {
		collectorBalance = big.NewInt(0)
		l.balances[collector] = collectorBalance
	}
	collectorBalance.Add(collectorBalance, amount)
	return nil
}

// AddFeeCollector registers a contract allowed to collect fees. Owner only.
func (l *Ledger) AddFeeCollector(caller, account string) error {
	if caller != l.owner {
		return ErrNotOwner
	}
	if l.collectors[account] {
		return fmt.Errorf("feetoken: account is already registered as a fee collector")
	}
	l.collectors[account] = true
	return nil
}

// RemoveFeeCollector drops a registered collector. Owner only.
func (l *Ledger) RemoveFeeCollector(caller, account string) error {
	if caller != l.owner {
		return ErrNotOwner
	}
	if !l.collectors[account] {
		return fmt.Errorf("feetoken: account is not registered as a fee collector")
	}
	delete(l.collectors, account)
	return nil
}

// Register opens a zero-balance account for the given identifier.
func (l *Ledger) Register(account string) {
	account = strings.TrimSpace(account)
	if account == "" {
		return
	}
	if _, ok := l.balances[account]; !ok {
		l.balances[account] = big.NewInt(0)
	}
}

// Mint credits freshly issued tokens to an account. Owner only.
func (l *Ledger) Mint(caller, account string, amount *big.Int) error {
	if caller != l.owner {
		return ErrNotOwner
	}
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("feetoken: invalid mint amount")
	}
	l.Register(account)
	l.balances[account].Add(l.balances[account], amount)
	return nil
}

// BalanceOf returns the account's balance, zero for unknown accounts.
func (l *Ledger) BalanceOf(account string) *big.Int {
	if balance, ok := l.balances[account]; ok {
		return new(big.Int).Set(balance)
	}
	return big.NewInt(0)
}

// Owner returns the ledger owner.
func (l *Ledger) Owner() string { return l.owner }
