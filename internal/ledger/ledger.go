package ledger

import (
	"errors"
	"sync"

	"github.com/holiman/uint256"
)

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidAmount     = errors.New("invalid amount")
)

// Bank is the fungible value ledger the marketplace settles against. The
// engine only ever moves value through this interface, so a deployment can
// swap the in-process ledger for a real settlement backend.
type Bank interface {
	Deposit(addr string, amount *uint256.Int)
	BalanceOf(addr string) *uint256.Int
	Transfer(from, to string, amount *uint256.Int) error
}

type bank struct {
	mu       sync.Mutex
	accounts map[string]*uint256.Int
}

func NewBank() Bank {
	return &bank{accounts: make(map[string]*uint256.Int)}
}

func (b *bank) Deposit(addr string, amount *uint256.Int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.credit(addr, amount)
}

func (b *bank) BalanceOf(addr string) *uint256.Int {
	b.mu.Lock()
	defer b.mu.Unlock()

	if balance, ok := b.accounts[addr]; ok {
		return balance.Clone()
	}

	return uint256.NewInt(0)
}

// Transfer moves amount between accounts atomically. A zero amount is a
// successful no-op so owner withdrawals on an empty balance cannot fail.
func (b *bank) Transfer(from, to string, amount *uint256.Int) error {
	if amount == nil {
		return ErrInvalidAmount
	}
	if amount.IsZero() {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	balance, ok := b.accounts[from]
	if !ok || balance.Lt(amount) {
		return ErrInsufficientFunds
	}

	balance.Sub(balance, amount)
	b.credit(to, amount)

	return nil
}

func (b *bank) credit(addr string, amount *uint256.Int) {
	if balance, ok := b.accounts[addr]; ok {
		balance.Add(balance, amount)
		return
	}

	b.accounts[addr] = amount.Clone()
}
