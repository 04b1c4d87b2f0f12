package ledger

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/josh-kwaku/bank-ledger/internal/domain"
)

// Account is a balance-holding entity with a credential and an append-only
// history. The balance and history are guarded by a per-account mutex and
// always change together: every mutation appends exactly one record whose
// BalanceAfter becomes the new balance.
//
// All mutations go through the Ledger, which holds the account lock across
// the validate/persist/apply sequence. That keeps the in-memory state and a
// transactional store in lockstep: a failed persist leaves no trace.
type Account struct {
	Number int64
	Holder string

	mu      sync.Mutex
	pinHash []byte
	balance int64
	history []domain.Record
}

func newAccount(number int64, holder string, pinHash []byte) *Account {
	return &Account{Number: number, Holder: holder, pinHash: pinHash}
}

func accountFromState(st domain.AccountState) *Account {
	a := newAccount(st.Number, st.Holder, []byte(st.PINHash))
	a.balance = st.Balance
	a.history = append(a.history, st.History...)
	return a
}

// CheckPIN verifies the supplied PIN against the stored credential. It is a
// pure check with no side effects.
func (a *Account) CheckPIN(pin string) bool {
	return bcrypt.CompareHashAndPassword(a.pinHash, []byte(pin)) == nil
}

func (a *Account) Balance() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.balance
}

// History returns a copy of the account's transaction history; mutating the
// returned slice does not affect ledger state.
func (a *Account) History() []domain.Record {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]domain.Record, len(a.history))
	copy(out, a.history)
	return out
}

func (a *Account) state() domain.AccountState {
	a.mu.Lock()
	defer a.mu.Unlock()
	history := make([]domain.Record, len(a.history))
	copy(history, a.history)
	return domain.AccountState{
		Number:  a.Number,
		Holder:  a.Holder,
		PINHash: string(a.pinHash),
		Balance: a.balance,
		History: history,
	}
}

// The helpers below require a.mu to be held by the caller.

// prepareDeposit validates a deposit and builds its prospective record
// without applying it.
func (a *Account) prepareDeposit(amount int64) (domain.Record, error) {
	if amount <= 0 {
		return domain.Record{}, domain.ErrInvalidAmount
	}
	return a.newRecord(domain.KindDeposit, amount, a.balance+amount), nil
}

// prepareDebit validates a withdrawal or transfer-out. An amount exceeding
// the balance is a declined outcome (ErrInsufficientFunds), not a fault.
func (a *Account) prepareDebit(kind domain.Kind, amount int64) (domain.Record, error) {
	if amount <= 0 {
		return domain.Record{}, domain.ErrInvalidAmount
	}
	if amount > a.balance {
		return domain.Record{}, domain.ErrInsufficientFunds
	}
	return a.newRecord(kind, amount, a.balance-amount), nil
}

// prepareCredit builds a transfer-in record on top of base, which is the
// account balance after any debit already prepared against it. Base differs
// from a.balance only for self-transfers.
func (a *Account) prepareCredit(amount, base int64) (domain.Record, error) {
	if amount <= 0 {
		return domain.Record{}, domain.ErrInvalidAmount
	}
	return a.newRecord(domain.KindTransferIn, amount, base+amount), nil
}

// apply commits a prepared record: balance and history move together.
// Records are appended under the account lock, so CreatedAt is
// non-decreasing within a history.
func (a *Account) apply(rec domain.Record) {
	a.balance = rec.BalanceAfter
	a.history = append(a.history, rec)
}

func (a *Account) newRecord(kind domain.Kind, amount, balanceAfter int64) domain.Record {
	return domain.Record{
		ID:           uuid.New(),
		Kind:         kind,
		Amount:       amount,
		BalanceAfter: balanceAfter,
		CreatedAt:    time.Now().UTC(),
	}
}
