// Package ledger implements the banking ledger engine. The Ledger owns the
// account set, allocates account numbers, and is the sole authority for
// balance mutations; every mutation is written through a durable Store
// whose guarantee level decides how persistence failures are handled.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/josh-kwaku/bank-ledger/internal/domain"
)

// firstAccountNumber seeds allocation for an empty store. Numbers are
// monotonically increasing and never reused.
const firstAccountNumber = 1001

type Ledger struct {
	store Store
	log   *slog.Logger

	mu         sync.RWMutex
	accounts   map[int64]*Account
	nextNumber int64
}

// New builds a ledger over the given store, loading all persisted accounts
// and seeding the account-number counter from the store's current maximum.
// An unreadable store is not fatal: the ledger starts empty and the
// operator is warned (availability over strict integrity).
func New(ctx context.Context, store Store, log *slog.Logger) *Ledger {
	if log == nil {
		log = slog.Default()
	}
	l := &Ledger{
		store:      store,
		log:        log,
		accounts:   make(map[int64]*Account),
		nextNumber: firstAccountNumber,
	}

	states, err := store.LoadAccounts(ctx)
	if err != nil {
		log.Warn("could not load existing accounts, starting fresh", "error", err)
		return l
	}
	for _, st := range states {
		l.accounts[st.Number] = accountFromState(st)
	}

	max, err := store.MaxAccountNumber(ctx)
	if err != nil {
		log.Warn("could not read max account number, deriving from loaded accounts", "error", err)
		for n := range l.accounts {
			if n > max {
				max = n
			}
		}
	}
	if max >= l.nextNumber {
		l.nextNumber = max + 1
	}

	log.Info("ledger ready",
		"accounts", len(l.accounts),
		"next_account_number", l.nextNumber,
		"durability", store.Durability().String(),
	)
	return l
}

// CreateAccount allocates the next account number, opens the account with
// its OPEN record, persists it, and registers it. The initial deposit may
// be zero: opening an empty account is valid, unlike later deposits.
func (l *Ledger) CreateAccount(ctx context.Context, holder, pin string, initialDeposit int64) (*Account, error) {
	if initialDeposit < 0 {
		return nil, fmt.Errorf("CreateAccount: %w", domain.ErrNegativeDeposit)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("CreateAccount: hash pin: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	a := newAccount(l.nextNumber, holder, hash)
	a.apply(a.newRecord(domain.KindOpen, initialDeposit, initialDeposit))

	if err := l.store.SaveAccountOpen(ctx, a.state()); err != nil {
		if l.store.Durability() == Transactional {
			return nil, fmt.Errorf("CreateAccount: persist: %w", err)
		}
		l.log.Warn("persist account open failed, in-memory state retained",
			"account", a.Number, "error", err)
	}

	l.accounts[a.Number] = a
	l.nextNumber++

	l.log.Info("account created", "account", a.Number, "holder", holder)
	return a, nil
}

// FindAccount is a read-only lookup by account number.
func (l *Ledger) FindAccount(number int64) (*Account, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	a, ok := l.accounts[number]
	return a, ok
}

// Deposit credits the account and appends a DEPOSIT record.
func (l *Ledger) Deposit(ctx context.Context, number, amount int64) error {
	a, ok := l.FindAccount(number)
	if !ok {
		return fmt.Errorf("Deposit: account %d: %w", number, domain.ErrAccountNotFound)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	rec, err := a.prepareDeposit(amount)
	if err != nil {
		return fmt.Errorf("Deposit: %w", err)
	}
	if err := l.persistMutation(ctx, a.Number, rec); err != nil {
		return fmt.Errorf("Deposit: %w", err)
	}
	a.apply(rec)
	return nil
}

// Withdraw debits the account and appends a WITHDRAW record. An amount
// exceeding the balance is declined with ErrInsufficientFunds and changes
// nothing.
func (l *Ledger) Withdraw(ctx context.Context, number, amount int64) error {
	a, ok := l.FindAccount(number)
	if !ok {
		return fmt.Errorf("Withdraw: account %d: %w", number, domain.ErrAccountNotFound)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	rec, err := a.prepareDebit(domain.KindWithdraw, amount)
	if err != nil {
		return fmt.Errorf("Withdraw: %w", err)
	}
	if err := l.persistMutation(ctx, a.Number, rec); err != nil {
		return fmt.Errorf("Withdraw: %w", err)
	}
	a.apply(rec)
	return nil
}

// Transfer moves amount between two accounts: debit then credit, both
// records and both balances committed as one unit. Locks are acquired in
// ascending account-number order regardless of role, so opposite-direction
// transfers between the same pair cannot deadlock.
//
// A transfer from an account to itself is allowed: it records a
// TRANSFER_OUT followed by a TRANSFER_IN of the same amount, netting to no
// balance change.
func (l *Ledger) Transfer(ctx context.Context, from, to, amount int64) error {
	src, ok := l.FindAccount(from)
	if !ok {
		return fmt.Errorf("Transfer: source %d: %w", from, domain.ErrAccountNotFound)
	}
	dst, ok := l.FindAccount(to)
	if !ok {
		return fmt.Errorf("Transfer: destination %d: %w", to, domain.ErrAccountNotFound)
	}

	lockPair(src, dst)
	defer unlockPair(src, dst)

	debit, err := src.prepareDebit(domain.KindTransferOut, amount)
	if err != nil {
		return fmt.Errorf("Transfer: %w", err)
	}
	creditBase := dst.balance
	if src == dst {
		creditBase = debit.BalanceAfter
	}
	credit, err := dst.prepareCredit(amount, creditBase)
	if err != nil {
		return fmt.Errorf("Transfer: %w", err)
	}

	err = l.store.SaveTransferPair(ctx,
		TransferSide{Number: src.Number, NewBalance: debit.BalanceAfter, Record: debit},
		TransferSide{Number: dst.Number, NewBalance: credit.BalanceAfter, Record: credit},
	)
	if err != nil {
		if l.store.Durability() == Transactional {
			return fmt.Errorf("Transfer: persist: %w", err)
		}
		l.log.Warn("persist transfer failed, in-memory state retained",
			"from", src.Number, "to", dst.Number, "error", err)
	}

	src.apply(debit)
	dst.apply(credit)
	return nil
}

// ListAccounts returns a snapshot of all accounts sorted by number. The
// returned slice is the caller's to keep.
func (l *Ledger) ListAccounts() []*Account {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]*Account, 0, len(l.accounts))
	for _, a := range l.accounts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out
}

// History returns a copy of one account's transaction history in order.
func (l *Ledger) History(number int64) ([]domain.Record, error) {
	a, ok := l.FindAccount(number)
	if !ok {
		return nil, fmt.Errorf("History: account %d: %w", number, domain.ErrAccountNotFound)
	}
	return a.History(), nil
}

// persistMutation writes one balance update plus its record. On a
// transactional store a failure aborts the operation before the in-memory
// apply; on a best-effort store it is logged and the mutation proceeds.
func (l *Ledger) persistMutation(ctx context.Context, number int64, rec domain.Record) error {
	err := l.store.SaveMutation(ctx, number, rec.BalanceAfter, rec)
	if err == nil {
		return nil
	}
	if l.store.Durability() == Transactional {
		return fmt.Errorf("persist: %w", err)
	}
	l.log.Warn("persist failed, in-memory state retained",
		"account", number, "kind", rec.Kind, "error", err)
	return nil
}

// lockPair acquires both account locks in ascending account-number order.
func lockPair(a, b *Account) {
	if a == b {
		a.mu.Lock()
		return
	}
	if a.Number > b.Number {
		a, b = b, a
	}
	a.mu.Lock()
	b.mu.Lock()
}

func unlockPair(a, b *Account) {
	if a == b {
		a.mu.Unlock()
		return
	}
	a.mu.Unlock()
	b.mu.Unlock()
}
