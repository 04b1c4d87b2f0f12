package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/josh-kwaku/bank-ledger/internal/domain"
	"github.com/josh-kwaku/bank-ledger/internal/ledger"
)

// File persists the whole ledger as a JSON snapshot, rewritten on every
// mutation. Each write replaces the file atomically (write to a temp file,
// then rename), so a crash mid-write never corrupts the previous snapshot.
// The store is still best-effort overall: a failed write loses that
// mutation on disk, and the ledger carries on in memory with a warning.
type File struct {
	path string

	mu       sync.Mutex
	accounts map[int64]*domain.AccountState
}

var _ ledger.Store = (*File)(nil)

type snapshot struct {
	SavedAt  time.Time             `json:"saved_at"`
	Accounts []domain.AccountState `json:"accounts"`
}

func NewFile(path string) (*File, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("NewFile: %w", err)
		}
	}
	return &File{
		path:     path,
		accounts: make(map[int64]*domain.AccountState),
	}, nil
}

func (s *File) Durability() ledger.Durability {
	return ledger.BestEffort
}

func (s *File) LoadAccounts(ctx context.Context) ([]domain.AccountState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("LoadAccounts: %w", err)
	}
	defer f.Close()

	var snap snapshot
	if err := json.NewDecoder(f).Decode(&snap); err != nil {
		return nil, fmt.Errorf("LoadAccounts: decode: %w", err)
	}

	states := make([]domain.AccountState, 0, len(snap.Accounts))
	for i := range snap.Accounts {
		st := snap.Accounts[i]
		s.accounts[st.Number] = &st
		states = append(states, st)
	}
	return states, nil
}

func (s *File) MaxAccountNumber(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var max int64
	for n := range s.accounts {
		if n > max {
			max = n
		}
	}
	return max, nil
}

func (s *File) SaveAccountOpen(ctx context.Context, st domain.AccountState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.accounts[st.Number] = &st
	if err := s.writeSnapshot(); err != nil {
		return fmt.Errorf("SaveAccountOpen: %w", err)
	}
	return nil
}

func (s *File) SaveMutation(ctx context.Context, number, newBalance int64, rec domain.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.applyMutation(number, newBalance, rec); err != nil {
		return fmt.Errorf("SaveMutation: %w", err)
	}
	if err := s.writeSnapshot(); err != nil {
		return fmt.Errorf("SaveMutation: %w", err)
	}
	return nil
}

func (s *File) SaveTransferPair(ctx context.Context, from, to ledger.TransferSide) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Debit first, credit second: for a self-transfer both sides touch the
	// same entry and the credit side's balance lands last.
	if err := s.applyMutation(from.Number, from.NewBalance, from.Record); err != nil {
		return fmt.Errorf("SaveTransferPair: debit: %w", err)
	}
	if err := s.applyMutation(to.Number, to.NewBalance, to.Record); err != nil {
		return fmt.Errorf("SaveTransferPair: credit: %w", err)
	}
	if err := s.writeSnapshot(); err != nil {
		return fmt.Errorf("SaveTransferPair: %w", err)
	}
	return nil
}

func (s *File) LoadHistory(ctx context.Context, number int64) ([]domain.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.accounts[number]
	if !ok {
		return nil, fmt.Errorf("LoadHistory: account %d: %w", number, domain.ErrAccountNotFound)
	}
	out := make([]domain.Record, len(st.History))
	copy(out, st.History)
	return out, nil
}

func (s *File) applyMutation(number, newBalance int64, rec domain.Record) error {
	st, ok := s.accounts[number]
	if !ok {
		return fmt.Errorf("account %d: %w", number, domain.ErrAccountNotFound)
	}
	st.Balance = newBalance
	st.History = append(st.History, rec)
	return nil
}

// writeSnapshot serializes the full account set and swaps it in place of
// the previous snapshot via rename.
func (s *File) writeSnapshot() error {
	snap := snapshot{SavedAt: time.Now().UTC()}
	snap.Accounts = make([]domain.AccountState, 0, len(s.accounts))
	for _, st := range s.accounts {
		snap.Accounts = append(snap.Accounts, *st)
	}
	sort.Slice(snap.Accounts, func(i, j int) bool {
		return snap.Accounts[i].Number < snap.Accounts[j].Number
	})

	tmp := s.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("writeSnapshot: %w", err)
	}

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snap); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("writeSnapshot: encode: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("writeSnapshot: close: %w", err)
	}

	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("writeSnapshot: rename: %w", err)
	}
	return nil
}
