package ledger

import (
	"context"

	"github.com/josh-kwaku/bank-ledger/internal/domain"
)

// Durability is the guarantee level a Store provides for writes. It is part
// of the store contract so the ledger can pick its failure policy
// deliberately rather than relying on incidental behavior.
type Durability int

const (
	// BestEffort stores may lose a write. The ledger logs a warning and
	// keeps the in-memory mutation; memory and disk diverge until the next
	// successful write.
	BestEffort Durability = iota
	// Transactional stores commit each write as an all-or-nothing unit. A
	// failed write fails the whole operation with no state change anywhere.
	Transactional
)

func (d Durability) String() string {
	if d == Transactional {
		return "transactional"
	}
	return "best-effort"
}

// TransferSide is one half of a transfer as the store persists it: the
// account's new balance together with the record describing the leg.
type TransferSide struct {
	Number     int64
	NewBalance int64
	Record     domain.Record
}

// Store is the durable backend the ledger writes through.
type Store interface {
	Durability() Durability

	// LoadAccounts returns every persisted account with its full history,
	// used once at startup.
	LoadAccounts(ctx context.Context) ([]domain.AccountState, error)

	// MaxAccountNumber returns the highest persisted account number, or 0
	// when the store is empty. Seeds the allocation counter at startup.
	MaxAccountNumber(ctx context.Context) (int64, error)

	// SaveAccountOpen writes a new account together with its OPEN record.
	SaveAccountOpen(ctx context.Context, st domain.AccountState) error

	// SaveMutation writes one account's updated balance and appends one
	// record, as an atomic unit.
	SaveMutation(ctx context.Context, number, newBalance int64, rec domain.Record) error

	// SaveTransferPair writes both sides of a transfer as one unit. A
	// transactional store must roll back entirely on partial failure.
	SaveTransferPair(ctx context.Context, from, to TransferSide) error

	// LoadHistory returns one account's records in replay order.
	LoadHistory(ctx context.Context, number int64) ([]domain.Record, error)
}
