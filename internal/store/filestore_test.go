package store_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/bank-ledger/internal/domain"
	"github.com/josh-kwaku/bank-ledger/internal/ledger"
	"github.com/josh-kwaku/bank-ledger/internal/store"
)

func record(kind domain.Kind, amount, balanceAfter int64) domain.Record {
	return domain.Record{
		ID:           uuid.New(),
		Kind:         kind,
		Amount:       amount,
		BalanceAfter: balanceAfter,
		CreatedAt:    time.Now().UTC(),
	}
}

func openState(number int64, holder string, balance int64) domain.AccountState {
	return domain.AccountState{
		Number:  number,
		Holder:  holder,
		PINHash: "$2a$10$fakehashfortesting",
		Balance: balance,
		History: []domain.Record{record(domain.KindOpen, balance, balance)},
	}
}

func TestFileStore_EmptyOnFirstUse(t *testing.T) {
	fs, err := store.NewFile(filepath.Join(t.TempDir(), "data", "accounts.json"))
	require.NoError(t, err)
	ctx := context.Background()

	assert.Equal(t, ledger.BestEffort, fs.Durability())

	states, err := fs.LoadAccounts(ctx)
	require.NoError(t, err)
	assert.Empty(t, states)

	max, err := fs.MaxAccountNumber(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), max)
}

func TestFileStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "accounts.json")
	ctx := context.Background()

	fs, err := store.NewFile(path)
	require.NoError(t, err)
	_, err = fs.LoadAccounts(ctx)
	require.NoError(t, err)

	require.NoError(t, fs.SaveAccountOpen(ctx, openState(1001, "Alice", 50000)))
	require.NoError(t, fs.SaveAccountOpen(ctx, openState(1002, "Bob", 0)))

	dep := record(domain.KindDeposit, 10000, 60000)
	require.NoError(t, fs.SaveMutation(ctx, 1001, 60000, dep))

	out := record(domain.KindTransferOut, 60000, 0)
	in := record(domain.KindTransferIn, 60000, 60000)
	require.NoError(t, fs.SaveTransferPair(ctx,
		ledger.TransferSide{Number: 1001, NewBalance: 0, Record: out},
		ledger.TransferSide{Number: 1002, NewBalance: 60000, Record: in},
	))

	// Reopen from disk and verify everything survived.
	reopened, err := store.NewFile(path)
	require.NoError(t, err)
	states, err := reopened.LoadAccounts(ctx)
	require.NoError(t, err)
	require.Len(t, states, 2)

	assert.Equal(t, int64(1001), states[0].Number)
	assert.Equal(t, "Alice", states[0].Holder)
	assert.Equal(t, int64(0), states[0].Balance)
	require.Len(t, states[0].History, 3)
	assert.Equal(t, domain.KindTransferOut, states[0].History[2].Kind)

	assert.Equal(t, int64(1002), states[1].Number)
	assert.Equal(t, int64(60000), states[1].Balance)

	max, err := reopened.MaxAccountNumber(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1002), max)

	history, err := reopened.LoadHistory(ctx, 1002)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, in.ID, history[1].ID)
}

func TestFileStore_MutationUnknownAccount(t *testing.T) {
	fs, err := store.NewFile(filepath.Join(t.TempDir(), "accounts.json"))
	require.NoError(t, err)

	err = fs.SaveMutation(context.Background(), 9999, 100, record(domain.KindDeposit, 100, 100))
	require.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestFileStore_CorruptSnapshotReportsError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "accounts.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	fs, err := store.NewFile(path)
	require.NoError(t, err)

	_, err = fs.LoadAccounts(context.Background())
	require.Error(t, err)
}

func TestFileStore_SelfTransferPair(t *testing.T) {
	fs, err := store.NewFile(filepath.Join(t.TempDir(), "accounts.json"))
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, fs.SaveAccountOpen(ctx, openState(1001, "Alice", 10000)))

	out := record(domain.KindTransferOut, 4000, 6000)
	in := record(domain.KindTransferIn, 4000, 10000)
	require.NoError(t, fs.SaveTransferPair(ctx,
		ledger.TransferSide{Number: 1001, NewBalance: 6000, Record: out},
		ledger.TransferSide{Number: 1001, NewBalance: 10000, Record: in},
	))

	history, err := fs.LoadHistory(ctx, 1001)
	require.NoError(t, err)
	require.Len(t, history, 3)

	states, err := fs.LoadAccounts(ctx)
	require.NoError(t, err)
	require.Len(t, states, 1)
	assert.Equal(t, int64(10000), states[0].Balance)
}
