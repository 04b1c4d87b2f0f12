// Package store provides the durable backends the ledger writes through: a
// transactional Postgres store and a best-effort JSON snapshot file store.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/josh-kwaku/bank-ledger/internal/domain"
	"github.com/josh-kwaku/bank-ledger/internal/ledger"
)

const recordColumns = `id, account_number, kind, amount, balance_after, created_at`

// Postgres persists accounts and their transaction log in PostgreSQL.
// Every write runs inside a database transaction: it commits whole or
// leaves the store untouched, so Durability reports Transactional.
type Postgres struct {
	db *sql.DB
}

var _ ledger.Store = (*Postgres)(nil)

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) Durability() ledger.Durability {
	return ledger.Transactional
}

func (s *Postgres) LoadAccounts(ctx context.Context) ([]domain.AccountState, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT account_number, holder_name, pin, balance FROM accounts ORDER BY account_number`)
	if err != nil {
		return nil, fmt.Errorf("LoadAccounts: %w", err)
	}
	defer rows.Close()

	byNumber := make(map[int64]*domain.AccountState)
	var numbers []int64
	for rows.Next() {
		var st domain.AccountState
		if err := rows.Scan(&st.Number, &st.Holder, &st.PINHash, &st.Balance); err != nil {
			return nil, fmt.Errorf("LoadAccounts: scan: %w", err)
		}
		byNumber[st.Number] = &st
		numbers = append(numbers, st.Number)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("LoadAccounts: rows: %w", err)
	}

	recRows, err := s.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM transactions ORDER BY created_at, seq`)
	if err != nil {
		return nil, fmt.Errorf("LoadAccounts: records: %w", err)
	}
	defer recRows.Close()

	for recRows.Next() {
		var number int64
		rec, err := scanRecord(recRows, &number)
		if err != nil {
			return nil, fmt.Errorf("LoadAccounts: scan record: %w", err)
		}
		if st, ok := byNumber[number]; ok {
			st.History = append(st.History, rec)
		}
	}
	if err := recRows.Err(); err != nil {
		return nil, fmt.Errorf("LoadAccounts: record rows: %w", err)
	}

	states := make([]domain.AccountState, 0, len(numbers))
	for _, n := range numbers {
		states = append(states, *byNumber[n])
	}
	return states, nil
}

func (s *Postgres) MaxAccountNumber(ctx context.Context) (int64, error) {
	var max int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(account_number), 0) FROM accounts`).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("MaxAccountNumber: %w", err)
	}
	return max, nil
}

func (s *Postgres) SaveAccountOpen(ctx context.Context, st domain.AccountState) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("SaveAccountOpen: begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO accounts (account_number, holder_name, pin, balance)
		 VALUES ($1, $2, $3, $4)`,
		st.Number, st.Holder, st.PINHash, st.Balance,
	)
	if err != nil {
		return fmt.Errorf("SaveAccountOpen: insert account: %w", err)
	}

	for _, rec := range st.History {
		if err := insertRecord(ctx, tx, st.Number, rec); err != nil {
			return fmt.Errorf("SaveAccountOpen: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("SaveAccountOpen: commit: %w", err)
	}
	return nil
}

func (s *Postgres) SaveMutation(ctx context.Context, number, newBalance int64, rec domain.Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("SaveMutation: begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := updateBalance(ctx, tx, number, newBalance); err != nil {
		return fmt.Errorf("SaveMutation: %w", err)
	}
	if err := insertRecord(ctx, tx, number, rec); err != nil {
		return fmt.Errorf("SaveMutation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("SaveMutation: commit: %w", err)
	}
	return nil
}

// SaveTransferPair writes both balance updates and both transfer records in
// one database transaction. Sides are applied debit first, credit second;
// for a self-transfer both sides hit the same row and the credit side's
// balance lands last.
func (s *Postgres) SaveTransferPair(ctx context.Context, from, to ledger.TransferSide) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("SaveTransferPair: begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, side := range []ledger.TransferSide{from, to} {
		if err := updateBalance(ctx, tx, side.Number, side.NewBalance); err != nil {
			return fmt.Errorf("SaveTransferPair: %w", err)
		}
		if err := insertRecord(ctx, tx, side.Number, side.Record); err != nil {
			return fmt.Errorf("SaveTransferPair: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("SaveTransferPair: commit: %w", err)
	}
	return nil
}

func (s *Postgres) LoadHistory(ctx context.Context, number int64) ([]domain.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM transactions
		WHERE account_number = $1 ORDER BY created_at, seq`, number,
	)
	if err != nil {
		return nil, fmt.Errorf("LoadHistory: %w", err)
	}
	defer rows.Close()

	var records []domain.Record
	for rows.Next() {
		var n int64
		rec, err := scanRecord(rows, &n)
		if err != nil {
			return nil, fmt.Errorf("LoadHistory: scan: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("LoadHistory: rows: %w", err)
	}
	return records, nil
}

func updateBalance(ctx context.Context, tx *sql.Tx, number, newBalance int64) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE accounts SET balance = $1 WHERE account_number = $2`,
		newBalance, number,
	)
	if err != nil {
		return fmt.Errorf("update balance: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update balance: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("update balance: account %d: %w", number, domain.ErrAccountNotFound)
	}
	return nil
}

func insertRecord(ctx context.Context, tx *sql.Tx, number int64, rec domain.Record) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO transactions (id, account_number, kind, amount, balance_after, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		rec.ID, number, rec.Kind, rec.Amount, rec.BalanceAfter, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert record: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner, number *int64) (domain.Record, error) {
	var rec domain.Record
	var kind string
	err := s.Scan(&rec.ID, number, &kind, &rec.Amount, &rec.BalanceAfter, &rec.CreatedAt)
	if err != nil {
		return domain.Record{}, err
	}
	rec.Kind = domain.Kind(kind)
	if !rec.Kind.IsValid() {
		return domain.Record{}, fmt.Errorf("unknown record kind %q", kind)
	}
	return rec, nil
}

// PoolConfig bounds the database connection pool.
type PoolConfig struct {
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxLifetimeS int
	ConnMaxIdleTimeS int
}

// Connect opens and pings a Postgres pool.
func Connect(ctx context.Context, databaseURL string, pool PoolConfig) (*sql.DB, error) {
	if databaseURL == "" {
		return nil, errors.New("Connect: database URL is empty")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("Connect: open: %w", err)
	}

	db.SetMaxOpenConns(pool.MaxOpenConns)
	db.SetMaxIdleConns(pool.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(pool.ConnMaxLifetimeS) * time.Second)
	db.SetConnMaxIdleTime(time.Duration(pool.ConnMaxIdleTimeS) * time.Second)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("Connect: ping: %w", err)
	}
	return db, nil
}
