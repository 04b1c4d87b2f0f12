package domain

import (
	"time"

	"github.com/google/uuid"
)

// Kind classifies a transaction record.
type Kind string

const (
	KindOpen        Kind = "OPEN"
	KindDeposit     Kind = "DEPOSIT"
	KindWithdraw    Kind = "WITHDRAW"
	KindTransferOut Kind = "TRANSFER_OUT"
	KindTransferIn  Kind = "TRANSFER_IN"
)

// Credits reports whether the kind increases the account balance.
func (k Kind) Credits() bool {
	switch k {
	case KindOpen, KindDeposit, KindTransferIn:
		return true
	}
	return false
}

func (k Kind) IsValid() bool {
	switch k {
	case KindOpen, KindDeposit, KindWithdraw, KindTransferOut, KindTransferIn:
		return true
	}
	return false
}

// Record is one immutable entry in an account's transaction history.
// Amounts are minor units (cents). BalanceAfter is the account balance
// immediately following the event, so replaying a history in order
// reproduces the current balance.
type Record struct {
	ID           uuid.UUID `json:"id"`
	Kind         Kind      `json:"kind"`
	Amount       int64     `json:"amount"`
	BalanceAfter int64     `json:"balance_after"`
	CreatedAt    time.Time `json:"created_at"`
}
