package domain

// AccountState is the persisted form of an account: what a store returns at
// startup and what the ledger hands it on account creation. PINHash is the
// bcrypt hash of the holder's PIN; the plain PIN is never stored.
type AccountState struct {
	Number  int64    `json:"account_number"`
	Holder  string   `json:"holder_name"`
	PINHash string   `json:"pin"`
	Balance int64    `json:"balance"`
	History []Record `json:"history"`
}
