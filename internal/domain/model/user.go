package model

import "time"

// User carries the fields the orchestration core needs: tier for planner
// defaults and the credit balance the ledger debits against. The balance
// is only ever mutated through atomic repository operations.
type User struct {
	ID           string
	Tier         string // free | basic | pro | enterprise
	Credits      int64
	RegisteredAt time.Time
	LastActiveAt time.Time
}
