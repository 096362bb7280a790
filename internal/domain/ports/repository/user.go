package repository

import (
	"context"

	"ai-task-orchestrator/internal/domain/model"
)

type UserRepository interface {
	Save(ctx context.Context, tx Tx, u *model.User) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.User, error)

	// DebitCredits checks balance >= amount and debits in a single atomic
	// statement. Returns false (and no mutation) when the balance is
	// insufficient.
	DebitCredits(ctx context.Context, tx Tx, userID string, amount int64) (bool, error)

	// CreditCredits adds amount back to the balance.
	CreditCredits(ctx context.Context, tx Tx, userID string, amount int64) error
}

// RefundLedger records one refund per task id so duplicate failure
// notifications cannot credit a user twice.
type RefundLedger interface {
	// RecordRefund inserts the dedup row for taskID. Returns false when a
	// refund for this task was already recorded.
	RecordRefund(ctx context.Context, tx Tx, taskID, userID string, amount int64) (bool, error)
}
