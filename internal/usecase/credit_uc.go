package usecase

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"ai-task-orchestrator/internal/domain"
	"ai-task-orchestrator/internal/domain/ports/repository"
	"ai-task-orchestrator/internal/infra/metrics"
	"ai-task-orchestrator/internal/retry"
)

var _ CreditLedger = (*creditUC)(nil)

// CreditLedger reserves cost before dispatch and refunds failed paid tasks.
type CreditLedger interface {
	// Reserve atomically checks balance >= cost and debits; returns
	// domain.ErrInsufficientCredits without mutation when it cannot.
	Reserve(ctx context.Context, userID string, cost int64) error

	// Refund credits cost back, at most once per task id regardless of
	// how many failure notifications arrive.
	Refund(ctx context.Context, taskID, userID string, cost int64) error
}

type creditUC struct {
	users   repository.UserRepository
	refunds repository.RefundLedger
	tm      repository.TransactionManager
	log     *zerolog.Logger
}

func NewCreditLedger(users repository.UserRepository, refunds repository.RefundLedger, tm repository.TransactionManager, logger *zerolog.Logger) *creditUC {
	l := logger.With().Str("component", "CreditLedger").Logger()
	return &creditUC{users: users, refunds: refunds, tm: tm, log: &l}
}

func (c *creditUC) Reserve(ctx context.Context, userID string, cost int64) error {
	if cost <= 0 {
		return nil
	}
	ok, err := c.users.DebitCredits(ctx, nil, userID, cost)
	if err != nil {
		return err
	}
	if !ok {
		metrics.IncCreditBlocked()
		return domain.ErrInsufficientCredits
	}
	metrics.AddCreditsReserved(cost)
	return nil
}

// Refund records the dedup row and credits the balance in one transaction.
// A duplicate notification finds the row already present and credits
// nothing. Transient DB failures are retried so a paid failure is not
// silently swallowed.
func (c *creditUC) Refund(ctx context.Context, taskID, userID string, cost int64) error {
	if cost <= 0 {
		return nil
	}
	_, err := retry.Do(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, c.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
			first, err := c.refunds.RecordRefund(ctx, tx, taskID, userID, cost)
			if err != nil {
				return err
			}
			if !first {
				c.log.Debug().Str("task_id", taskID).Msg("refund already recorded, skipping")
				return nil
			}
			if err := c.users.CreditCredits(ctx, tx, userID, cost); err != nil {
				return err
			}
			metrics.AddCreditsRefunded(cost)
			c.log.Info().Str("task_id", taskID).Int64("amount", cost).Msg("credits refunded")
			return nil
		})
	}, retry.Options{MaxRetries: 2, Delay: 200 * time.Millisecond, Exponential: true})
	return err
}
