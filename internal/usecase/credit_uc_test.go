package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"ai-task-orchestrator/internal/domain"
	"ai-task-orchestrator/internal/domain/model"
)

func TestCreditLedger_ReserveDebitsBalance(t *testing.T) {
	users := newMemUserRepo()
	_ = users.Save(context.Background(), nil, &model.User{ID: "u1", Credits: 20})
	log := zerolog.Nop()
	ledger := NewCreditLedger(users, users, noopTM{}, &log)

	if err := ledger.Reserve(context.Background(), "u1", 10); err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if got := users.credits("u1"); got != 10 {
		t.Fatalf("credits after reserve = %d, want 10", got)
	}
}

func TestCreditLedger_ReserveInsufficient(t *testing.T) {
	users := newMemUserRepo()
	_ = users.Save(context.Background(), nil, &model.User{ID: "u1", Credits: 5})
	log := zerolog.Nop()
	ledger := NewCreditLedger(users, users, noopTM{}, &log)

	err := ledger.Reserve(context.Background(), "u1", 10)
	if !errors.Is(err, domain.ErrInsufficientCredits) {
		t.Fatalf("err = %v, want ErrInsufficientCredits", err)
	}
	if got := users.credits("u1"); got != 5 {
		t.Fatalf("balance mutated on failed reserve: %d", got)
	}
}

func TestCreditLedger_RefundIsIdempotent(t *testing.T) {
	users := newMemUserRepo()
	_ = users.Save(context.Background(), nil, &model.User{ID: "u1", Credits: 0})
	log := zerolog.Nop()
	ledger := NewCreditLedger(users, users, noopTM{}, &log)

	for i := 0; i < 3; i++ {
		if err := ledger.Refund(context.Background(), "task-1", "u1", 10); err != nil {
			t.Fatalf("Refund #%d: %v", i+1, err)
		}
	}
	if got := users.credits("u1"); got != 10 {
		t.Fatalf("credits after duplicate refunds = %d, want 10", got)
	}
}

func TestCreditLedger_ZeroCostIsNoop(t *testing.T) {
	users := newMemUserRepo()
	_ = users.Save(context.Background(), nil, &model.User{ID: "u1", Credits: 7})
	log := zerolog.Nop()
	ledger := NewCreditLedger(users, users, noopTM{}, &log)

	if err := ledger.Reserve(context.Background(), "u1", 0); err != nil {
		t.Fatalf("Reserve(0): %v", err)
	}
	if err := ledger.Refund(context.Background(), "task-1", "u1", 0); err != nil {
		t.Fatalf("Refund(0): %v", err)
	}
	if got := users.credits("u1"); got != 7 {
		t.Fatalf("balance changed on zero-cost ops: %d", got)
	}
}
