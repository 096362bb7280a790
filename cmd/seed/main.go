package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"ai-task-orchestrator/internal/config"
	"ai-task-orchestrator/internal/domain/model"
	pg "ai-task-orchestrator/internal/infra/db/postgres"
)

// Bootstraps the schema and seeds a demo user plus provider keys so the
// service can be exercised locally without hand-written SQL.
const schema = `
CREATE TABLE IF NOT EXISTS users (
	id             TEXT PRIMARY KEY,
	tier           TEXT NOT NULL DEFAULT 'free',
	credits        BIGINT NOT NULL DEFAULT 0,
	registered_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	last_active_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS tasks (
	id           TEXT PRIMARY KEY,
	user_id      TEXT NOT NULL REFERENCES users(id),
	type         TEXT NOT NULL,
	model        TEXT NOT NULL DEFAULT '',
	priority     INT NOT NULL DEFAULT 1,
	status       TEXT NOT NULL DEFAULT 'pending',
	progress     INT NOT NULL DEFAULT 0,
	retry_count  INT NOT NULL DEFAULT 0,
	max_retries  INT NOT NULL DEFAULT 3,
	last_error   TEXT NOT NULL DEFAULT '',
	input        JSONB NOT NULL DEFAULT '{}',
	result_data  JSONB,
	cost         BIGINT NOT NULL DEFAULT 0,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	started_at   TIMESTAMPTZ,
	completed_at TIMESTAMPTZ,
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_tasks_user ON tasks(user_id);
CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);

CREATE TABLE IF NOT EXISTS task_refunds (
	task_id     TEXT PRIMARY KEY,
	user_id     TEXT NOT NULL,
	amount      BIGINT NOT NULL,
	refunded_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS provider_keys (
	id                      TEXT PRIMARY KEY,
	provider                TEXT NOT NULL,
	api_key                 TEXT NOT NULL DEFAULT '',
	models                  TEXT[] NOT NULL DEFAULT '{}',
	priority                INT NOT NULL DEFAULT 1,
	weight                  INT NOT NULL DEFAULT 1,
	max_requests_per_minute INT NOT NULL DEFAULT 0,
	enabled                 BOOLEAN NOT NULL DEFAULT true,
	created_at              TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, false)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 4)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	if _, err := pool.Exec(ctx, schema); err != nil {
		log.Fatalf("apply schema: %v", err)
	}
	fmt.Println("schema applied")

	keyRepo := pg.NewProviderKeyRepo(pool)
	if keys, err := keyRepo.ListEnabled(ctx, nil); err != nil {
		log.Fatalf("list provider keys: %v", err)
	} else if len(keys) > 0 {
		fmt.Printf("%d provider keys already present. No changes.\n", len(keys))
		return
	}

	userRepo := pg.NewUserRepo(pool)
	now := time.Now()
	demo := &model.User{ID: "demo-user", Tier: "pro", Credits: 500, RegisteredAt: now, LastActiveAt: now}
	if err := userRepo.Save(ctx, nil, demo); err != nil {
		log.Fatalf("seed user: %v", err)
	}
	fmt.Printf("seeded user %s (tier=%s, credits=%d)\n", demo.ID, demo.Tier, demo.Credits)

	seed := []struct {
		id, provider string
		priority     int
		weight       int
		rpm          int
	}{
		{"openai-primary", "openai", 2, 3, 60},
		{"openai-backup", "openai", 1, 1, 60},
		{"gemini-primary", "gemini", 2, 1, 30},
	}
	for _, s := range seed {
		_, err := pool.Exec(ctx, `
			INSERT INTO provider_keys (id, provider, priority, weight, max_requests_per_minute)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (id) DO NOTHING`,
			s.id, s.provider, s.priority, s.weight, s.rpm)
		if err != nil {
			log.Fatalf("seed key %q: %v", s.id, err)
		}
		fmt.Printf("seeded key: %s (provider=%s, priority=%d, weight=%d, rpm=%d)\n",
			s.id, s.provider, s.priority, s.weight, s.rpm)
	}

	fmt.Println("seeding complete")
}
