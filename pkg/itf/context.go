// Package itf sets up throwaway PostgreSQL databases for integration tests.
package itf

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/iota-uz/bookkeeper/migrations"
	"github.com/iota-uz/bookkeeper/pkg/application"
	"github.com/iota-uz/bookkeeper/pkg/composables"
	"github.com/iota-uz/bookkeeper/pkg/logging"
)

// TestEnvironment is a migrated database owned by one test.
type TestEnvironment struct {
	Ctx  context.Context
	Pool *pgxpool.Pool
}

// New creates a database named after tb, applies every migration and returns a
// pool-bound context. The test is skipped when no DSN is configured.
func New(tb testing.TB) *TestEnvironment {
	tb.Helper()
	adminDSN := AdminDSN(tb)

	name := sanitizeDBName(tb.Name())
	if err := CreateDB(adminDSN, name); err != nil {
		tb.Fatalf("create database %s: %v", name, err)
	}

	config, err := pgxpool.ParseConfig(adminDSN)
	if err != nil {
		tb.Fatalf("parse %s: %v", DSNEnv, err)
	}
	config.ConnConfig.Database = name
	pool, err := NewPool(config)
	if err != nil {
		tb.Fatal(err)
	}
	tb.Cleanup(pool.Close)

	db := stdlib.OpenDB(*pool.Config().ConnConfig)
	defer db.Close()
	manager, err := application.NewMigrationManager(db, migrations.FS, logging.Nop())
	if err != nil {
		tb.Fatal(err)
	}
	ctx := context.Background()
	if err := manager.Up(ctx); err != nil {
		tb.Fatalf("migrate: %v", err)
	}

	return &TestEnvironment{
		Ctx:  composables.WithPool(ctx, pool),
		Pool: pool,
	}
}

// WithTx returns a context bound to a transaction rolled back when the test ends.
func (te *TestEnvironment) WithTx(tb testing.TB) context.Context {
	tb.Helper()
	tx, err := te.Pool.Begin(te.Ctx)
	if err != nil {
		tb.Fatal(err)
	}
	tb.Cleanup(func() {
		if err := tx.Rollback(context.Background()); err != nil && err != pgx.ErrTxClosed {
			tb.Logf("Warning: failed to rollback transaction: %v", err)
		}
	})
	return composables.WithTx(te.Ctx, tx)
}
