//go:build integration

package repository_test

import (
	"context"
	"fmt"
	"log"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"service-fulfillment/internal/repository"
)

// Shared by every integration test in the package.
var (
	tcPool *pgxpool.Pool
	tcDSN  string
)

func TestMain(m *testing.M) {
	os.Exit(runWithPostgres(m))
}

func runWithPostgres(m *testing.M) int {
	ctx := context.Background()

	ctr, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("fulfillment"),
		postgres.WithUsername("fulfillment"),
		postgres.WithPassword("fulfillment"),
		postgres.BasicWaitStrategies(),
	)
	defer func() {
		if err := testcontainers.TerminateContainer(ctr); err != nil {
			log.Printf("terminate postgres: %v", err)
		}
	}()
	if err != nil {
		log.Printf("start postgres: %v", err)
		return 1
	}

	if err := connect(ctx, ctr); err != nil {
		log.Print(err)
		return 1
	}
	defer tcPool.Close()

	return m.Run()
}

func connect(ctx context.Context, ctr *postgres.PostgresContainer) error {
	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return fmt.Errorf("connection string: %w", err)
	}
	pool, err := repository.NewPool(ctx, dsn)
	if err != nil {
		return fmt.Errorf("open pool: %w", err)
	}
	if err := repository.Migrate(ctx, pool); err != nil {
		pool.Close()
		return err
	}
	tcPool, tcDSN = pool, dsn
	return nil
}

func truncateAll(ctx context.Context) error {
	_, err := tcPool.Exec(ctx, `
		TRUNCATE pickup_units, delivery_units, order_lines, assignments,
		         slot_capacity, slots, couriers, sectors RESTART IDENTITY CASCADE`)
	return err
}
