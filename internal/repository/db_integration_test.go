//go:build integration

package repository_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"service-fulfillment/internal/repository"
)

func TestNewPool(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		dsn     string
		wantErr string
	}{
		{name: "container", dsn: tcDSN},
		{name: "malformed dsn", dsn: "not-a-valid-dsn", wantErr: "parse dsn"},
		{name: "nothing listening", dsn: "postgres://u:p@127.0.0.1:65000/db?sslmode=disable", wantErr: "ping"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			pool, err := repository.NewPool(ctx, tc.dsn)
			if tc.wantErr != "" {
				require.ErrorContains(t, err, tc.wantErr)
				require.Nil(t, pool)
				return
			}
			require.NoError(t, err)
			defer pool.Close()
			require.NoError(t, pool.Ping(ctx))
		})
	}
}

func TestMigrate_ConcurrentRunsAreSafe(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var wg sync.WaitGroup
	errs := make([]error, 3)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = repository.Migrate(ctx, tcPool)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
}
