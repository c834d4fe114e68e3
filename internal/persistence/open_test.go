package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"cornucopia/internal/infra/persistence/postgres"
	"cornucopia/internal/infra/persistence/postgres/testutil"
	"cornucopia/pkg/domain"
)

func ledgers(t *testing.T) map[string]domain.RunLedger {
	t.Helper()
	ctx := context.Background()
	out := map[string]domain.RunLedger{}

	mem, err := Open(ctx, Config{Driver: "memory"})
	require.NoError(t, err)
	out["memory"] = mem

	lite, err := Open(ctx, Config{Path: filepath.Join(t.TempDir(), "runs.db")})
	require.NoError(t, err)
	out["sqlite"] = lite

	db, _ := testutil.NewStubDB()
	restore := postgres.OverrideSQLOpen(func(string, string) (*sql.DB, error) { return db, nil })
	pg, err := Open(ctx, Config{Driver: "postgres", DSN: "postgres://stub"})
	restore()
	require.NoError(t, err)
	out["postgres"] = pg

	t.Cleanup(func() {
		for _, l := range out {
			_ = l.Close()
		}
	})
	return out
}

func TestLedgerRoundTripEachDriver(t *testing.T) {
	ctx := context.Background()
	for name, l := range ledgers(t) {
		t.Run(name, func(t *testing.T) {
			rec := domain.RunRecord{
				ID:          "req-" + name,
				CreatedAt:   time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC),
				Text:        "set up pcr for 24 samples",
				Type:        domain.ExperimentPCRSetup,
				Status:      domain.RunValidationFailed,
				Instruction: "Set up PCR for 24 samples",
				Findings:    []domain.FindingKind{domain.FindingIntentMismatch},
				Error:       "script blocked by validation: 1 finding(s)",
				Duration:    42 * time.Millisecond,
			}
			require.NoError(t, l.Append(ctx, rec))
			got, err := l.Get(ctx, rec.ID)
			require.NoError(t, err)
			assert.True(t, rec.CreatedAt.Equal(got.CreatedAt))
			got.CreatedAt = rec.CreatedAt
			assert.Equal(t, rec, got)
			assert.ErrorIs(t, l.Append(ctx, rec), domain.ErrDuplicateRun)

			list, err := l.List(ctx, domain.RunFilter{Type: domain.ExperimentPCRSetup})
			require.NoError(t, err)
			assert.Len(t, list, 1)
			none, err := l.List(ctx, domain.RunFilter{Type: domain.ExperimentCellCulture})
			require.NoError(t, err)
			assert.Empty(t, none)
		})
	}
}

func TestConcurrentAppends(t *testing.T) {
	ctx := context.Background()
	for name, l := range ledgers(t) {
		t.Run(name, func(t *testing.T) {
			var g errgroup.Group
			var mu sync.Mutex
			ids := map[string]bool{}
			for i := 0; i < 20; i++ {
				id := fmt.Sprintf("%s-%02d", name, i)
				g.Go(func() error {
					mu.Lock()
					ids[id] = true
					mu.Unlock()
					return l.Append(ctx, domain.RunRecord{ID: id, CreatedAt: time.Now(), Status: domain.RunSucceeded})
				})
			}
			require.NoError(t, g.Wait())
			all, err := l.List(ctx, domain.RunFilter{Status: domain.RunSucceeded})
			require.NoError(t, err)
			assert.Len(t, all, len(ids))
		})
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), Config{Driver: "cassandra"})
	assert.ErrorContains(t, err, "unknown storage driver")
}
