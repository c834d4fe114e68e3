package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cornucopia/internal/infra/persistence/postgres/testutil"
	"cornucopia/pkg/domain"
)

func openStub(t *testing.T) (*Store, *testutil.StubConn) {
	t.Helper()
	db, conn := testutil.NewStubDB()
	restore := OverrideSQLOpen(func(driverName, dsn string) (*sql.DB, error) {
		assert.Equal(t, "pgx", driverName)
		assert.Equal(t, defaultDSN, dsn)
		return db, nil
	})
	t.Cleanup(restore)
	store, err := NewStore(context.Background(), "")
	require.NoError(t, err)
	return store, conn
}

func TestNewStoreCreatesRunsTable(t *testing.T) {
	_, conn := openStub(t)
	require.Len(t, conn.Execs, 3)
	assert.Contains(t, conn.Execs[0], "CREATE TABLE IF NOT EXISTS runs")
	assert.Contains(t, conn.Execs[0], "payload JSONB")
	assert.Contains(t, conn.Execs[1], "CREATE INDEX IF NOT EXISTS idx_runs_created_at")
}

func TestAppendGetList(t *testing.T) {
	ctx := context.Background()
	store, conn := openStub(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	records := []domain.RunRecord{
		{ID: "a", CreatedAt: base, Type: domain.ExperimentPCRSetup, Status: domain.RunSucceeded, Fingerprint: "f1"},
		{ID: "b", CreatedAt: base.Add(time.Second), Type: domain.ExperimentSerialDilution, Status: domain.RunValidationFailed,
			Findings: []domain.FindingKind{domain.FindingVolumeOutOfRange}},
		{ID: "c", CreatedAt: base.Add(2 * time.Second), Type: domain.ExperimentPCRSetup, Status: domain.RunSimulationFailed,
			Categories: []domain.DiagnosticCategory{domain.CategoryTipShortage}},
	}
	for _, r := range records {
		require.NoError(t, store.Append(ctx, r))
	}
	assert.Contains(t, conn.Execs[3], "VALUES ($1, $2, $3, $4, $5)")

	got, err := store.Get(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, records[1].Findings, got.Findings)
	assert.True(t, records[1].CreatedAt.Equal(got.CreatedAt))

	pcr, err := store.List(ctx, domain.RunFilter{Type: domain.ExperimentPCRSetup})
	require.NoError(t, err)
	require.Len(t, pcr, 2)
	assert.Equal(t, "a", pcr[0].ID)
	assert.Equal(t, "c", pcr[1].ID)

	failed, err := store.List(ctx, domain.RunFilter{Type: domain.ExperimentPCRSetup, Status: domain.RunSimulationFailed})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, []domain.DiagnosticCategory{domain.CategoryTipShortage}, failed[0].Categories)

	limited, err := store.List(ctx, domain.RunFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
	last := conn.Queries[len(conn.Queries)-1]
	assert.True(t, strings.HasSuffix(last, "LIMIT $1"), last)
}

func TestAppendIsAppendOnly(t *testing.T) {
	ctx := context.Background()
	store, _ := openStub(t)
	r := domain.RunRecord{ID: "dup", CreatedAt: time.Now(), Status: domain.RunSucceeded}
	require.NoError(t, store.Append(ctx, r))
	err := store.Append(ctx, r)
	assert.ErrorIs(t, err, domain.ErrDuplicateRun)
	assert.Error(t, store.Append(ctx, domain.RunRecord{}))
}

func TestGetMissing(t *testing.T) {
	store, _ := openStub(t)
	_, err := store.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrRunNotFound)
}

func TestNewStoreErrors(t *testing.T) {
	restore := OverrideSQLOpen(func(string, string) (*sql.DB, error) { return nil, errors.New("boom") })
	_, err := NewStore(context.Background(), "postgres://x")
	restore()
	assert.ErrorContains(t, err, "open postgres")

	db, conn := testutil.NewStubDB()
	conn.FailPing = true
	restore = OverrideSQLOpen(func(string, string) (*sql.DB, error) { return db, nil })
	_, err = NewStore(context.Background(), "postgres://x")
	restore()
	assert.ErrorContains(t, err, "ping postgres")

	db, conn = testutil.NewStubDB()
	conn.FailExec = true
	restore = OverrideSQLOpen(func(string, string) (*sql.DB, error) { return db, nil })
	defer restore()
	_, err = NewStore(context.Background(), "postgres://x")
	assert.ErrorContains(t, err, "apply postgres schema")
}
