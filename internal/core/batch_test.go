package core

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cornucopia/pkg/domain"
)

func TestRunBatchKeepsOrderAndIsolatesFailures(t *testing.T) {
	ledger := newLedger(t)
	p := NewPipeline(WithLedger(ledger))
	reqs := []domain.ExperimentRequest{
		request("do a serial dilution"),
		request("hi"),
		request("pcr setup for 8 samples"),
		request("transfer the radioactive samples"),
		request("plate washing with 2 cycles"),
	}
	results := p.RunBatch(context.Background(), reqs, RunOptions{}, 2)
	require.Len(t, results, len(reqs))

	want := []domain.RunStatus{
		domain.RunSucceeded,
		domain.RunNeedsInput,
		domain.RunSucceeded,
		domain.RunBlockedByPolicy,
		domain.RunSucceeded,
	}
	for i, r := range results {
		assert.Equal(t, want[i], r.Outcome.Status, "request %d", i)
		assert.Equal(t, reqs[i], r.Outcome.Request, "request %d", i)
		assert.Equal(t, want[i] == domain.RunSucceeded, r.Err == nil, "request %d", i)
	}
	var pv domain.PolicyViolation
	assert.True(t, errors.As(results[3].Err, &pv))

	recs, err := ledger.List(context.Background(), domain.RunFilter{})
	require.NoError(t, err)
	assert.Len(t, recs, len(reqs))
}

func TestRunBatchDefaultLimit(t *testing.T) {
	results := NewPipeline().RunBatch(context.Background(), []domain.ExperimentRequest{request("do a serial dilution")}, RunOptions{}, 0)
	require.Len(t, results, 1)
	assert.NoError(t, results[0].Err)
}

func TestRunBatchEmpty(t *testing.T) {
	assert.Empty(t, NewPipeline().RunBatch(context.Background(), nil, RunOptions{}, 3))
}
