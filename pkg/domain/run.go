package domain

import (
	"context"
	"errors"
	"time"
)

// RunStatus is the terminal state of one pipeline run.
type RunStatus string

// Run statuses, one per halting stage plus success.
const (
	RunSucceeded        RunStatus = "succeeded"
	RunNeedsInput       RunStatus = "needs_input"
	RunBlockedByPolicy  RunStatus = "blocked_by_policy"
	RunSynthesisFailed  RunStatus = "synthesis_failed"
	RunValidationFailed RunStatus = "validation_failed"
	RunSimulationFailed RunStatus = "simulation_failed"
	RunErrored          RunStatus = "errored"
)

// RunRecord is the ledger entry written once per pipeline run.
type RunRecord struct {
	ID          string               `json:"id"`
	CreatedAt   time.Time            `json:"created_at"`
	Text        string               `json:"text"`
	Type        ExperimentType       `json:"experiment_type,omitempty"`
	Status      RunStatus            `json:"status"`
	Instruction string               `json:"instruction,omitempty"`
	ArtifactKey string               `json:"artifact_key,omitempty"`
	Fingerprint string               `json:"fingerprint,omitempty"`
	Findings    []FindingKind        `json:"findings,omitempty"`
	Categories  []DiagnosticCategory `json:"categories,omitempty"`
	Error       string               `json:"error,omitempty"`
	Duration    time.Duration        `json:"duration"`
}

// RunFilter narrows List results. Zero fields match everything; Limit <= 0
// means no limit.
type RunFilter struct {
	Type   ExperimentType
	Status RunStatus
	Limit  int
}

// Match reports whether a record passes the type and status filters.
func (f RunFilter) Match(r RunRecord) bool {
	return (f.Type == "" || f.Type == r.Type) && (f.Status == "" || f.Status == r.Status)
}

// RunLedger is an append-only record of pipeline outcomes. List returns
// records oldest first.
type RunLedger interface {
	Append(ctx context.Context, record RunRecord) error
	Get(ctx context.Context, id string) (RunRecord, error)
	List(ctx context.Context, filter RunFilter) ([]RunRecord, error)
	Close() error
}

// Ledger errors.
var (
	ErrRunNotFound  = errors.New("run not found")
	ErrDuplicateRun = errors.New("run already recorded")
)
