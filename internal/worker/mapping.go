// Package worker implements the queued CCI mapping job.
//
// A job is a single-attempt unit of work delivered by an external queue:
// it maps a scan's unmapped findings to controls through the CCI table,
// reports fractional progress between batches, and triggers a full
// reaggregation of the scan's system. Retry policy belongs to the queue
// runner, not to the job.
package worker

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/stigward/stigward/internal/database"
	"github.com/stigward/stigward/pkg/logger"
)

// MappingBatchSize is how many findings are mapped per batch.
const MappingBatchSize = 100

// Store is the persistence surface the job needs.
type Store interface {
	UnmappedFindings(ctx context.Context, scanID int64) ([]*database.Finding, error)
	SetFindingControl(ctx context.Context, findingID int64, controlID string) error
}

// Mapper resolves CCIs to control IDs.
type Mapper interface {
	MapOne(cci string) (string, bool)
	Size() int
}

// Aggregator recomputes a system's assessment rows.
type Aggregator interface {
	RecomputeAll(ctx context.Context, systemID int64) error
}

// State is the lifecycle state of a job.
type State string

// Job lifecycle states.
const (
	StateQueued    State = "queued"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

// Payload identifies the scan a job maps.
type Payload struct {
	ScanID   int64 `json:"scanId"`
	SystemID int64 `json:"systemId"`
}

// Result summarizes a completed job.
type Result struct {
	TotalFindings int `json:"totalFindings"`
	MappedCount   int `json:"mappedCount"`
}

// ProgressFunc receives the job's completion percentage after each batch.
type ProgressFunc func(percent float64)

// MappingJob maps one scan's unmapped findings to controls.
type MappingJob struct {
	ID        uuid.UUID
	Payload   Payload
	BatchSize int

	store  Store
	mapper Mapper
	agg    Aggregator
	logger logger.Logger

	mu    sync.Mutex
	state State
}

// NewMappingJob creates a queued job for the given scan.
func NewMappingJob(store Store, mapper Mapper, agg Aggregator, payload Payload, log logger.Logger) *MappingJob {
	if log == nil {
		log = logger.GetGlobalLogger()
	}

	id := uuid.New()
	return &MappingJob{
		ID:        id,
		Payload:   payload,
		BatchSize: MappingBatchSize,
		store:     store,
		mapper:    mapper,
		agg:       agg,
		logger:    log.With("job", id.String(), "scan", payload.ScanID, "system", payload.SystemID),
		state:     StateQueued,
	}
}

// State returns the job's current lifecycle state.
func (j *MappingJob) State() State {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state
}

func (j *MappingJob) setState(state State) {
	j.mu.Lock()
	j.state = state
	j.mu.Unlock()
}

// Run executes the job to completion. Unresolvable CCIs are skipped;
// storage errors abort the whole job. Batch processing is strictly
// sequential, and progress is only reported between batches.
func (j *MappingJob) Run(ctx context.Context, progress ProgressFunc) (*Result, error) {
	j.setState(StateRunning)

	result, err := j.run(ctx, progress)
	if err != nil {
		j.setState(StateFailed)
		j.logger.Error("CCI mapping job failed", "error", err)
		return nil, fmt.Errorf("CCI mapping failed: %w", err)
	}

	j.setState(StateCompleted)
	j.logger.Info("CCI mapping job complete",
		"total", result.TotalFindings, "mapped", result.MappedCount)
	return result, nil
}

func (j *MappingJob) run(ctx context.Context, progress ProgressFunc) (*Result, error) {
	findings, err := j.store.UnmappedFindings(ctx, j.Payload.ScanID)
	if err != nil {
		return nil, err
	}

	if len(findings) == 0 {
		return &Result{}, nil
	}

	if j.mapper.Size() == 0 {
		j.logger.Warn("CCI mapping table is empty, nothing will resolve")
	}

	result := &Result{TotalFindings: len(findings)}
	for start := 0; start < len(findings); start += j.BatchSize {
		end := start + j.BatchSize
		if end > len(findings) {
			end = len(findings)
		}

		mapped, err := j.mapBatch(ctx, findings[start:end])
		if err != nil {
			return nil, err
		}
		result.MappedCount += mapped

		if progress != nil {
			progress(100 * float64(end) / float64(len(findings)))
		}
	}

	if err := j.agg.RecomputeAll(ctx, j.Payload.SystemID); err != nil {
		return nil, err
	}

	return result, nil
}

// mapBatch resolves one batch of findings through the mapping table.
// Only the first CCI reference is consulted; a finding whose first CCI is
// unknown stays unmapped.
func (j *MappingJob) mapBatch(ctx context.Context, findings []*database.Finding) (int, error) {
	mapped := 0
	for _, finding := range findings {
		if len(finding.CCIRefs) == 0 {
			continue
		}

		controlID, ok := j.mapper.MapOne(finding.CCIRefs[0])
		if !ok {
			continue
		}

		if err := j.store.SetFindingControl(ctx, finding.ID, controlID); err != nil {
			return mapped, err
		}
		mapped++
	}
	return mapped, nil
}
