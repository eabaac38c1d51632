package worker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stigward/stigward/internal/database"
	"github.com/stigward/stigward/pkg/logger"
)

type mockStore struct {
	fetchErr  error
	setErr    error
	findings  []*database.Finding
	setCalls  map[int64]string
	fetchSeen []int64
}

func newMockStore(findings []*database.Finding) *mockStore {
	return &mockStore{findings: findings, setCalls: map[int64]string{}}
}

func (m *mockStore) UnmappedFindings(_ context.Context, scanID int64) ([]*database.Finding, error) {
	m.fetchSeen = append(m.fetchSeen, scanID)
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	return m.findings, nil
}

func (m *mockStore) SetFindingControl(_ context.Context, findingID int64, controlID string) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.setCalls[findingID] = controlID
	return nil
}

type mockMapper struct {
	table map[string]string
}

func (m *mockMapper) MapOne(cci string) (string, bool) {
	controlID, ok := m.table[cci]
	return controlID, ok
}

func (m *mockMapper) Size() int {
	return len(m.table)
}

type mockAggregator struct {
	err     error
	systems []int64
}

func (m *mockAggregator) RecomputeAll(_ context.Context, systemID int64) error {
	if m.err != nil {
		return m.err
	}
	m.systems = append(m.systems, systemID)
	return nil
}

func unmappedFindings(n int, cci string) []*database.Finding {
	findings := make([]*database.Finding, 0, n)
	for i := 0; i < n; i++ {
		findings = append(findings, &database.Finding{
			ID:      int64(i + 1),
			RuleID:  fmt.Sprintf("SV-%d_rule", i+1),
			CCIRefs: []string{cci},
		})
	}
	return findings
}

func TestMappingJobHappyPath(t *testing.T) {
	store := newMockStore(unmappedFindings(100, "CCI-000366"))
	mapper := &mockMapper{table: map[string]string{"CCI-000366": "CM-6"}}
	agg := &mockAggregator{}

	job := NewMappingJob(store, mapper, agg, Payload{ScanID: 7, SystemID: 3}, logger.NewMockLogger())
	assert.Equal(t, StateQueued, job.State())
	assert.NotEqual(t, "", job.ID.String())

	var percents []float64
	result, err := job.Run(context.Background(), func(percent float64) {
		percents = append(percents, percent)
	})
	require.NoError(t, err)

	assert.Equal(t, StateCompleted, job.State())
	assert.Equal(t, 100, result.TotalFindings)
	assert.Equal(t, 100, result.MappedCount)
	assert.Len(t, store.setCalls, 100)
	assert.Equal(t, "CM-6", store.setCalls[1])

	// 100 findings in batches of 100: exactly one progress report, at 100%.
	require.NotEmpty(t, percents)
	assert.InDelta(t, 100.0, percents[len(percents)-1], 0.001)

	// Aggregation runs once, for the job's system.
	assert.Equal(t, []int64{3}, agg.systems)
	assert.Equal(t, []int64{7}, store.fetchSeen)
}

func TestMappingJobBatchProgress(t *testing.T) {
	store := newMockStore(unmappedFindings(250, "CCI-000366"))
	mapper := &mockMapper{table: map[string]string{"CCI-000366": "CM-6"}}
	agg := &mockAggregator{}

	job := NewMappingJob(store, mapper, agg, Payload{ScanID: 1, SystemID: 1}, logger.NewMockLogger())

	var percents []float64
	result, err := job.Run(context.Background(), func(percent float64) {
		percents = append(percents, percent)
	})
	require.NoError(t, err)
	assert.Equal(t, 250, result.MappedCount)

	require.Len(t, percents, 3)
	assert.InDelta(t, 40.0, percents[0], 0.001)
	assert.InDelta(t, 80.0, percents[1], 0.001)
	assert.InDelta(t, 100.0, percents[2], 0.001)

	// Progress must be monotonic.
	for i := 1; i < len(percents); i++ {
		assert.GreaterOrEqual(t, percents[i], percents[i-1])
	}
}

func TestMappingJobSkipsUnresolvableCCIs(t *testing.T) {
	findings := unmappedFindings(4, "CCI-000366")
	findings[1].CCIRefs = []string{"CCI-999999"}
	findings[2].CCIRefs = []string{}
	// Only the first CCI reference is consulted; the resolvable second
	// reference must not rescue this finding.
	findings[3].CCIRefs = []string{"CCI-999999", "CCI-000366"}

	store := newMockStore(findings)
	mapper := &mockMapper{table: map[string]string{"CCI-000366": "CM-6"}}
	agg := &mockAggregator{}

	job := NewMappingJob(store, mapper, agg, Payload{ScanID: 1, SystemID: 1}, logger.NewMockLogger())
	result, err := job.Run(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, 4, result.TotalFindings)
	assert.Equal(t, 1, result.MappedCount)
	assert.Equal(t, StateCompleted, job.State())
}

func TestMappingJobNothingToMap(t *testing.T) {
	store := newMockStore(nil)
	agg := &mockAggregator{}
	job := NewMappingJob(store, &mockMapper{}, agg, Payload{ScanID: 1, SystemID: 1}, logger.NewMockLogger())

	progressCalled := false
	result, err := job.Run(context.Background(), func(float64) {
		progressCalled = true
	})
	require.NoError(t, err)

	assert.Equal(t, 0, result.TotalFindings)
	assert.Equal(t, 0, result.MappedCount)
	assert.Equal(t, StateCompleted, job.State())
	assert.False(t, progressCalled)
	assert.Empty(t, agg.systems, "no findings means no reaggregation")
}

func TestMappingJobFetchFailure(t *testing.T) {
	store := newMockStore(nil)
	store.fetchErr = errors.New("database is locked")

	job := NewMappingJob(store, &mockMapper{}, &mockAggregator{}, Payload{ScanID: 1, SystemID: 1}, logger.NewMockLogger())
	result, err := job.Run(context.Background(), nil)

	require.Error(t, err)
	assert.Nil(t, result)
	assert.Equal(t, StateFailed, job.State())
	assert.True(t, strings.HasPrefix(err.Error(), "CCI mapping failed:"), "got %q", err.Error())
	assert.ErrorContains(t, err, "database is locked")
}

func TestMappingJobPersistFailure(t *testing.T) {
	store := newMockStore(unmappedFindings(5, "CCI-000366"))
	store.setErr = errors.New("disk I/O error")
	mapper := &mockMapper{table: map[string]string{"CCI-000366": "CM-6"}}

	job := NewMappingJob(store, mapper, &mockAggregator{}, Payload{ScanID: 1, SystemID: 1}, logger.NewMockLogger())
	_, err := job.Run(context.Background(), nil)

	require.Error(t, err)
	assert.Equal(t, StateFailed, job.State())
	assert.True(t, strings.HasPrefix(err.Error(), "CCI mapping failed:"), "got %q", err.Error())
}

func TestMappingJobAggregatorFailure(t *testing.T) {
	store := newMockStore(unmappedFindings(2, "CCI-000366"))
	mapper := &mockMapper{table: map[string]string{"CCI-000366": "CM-6"}}
	agg := &mockAggregator{err: errors.New("database is locked")}

	job := NewMappingJob(store, mapper, agg, Payload{ScanID: 1, SystemID: 1}, logger.NewMockLogger())
	_, err := job.Run(context.Background(), nil)

	require.Error(t, err)
	assert.Equal(t, StateFailed, job.State())
	assert.True(t, strings.HasPrefix(err.Error(), "CCI mapping failed:"), "got %q", err.Error())
}
