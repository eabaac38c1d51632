package ccimap

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stigward/stigward/internal/database"
	"github.com/stigward/stigward/pkg/logger"
)

// mockStore serves canned mapping rows or a canned error.
type mockStore struct {
	err  error
	rows []*database.CciControlMapping
}

func (m *mockStore) AllCciMappings(_ context.Context) ([]*database.CciControlMapping, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.rows, nil
}

func TestTableLookups(t *testing.T) {
	store := &mockStore{rows: []*database.CciControlMapping{
		{CCI: "CCI-000001", ControlID: "AC-1", ControlTitle: "Policy and Procedures", Definition: "Develop and document access control policy."},
		{CCI: "CCI-000366", ControlID: "CM-6", ControlTitle: "Configuration Settings"},
	}}

	table := New(store, logger.NewMockLogger())
	assert.Equal(t, 0, table.Size(), "unloaded table must be empty")

	require.NoError(t, table.Load(context.Background()))
	assert.Equal(t, 2, table.Size())

	controlID, ok := table.MapOne("CCI-000001")
	assert.True(t, ok)
	assert.Equal(t, "AC-1", controlID)

	_, ok = table.MapOne("CCI-999999")
	assert.False(t, ok)

	resolved := table.MapMany([]string{"CCI-000001", "CCI-999999"})
	assert.Equal(t, map[string]string{"CCI-000001": "AC-1"}, resolved)

	def := table.Definition("CCI-000001")
	require.NotNil(t, def)
	assert.Equal(t, "AC-1", def.ControlID)
	assert.Equal(t, "Policy and Procedures", def.ControlTitle)

	assert.Nil(t, table.Definition("CCI-999999"))
}

func TestTableEmptyStore(t *testing.T) {
	table := New(&mockStore{}, logger.NewMockLogger())

	require.NoError(t, table.Load(context.Background()))
	assert.Equal(t, 0, table.Size())
	assert.Empty(t, table.MapMany([]string{"CCI-000001"}))
}

func TestRefreshReplacesTable(t *testing.T) {
	store := &mockStore{rows: []*database.CciControlMapping{
		{CCI: "CCI-000001", ControlID: "AC-1"},
	}}
	table := New(store, logger.NewMockLogger())
	require.NoError(t, table.Load(context.Background()))

	store.rows = []*database.CciControlMapping{
		{CCI: "CCI-000001", ControlID: "AC-1(1)"},
		{CCI: "CCI-000002", ControlID: "AC-2"},
	}
	require.NoError(t, table.Refresh(context.Background()))

	assert.Equal(t, 2, table.Size())
	controlID, ok := table.MapOne("CCI-000001")
	assert.True(t, ok)
	assert.Equal(t, "AC-1(1)", controlID)
}

func TestFailedRefreshKeepsOldTable(t *testing.T) {
	store := &mockStore{rows: []*database.CciControlMapping{
		{CCI: "CCI-000001", ControlID: "AC-1"},
	}}
	table := New(store, logger.NewMockLogger())
	require.NoError(t, table.Load(context.Background()))

	store.err = errors.New("database is locked")
	err := table.Refresh(context.Background())
	require.Error(t, err)
	assert.ErrorContains(t, err, "database is locked")

	// The pre-refresh table must remain usable.
	assert.Equal(t, 1, table.Size())
	controlID, ok := table.MapOne("CCI-000001")
	assert.True(t, ok)
	assert.Equal(t, "AC-1", controlID)
}

func TestTableLoadFromDatabase(t *testing.T) {
	db, err := database.NewMemoryDB()
	require.NoError(t, err)
	defer func() {
		_ = db.Close()
	}()

	ctx := context.Background()
	require.NoError(t, db.UpsertCciMappings(ctx, []*database.CciControlMapping{
		{CCI: "CCI-001230", ControlID: "SI-2", ControlTitle: "Flaw Remediation"},
	}))

	table := New(db, logger.NewMockLogger())
	require.NoError(t, table.Load(ctx))

	controlID, ok := table.MapOne("CCI-001230")
	assert.True(t, ok)
	assert.Equal(t, "SI-2", controlID)
}
