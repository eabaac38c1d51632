// Package aggregator maintains the materialized per-(control, system)
// assessment rows.
//
// Recomputation is always full read-then-overwrite: every call reads the
// current mapped findings for the pair and upserts the row from scratch.
// That makes concurrent recomputations for the same key safe to
// interleave; the last writer wins and both wrote from a consistent
// snapshot.
package aggregator

import (
	"context"
	"fmt"
	"time"

	"github.com/stigward/stigward/internal/database"
	"github.com/stigward/stigward/internal/models"
	"github.com/stigward/stigward/pkg/logger"
)

// Aggregator recomputes control_system_status rows from findings. It is
// the only writer of those rows.
type Aggregator struct {
	db     *database.DB
	logger logger.Logger
	now    func() time.Time
}

// New creates an aggregator over db.
func New(db *database.DB, log logger.Logger) *Aggregator {
	if log == nil {
		log = logger.GetGlobalLogger()
	}

	return &Aggregator{
		db:     db,
		logger: log.With("component", "aggregator"),
		now:    time.Now,
	}
}

// Recompute rebuilds the assessment row for one (control, system) pair
// from all of the system's mapped findings for that control, across
// scans. With zero matching findings no row is written: the pair is "not
// yet assessed", not "assessed as compliant".
func (a *Aggregator) Recompute(ctx context.Context, controlID string, systemID int64) error {
	findings, err := a.db.FindingsForControlSystem(ctx, controlID, systemID)
	if err != nil {
		return fmt.Errorf("reading findings for %s on system %d: %w", controlID, systemID, err)
	}

	if len(findings) == 0 {
		return nil
	}

	var open, critical int
	for _, finding := range findings {
		if finding.Status != models.StatusOpen {
			continue
		}
		open++
		if finding.Severity == models.SeverityCatI {
			critical++
		}
	}

	status := &database.ControlSystemStatus{
		ControlID:       controlID,
		SystemID:        systemID,
		HasFindings:     true,
		OpenCount:       open,
		CriticalCount:   critical,
		TotalFindings:   len(findings),
		ComplianceScore: pairScore(open, len(findings)),
		LastAssessed:    a.now(),
	}

	if err := a.db.UpsertControlSystemStatus(ctx, status); err != nil {
		return fmt.Errorf("writing status for %s on system %d: %w", controlID, systemID, err)
	}

	a.logger.Debug("recomputed control system status",
		"control", controlID, "system", systemID,
		"open", open, "critical", critical, "total", len(findings))
	return nil
}

// RecomputeAll recomputes every (control, system) pair the system has
// mapped findings for. Used after a bulk import or mapping run.
func (a *Aggregator) RecomputeAll(ctx context.Context, systemID int64) error {
	controls, err := a.db.DistinctControlsForSystem(ctx, systemID)
	if err != nil {
		return fmt.Errorf("listing controls for system %d: %w", systemID, err)
	}

	for _, controlID := range controls {
		if err := a.Recompute(ctx, controlID, systemID); err != nil {
			return err
		}
	}

	a.logger.Info("recomputed system assessments", "system", systemID, "controls", len(controls))
	return nil
}

// pairScore is the 0-100 resolved fraction for one pair. It only rises as
// open findings are driven to zero at a fixed total.
func pairScore(open, total int) float64 {
	if total == 0 {
		return 100
	}
	return 100 * float64(total-open) / float64(total)
}
