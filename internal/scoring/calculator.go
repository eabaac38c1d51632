// Package scoring aggregates control-system assessments into per-control
// compliance results.
package scoring

import (
	"context"
	"fmt"
	"time"

	"github.com/stigward/stigward/internal/database"
	"github.com/stigward/stigward/internal/models"
	"github.com/stigward/stigward/pkg/logger"
)

// Calculator computes cross-system compliance scores from the
// control_system_status rows the aggregator maintains.
type Calculator struct {
	db     *database.DB
	logger logger.Logger
	now    func() time.Time
}

// New creates a calculator over db.
func New(db *database.DB, log logger.Logger) *Calculator {
	if log == nil {
		log = logger.GetGlobalLogger()
	}

	return &Calculator{
		db:     db,
		logger: log.With("component", "scoring"),
		now:    time.Now,
	}
}

// ScoreForControl summarizes a control's posture across every system it
// has been assessed on. Returns nil when the control has no assessment
// rows anywhere.
func (c *Calculator) ScoreForControl(ctx context.Context, controlID string) (*models.ComplianceResult, error) {
	rows, err := c.db.StatusRowsForControl(ctx, controlID)
	if err != nil {
		return nil, fmt.Errorf("reading assessments for %s: %w", controlID, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	totalSystems, err := c.db.CountSystems(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting systems: %w", err)
	}

	result := &models.ComplianceResult{
		ControlID:       controlID,
		SystemsAssessed: len(rows),
		TotalSystems:    totalSystems,
	}
	for _, row := range rows {
		result.OpenFindings += row.OpenCount
		result.TotalFindings += row.TotalFindings
	}

	if result.TotalFindings > 0 {
		result.OverallScore = 100 * float64(result.TotalFindings-result.OpenFindings) / float64(result.TotalFindings)
	} else {
		// No findings at all means fully compliant by convention.
		result.OverallScore = 100
	}

	status, err := c.classify(ctx, controlID, result.OverallScore)
	if err != nil {
		return nil, err
	}
	result.ComplianceStatus = status
	return result, nil
}

// classify derives the compliance status. A control whose findings are all
// still NotReviewed is NOT_ASSESSED regardless of the numeric score.
func (c *Calculator) classify(ctx context.Context, controlID string, score float64) (models.ComplianceStatus, error) {
	allNotReviewed, err := c.db.AllFindingsNotReviewed(ctx, controlID)
	if err != nil {
		return "", fmt.Errorf("checking review state for %s: %w", controlID, err)
	}
	if allNotReviewed {
		return models.ComplianceNotAssessed, nil
	}

	if score >= 100 {
		return models.ComplianceCompliant, nil
	}
	return models.ComplianceNonCompliant, nil
}

// UpdateComplianceFromFindings recomputes and persists the compliance
// record for controlID, or for every control with mapped findings when
// controlID is empty. Each control is an independent unit of work: one
// failing control is logged and skipped, not allowed to block the sweep.
// Returns the number of control records written.
func (c *Calculator) UpdateComplianceFromFindings(ctx context.Context, controlID string) (int, error) {
	if controlID != "" {
		updated, err := c.updateControl(ctx, controlID)
		if err != nil {
			return 0, err
		}
		if updated {
			return 1, nil
		}
		return 0, nil
	}

	controls, err := c.db.DistinctControlsWithFindings(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing controls with findings: %w", err)
	}

	written := 0
	for _, id := range controls {
		updated, err := c.updateControl(ctx, id)
		if err != nil {
			c.logger.Warn("skipping control in compliance sweep", "control", id, "error", err)
			continue
		}
		if updated {
			written++
		}
	}

	c.logger.Info("compliance sweep complete", "controls", len(controls), "written", written)
	return written, nil
}

// updateControl persists one control's compliance record. Controls with no
// assessment rows are skipped without a write.
func (c *Calculator) updateControl(ctx context.Context, controlID string) (bool, error) {
	result, err := c.ScoreForControl(ctx, controlID)
	if err != nil {
		return false, err
	}
	if result == nil {
		return false, nil
	}

	if err := c.db.UpsertNistControlStatus(ctx, controlID, result.ComplianceStatus, c.now()); err != nil {
		return false, err
	}
	return true, nil
}
