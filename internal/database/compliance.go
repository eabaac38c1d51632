package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/stigward/stigward/internal/models"
)

// AllCciMappings returns every CCI-to-control mapping row.
func (db *DB) AllCciMappings(ctx context.Context) ([]*CciControlMapping, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, cci, definition, control_id, control_title
		FROM cci_mappings ORDER BY cci
	`)
	if err != nil {
		return nil, fmt.Errorf("querying cci mappings: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var mappings []*CciControlMapping
	for rows.Next() {
		mapping := &CciControlMapping{}
		var definition, controlTitle sql.NullString
		if err := rows.Scan(&mapping.ID, &mapping.CCI, &definition,
			&mapping.ControlID, &controlTitle); err != nil {
			return nil, fmt.Errorf("scanning cci mapping row: %w", err)
		}
		mapping.Definition = definition.String
		mapping.ControlTitle = controlTitle.String
		mappings = append(mappings, mapping)
	}
	return mappings, rows.Err()
}

// UpsertCciMappings loads reference mapping rows, replacing any existing
// row for the same CCI.
func (db *DB) UpsertCciMappings(ctx context.Context, mappings []*CciControlMapping) error {
	if len(mappings) == 0 {
		return nil
	}

	return db.InTransaction(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO cci_mappings (cci, definition, control_id, control_title)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(cci) DO UPDATE SET
				definition = excluded.definition,
				control_id = excluded.control_id,
				control_title = excluded.control_title
		`)
		if err != nil {
			return fmt.Errorf("preparing statement: %w", err)
		}
		defer func() {
			_ = stmt.Close()
		}()

		for _, mapping := range mappings {
			if _, err := stmt.ExecContext(ctx, mapping.CCI, mapping.Definition,
				mapping.ControlID, mapping.ControlTitle); err != nil {
				return fmt.Errorf("upserting mapping %s: %w", mapping.CCI, err)
			}
		}
		return nil
	})
}

// UpsertControlSystemStatus overwrites the assessment row for one
// (control, system) pair.
func (db *DB) UpsertControlSystemStatus(ctx context.Context, status *ControlSystemStatus) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO control_system_status
			(control_id, system_id, has_findings, open_count, critical_count, total_findings, compliance_score, last_assessed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(control_id, system_id) DO UPDATE SET
			has_findings = excluded.has_findings,
			open_count = excluded.open_count,
			critical_count = excluded.critical_count,
			total_findings = excluded.total_findings,
			compliance_score = excluded.compliance_score,
			last_assessed = excluded.last_assessed
	`, status.ControlID, status.SystemID, status.HasFindings, status.OpenCount,
		status.CriticalCount, status.TotalFindings, status.ComplianceScore, status.LastAssessed)
	if err != nil {
		return fmt.Errorf("upserting control system status: %w", err)
	}
	return nil
}

// StatusRowsForControl returns the assessment rows for a control across
// all systems.
func (db *DB) StatusRowsForControl(ctx context.Context, controlID string) ([]*ControlSystemStatus, error) {
	return db.queryStatusRows(ctx, `
		SELECT id, control_id, system_id, has_findings, open_count, critical_count,
			total_findings, compliance_score, last_assessed
		FROM control_system_status WHERE control_id = ? ORDER BY system_id`, controlID)
}

// StatusRowsForSystem returns the assessment rows for one system.
func (db *DB) StatusRowsForSystem(ctx context.Context, systemID int64) ([]*ControlSystemStatus, error) {
	return db.queryStatusRows(ctx, `
		SELECT id, control_id, system_id, has_findings, open_count, critical_count,
			total_findings, compliance_score, last_assessed
		FROM control_system_status WHERE system_id = ? ORDER BY control_id`, systemID)
}

func (db *DB) queryStatusRows(ctx context.Context, query string, args ...any) ([]*ControlSystemStatus, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying control system status: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var statuses []*ControlSystemStatus
	for rows.Next() {
		status := &ControlSystemStatus{}
		if err := rows.Scan(&status.ID, &status.ControlID, &status.SystemID,
			&status.HasFindings, &status.OpenCount, &status.CriticalCount,
			&status.TotalFindings, &status.ComplianceScore, &status.LastAssessed); err != nil {
			return nil, fmt.Errorf("scanning status row: %w", err)
		}
		statuses = append(statuses, status)
	}
	return statuses, rows.Err()
}

// AllFindingsNotReviewed reports whether every mapped finding for the
// control is still NotReviewed. False when the control has no findings.
func (db *DB) AllFindingsNotReviewed(ctx context.Context, controlID string) (bool, error) {
	var total, reviewed int
	err := db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COUNT(CASE WHEN status != ? THEN 1 END)
		FROM findings WHERE control_id = ?
	`, models.StatusNotReviewed, controlID).Scan(&total, &reviewed)
	if err != nil {
		return false, fmt.Errorf("counting reviewed findings: %w", err)
	}
	return total > 0 && reviewed == 0, nil
}

// UpsertNistControlStatus persists a control's compliance classification.
func (db *DB) UpsertNistControlStatus(ctx context.Context, controlID string, status models.ComplianceStatus, assessedAt time.Time) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO nist_controls (control_id, compliance_status, assessed_at)
		VALUES (?, ?, ?)
		ON CONFLICT(control_id) DO UPDATE SET
			compliance_status = excluded.compliance_status,
			assessed_at = excluded.assessed_at
	`, controlID, status, assessedAt)
	if err != nil {
		return fmt.Errorf("upserting nist control %s: %w", controlID, err)
	}
	return nil
}

// GetNistControl fetches the compliance record for a control, or nil when
// the control has never been assessed.
func (db *DB) GetNistControl(ctx context.Context, controlID string) (*NistControl, error) {
	control := &NistControl{}
	err := db.QueryRowContext(ctx, `
		SELECT id, control_id, title, compliance_status, assessed_at
		FROM nist_controls WHERE control_id = ?
	`, controlID).Scan(&control.ID, &control.ControlID, &control.Title,
		&control.ComplianceStatus, &control.AssessedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying nist control: %w", err)
	}
	return control, nil
}
