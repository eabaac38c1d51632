package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/stigward/stigward/internal/models"
)

// FindingBatchSize is how many findings are written per transaction.
const FindingBatchSize = 100

// CreateSystem creates a system record and returns its ID.
func (db *DB) CreateSystem(ctx context.Context, name string) (int64, error) {
	result, err := db.ExecContext(ctx, `INSERT INTO systems (name) VALUES (?)`, name)
	if err != nil {
		return 0, fmt.Errorf("inserting system: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting last insert id: %w", err)
	}
	return id, nil
}

// GetSystem fetches a system by ID.
func (db *DB) GetSystem(ctx context.Context, systemID int64) (*System, error) {
	system := &System{}
	err := db.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM systems WHERE id = ?`, systemID).
		Scan(&system.ID, &system.Name, &system.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("system %d not found", systemID)
	}
	if err != nil {
		return nil, fmt.Errorf("querying system: %w", err)
	}
	return system, nil
}

// CountSystems returns the number of known systems.
func (db *DB) CountSystems(ctx context.Context) (int, error) {
	var count int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM systems`).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting systems: %w", err)
	}
	return count, nil
}

// CreateScan records one import event and returns the scan ID.
func (db *DB) CreateScan(ctx context.Context, scan *Scan) (int64, error) {
	result, err := db.ExecContext(ctx, `
		INSERT INTO scans (system_id, filename, imported_by, finding_count)
		VALUES (?, ?, ?, ?)
	`, scan.SystemID, scan.Filename, scan.ImportedBy, scan.FindingCount)
	if err != nil {
		return 0, fmt.Errorf("inserting scan: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting last insert id: %w", err)
	}
	return id, nil
}

// ListScans returns all scans for a system, newest first.
func (db *DB) ListScans(ctx context.Context, systemID int64) ([]*Scan, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, system_id, filename, imported_by, finding_count, imported_at
		FROM scans WHERE system_id = ?
		ORDER BY imported_at DESC, id DESC
	`, systemID)
	if err != nil {
		return nil, fmt.Errorf("querying scans: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var scans []*Scan
	for rows.Next() {
		scan := &Scan{}
		if err := rows.Scan(&scan.ID, &scan.SystemID, &scan.Filename,
			&scan.ImportedBy, &scan.FindingCount, &scan.ImportedAt); err != nil {
			return nil, fmt.Errorf("scanning scan row: %w", err)
		}
		scans = append(scans, scan)
	}
	return scans, rows.Err()
}

// SaveFindings persists normalized findings for a scan in batches,
// upserting on (scan_id, rule_id) so re-importing the same scan is
// idempotent. Returns the number of findings written.
func (db *DB) SaveFindings(ctx context.Context, scanID, systemID int64, findings []models.Finding) (int, error) {
	if len(findings) == 0 {
		return 0, nil
	}

	written := 0
	for start := 0; start < len(findings); start += FindingBatchSize {
		end := start + FindingBatchSize
		if end > len(findings) {
			end = len(findings)
		}

		if err := db.saveFindingBatch(ctx, scanID, systemID, findings[start:end]); err != nil {
			return written, fmt.Errorf("saving findings %d-%d: %w", start, end, err)
		}
		written += end - start
	}

	return written, nil
}

// saveFindingBatch writes one batch inside a single transaction.
func (db *DB) saveFindingBatch(ctx context.Context, scanID, systemID int64, findings []models.Finding) error {
	return db.InTransaction(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO findings (scan_id, system_id, rule_id, vuln_id, title, discussion, severity, status, cci_refs)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(scan_id, rule_id) DO UPDATE SET
				vuln_id = excluded.vuln_id,
				title = excluded.title,
				discussion = excluded.discussion,
				severity = excluded.severity,
				status = excluded.status,
				cci_refs = excluded.cci_refs,
				updated_at = CURRENT_TIMESTAMP
		`)
		if err != nil {
			return fmt.Errorf("preparing statement: %w", err)
		}
		defer func() {
			_ = stmt.Close()
		}()

		for _, finding := range findings {
			ccisJSON, err := json.Marshal(finding.CCIRefs)
			if err != nil {
				return fmt.Errorf("marshaling cci refs: %w", err)
			}

			if _, err := stmt.ExecContext(ctx,
				scanID,
				systemID,
				finding.RuleID,
				finding.VulnID,
				finding.Title,
				finding.Discussion,
				finding.Severity,
				finding.Status,
				string(ccisJSON),
			); err != nil {
				return fmt.Errorf("upserting finding %s: %w", finding.RuleID, err)
			}
		}

		return nil
	})
}

const findingColumns = `id, scan_id, system_id, rule_id, vuln_id, title, discussion,
	severity, status, cci_refs, control_id, created_at, updated_at`

// GetFindings returns all findings for a scan in insertion order.
func (db *DB) GetFindings(ctx context.Context, scanID int64) ([]*Finding, error) {
	return db.queryFindings(ctx,
		`SELECT `+findingColumns+` FROM findings WHERE scan_id = ? ORDER BY id`, scanID)
}

// FindingsForSystem returns all findings for a system across scans.
func (db *DB) FindingsForSystem(ctx context.Context, systemID int64) ([]*Finding, error) {
	return db.queryFindings(ctx,
		`SELECT `+findingColumns+` FROM findings WHERE system_id = ? ORDER BY id`, systemID)
}

// FindingsForControlSystem returns the mapped findings for one
// (control, system) pair across all scans.
func (db *DB) FindingsForControlSystem(ctx context.Context, controlID string, systemID int64) ([]*Finding, error) {
	return db.queryFindings(ctx,
		`SELECT `+findingColumns+` FROM findings WHERE control_id = ? AND system_id = ? ORDER BY id`,
		controlID, systemID)
}

// UnmappedFindings returns a scan's findings that carry CCI references but
// have no control mapped yet.
func (db *DB) UnmappedFindings(ctx context.Context, scanID int64) ([]*Finding, error) {
	return db.queryFindings(ctx, `
		SELECT `+findingColumns+` FROM findings
		WHERE scan_id = ? AND control_id IS NULL AND cci_refs != '[]'
		ORDER BY id`, scanID)
}

// SetFindingControl persists a resolved control mapping onto a finding.
func (db *DB) SetFindingControl(ctx context.Context, findingID int64, controlID string) error {
	result, err := db.ExecContext(ctx, `
		UPDATE findings SET control_id = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?
	`, controlID, findingID)
	if err != nil {
		return fmt.Errorf("updating finding control: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("finding %d not found", findingID)
	}
	return nil
}

// DistinctControlsForSystem returns the control IDs with at least one
// mapped finding on the system.
func (db *DB) DistinctControlsForSystem(ctx context.Context, systemID int64) ([]string, error) {
	return db.queryControlIDs(ctx, `
		SELECT DISTINCT control_id FROM findings
		WHERE system_id = ? AND control_id IS NOT NULL
		ORDER BY control_id`, systemID)
}

// DistinctControlsWithFindings returns every control ID with at least one
// mapped finding on any system.
func (db *DB) DistinctControlsWithFindings(ctx context.Context) ([]string, error) {
	return db.queryControlIDs(ctx, `
		SELECT DISTINCT control_id FROM findings
		WHERE control_id IS NOT NULL
		ORDER BY control_id`)
}

func (db *DB) queryControlIDs(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying control ids: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var controls []string
	for rows.Next() {
		var controlID string
		if err := rows.Scan(&controlID); err != nil {
			return nil, fmt.Errorf("scanning control id: %w", err)
		}
		controls = append(controls, controlID)
	}
	return controls, rows.Err()
}

func (db *DB) queryFindings(ctx context.Context, query string, args ...any) ([]*Finding, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying findings: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var findings []*Finding
	for rows.Next() {
		finding, err := scanFinding(rows)
		if err != nil {
			return nil, err
		}
		findings = append(findings, finding)
	}
	return findings, rows.Err()
}

func scanFinding(rows *sql.Rows) (*Finding, error) {
	finding := &Finding{}
	var (
		ccisJSON   string
		vulnID     sql.NullString
		title      sql.NullString
		discussion sql.NullString
		createdAt  time.Time
		updatedAt  time.Time
	)

	if err := rows.Scan(
		&finding.ID,
		&finding.ScanID,
		&finding.SystemID,
		&finding.RuleID,
		&vulnID,
		&title,
		&discussion,
		&finding.Severity,
		&finding.Status,
		&ccisJSON,
		&finding.ControlID,
		&createdAt,
		&updatedAt,
	); err != nil {
		return nil, fmt.Errorf("scanning finding row: %w", err)
	}

	finding.VulnID = vulnID.String
	finding.Title = title.String
	finding.Discussion = discussion.String
	finding.CreatedAt = createdAt
	finding.UpdatedAt = updatedAt

	if err := json.Unmarshal([]byte(ccisJSON), &finding.CCIRefs); err != nil {
		return nil, fmt.Errorf("unmarshaling cci refs for finding %d: %w", finding.ID, err)
	}

	return finding, nil
}

// CountFindings returns how many findings a scan holds.
func (db *DB) CountFindings(ctx context.Context, scanID int64) (int, error) {
	var count int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM findings WHERE scan_id = ?`, scanID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting findings: %w", err)
	}
	return count, nil
}
