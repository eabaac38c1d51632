package database

import (
	"database/sql"
	"time"

	"github.com/stigward/stigward/internal/models"
)

// System is a monitored system that scans are imported against.
type System struct {
	CreatedAt time.Time
	Name      string
	ID        int64
}

// Scan is one checklist import event for a system.
type Scan struct {
	ImportedAt   time.Time
	Filename     string
	ImportedBy   sql.NullString
	ID           int64
	SystemID     int64
	FindingCount int
}

// Finding is a persisted STIG finding row. ControlID stays NULL until the
// CCI mapping job resolves it.
type Finding struct {
	CreatedAt  time.Time
	UpdatedAt  time.Time
	RuleID     string
	VulnID     string
	Title      string
	Discussion string
	Severity   models.Severity
	Status     models.Status
	ControlID  sql.NullString
	CCIRefs    []string
	ID         int64
	ScanID     int64
	SystemID   int64
}

// CciControlMapping is one row of the CCI reference data: a control
// correlation identifier and the NIST control it implements.
type CciControlMapping struct {
	CCI          string
	Definition   string
	ControlID    string
	ControlTitle string
	ID           int64
}

// ControlSystemStatus is the materialized assessment row for one
// (control, system) pair. Recomputed wholesale by the aggregator, never
// incrementally patched.
type ControlSystemStatus struct {
	LastAssessed    time.Time
	ControlID       string
	SystemID        int64
	OpenCount       int
	CriticalCount   int
	TotalFindings   int
	ComplianceScore float64
	HasFindings     bool
	ID              int64
}

// NistControl is the per-control compliance record maintained by the
// score calculator.
type NistControl struct {
	AssessedAt       sql.NullTime
	ControlID        string
	Title            sql.NullString
	ComplianceStatus models.ComplianceStatus
	ID               int64
}
