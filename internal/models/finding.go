// Package models contains the canonical data structures for stigward findings.
package models

import "fmt"

// Finding represents a normalized compliance finding from either checklist
// format. ScanID and SystemID scoping is applied when the finding is
// persisted; ControlID stays empty until the CCI mapping job resolves it.
type Finding struct {
	RuleID     string   `json:"rule_id"`
	VulnID     string   `json:"vuln_id"`
	Title      string   `json:"title"`
	Discussion string   `json:"discussion,omitempty"`
	Severity   Severity `json:"severity"`
	Status     Status   `json:"status"`
	CCIRefs    []string `json:"cci_refs"`
	ControlID  string   `json:"control_id,omitempty"`
}

// ComplianceStatus classifies a control's overall compliance posture.
type ComplianceStatus string

// Compliance status classifications.
const (
	ComplianceCompliant    ComplianceStatus = "COMPLIANT"
	ComplianceNonCompliant ComplianceStatus = "NON_COMPLIANT"
	ComplianceNotAssessed  ComplianceStatus = "NOT_ASSESSED"
)

// ComplianceResult is the cross-system compliance summary for one control.
type ComplianceResult struct {
	ControlID        string           `json:"control_id"`
	SystemsAssessed  int              `json:"systems_assessed"`
	TotalSystems     int              `json:"total_systems"`
	OpenFindings     int              `json:"open_findings"`
	TotalFindings    int              `json:"total_findings"`
	OverallScore     float64          `json:"overall_score"`
	ComplianceStatus ComplianceStatus `json:"compliance_status"`
}

// IsValid checks if a finding has all required fields.
func (f *Finding) IsValid() error {
	if f.RuleID == "" {
		return fmt.Errorf("finding missing required field: rule_id")
	}
	if !IsValidSeverity(f.Severity) {
		return fmt.Errorf("finding has invalid severity: %q", f.Severity)
	}
	if !IsValidStatus(f.Status) {
		return fmt.Errorf("finding has invalid status: %q", f.Status)
	}
	return nil
}

// IsOpen reports whether the finding still requires remediation.
func (f *Finding) IsOpen() bool {
	return f.Status == StatusOpen
}

// IsCritical reports whether the finding is an open CAT I weakness.
func (f *Finding) IsCritical() bool {
	return f.Status == StatusOpen && f.Severity == SeverityCatI
}
