package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeStatus(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Status
	}{
		{name: "open", input: "open", want: StatusOpen},
		{name: "open uppercase", input: "Open", want: StatusOpen},
		{name: "not a finding underscores", input: "not_a_finding", want: StatusNotAFinding},
		{name: "not a finding collapsed", input: "notafinding", want: StatusNotAFinding},
		{name: "not a finding spaced", input: "Not A Finding", want: StatusNotAFinding},
		{name: "pass alias", input: "pass", want: StatusNotAFinding},
		{name: "not applicable underscores", input: "not_applicable", want: StatusNotApplicable},
		{name: "not applicable spaced", input: "Not Applicable", want: StatusNotApplicable},
		{name: "not reviewed underscores", input: "not_reviewed", want: StatusNotReviewed},
		{name: "not reviewed spaced", input: "Not Reviewed", want: StatusNotReviewed},
		{name: "unrecognized coerces to not reviewed", input: "deferred", want: StatusNotReviewed},
		{name: "empty coerces to not reviewed", input: "", want: StatusNotReviewed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeStatus(tt.input))
		})
	}
}

func TestFindingIsValid(t *testing.T) {
	tests := []struct {
		name    string
		finding Finding
		wantErr bool
	}{
		{
			name: "complete finding",
			finding: Finding{
				RuleID:   "SV-230221r858734_rule",
				VulnID:   "V-230221",
				Severity: SeverityCatI,
				Status:   StatusOpen,
			},
		},
		{
			name:    "missing rule id",
			finding: Finding{Severity: SeverityCatII, Status: StatusOpen},
			wantErr: true,
		},
		{
			name:    "raw severity not canonical",
			finding: Finding{RuleID: "r", Severity: "high", Status: StatusOpen},
			wantErr: true,
		},
		{
			name:    "raw status not canonical",
			finding: Finding{RuleID: "r", Severity: SeverityCatII, Status: "open"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.finding.IsValid()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestFindingOpenAndCritical(t *testing.T) {
	open := Finding{RuleID: "r1", Severity: SeverityCatI, Status: StatusOpen}
	assert.True(t, open.IsOpen())
	assert.True(t, open.IsCritical())

	openLow := Finding{RuleID: "r2", Severity: SeverityCatIII, Status: StatusOpen}
	assert.True(t, openLow.IsOpen())
	assert.False(t, openLow.IsCritical())

	closed := Finding{RuleID: "r3", Severity: SeverityCatI, Status: StatusNotAFinding}
	assert.False(t, closed.IsOpen())
	assert.False(t, closed.IsCritical())
}
