package database

import (
	"context"
	"testing"
	"time"

	"github.com/stigward/stigward/internal/models"
)

func TestUpsertAndReadCciMappings(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	mappings := []*CciControlMapping{
		{CCI: "CCI-000366", ControlID: "CM-6", ControlTitle: "Configuration Settings", Definition: "Configure the system per the security configuration settings."},
		{CCI: "CCI-000130", ControlID: "AU-3", ControlTitle: "Content of Audit Records"},
	}

	if err := db.UpsertCciMappings(ctx, mappings); err != nil {
		t.Fatalf("UpsertCciMappings() error = %v", err)
	}

	// Re-upserting with a changed control must replace, not duplicate.
	mappings[0].ControlID = "CM-6(1)"
	if err := db.UpsertCciMappings(ctx, mappings); err != nil {
		t.Fatalf("second UpsertCciMappings() error = %v", err)
	}

	all, err := db.AllCciMappings(ctx)
	if err != nil {
		t.Fatalf("AllCciMappings() error = %v", err)
	}

	byCCI := make(map[string]*CciControlMapping, len(all))
	for _, m := range all {
		byCCI[m.CCI] = m
	}
	if m, ok := byCCI["CCI-000366"]; !ok || m.ControlID != "CM-6(1)" {
		t.Errorf("CCI-000366 mapping = %+v, want control CM-6(1)", m)
	}

	if err := db.UpsertCciMappings(ctx, nil); err != nil {
		t.Errorf("UpsertCciMappings(nil) error = %v, want no-op", err)
	}
}

func TestUpsertControlSystemStatus(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	systemID := createTestSystem(t, db, "sys")

	status := &ControlSystemStatus{
		ControlID:       "CM-6",
		SystemID:        systemID,
		HasFindings:     true,
		OpenCount:       3,
		CriticalCount:   2,
		TotalFindings:   4,
		ComplianceScore: 25,
		LastAssessed:    time.Now(),
	}
	if err := db.UpsertControlSystemStatus(ctx, status); err != nil {
		t.Fatalf("UpsertControlSystemStatus() error = %v", err)
	}

	// Second recompute for the same pair overwrites.
	status.OpenCount = 0
	status.CriticalCount = 0
	status.ComplianceScore = 100
	if err := db.UpsertControlSystemStatus(ctx, status); err != nil {
		t.Fatalf("second UpsertControlSystemStatus() error = %v", err)
	}

	rows, err := db.StatusRowsForControl(ctx, "CM-6")
	if err != nil {
		t.Fatalf("StatusRowsForControl() error = %v", err)
	}

	var row *ControlSystemStatus
	for _, r := range rows {
		if r.SystemID == systemID {
			row = r
		}
	}
	if row == nil {
		t.Fatal("StatusRowsForControl() missing row for system")
	}
	if row.OpenCount != 0 || row.ComplianceScore != 100 {
		t.Errorf("status row = open %d score %.0f, want overwritten to 0/100", row.OpenCount, row.ComplianceScore)
	}

	systemRows, err := db.StatusRowsForSystem(ctx, systemID)
	if err != nil {
		t.Fatalf("StatusRowsForSystem() error = %v", err)
	}
	if len(systemRows) != 1 {
		t.Errorf("StatusRowsForSystem() returned %d rows, want 1", len(systemRows))
	}
}

func TestAllFindingsNotReviewed(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	systemID := createTestSystem(t, db, "sys")
	scanID := testScan(t, db, systemID, "rhel8.ckl")

	findings := []models.Finding{
		{RuleID: "SV-10_rule", Severity: models.SeverityCatII, Status: models.StatusNotReviewed, CCIRefs: []string{"CCI-000366"}},
		{RuleID: "SV-11_rule", Severity: models.SeverityCatII, Status: models.StatusNotReviewed, CCIRefs: []string{"CCI-000366"}},
	}
	if _, err := db.SaveFindings(ctx, scanID, systemID, findings); err != nil {
		t.Fatalf("SaveFindings() error = %v", err)
	}

	// Map both findings to a control unique to this test.
	unmapped, err := db.UnmappedFindings(ctx, scanID)
	if err != nil {
		t.Fatalf("UnmappedFindings() error = %v", err)
	}
	controlID := t.Name() + "-CM-6"
	for _, f := range unmapped {
		if err := db.SetFindingControl(ctx, f.ID, controlID); err != nil {
			t.Fatalf("SetFindingControl() error = %v", err)
		}
	}

	notReviewed, err := db.AllFindingsNotReviewed(ctx, controlID)
	if err != nil {
		t.Fatalf("AllFindingsNotReviewed() error = %v", err)
	}
	if !notReviewed {
		t.Error("AllFindingsNotReviewed() = false, want true when every finding is NotReviewed")
	}

	// No findings at all is not "not reviewed".
	notReviewed, err = db.AllFindingsNotReviewed(ctx, "no-such-control")
	if err != nil {
		t.Fatalf("AllFindingsNotReviewed() error = %v", err)
	}
	if notReviewed {
		t.Error("AllFindingsNotReviewed() = true for control with no findings, want false")
	}
}

func TestUpsertNistControlStatus(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	controlID := t.Name() + "-AC-2"

	missing, err := db.GetNistControl(ctx, controlID)
	if err != nil {
		t.Fatalf("GetNistControl() error = %v", err)
	}
	if missing != nil {
		t.Fatalf("GetNistControl() = %+v, want nil before assessment", missing)
	}

	now := time.Now()
	if err := db.UpsertNistControlStatus(ctx, controlID, models.ComplianceNonCompliant, now); err != nil {
		t.Fatalf("UpsertNistControlStatus() error = %v", err)
	}
	if err := db.UpsertNistControlStatus(ctx, controlID, models.ComplianceCompliant, now); err != nil {
		t.Fatalf("second UpsertNistControlStatus() error = %v", err)
	}

	control, err := db.GetNistControl(ctx, controlID)
	if err != nil {
		t.Fatalf("GetNistControl() error = %v", err)
	}
	if control == nil {
		t.Fatal("GetNistControl() = nil after upsert")
	}
	if control.ComplianceStatus != models.ComplianceCompliant {
		t.Errorf("ComplianceStatus = %q, want COMPLIANT after overwrite", control.ComplianceStatus)
	}
	if !control.AssessedAt.Valid {
		t.Error("AssessedAt not set")
	}
}
