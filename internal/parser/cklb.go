package parser

import (
	"encoding/json"

	"github.com/stigward/stigward/internal/models"
)

// cklbFile mirrors the JSON checklist container. Findings live under
// stigs[].checklists[].stigChecks[] with named fields per check.
type cklbFile struct {
	Title string     `json:"title"`
	Stigs []cklbStig `json:"stigs"`
}

type cklbStig struct {
	Checklists []cklbChecklist `json:"checklists"`
}

type cklbChecklist struct {
	StigChecks []cklbCheck `json:"stigChecks"`
}

type cklbCheck struct {
	RuleID     string   `json:"ruleId"`
	VulnID     string   `json:"vulnId"`
	Title      string   `json:"title"`
	Severity   string   `json:"severity"`
	Status     string   `json:"status"`
	Discussion string   `json:"discussion"`
	CCIRefs    []string `json:"cciRefs"`
}

// parseCKLB decodes the JSON container and adapts each check into a
// canonical finding. Checks without a rule identifier are skipped.
func parseCKLB(content []byte, filename string) ([]models.Finding, error) {
	var file cklbFile
	if err := json.Unmarshal(content, &file); err != nil {
		return nil, NewParseError(filename, err)
	}

	if file.Stigs == nil {
		return nil, NewParseErrorf(filename, "missing required stigs container")
	}

	findings := []models.Finding{}
	for _, stig := range file.Stigs {
		for _, checklist := range stig.Checklists {
			for _, check := range checklist.StigChecks {
				finding, ok := adaptCKLBCheck(check)
				if !ok {
					continue
				}
				findings = append(findings, finding)
			}
		}
	}

	return findings, nil
}

func adaptCKLBCheck(check cklbCheck) (models.Finding, bool) {
	if check.RuleID == "" {
		return models.Finding{}, false
	}

	ccis := check.CCIRefs
	if ccis == nil {
		ccis = []string{}
	}

	return models.Finding{
		RuleID:     check.RuleID,
		VulnID:     check.VulnID,
		Title:      check.Title,
		Discussion: check.Discussion,
		Severity:   models.NormalizeSeverity(check.Severity),
		Status:     models.NormalizeStatus(check.Status),
		CCIRefs:    ccis,
	}, true
}
