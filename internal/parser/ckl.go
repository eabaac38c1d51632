package parser

import (
	"encoding/xml"

	"github.com/stigward/stigward/internal/models"
)

// cklChecklist mirrors the legacy XML checklist container. Findings live
// under CHECKLIST > STIGS > iSTIG > VULN; each VULN carries its fields as
// VULN_ATTRIBUTE/ATTRIBUTE_DATA pairs plus a STATUS element.
type cklChecklist struct {
	XMLName xml.Name  `xml:"CHECKLIST"`
	Stigs   []cklStig `xml:"STIGS>iSTIG"`
}

type cklStig struct {
	Vulns []cklVuln `xml:"VULN"`
}

type cklVuln struct {
	Status   string        `xml:"STATUS"`
	StigData []cklStigData `xml:"STIG_DATA"`
}

type cklStigData struct {
	Attribute string `xml:"VULN_ATTRIBUTE"`
	Data      string `xml:"ATTRIBUTE_DATA"`
}

// Attribute names carried in STIG_DATA pairs.
const (
	cklAttrRuleID   = "Rule_ID"
	cklAttrVulnNum  = "Vuln_Num"
	cklAttrTitle    = "Rule_Title"
	cklAttrSeverity = "Severity"
	cklAttrDiscuss  = "Vuln_Discuss"
	cklAttrCCIRef   = "CCI_REF"
)

// parseCKL decodes the XML container and adapts each VULN row into a
// canonical finding. Rows without a rule identifier are skipped.
func parseCKL(content []byte, filename string) ([]models.Finding, error) {
	var checklist cklChecklist
	if err := xml.Unmarshal(content, &checklist); err != nil {
		return nil, NewParseError(filename, err)
	}

	findings := []models.Finding{}
	for _, stig := range checklist.Stigs {
		for _, vuln := range stig.Vulns {
			finding, ok := adaptCKLVuln(vuln)
			if !ok {
				continue
			}
			findings = append(findings, finding)
		}
	}

	return findings, nil
}

// adaptCKLVuln flattens a VULN's attribute pairs into a finding. The
// second return is false when the row carries no rule identifier.
func adaptCKLVuln(vuln cklVuln) (models.Finding, bool) {
	finding := models.Finding{
		Status:  models.NormalizeStatus(vuln.Status),
		CCIRefs: []string{},
	}

	var rawSeverity string
	for _, data := range vuln.StigData {
		switch data.Attribute {
		case cklAttrRuleID:
			finding.RuleID = data.Data
		case cklAttrVulnNum:
			finding.VulnID = data.Data
		case cklAttrTitle:
			finding.Title = data.Data
		case cklAttrSeverity:
			rawSeverity = data.Data
		case cklAttrDiscuss:
			finding.Discussion = data.Data
		case cklAttrCCIRef:
			if data.Data != "" {
				finding.CCIRefs = append(finding.CCIRefs, data.Data)
			}
		}
	}

	if finding.RuleID == "" {
		return models.Finding{}, false
	}

	finding.Severity = models.NormalizeSeverity(rawSeverity)
	return finding, true
}
