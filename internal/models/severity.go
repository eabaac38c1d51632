package models

import "strings"

// Severity is the canonical DISA severity category of a finding.
type Severity string

// Severity categories.
const (
	SeverityCatI   Severity = "CAT_I"
	SeverityCatII  Severity = "CAT_II"
	SeverityCatIII Severity = "CAT_III"
)

// ValidSeverities returns all valid severity categories for validation.
func ValidSeverities() []Severity {
	return []Severity{SeverityCatI, SeverityCatII, SeverityCatIII}
}

// IsValidSeverity checks if a severity category is valid.
func IsValidSeverity(severity Severity) bool {
	switch severity {
	case SeverityCatI, SeverityCatII, SeverityCatIII:
		return true
	default:
		return false
	}
}

// NormalizeSeverity maps the severity vocabularies of both checklist
// formats onto the canonical categories. CKL files say high/medium/low,
// CKLB files say CAT I/CAT II/CAT III. Unrecognized values fall back to
// CAT_II so a vendor quirk never drops a finding.
func NormalizeSeverity(raw string) Severity {
	folded := foldVocab(raw)

	switch folded {
	case "high", "cati", "cat1":
		return SeverityCatI
	case "medium", "catii", "cat2":
		return SeverityCatII
	case "low", "catiii", "cat3":
		return SeverityCatIII
	default:
		return SeverityCatII
	}
}

// foldVocab lowercases and strips the separators vendors disagree on.
func foldVocab(raw string) string {
	folded := strings.ToLower(strings.TrimSpace(raw))
	folded = strings.ReplaceAll(folded, "_", "")
	folded = strings.ReplaceAll(folded, " ", "")
	return folded
}
