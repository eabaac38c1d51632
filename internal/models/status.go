package models

// Status is the canonical review status of a finding.
type Status string

// Finding statuses.
const (
	StatusOpen          Status = "Open"
	StatusNotAFinding   Status = "NotAFinding"
	StatusNotApplicable Status = "NotApplicable"
	StatusNotReviewed   Status = "NotReviewed"
)

// ValidStatuses returns all valid finding statuses for validation.
func ValidStatuses() []Status {
	return []Status{StatusOpen, StatusNotAFinding, StatusNotApplicable, StatusNotReviewed}
}

// IsValidStatus checks if a finding status is valid.
func IsValidStatus(status Status) bool {
	switch status {
	case StatusOpen, StatusNotAFinding, StatusNotApplicable, StatusNotReviewed:
		return true
	default:
		return false
	}
}

// NormalizeStatus maps source status vocabularies onto the canonical
// statuses, case- and separator-insensitive: "not_a_finding",
// "notafinding" and "Not A Finding" all map to NotAFinding. Unrecognized
// values coerce to NotReviewed; keeping the enum closed is what makes the
// aggregator's Open/NotOpen partition trustworthy.
func NormalizeStatus(raw string) Status {
	switch foldVocab(raw) {
	case "open":
		return StatusOpen
	case "notafinding", "pass", "passed":
		return StatusNotAFinding
	case "notapplicable":
		return StatusNotApplicable
	case "notreviewed":
		return StatusNotReviewed
	default:
		return StatusNotReviewed
	}
}
