package scanner

import "fmt"

// Severity is the ranking scale for detection patterns. It is a closed
// three-valued enumeration ordered Warn < High < Critical.
type Severity string

const (
	SeverityWarn     Severity = "Warn"
	SeverityHigh     Severity = "High"
	SeverityCritical Severity = "Critical"
)

var severityRank = map[Severity]int{
	SeverityWarn:     0,
	SeverityHigh:     1,
	SeverityCritical: 2,
}

// ParseSeverity returns the Severity named by s. Unknown values are an
// error; callers decide whether to reject the surrounding record or
// fall back to a default.
func ParseSeverity(s string) (Severity, error) {
	sev := Severity(s)
	if _, ok := severityRank[sev]; !ok {
		return "", fmt.Errorf("unknown severity %q", s)
	}
	return sev, nil
}

// Compare orders two severities: -1 if s < other, 0 if equal, 1 if s > other.
func (s Severity) Compare(other Severity) int {
	a, b := severityRank[s], severityRank[other]
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// AtLeast reports whether s meets the given floor.
func (s Severity) AtLeast(floor Severity) bool {
	return severityRank[s] >= severityRank[floor]
}
