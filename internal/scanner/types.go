package scanner

// Pattern is a single detection rule, decoded from a registry bundle or
// taken from the builtin fallback set. Patterns are immutable; a bundle
// refresh discards and replaces them wholesale.
type Pattern struct {
	ID       string   `json:"id"`
	Severity Severity `json:"severity"`
	Regex    string   `json:"regex"`
	Category string   `json:"category,omitempty"`
}

// Finding is one pattern that matched the scanned input.
type Finding struct {
	ID       string   `json:"id"`
	Severity Severity `json:"severity"`
	Category string   `json:"category,omitempty"`
}

// ScanResult is the reduced outcome of a scan. Pattern, Severity and
// Category describe the highest-severity finding; AllHits holds every
// finding above the severity floor, sorted descending by severity with
// bundle order preserved on ties.
type ScanResult struct {
	Hit      bool      `json:"hit"`
	Pattern  string    `json:"pattern,omitempty"`
	Severity Severity  `json:"severity,omitempty"`
	Category string    `json:"category,omitempty"`
	AllHits  []Finding `json:"all_hits,omitempty"`
}

// Blocked reports whether the primary finding is Critical. Adapters
// typically abort the intercepted call when this is set.
func (r ScanResult) Blocked() bool {
	return r.Hit && r.Severity == SeverityCritical
}

// Warned reports whether the scan found something below the blocking
// bar. Adapters typically log and continue.
func (r ScanResult) Warned() bool {
	return r.Hit && (r.Severity == SeverityHigh || r.Severity == SeverityWarn)
}
