package scanner

import (
	"regexp"
	"time"

	"go.uber.org/zap"
)

// matcher pairs a compiled expression with its source pattern.
type matcher struct {
	re      *regexp.Regexp
	pattern Pattern
}

// registry is the compiled, immediately-usable form of a pattern list.
// Once built it is never mutated; a refresh builds a new registry and
// publishes it with an atomic pointer swap, so readers never observe a
// partially-rebuilt set.
type registry struct {
	matchers []matcher
	builtAt  time.Time
}

// compile builds a registry from raw patterns. Entries with an invalid
// regex or an unrecognized severity are dropped per-pattern rather than
// failing the whole bundle. Duplicate IDs are last-wins: the later
// definition replaces the earlier one in place.
func compile(patterns []Pattern, log *zap.Logger) *registry {
	if log == nil {
		log = zap.NewNop()
	}
	reg := &registry{builtAt: time.Now()}
	index := make(map[string]int, len(patterns))

	for _, p := range patterns {
		if _, err := ParseSeverity(string(p.Severity)); err != nil {
			log.Warn("rejecting pattern with unknown severity",
				zap.String("pattern", p.ID),
				zap.String("severity", string(p.Severity)),
			)
			continue
		}
		re, err := regexp.Compile(p.Regex)
		if err != nil {
			log.Warn("dropping pattern with invalid regex",
				zap.String("pattern", p.ID),
				zap.Error(err),
			)
			continue
		}

		m := matcher{re: re, pattern: p}
		if i, seen := index[p.ID]; seen {
			reg.matchers[i] = m
			continue
		}
		index[p.ID] = len(reg.matchers)
		reg.matchers = append(reg.matchers, m)
	}

	return reg
}

func (r *registry) size() int {
	return len(r.matchers)
}
