package scanner

import (
	"context"
	"encoding/json"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Defaults applied when the corresponding Option is unset.
const (
	DefaultRegistryURL  = "https://registry.sigil-protocol.org"
	DefaultBundleTTL    = 5 * time.Minute
	DefaultFetchTimeout = 5 * time.Second
	DefaultMinSeverity  = SeverityHigh
)

// Options configure a Scanner. Zero values fall back to the package
// defaults above.
type Options struct {
	// RegistryURL is the base URL of the pattern registry.
	RegistryURL string
	// BundleTTL bounds how long a compiled registry is served before a
	// refresh is attempted.
	BundleTTL time.Duration
	// FetchTimeout bounds a single bundle fetch.
	FetchTimeout time.Duration
	// Offline disables network I/O entirely; the builtin pattern set is
	// used instead.
	Offline bool
	// MinSeverity is the floor below which matches are not reported.
	MinSeverity Severity
}

// OptionsFromEnv builds Options from the SIGIL_* environment variables.
// Values are resolved once; an unparsable value falls back to the
// package default rather than failing construction.
func OptionsFromEnv() Options {
	opts := Options{
		RegistryURL: os.Getenv("SIGIL_REGISTRY_URL"),
	}
	if v := os.Getenv("SIGIL_BUNDLE_TTL"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			opts.BundleTTL = time.Duration(secs) * time.Second
		}
	}
	switch strings.ToLower(os.Getenv("SIGIL_OFFLINE")) {
	case "1", "true", "yes":
		opts.Offline = true
	}
	if v := os.Getenv("SIGIL_MIN_SEVERITY"); v != "" {
		if sev, err := ParseSeverity(v); err == nil {
			opts.MinSeverity = sev
		}
	}
	return opts
}

// Scanner owns a compiled pattern registry and keeps it fresh against
// the remote registry on a TTL. Scan is safe for concurrent use from
// many callers: the registry is read through an atomic pointer, and
// concurrent callers past the TTL boundary share one in-flight fetch.
type Scanner struct {
	source      PatternSource
	ttl         time.Duration
	minSeverity Severity
	offline     bool
	logger      *zap.Logger

	reg         atomic.Pointer[registry]
	lastRefresh atomic.Pointer[time.Time]
	flight      singleflight.Group
}

// New creates a Scanner with the given options. A nil logger disables
// internal logging.
func New(opts Options, log *zap.Logger) *Scanner {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.RegistryURL == "" {
		opts.RegistryURL = DefaultRegistryURL
	}
	if opts.BundleTTL <= 0 {
		opts.BundleTTL = DefaultBundleTTL
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = DefaultFetchTimeout
	}
	if opts.MinSeverity == "" {
		opts.MinSeverity = DefaultMinSeverity
	}

	var source PatternSource = builtinSource{}
	if !opts.Offline {
		source = newRemoteSource(opts.RegistryURL, opts.FetchTimeout)
	}

	return &Scanner{
		source:      source,
		ttl:         opts.BundleTTL,
		minSeverity: opts.MinSeverity,
		offline:     opts.Offline,
		logger:      log,
	}
}

func (s *Scanner) needsRefresh() bool {
	if s.reg.Load() == nil {
		return true
	}
	last := s.lastRefresh.Load()
	return last == nil || time.Since(*last) > s.ttl
}

// refresh rebuilds the compiled registry from the pattern source.
// Concurrent callers share a single in-flight fetch. A failed fetch
// keeps the previous registry, or installs the builtin set when no
// registry exists yet; either way the failure never surfaces to Scan,
// and the TTL clock restarts so the next attempt waits a full TTL.
func (s *Scanner) refresh(ctx context.Context) {
	s.flight.Do("bundle", func() (interface{}, error) {
		// A caller that queued behind a completed refresh skips the fetch.
		if !s.needsRefresh() {
			return nil, nil
		}

		patterns, err := s.source.Patterns(ctx)
		if err != nil {
			s.logger.Warn("pattern bundle refresh failed", zap.Error(err))
			if s.reg.Load() != nil {
				s.markRefreshed()
				return nil, nil
			}
			patterns = builtinPatterns()
		}

		reg := compile(patterns, s.logger)
		s.reg.Store(reg)
		s.markRefreshed()
		s.logger.Debug("pattern registry rebuilt",
			zap.Int("patterns", reg.size()),
			zap.Bool("offline", s.offline),
		)
		return nil, nil
	})
}

func (s *Scanner) markRefreshed() {
	now := time.Now()
	s.lastRefresh.Store(&now)
}

// Scan runs every compiled pattern against text and reduces the
// surviving matches to a single ranked result. It never returns an
// error: refresh failures degrade to the previous registry or the
// builtin fallback set.
func (s *Scanner) Scan(ctx context.Context, text string) ScanResult {
	if s.needsRefresh() {
		s.refresh(ctx)
	}
	reg := s.reg.Load()
	if reg == nil {
		return ScanResult{}
	}

	var hits []Finding
	for _, m := range reg.matchers {
		if !m.re.MatchString(text) {
			continue
		}
		if !m.pattern.Severity.AtLeast(s.minSeverity) {
			continue
		}
		hits = append(hits, Finding{
			ID:       m.pattern.ID,
			Severity: m.pattern.Severity,
			Category: m.pattern.Category,
		})
	}
	if len(hits) == 0 {
		return ScanResult{}
	}

	// Descending by severity; stable sort keeps bundle order on ties.
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Severity.Compare(hits[j].Severity) > 0
	})

	top := hits[0]
	return ScanResult{
		Hit:      true,
		Pattern:  top.ID,
		Severity: top.Severity,
		Category: top.Category,
		AllHits:  hits,
	}
}

// ScanValue scans a structured value by serializing it to canonical
// JSON first. Strings pass through unchanged.
func (s *Scanner) ScanValue(ctx context.Context, v interface{}) ScanResult {
	if text, ok := v.(string); ok {
		return s.Scan(ctx, text)
	}
	data, err := json.Marshal(v)
	if err != nil {
		s.logger.Warn("scan value is not serializable", zap.Error(err))
		return ScanResult{}
	}
	return s.Scan(ctx, string(data))
}

// PatternCount returns the number of compiled patterns currently served.
func (s *Scanner) PatternCount() int {
	if reg := s.reg.Load(); reg != nil {
		return reg.size()
	}
	return 0
}

// RegistryAge returns how long ago the current registry was built, or
// zero when none has been built yet.
func (s *Scanner) RegistryAge() time.Duration {
	if reg := s.reg.Load(); reg != nil {
		return time.Since(reg.builtAt)
	}
	return 0
}

// Offline reports whether the scanner was constructed in offline mode.
func (s *Scanner) Offline() bool {
	return s.offline
}

// MinSeverity returns the configured severity floor.
func (s *Scanner) MinSeverity() Severity {
	return s.minSeverity
}
