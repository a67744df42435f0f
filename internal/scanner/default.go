package scanner

import (
	"context"
	"sync"
)

var (
	defaultOnce    sync.Once
	defaultScanner *Scanner
)

// Default returns the process-wide scanner, creating it on first use
// with configuration from the SIGIL_* environment. All callers of the
// default share one cache and one refresh cadence; consumers that need
// independent configuration construct their own Scanner with New.
func Default() *Scanner {
	defaultOnce.Do(func() {
		defaultScanner = New(OptionsFromEnv(), nil)
	})
	return defaultScanner
}

// Scan scans text with the default scanner.
func Scan(ctx context.Context, text string) ScanResult {
	return Default().Scan(ctx, text)
}

// ScanValue scans a structured value with the default scanner.
func ScanValue(ctx context.Context, v interface{}) ScanResult {
	return Default().ScanValue(ctx, v)
}
