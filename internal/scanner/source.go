package scanner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"resty.dev/v3"
)

// PatternSource yields the current detection pattern list. The remote
// variant talks to the registry bundle endpoint; the builtin variant
// returns the embedded fallback set and never fails.
type PatternSource interface {
	Patterns(ctx context.Context) ([]Pattern, error)
}

// bundlePattern mirrors one entry of a registry bundle response.
// Registries emit either "id" or "pattern_name" for the identifier.
type bundlePattern struct {
	ID          string `json:"id"`
	PatternName string `json:"pattern_name"`
	Severity    string `json:"severity"`
	Regex       string `json:"regex"`
	Category    string `json:"category"`
}

type remoteSource struct {
	client  *resty.Client
	baseURL string
}

func newRemoteSource(baseURL string, timeout time.Duration) *remoteSource {
	return &remoteSource{
		client: resty.New().
			SetTimeout(timeout).
			SetHeader("Accept", "application/json"),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

func (s *remoteSource) Patterns(ctx context.Context) ([]Pattern, error) {
	res, err := s.client.R().
		SetContext(ctx).
		Get(s.baseURL + "/patterns/bundle")
	if err != nil {
		return nil, fmt.Errorf("fetch pattern bundle: %w", err)
	}
	if !res.IsSuccess() {
		return nil, fmt.Errorf("fetch pattern bundle: unexpected status %d", res.StatusCode())
	}
	return decodeBundle(res.Bytes())
}

// decodeBundle accepts either a bare JSON array of patterns or an
// object wrapping that array under "patterns".
func decodeBundle(body []byte) ([]Pattern, error) {
	var entries []bundlePattern
	if err := json.Unmarshal(body, &entries); err != nil {
		var wrapped struct {
			Patterns []bundlePattern `json:"patterns"`
		}
		if err := json.Unmarshal(body, &wrapped); err != nil {
			return nil, fmt.Errorf("decode pattern bundle: %w", err)
		}
		entries = wrapped.Patterns
	}

	patterns := make([]Pattern, 0, len(entries))
	for _, e := range entries {
		id := e.ID
		if id == "" {
			id = e.PatternName
		}
		patterns = append(patterns, Pattern{
			ID:       id,
			Severity: Severity(e.Severity),
			Regex:    e.Regex,
			Category: e.Category,
		})
	}
	return patterns, nil
}

type builtinSource struct{}

func (builtinSource) Patterns(context.Context) ([]Pattern, error) {
	return builtinPatterns(), nil
}
