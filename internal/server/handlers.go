package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sigil-protocol/sigil-scan/internal/events"
	"github.com/sigil-protocol/sigil-scan/internal/scanner"
)

// scanRequest is the body of POST /v1/scan. Either text or payload must
// be set; payload carries an arbitrary JSON value that is canonicalized
// before matching.
type scanRequest struct {
	Text    string          `json:"text,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// content normalizes the request into the string the scanner matches
// against: plain text as-is, structured payloads as canonical JSON.
func (r scanRequest) content() (string, error) {
	if r.Text != "" {
		return r.Text, nil
	}
	if len(r.Payload) == 0 {
		return "", nil
	}

	var v interface{}
	if err := json.Unmarshal(r.Payload, &v); err != nil {
		return "", fmt.Errorf("decode payload: %w", err)
	}
	if text, ok := v.(string); ok {
		return text, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("canonicalize payload: %w", err)
	}
	return string(data), nil
}

// scanResponse is the body of a successful scan. The derived booleans
// are included so adapters do not have to re-implement the policy split.
type scanResponse struct {
	scanner.ScanResult
	Blocked bool `json:"blocked"`
	Warned  bool `json:"warned"`
}

// handleScan scans the submitted content and returns the ranked result.
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	text, err := req.content()
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if text == "" {
		s.writeError(w, http.StatusBadRequest, "text or payload is required")
		return
	}

	ctx := r.Context()
	result, cached := s.lookupCached(ctx, text)
	if !cached {
		result = s.scanner.Scan(ctx, text)
		if s.cache != nil {
			s.cache.Set(ctx, text, result)
		}
	}

	if result.Hit {
		s.hub.BroadcastFinding(requestIDFrom(ctx), events.FindingEvent{
			Pattern:  result.Pattern,
			Severity: result.Severity,
			Category: result.Category,
			Blocked:  result.Blocked(),
			Warned:   result.Warned(),
			AllHits:  result.AllHits,
			ClientIP: getClientIP(r),
		})
	}

	s.writeJSON(w, http.StatusOK, scanResponse{
		ScanResult: result,
		Blocked:    result.Blocked(),
		Warned:     result.Warned(),
	})
}

func (s *Server) lookupCached(ctx context.Context, text string) (scanner.ScanResult, bool) {
	if s.cache == nil {
		return scanner.ScanResult{}, false
	}
	if cached, ok := s.cache.Get(ctx, text); ok {
		return *cached, true
	}
	return scanner.ScanResult{}, false
}

// handleHealth handles health check requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"healthy","timestamp":"%s"}`, time.Now().Format(time.RFC3339))
}

// infoResponse is the body of GET /info.
type infoResponse struct {
	Name          string           `json:"name"`
	Version       string           `json:"version"`
	PatternCount  int              `json:"pattern_count"`
	RegistryAgeMS int64            `json:"registry_age_ms"`
	Offline       bool             `json:"offline"`
	MinSeverity   scanner.Severity `json:"min_severity"`
	EventClients  int              `json:"event_clients"`
}

// handleInfo reports the scanner's current registry state.
func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, infoResponse{
		Name:          "sigil-scan",
		Version:       Version,
		PatternCount:  s.scanner.PatternCount(),
		RegistryAgeMS: s.scanner.RegistryAge().Milliseconds(),
		Offline:       s.scanner.Offline(),
		MinSeverity:   s.scanner.MinSeverity(),
		EventClients:  s.hub.ClientCount(),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
