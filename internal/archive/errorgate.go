// Package archive implements the rate-limited client for the public web
// archive's CDX search and snapshot-retrieval endpoints.
package archive

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ErrorGate is a persistent error back-off gate for one error class (HTTP
// 429, or connection-level errors). It stores only the timestamp of the
// last observed error on durable storage; if less than the relaxation
// interval has elapsed since then, callers should fail fast rather than
// issue I/O.
type ErrorGate struct {
	name        string
	filePath    string
	relaxation  time.Duration
	nowFunc     func() time.Time
}

// NewErrorGate creates a gate backed by filePath, persisting a single
// timestamp across process restarts.
func NewErrorGate(name, filePath string, relaxation time.Duration) *ErrorGate {
	return &ErrorGate{name: name, filePath: filePath, relaxation: relaxation, nowFunc: time.Now}
}

type gateState struct {
	LastErrorAt time.Time `json:"last_error_at"`
}

// Notify records that an error of this gate's class just occurred.
func (g *ErrorGate) Notify() error {
	if err := os.MkdirAll(filepath.Dir(g.filePath), 0o755); err != nil {
		return fmt.Errorf("create error gate directory: %w", err)
	}
	data, err := json.Marshal(gateState{LastErrorAt: g.nowFunc()})
	if err != nil {
		return fmt.Errorf("marshal error gate state: %w", err)
	}
	if err := os.WriteFile(g.filePath, data, 0o644); err != nil {
		return fmt.Errorf("write error gate file: %w", err)
	}
	return nil
}

// RelaxedError is returned by CheckRelaxed when the gate has not yet
// relaxed since the last observed error.
type RelaxedError struct {
	Name          string
	Since         time.Duration
	RemainingWait time.Duration
}

func (e *RelaxedError) Error() string {
	return fmt.Sprintf("relaxation duration not yet elapsed after last %q error that occurred %s ago; wait another %s",
		e.Name, e.Since, e.RemainingWait)
}

// CheckRelaxed fails fast with *RelaxedError if the relaxation window has
// not yet elapsed since the last recorded error of this gate's class.
func (g *ErrorGate) CheckRelaxed() error {
	since := g.delaySinceLastError()
	remaining := g.relaxation - since
	if remaining > 0 {
		return &RelaxedError{Name: g.name, Since: since, RemainingWait: remaining}
	}
	return nil
}

func (g *ErrorGate) delaySinceLastError() time.Duration {
	data, err := os.ReadFile(g.filePath)
	if err != nil {
		// No prior error on record: treat as infinitely relaxed.
		return time.Duration(1<<62 - 1)
	}
	var state gateState
	if err := json.Unmarshal(data, &state); err != nil {
		return time.Duration(1<<62 - 1)
	}
	return g.nowFunc().Sub(state.LastErrorAt)
}
