// Package testutil provides test utilities for progress tracking.
package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/input-output-hk/catalyst-forge-libs/directupload/uploadtypes"
)

// MockProgressTracker is a ProgressTracker that records every call.
type MockProgressTracker struct {
	mu       sync.Mutex
	updates  []uploadtypes.Progress
	outcome  *uploadtypes.UploadOutcome
	err      error
	complete int
	failed   int
}

// Update records a progress snapshot.
func (m *MockProgressTracker) Update(p uploadtypes.Progress) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates = append(m.updates, p)
}

// Complete records the final outcome.
func (m *MockProgressTracker) Complete(outcome *uploadtypes.UploadOutcome) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.complete++
	m.outcome = outcome
}

// Error records the terminal error.
func (m *MockProgressTracker) Error(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failed++
	m.err = err
}

// Updates returns a copy of every recorded snapshot.
func (m *MockProgressTracker) Updates() []uploadtypes.Progress {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]uploadtypes.Progress, len(m.updates))
	copy(out, m.updates)
	return out
}

// Percents returns the percent value of every recorded snapshot in order.
func (m *MockProgressTracker) Percents() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]int, len(m.updates))
	for i, u := range m.updates {
		out[i] = u.Percent
	}
	return out
}

// Outcome returns the outcome passed to Complete and the number of Complete calls.
func (m *MockProgressTracker) Outcome() (*uploadtypes.UploadOutcome, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.outcome, m.complete
}

// LastError returns the error passed to the most recent Error call.
func (m *MockProgressTracker) LastError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

// ErrorCalls returns the number of Error calls.
func (m *MockProgressTracker) ErrorCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failed
}

// SleepRecorder is an injectable sleep that records delays instead of waiting.
type SleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

// Sleep records d and returns immediately, reporting ctx cancellation.
func (s *SleepRecorder) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.delays = append(s.delays, d)
	s.mu.Unlock()
	return ctx.Err()
}

// Delays returns the recorded delays in call order.
func (s *SleepRecorder) Delays() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]time.Duration, len(s.delays))
	copy(out, s.delays)
	return out
}
