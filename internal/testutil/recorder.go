package testutil

import (
	"context"
	"fmt"
)

// Recorded is one outcome seen by a MemoryRecorder.
type Recorded struct {
	Test    string
	Subtest string
	Passed  bool
	Skipped bool
}

// MemoryRecorder keeps every lifecycle call in memory. Set Fail to make a
// lifecycle step ("start", "record", "report", "end") return an error.
type MemoryRecorder struct {
	Events  []string
	Results []Recorded
	Fail    map[string]error
}

// NewMemoryRecorder returns an empty recorder.
func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{Fail: map[string]error{}}
}

func (m *MemoryRecorder) step(step, event string) error {
	m.Events = append(m.Events, event)
	return m.Fail[step]
}

func (m *MemoryRecorder) Start(ctx context.Context) error {
	return m.step("start", "start")
}

func (m *MemoryRecorder) Record(ctx context.Context, testID, subtestID string, passed bool) error {
	m.Results = append(m.Results, Recorded{Test: testID, Subtest: subtestID, Passed: passed})
	return m.step("record", fmt.Sprintf("record %s %t", testID, passed))
}

func (m *MemoryRecorder) RecordSkipped(ctx context.Context, testID, subtestID string) error {
	m.Results = append(m.Results, Recorded{Test: testID, Subtest: subtestID, Skipped: true})
	return m.step("record", "skip "+testID)
}

func (m *MemoryRecorder) Report(ctx context.Context) error {
	return m.step("report", "report")
}

func (m *MemoryRecorder) End(ctx context.Context) error {
	return m.step("end", "end")
}
