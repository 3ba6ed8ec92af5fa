package runner

import (
	"fmt"

	"github.com/roach88/rendertest/internal/compare"
)

// State is a step of the per-case state machine.
type State int

const (
	ParsingOptions State = iota
	PreparingContext
	Invoking
	Normalizing
	Comparing
	Reporting
)

func (s State) String() string {
	switch s {
	case ParsingOptions:
		return "parsing options"
	case PreparingContext:
		return "preparing context"
	case Invoking:
		return "invoking"
	case Normalizing:
		return "normalizing"
	case Comparing:
		return "comparing"
	case Reporting:
		return "reporting"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Status is the verdict of one case.
type Status int

const (
	Passed Status = iota
	Failed
	Skipped
)

func (s Status) String() string {
	switch s {
	case Passed:
		return "passed"
	case Failed:
		return "failed"
	case Skipped:
		return "skipped"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(text []byte) error {
	for _, st := range []Status{Passed, Failed, Skipped} {
		if st.String() == string(text) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown status %q", text)
}

// Result is the outcome of one test case. Expected and Actual hold the
// normalised values that were compared.
type Result struct {
	Description string
	Subtest     string
	Source      string
	Mode        string

	Expected string
	Actual   string

	Status Status
	// States lists the states the case went through, in order.
	States []State

	Diff     string
	XMLError *compare.XMLError

	// Err is set when the case failed before a comparison was possible.
	Err error

	// SkipReason names the missing capability for skipped cases.
	SkipReason string
}

func (r *Result) enter(s State) {
	r.States = append(r.States, s)
}

// Summary aggregates a run.
type Summary struct {
	Passed  int
	Failed  int
	Skipped int
	Results []*Result
}

func (s *Summary) add(r *Result) {
	s.Results = append(s.Results, r)
	switch r.Status {
	case Passed:
		s.Passed++
	case Failed:
		s.Failed++
	case Skipped:
		s.Skipped++
	}
}

// Total is the number of cases attempted.
func (s *Summary) Total() int {
	return s.Passed + s.Failed + s.Skipped
}

// OK reports whether no case failed. Skipped cases do not count.
func (s *Summary) OK() bool {
	return s.Failed == 0
}

// FatalError aborts a run. Remaining cases are not executed.
type FatalError struct {
	Op  string
	Err error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

func fatal(op string, err error) error {
	return &FatalError{Op: op, Err: err}
}
