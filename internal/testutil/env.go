package testutil

import (
	"context"
	"io"
	"log/slog"

	"github.com/roach88/rendertest/internal/directive"
	"github.com/roach88/rendertest/internal/env"
)

// TracingEnv wraps env.Globals and logs every lifecycle call so tests can
// check that snapshots and restores pair up.
type TracingEnv struct {
	*env.Globals

	Trace []string

	ProvisionErr error
	TeardownErr  error
}

// NewTracingEnv returns a TracingEnv whose uploads live under dir.
func NewTracingEnv(dir string) *TracingEnv {
	g := env.NewGlobals(nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	g.UploadRoot = dir
	return &TracingEnv{Globals: g}
}

// Count returns how many times event appears in the trace.
func (e *TracingEnv) Count(event string) int {
	n := 0
	for _, t := range e.Trace {
		if t == event {
			n++
		}
	}
	return n
}

func (e *TracingEnv) Provision(ctx context.Context) error {
	e.Trace = append(e.Trace, "provision")
	if e.ProvisionErr != nil {
		return e.ProvisionErr
	}
	return e.Globals.Provision(ctx)
}

func (e *TracingEnv) Teardown(ctx context.Context) error {
	e.Trace = append(e.Trace, "teardown")
	if e.TeardownErr != nil {
		return e.TeardownErr
	}
	return e.Globals.Teardown(ctx)
}

func (e *TracingEnv) Snapshot() env.Snapshot {
	e.Trace = append(e.Trace, "snapshot")
	return e.Globals.Snapshot()
}

func (e *TracingEnv) Restore(s env.Snapshot) {
	e.Trace = append(e.Trace, "restore")
	e.Globals.Restore(s)
}

func (e *TracingEnv) Prepare(ctx context.Context, opts directive.OptionSet, rawConfig string) (*env.RunContext, error) {
	e.Trace = append(e.Trace, "prepare")
	return e.Globals.Prepare(ctx, opts, rawConfig)
}
