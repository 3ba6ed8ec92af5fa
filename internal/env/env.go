// Package env prepares the per-test rendering environment.
//
// An Environment is provisioned once per run. Before each test case the
// runner takes a Snapshot, asks for a prepared RunContext, and restores the
// snapshot afterwards whatever the outcome. Nothing a test case changes is
// visible to the next one.
package env

import (
	"context"

	"github.com/roach88/rendertest/internal/directive"
	"github.com/roach88/rendertest/internal/render"
)

// RunContext is the environment prepared for exactly one test case.
type RunContext struct {
	// Render is the options bundle handed to the engine.
	Render render.Options

	// UploadDir is the scratch directory for uploaded files.
	UploadDir string
}

// Snapshot is an opaque copy of the environment's mutable state.
type Snapshot struct {
	settings map[string]any
}

// Environment is the global state a run mutates between test cases.
type Environment interface {
	// Provision sets up run-wide resources. An error is fatal to the run.
	Provision(ctx context.Context) error

	// Teardown releases what Provision created.
	Teardown(ctx context.Context) error

	Snapshot() Snapshot
	Restore(Snapshot)

	// Prepare applies the test's options and config overrides. An error
	// fails only the current test case.
	Prepare(ctx context.Context, opts directive.OptionSet, rawConfig string) (*RunContext, error)

	// AddArticle registers a fixture page. Duplicate titles are an error
	// unless ignoreDuplicate is set.
	AddArticle(ctx context.Context, title, text string, ignoreDuplicate bool) error
}
