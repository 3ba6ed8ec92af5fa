package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// RunConfig is the optional YAML run configuration. Flags given on the
// command line win over values from the file.
//
//	engine: php tests/engine.php
//	normalize: [removeTbody, trimWhitespace]
//	capabilities:
//	  tidy: false
//	settings:
//	  wgServer: http://example.org
type RunConfig struct {
	Engine      string   `yaml:"engine"`
	Color       string   `yaml:"color"`
	Quick       bool     `yaml:"quick"`
	Quiet       bool     `yaml:"quiet"`
	ShowOutput  bool     `yaml:"show_output"`
	WordDiff    bool     `yaml:"word_diff"`
	MarkWS      bool     `yaml:"mark_ws"`
	WellFormed  bool     `yaml:"well_formed"`
	Normalize   []string `yaml:"normalize"`
	Filter      string   `yaml:"filter"`
	RunDisabled bool     `yaml:"run_disabled"`
	KeepUploads bool     `yaml:"keep_uploads"`
	Database    string   `yaml:"db"`
	Version     string   `yaml:"version"`
	User        string   `yaml:"user"`

	// Capabilities forces capabilities on or off instead of probing.
	Capabilities map[string]bool `yaml:"capabilities"`
	// Settings seeds the environment before per-test defaults apply.
	Settings map[string]any `yaml:"settings"`
}

// LoadRunConfig reads a run configuration file. Unknown keys are rejected.
func LoadRunConfig(path string) (*RunConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg RunConfig
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &cfg, nil
}

// applyTo copies file values into opts for every flag the user did not set.
func (c *RunConfig) applyTo(opts *RunOptions, flags *pflag.FlagSet) {
	setString := func(flag string, dst *string, v string) {
		if !flags.Changed(flag) && v != "" {
			*dst = v
		}
	}
	setBool := func(flag string, dst *bool, v bool) {
		if !flags.Changed(flag) && v {
			*dst = v
		}
	}

	setString("engine", &opts.Engine, c.Engine)
	setString("color", &opts.Color, c.Color)
	if !flags.Changed("regex") {
		setString("filter", &opts.Filter, c.Filter)
	}
	setString("db", &opts.Database, c.Database)
	setString("setversion", &opts.Version, c.Version)
	setString("user", &opts.User, c.User)
	setBool("quick", &opts.Quick, c.Quick)
	setBool("quiet", &opts.Quiet, c.Quiet)
	setBool("show-output", &opts.ShowOutput, c.ShowOutput)
	setBool("dwdiff", &opts.WordDiff, c.WordDiff)
	setBool("mark-ws", &opts.MarkWS, c.MarkWS)
	setBool("well-formed", &opts.WellFormed, c.WellFormed)
	setBool("run-disabled", &opts.RunDisabled, c.RunDisabled)
	setBool("keep-uploads", &opts.KeepUploads, c.KeepUploads)
	if !flags.Changed("norm") && len(c.Normalize) > 0 {
		opts.Normalize = c.Normalize
	}

	opts.forced = c.Capabilities
	opts.settings = c.Settings
}
