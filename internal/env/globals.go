package env

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"strings"

	"github.com/roach88/rendertest/internal/directive"
)

// Setting names used by the default settings table.
const (
	SettingLanguage            = "wgLanguageCode"
	SettingVariant             = "wgDefaultLanguageVariant"
	SettingMaxTocLevel         = "wgMaxTocLevel"
	SettingLinkHolderBatchSize = "wgLinkHolderBatchSize"
	SettingEnableUploads       = "wgEnableUploads"
	SettingRawHTML             = "wgRawHtml"
	SettingAllowExternalImages = "wgAllowExternalImages"
	SettingThumbLimits         = "wgThumbLimits"
	SettingSubpages            = "wgNamespacesWithSubpages"
	SettingUploadDir           = "wgUploadDirectory"
	SettingUseTidy             = "wgUseTidy"
)

// Globals is the in-process Environment: a settings table that each test
// case overlays with its own options and config overrides.
type Globals struct {
	// Base settings applied before the per-test defaults. Typically loaded
	// from the run configuration.
	Base map[string]any

	// UploadRoot is where the upload directory is created. Empty means the
	// system temp directory.
	UploadRoot string

	// KeepUploads leaves the upload directory in place on Teardown.
	KeepUploads bool

	Logger *slog.Logger

	settings  map[string]any
	fixtures  *Fixtures
	uploadDir string
}

// NewGlobals returns an unprovisioned environment.
func NewGlobals(base map[string]any, logger *slog.Logger) *Globals {
	if logger == nil {
		logger = slog.Default()
	}
	return &Globals{
		Base:     base,
		Logger:   logger,
		settings: maps.Clone(base),
		fixtures: NewFixtures(),
	}
}

// Provision creates the upload directory.
func (g *Globals) Provision(ctx context.Context) error {
	if g.uploadDir != "" {
		return nil
	}
	dir, err := os.MkdirTemp(g.UploadRoot, "rendertest-uploads-")
	if err != nil {
		return fmt.Errorf("create upload directory: %w", err)
	}
	for _, sub := range []string{"thumb", "temp", "lockdir"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return fmt.Errorf("create upload directory: %w", err)
		}
	}
	g.uploadDir = dir
	g.Logger.Debug("provisioned upload directory", "dir", dir)
	return nil
}

// Teardown removes the upload directory unless KeepUploads is set.
func (g *Globals) Teardown(ctx context.Context) error {
	if g.uploadDir == "" {
		return nil
	}
	dir := g.uploadDir
	g.uploadDir = ""
	if g.KeepUploads {
		g.Logger.Info("keeping upload directory", "dir", dir)
		return nil
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("remove upload directory: %w", err)
	}
	return nil
}

// UploadDir returns the provisioned upload directory, or "".
func (g *Globals) UploadDir() string {
	return g.uploadDir
}

// Settings returns a copy of the current settings table.
func (g *Globals) Settings() map[string]any {
	return maps.Clone(g.settings)
}

// Fixtures returns the fixture page store.
func (g *Globals) Fixtures() *Fixtures {
	return g.fixtures
}

// Snapshot implements Environment.
func (g *Globals) Snapshot() Snapshot {
	return Snapshot{settings: maps.Clone(g.settings)}
}

// Restore implements Environment.
func (g *Globals) Restore(s Snapshot) {
	g.settings = maps.Clone(s.settings)
}

// AddArticle implements Environment.
func (g *Globals) AddArticle(ctx context.Context, title, text string, ignoreDuplicate bool) error {
	return g.fixtures.Add(title, text, ignoreDuplicate)
}

// Prepare implements Environment. Settings are layered as base, then the
// defaults derived from opts, then the config overrides.
func (g *Globals) Prepare(ctx context.Context, opts directive.OptionSet, rawConfig string) (*RunContext, error) {
	overrides, err := ParseOverrides(rawConfig)
	if err != nil {
		return nil, err
	}

	lang := optionValue(opts, "language", "en")
	variant := optionValue(opts, "variant", false)

	settings := DefaultSettings(opts)
	settings[SettingUploadDir] = g.uploadDir
	for _, o := range overrides {
		settings[o.Name] = o.Value
	}

	if g.settings == nil {
		g.settings = map[string]any{}
	}
	maps.Copy(g.settings, settings)

	rc := &RunContext{UploadDir: g.uploadDir}
	rc.Render.Language = fmt.Sprint(lang)
	if v, ok := variant.(string); ok {
		rc.Render.Variant = v
	}
	rc.Render.Tidy = opts.Has("tidy")
	rc.Render.Settings = maps.Clone(g.settings)
	rc.Render.Flags = opts.ToMap()
	rc.Render.Articles = g.fixtures.All()
	return rc, nil
}

// DefaultSettings returns the per-test settings table derived from the
// test's options.
func DefaultSettings(opts directive.OptionSet) map[string]any {
	return map[string]any{
		SettingLanguage:            optionValue(opts, "language", "en"),
		SettingVariant:             optionValue(opts, "variant", false),
		SettingMaxTocLevel:         optionValue(opts, "wgMaxTocLevel", 999),
		SettingLinkHolderBatchSize: optionValue(opts, "wgLinkHolderBatchSize", 1000),
		SettingEnableUploads:       optionValue(opts, "wgEnableUploads", true),
		SettingRawHTML:             optionValue(opts, "wgRawHtml", false),
		SettingAllowExternalImages: optionValue(opts, "wgAllowExternalImages", true),
		SettingThumbLimits:         []any{optionValue(opts, "thumbsize", 180)},
		SettingSubpages:            map[string]any{"0": opts.Has("subpage")},
		SettingUseTidy:             false,
	}
}

// optionValue looks key up case-insensitively. Missing keys and undecodable
// structured values fall back to def.
func optionValue(opts directive.OptionSet, key string, def any) any {
	v, ok := opts.Get(strings.ToLower(key))
	if !ok {
		return def
	}
	if val := directive.ToAny(v); val != nil {
		return val
	}
	return def
}
