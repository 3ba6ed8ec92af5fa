package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rendertest.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadRunConfig(t *testing.T) {
	cfg, err := LoadRunConfig(writeConfig(t, `
engine: php engine.php --strict
quick: true
normalize: [removeTbody, nfc]
capabilities:
  tidy: false
settings:
  wgServer: http://example.org
  wgMaxArticleSize: 2048
`))
	require.NoError(t, err)

	assert.Equal(t, "php engine.php --strict", cfg.Engine)
	assert.True(t, cfg.Quick)
	assert.Equal(t, []string{"removeTbody", "nfc"}, cfg.Normalize)
	assert.Equal(t, map[string]bool{"tidy": false}, cfg.Capabilities)
	assert.Equal(t, "http://example.org", cfg.Settings["wgServer"])
	assert.Equal(t, 2048, cfg.Settings["wgMaxArticleSize"])
}

func TestLoadRunConfigEmptyFile(t *testing.T) {
	cfg, err := LoadRunConfig(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, &RunConfig{}, cfg)
}

func TestLoadRunConfigRejectsUnknownKeys(t *testing.T) {
	_, err := LoadRunConfig(writeConfig(t, "engine: x\nquik: true\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
	assert.Contains(t, err.Error(), "quik")
}

func TestRunConfigFlagsWin(t *testing.T) {
	opts := &RunOptions{RootOptions: &RootOptions{Format: "text"}}
	cmd := newRunCommand(opts)
	require.NoError(t, cmd.Flags().Parse([]string{"--engine", "./from-flag", "--norm", "nfc"}))

	cfg := &RunConfig{
		Engine:       "./from-file",
		Quiet:        true,
		Normalize:    []string{"removeTbody"},
		Database:     "results.db",
		Capabilities: map[string]bool{"djvu": true},
	}
	cfg.applyTo(opts, cmd.Flags())

	assert.Equal(t, "./from-flag", opts.Engine)
	assert.Equal(t, []string{"nfc"}, opts.Normalize)
	assert.True(t, opts.Quiet)
	assert.Equal(t, "results.db", opts.Database)
	assert.True(t, opts.capabilities().Available("djvu"))
}

func TestRunConfigFilterAliasWins(t *testing.T) {
	for _, flag := range []string{"--filter", "--regex"} {
		t.Run(flag, func(t *testing.T) {
			opts := &RunOptions{RootOptions: &RootOptions{Format: "text"}}
			cmd := newRunCommand(opts)
			require.NoError(t, cmd.Flags().Parse([]string{flag, "^Echo$"}))

			(&RunConfig{Filter: "Mismatch"}).applyTo(opts, cmd.Flags())
			assert.Equal(t, "^Echo$", opts.Filter)
		})
	}
}

func TestCapabilityFlagsOverrideConfig(t *testing.T) {
	opts := &RunOptions{
		forced:  map[string]bool{"tidy": true, "djvu": false},
		With:    []string{"djvu"},
		Without: []string{"tidy"},
	}
	checker := opts.capabilities()

	assert.True(t, checker.Available("djvu"))
	assert.False(t, checker.Available("tidy"))
}
