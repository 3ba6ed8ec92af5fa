package cli

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/rendertest/internal/directive"
	"github.com/roach88/rendertest/internal/runner"
)

// OptionsResult is the output of the options command.
type OptionsResult struct {
	Options map[string]any `json:"options"`
	Mode    string         `json:"mode,omitempty"`
	Error   string         `json:"mode_error,omitempty"`
}

func (r OptionsResult) String() string {
	var b strings.Builder
	for _, k := range slices.Sorted(maps.Keys(r.Options)) {
		fmt.Fprintf(&b, "%s = %v\n", k, r.Options[k])
	}
	if r.Error != "" {
		fmt.Fprintf(&b, "mode: invalid (%s)", r.Error)
	} else {
		fmt.Fprintf(&b, "mode: %s", r.Mode)
	}
	return b.String()
}

// NewOptionsCommand creates the options command, which shows how a test's
// option directive is parsed and which output mode it selects.
func NewOptionsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "options <directive>...",
		Short: "Parse an option directive",
		Long: `Parse the text of an "!! options" section and print the resulting
option map and the output mode it selects. Arguments are joined with spaces.

Examples:
  rendertest options 'notoc title=[[Main Page]]'
  rendertest options --format json 'replace=1,"new text"'`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := &OutputFormatter{
				Format:    rootOpts.Format,
				Writer:    cmd.OutOrStdout(),
				ErrWriter: cmd.ErrOrStderr(),
			}
			return out.Success(describeOptions(strings.Join(args, " ")))
		},
	}
}

func describeOptions(raw string) OptionsResult {
	opts := directive.Parse(raw)
	res := OptionsResult{Options: opts.ToMap()}
	mode, err := runner.SelectMode(opts)
	if err != nil {
		res.Error = err.Error()
	} else {
		res.Mode = mode.String()
	}
	return res
}
