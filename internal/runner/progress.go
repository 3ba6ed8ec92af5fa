package runner

import (
	"fmt"

	"github.com/fatih/color"
)

func (r *Runner) printf(format string, args ...any) {
	fmt.Fprintf(r.cfg.Out, format, args...)
}

func (r *Runner) showTesting(desc string) {
	r.printf("Running test %s... ", desc)
}

func (r *Runner) showSuccess() {
	if r.cfg.ShowProgress {
		r.printf("%s\n", r.cfg.Term.Paint("PASSED", color.Bold, color.FgGreen))
	}
}

func (r *Runner) showSkipped() {
	if r.cfg.ShowProgress {
		r.printf("%s\n", r.cfg.Term.Paint("SKIPPED", color.Bold, color.FgYellow))
	}
}

func (r *Runner) showFailure(res *Result) {
	if !r.cfg.ShowFailure {
		return
	}
	if !r.cfg.ShowProgress {
		// Quiet mode held back the "Running test" line in case it passed.
		r.showTesting(res.Description)
	}
	r.printf("%s\n", r.cfg.Term.Paint("FAILED!", color.FgRed))

	if res.Err != nil {
		r.printf("Error: %v\n", res.Err)
		return
	}
	if r.cfg.ShowOutput {
		r.printf("--- Expected ---\n%s\n", res.Expected)
		r.printf("--- Actual ---\n%s\n", res.Actual)
	}
	if r.cfg.ShowDiffs {
		r.printf("%s", res.Diff)
		if res.XMLError != nil {
			r.printf("XML error: %s\n", res.XMLError.Error())
		}
	}
}
