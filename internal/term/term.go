// Package term colours terminal output.
package term

import (
	"os"
	"runtime"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// Colorer wraps text in terminal colour codes.
type Colorer interface {
	Paint(s string, attrs ...color.Attribute) string
	Enabled() bool
}

// New returns an ANSI colorer when enabled and a pass-through one otherwise.
func New(enabled bool) Colorer {
	if enabled {
		return ansi{}
	}
	return plain{}
}

// Detect reports whether f is a terminal that should receive colour.
func Detect(f *os.File) bool {
	if f == nil || runtime.GOOS == "windows" {
		return false
	}
	return isatty.IsTerminal(f.Fd())
}

// ParseMode resolves a --color flag value. "yes"/"always" and "no"/"never"
// force the choice; anything else falls back to detection on f.
func ParseMode(mode string, f *os.File) bool {
	switch mode {
	case "no", "never", "false":
		return false
	case "yes", "always", "true":
		return true
	default:
		return Detect(f)
	}
}

type ansi struct{}

func (ansi) Paint(s string, attrs ...color.Attribute) string {
	if len(attrs) == 0 {
		return s
	}
	c := color.New(attrs...)
	c.EnableColor()
	return c.Sprint(s)
}

func (ansi) Enabled() bool { return true }

type plain struct{}

func (plain) Paint(s string, _ ...color.Attribute) string { return s }

func (plain) Enabled() bool { return false }
