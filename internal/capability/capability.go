// Package capability reports which optional external tools are installed.
//
// Test cases that depend on a missing capability are skipped rather than
// failed.
package capability

import (
	"os/exec"
	"sort"
)

// Known capability names.
const (
	Tidy = "tidy"
	DjVu = "djvu"
)

// Checker reports whether a named capability is available.
type Checker interface {
	Available(name string) bool
}

// Binaries maps each capability to the executables it requires.
var Binaries = map[string][]string{
	Tidy: {"tidy"},
	DjVu: {"djvudump", "djvutoxml"},
}

// Probe resolves capabilities by looking up their binaries on PATH. Results
// are cached per name.
type Probe struct {
	lookPath func(string) (string, error)
	cache    map[string]bool
}

// NewProbe returns a Probe backed by exec.LookPath.
func NewProbe() *Probe {
	return &Probe{lookPath: exec.LookPath, cache: map[string]bool{}}
}

// Available implements Checker. Unknown names are never available.
func (p *Probe) Available(name string) bool {
	if ok, seen := p.cache[name]; seen {
		return ok
	}
	bins, known := Binaries[name]
	ok := known
	for _, bin := range bins {
		if _, err := p.lookPath(bin); err != nil {
			ok = false
			break
		}
	}
	p.cache[name] = ok
	return ok
}

// Static is a fixed capability set.
type Static map[string]bool

// Available implements Checker.
func (s Static) Available(name string) bool {
	return s[name]
}

// Names returns the enabled capabilities in sorted order.
func (s Static) Names() []string {
	var names []string
	for n, ok := range s {
		if ok {
			names = append(names, n)
		}
	}
	sort.Strings(names)
	return names
}

// Override layers forced values over another checker.
type Override struct {
	Base   Checker
	Forced Static
}

// Available implements Checker.
func (o Override) Available(name string) bool {
	if v, ok := o.Forced[name]; ok {
		return v
	}
	if o.Base == nil {
		return false
	}
	return o.Base.Available(name)
}
