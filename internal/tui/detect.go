package tui

import (
	"os"

	"golang.org/x/term"
)

// Mode is how sync progress is rendered.
type Mode int

const (
	ModePlain Mode = iota // one log line per event
	ModeInteractive       // live progress view on stderr
)

// plainOverrides force plain output when set. ERPSYNC_PLAIN only counts as "1".
var plainOverrides = []struct {
	name string
	set  func(string) bool
}{
	{"ERPSYNC_PLAIN", func(v string) bool { return v == "1" }},
	{"CI", func(v string) bool { return v != "" }},
	{"NO_COLOR", func(v string) bool { return v != "" }},
}

// DetectMode reports whether erpsync may take over the terminal. Keys are
// read from stdin and the view draws on stderr, so both must be terminals.
func DetectMode() Mode {
	return detectMode(os.Getenv, term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stderr.Fd())))
}

func detectMode(getenv func(string) string, tty bool) Mode {
	for _, o := range plainOverrides {
		if o.set(getenv(o.name)) {
			return ModePlain
		}
	}
	if !tty {
		return ModePlain
	}
	return ModeInteractive
}

func IsInteractive() bool {
	return DetectMode() == ModeInteractive
}
