package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap holds the bindings of the progress view. There is only one:
// cancelling the pass, which still finalizes the task record.
type KeyMap struct {
	Cancel key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Cancel: key.NewBinding(
			key.WithKeys("ctrl+c", "q", "esc"),
			key.WithHelp("q", "cancel the pass"),
		),
	}
}

// HelpText is the footer line of the progress view.
func (k KeyMap) HelpText() string {
	h := k.Cancel.Help()
	return h.Key + "/ctrl+c " + h.Desc
}
