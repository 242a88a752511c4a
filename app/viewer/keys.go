package viewer

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Numbers    key.Binding
	Timestamps key.Binding
	Copy       key.Binding
	Snapshot   key.Binding
	Quit       key.Binding
}

var keys = keyMap{
	Numbers: key.NewBinding(
		key.WithKeys("n"),
		key.WithHelp("n", "line numbers"),
	),
	Timestamps: key.NewBinding(
		key.WithKeys("t"),
		key.WithHelp("t", "timestamps"),
	),
	Copy: key.NewBinding(
		key.WithKeys("c"),
		key.WithHelp("c", "copy"),
	),
	Snapshot: key.NewBinding(
		key.WithKeys("s"),
		key.WithHelp("s", "snapshot"),
	),
	Quit: key.NewBinding(
		key.WithKeys("esc", "q", "ctrl+c"),
		key.WithHelp("esc/q", "close"),
	),
}

func (k keyMap) help() []key.Binding {
	return []key.Binding{k.Numbers, k.Timestamps, k.Copy, k.Snapshot, k.Quit}
}
