package monitor

import "github.com/charmbracelet/bubbles/key"

type KeyMap struct {
	Quit     key.Binding
	DutyUp   key.Binding
	DutyDown key.Binding
	FullDuty key.Binding
	Toggle   key.Binding
}

var Keys = KeyMap{
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
	DutyUp: key.NewBinding(
		key.WithKeys("+", "="),
		key.WithHelp("+", "duty +5"),
	),
	DutyDown: key.NewBinding(
		key.WithKeys("-"),
		key.WithHelp("-", "duty -5"),
	),
	FullDuty: key.NewBinding(
		key.WithKeys("d"),
		key.WithHelp("d", "full duty"),
	),
	Toggle: key.NewBinding(
		key.WithKeys("s"),
		key.WithHelp("s", "start/stop"),
	),
}
