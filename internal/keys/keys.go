package keys

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the keybindings of the review screen.
type KeyMap struct {
	// Navigation
	Down key.Binding
	Up   key.Binding

	// Delete marks
	Toggle key.Binding
	Mark   key.Binding
	Unmark key.Binding

	// Exit: commit deletes marked messages, abort leaves everything alone.
	Commit key.Binding
	Abort  key.Binding
	Quit   key.Binding

	// Help toggle
	Help key.Binding
}

// DefaultKeyMap returns the default set of keybindings.
func DefaultKeyMap() *KeyMap {
	return &KeyMap{
		Down: key.NewBinding(
			key.WithKeys("j", "J", "down"),
			key.WithHelp("j/↓", "down"),
		),
		Up: key.NewBinding(
			key.WithKeys("k", "K", "up"),
			key.WithHelp("k/↑", "up"),
		),
		Toggle: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("space", "toggle delete"),
		),
		Mark: key.NewBinding(
			key.WithKeys("d", "D"),
			key.WithHelp("d", "delete"),
		),
		Unmark: key.NewBinding(
			key.WithKeys("u", "U"),
			key.WithHelp("u", "undelete"),
		),
		Commit: key.NewBinding(
			key.WithKeys("q", "Q"),
			key.WithHelp("q", "quit & delete"),
		),
		Abort: key.NewBinding(
			key.WithKeys("a", "A", "esc"),
			key.WithHelp("a/esc", "abort"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "abort"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
	}
}

// ShortHelp returns the most essential keybindings for the compact help view.
func (k *KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		k.Commit, k.Abort, k.Mark, k.Unmark,
		k.Down, k.Up, k.Help,
	}
}

// FullHelp returns all keybindings grouped by category for the expanded
// help view.
func (k *KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Down, k.Up},
		{k.Toggle, k.Mark, k.Unmark},
		{k.Commit, k.Abort, k.Quit, k.Help},
	}
}
