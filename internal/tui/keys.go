package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up       key.Binding
	Down     key.Binding
	Upvote   key.Binding
	Downvote key.Binding
	Panel    key.Binding
	Close    key.Binding
	MarkRead key.Binding
	Dismiss  key.Binding
	Quit     key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "previous post"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "next post"),
		),
		Upvote: key.NewBinding(
			key.WithKeys("u", "+"),
			key.WithHelp("u", "upvote"),
		),
		Downvote: key.NewBinding(
			key.WithKeys("d", "-"),
			key.WithHelp("d", "downvote"),
		),
		Panel: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "notifications"),
		),
		Close: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "close panel"),
		),
		MarkRead: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "mark all read"),
		),
		Dismiss: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "dismiss alert"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// shortHelp is the footer line.
func (k keyMap) shortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Upvote, k.Downvote, k.Panel, k.MarkRead, k.Dismiss, k.Quit}
}
