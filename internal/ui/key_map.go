package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	up      key.Binding
	down    key.Binding
	enter   key.Binding
	back    key.Binding
	tab     key.Binding
	find    key.Binding
	kind    key.Binding
	next    key.Binding
	prev    key.Binding
	upload  key.Binding
	remove  key.Binding
	retry   key.Binding
	cancel  key.Binding
	refresh key.Binding
	history key.Binding
	logout  key.Binding
	quit    key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		enter:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
		back:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		tab:     key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "switch view")),
		find:    key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		kind:    key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "image/audio")),
		next:    key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "next page")),
		prev:    key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "prev page")),
		upload:  key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "upload")),
		remove:  key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
		retry:   key.NewBinding(key.WithKeys("R"), key.WithHelp("R", "retry")),
		cancel:  key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "cancel")),
		refresh: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		history: key.NewBinding(key.WithKeys("ctrl+d"), key.WithHelp("ctrl+d", "clear history")),
		logout:  key.NewBinding(key.WithKeys("L"), key.WithHelp("L", "log out")),
		quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.tab, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.enter, k.back},
		{k.find, k.kind, k.next, k.prev, k.history},
		{k.upload, k.remove, k.retry, k.cancel, k.refresh},
		{k.tab, k.logout, k.quit},
	}
}
