// Package ui provides the interactive terminal interface for vpndial.
// This file contains the key bindings and their help text.
package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the key bindings for the server browser.
type keyMap struct {
	Connect    key.Binding
	Disconnect key.Binding
	Add        key.Binding
	Remove     key.Binding
	Quit       key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Connect: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "connect"),
		),
		Disconnect: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "disconnect"),
		),
		Add: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "add server"),
		),
		Remove: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "remove"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// ShortHelp returns the bindings listed in the one-line help view.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Connect, k.Disconnect, k.Add, k.Remove, k.Quit}
}

// FullHelp returns the bindings listed in the expanded help view.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Connect, k.Disconnect},
		{k.Add, k.Remove, k.Quit},
	}
}
