// Package ui provides the interactive terminal interface for vpndial.
// This file contains the server list items and their row renderer.
package ui

import (
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"vpndial/vpn"
)

// profileItem adapts a ServerProfile to the list widget.
type profileItem struct {
	profile *vpn.ServerProfile
}

// FilterValue returns the text matched when the user filters the list.
func (i profileItem) FilterValue() string {
	return i.profile.DisplayName + " " + i.profile.Address + " " + i.profile.CountryCode
}

// profileItems builds list items from the registry's current catalog.
func profileItems(profiles []*vpn.ServerProfile) []list.Item {
	items := make([]list.Item, 0, len(profiles))
	for _, p := range profiles {
		items = append(items, profileItem{profile: p})
	}
	return items
}

// profileDelegate renders server rows. It carries the state of the
// session and the profile it applies to, so the affected row shows a
// live badge while everything else renders plain.
type profileDelegate struct {
	styles    *Styles
	state     vpn.SessionState
	profileID int64
}

func (d *profileDelegate) Height() int { return 2 }

func (d *profileDelegate) Spacing() int { return 1 }

func (d *profileDelegate) Update(tea.Msg, *list.Model) tea.Cmd { return nil }

// Render writes one server row: the label with an optional state
// badge, then the endpoint details underneath.
func (d *profileDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, ok := item.(profileItem)
	if !ok {
		return
	}
	p := it.profile

	title := p.Label()
	if d.profileID == p.ID && d.state != vpn.StateIdle {
		title += "  " + d.styles.StateStyle(d.state).Render(d.state.String())
	}
	desc := p.Address
	if p.CountryCode != "" {
		desc = p.CountryCode + "  " + desc
	}
	if p.Username != "" {
		desc += "  " + p.Username
	}

	if index == m.Index() {
		fmt.Fprintf(w, "%s\n%s",
			d.styles.SelectedTitle.Render("> "+title),
			d.styles.SelectedDesc.Render("  "+desc))
		return
	}
	fmt.Fprintf(w, "%s\n%s",
		d.styles.ItemTitle.Render("  "+title),
		d.styles.ItemDesc.Render("  "+desc))
}
