// Package ui provides the interactive terminal interface for vpndial.
//
// This package implements a Bubble Tea application including:
//
//   - Server list with live connection state per row
//   - Connect and disconnect controls bound to the selected server
//   - Add-server form with masked secret entry
//   - Remove confirmation and status reporting
//   - Session log tail and uptime display
//
// # Architecture
//
// The UI follows the Bubble Tea model-update-view loop. Key components:
//
//   - Model: application state, owns the list, form and subscriptions
//   - profileDelegate: renders server rows with their connection state
//   - profileForm: text inputs for adding a new server
//   - Styles: lipgloss style set shared by every view
//
// # Theme Support
//
// The theme setting from the configuration file selects the palette.
// "dark" and "light" force the corresponding rendering, "auto" keeps
// the terminal background detection lipgloss performs on startup.
//
// # Event Flow
//
// The Registry and the Orchestrator publish change events on buffered
// channels. The Model turns each receive into a Bubble Tea message via
// a re-arming command, so all state mutation happens inside Update and
// no goroutine ever touches the view:
//
//	func waitForState(ch <-chan vpn.StateEvent) tea.Cmd {
//	    return func() tea.Msg {
//	        ev, ok := <-ch
//	        if !ok {
//	            return nil
//	        }
//	        return stateMsg(ev)
//	    }
//	}
//
// # File Organization
//
//   - app.go: Model, update loop and program entry point
//   - list.go: server list items and row rendering
//   - form.go: add-server form
//   - keys.go: key bindings and help text
//   - styles.go: lipgloss styles and theme support
package ui
