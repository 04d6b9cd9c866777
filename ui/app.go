// Package ui provides the interactive terminal interface for vpndial.
// This file contains the Model, its update loop and the program entry
// point.
package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"vpndial/common"
	"vpndial/config"
	"vpndial/keyring"
	"vpndial/vpn"
)

// logTailLines is how many recent session transitions the main view
// shows under the server list.
const logTailLines = 3

// chromeHeight is the number of terminal rows the main view spends on
// everything that is not the server list.
const chromeHeight = 7

// appStyle pads the whole interface away from the terminal edges.
var appStyle = lipgloss.NewStyle().Margin(1, 2)

// Messages produced by the background subscriptions and commands.
type (
	// stateMsg wraps a session transition from the Orchestrator.
	stateMsg vpn.StateEvent
	// registryMsg wraps a catalog change from the Registry.
	registryMsg vpn.RegistryEvent
	// tickMsg drives the uptime display.
	tickMsg time.Time
	// actionErrMsg reports a failed user action in the status bar.
	actionErrMsg struct{ err error }
	// noteMsg reports a neutral remark in the status bar.
	noteMsg string
)

// Model is the Bubble Tea model for the server browser.
type Model struct {
	registry *vpn.Registry
	orch     *vpn.Orchestrator
	cfg      *config.Config

	styles   *Styles
	keys     keyMap
	help     help.Model
	list     list.Model
	delegate *profileDelegate

	form    *profileForm
	confirm *vpn.ServerProfile

	stateCh <-chan vpn.StateEvent
	regCh   <-chan vpn.RegistryEvent

	status    string
	statusErr bool
	uptime    time.Duration
	logTail   []vpn.StateEvent
	width     int
	height    int
}

// New builds the model over the given registry and orchestrator and
// subscribes to both.
func New(registry *vpn.Registry, orch *vpn.Orchestrator, cfg *config.Config) *Model {
	styles := NewStyles(cfg.Theme)

	delegate := &profileDelegate{styles: styles}
	session := orch.Session()
	delegate.state = session.State
	delegate.profileID = session.ActiveProfileID

	l := list.New(profileItems(registry.List()), delegate, 0, 0)
	l.Title = "Servers"
	l.Styles.Title = styles.Title
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.DisableQuitKeybindings()

	return &Model{
		registry: registry,
		orch:     orch,
		cfg:      cfg,
		styles:   styles,
		keys:     newKeyMap(),
		help:     help.New(),
		list:     l,
		delegate: delegate,
		stateCh:  orch.Subscribe(),
		regCh:    registry.Subscribe(),
		status:   "Ready",
	}
}

// Close drops the model's event subscriptions.
func (m *Model) Close() {
	m.orch.Unsubscribe(m.stateCh)
	m.registry.Unsubscribe(m.regCh)
}

// Init starts the event subscriptions and the uptime tick.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		waitForState(m.stateCh),
		waitForRegistry(m.regCh),
		tickCmd(),
	)
}

// waitForState turns the next session transition into a message. The
// command re-arms itself from Update after every receive.
func waitForState(ch <-chan vpn.StateEvent) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return stateMsg(ev)
	}
}

// waitForRegistry turns the next catalog change into a message.
func waitForRegistry(ch <-chan vpn.RegistryEvent) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return registryMsg(ev)
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update routes messages to the form when it is open, answers the
// remove confirmation, and otherwise drives the server list.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		h, v := appStyle.GetFrameSize()
		m.list.SetSize(msg.Width-h, msg.Height-v-chromeHeight)
		return m, nil

	case tickMsg:
		m.uptime = m.orch.Uptime()
		return m, tickCmd()

	case stateMsg:
		ev := vpn.StateEvent(msg)
		m.delegate.state = ev.State
		if ev.Profile != nil {
			m.delegate.profileID = ev.Profile.ID
		}
		m.status = ev.Message
		m.statusErr = ev.State == vpn.StateFailed
		m.logTail = append(m.logTail, ev)
		if len(m.logTail) > logTailLines {
			m.logTail = m.logTail[len(m.logTail)-logTailLines:]
		}
		return m, waitForState(m.stateCh)

	case registryMsg:
		ev := vpn.RegistryEvent(msg)
		cmd := m.list.SetItems(profileItems(m.registry.List()))
		if ev.Profile != nil {
			m.status = fmt.Sprintf("Profile %s %s", ev.Profile.Label(), ev.Kind)
			m.statusErr = false
		}
		return m, tea.Batch(cmd, waitForRegistry(m.regCh))

	case actionErrMsg:
		m.status = msg.err.Error()
		m.statusErr = true
		return m, nil

	case noteMsg:
		m.status = string(msg)
		m.statusErr = false
		return m, nil

	case formSubmitMsg:
		m.form = nil
		return m, m.addProfileCmd(msg)

	case formCancelMsg:
		m.form = nil
		m.status = "Ready"
		m.statusErr = false
		return m, nil

	case tea.KeyMsg:
		return m.updateKeys(msg)
	}

	if m.form != nil {
		return m, m.form.Update(msg)
	}
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// updateKeys handles one key press for whichever layer has the focus.
func (m *Model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// ctrl+c always quits, no matter which layer is open.
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	if m.form != nil {
		return m, m.form.Update(msg)
	}

	if m.confirm != nil {
		switch msg.String() {
		case "y", "Y":
			profile := m.confirm
			m.confirm = nil
			return m, m.removeProfileCmd(profile)
		case "n", "N", "esc":
			m.confirm = nil
			m.status = "Ready"
			m.statusErr = false
		}
		return m, nil
	}

	// While the filter prompt is open the list owns every key.
	if m.list.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Add):
		m.form = newProfileForm(m.styles, m.cfg.DefaultCountry)
		return m, m.form.Init()

	case key.Matches(msg, m.keys.Remove):
		if it, ok := m.list.SelectedItem().(profileItem); ok {
			m.confirm = it.profile
		}
		return m, nil

	case key.Matches(msg, m.keys.Disconnect):
		return m, m.disconnectCmd()

	case key.Matches(msg, m.keys.Connect):
		if it, ok := m.list.SelectedItem().(profileItem); ok {
			if s := m.orch.Session(); s.State == vpn.StateConnected && s.ActiveProfileID == it.profile.ID {
				return m, m.disconnectCmd()
			}
			return m, m.connectCmd(it.profile)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// connectCmd starts a connection attempt for the given profile.
// Profiles saved without a secret resolve it from the keyring first;
// the stored profile itself stays untouched.
func (m *Model) connectCmd(profile *vpn.ServerProfile) tea.Cmd {
	return func() tea.Msg {
		if s := m.orch.Session(); s.State == vpn.StateConnected {
			return actionErrMsg{fmt.Errorf("already connected to %s; disconnect first", s.ActiveProfile.Label())}
		}

		dial := *profile
		if dial.Secret == "" {
			if secret, err := keyring.Get(profile.ID); err == nil {
				dial.Secret = secret
			}
		}
		if err := m.orch.Connect(&dial); err != nil {
			return actionErrMsg{err}
		}
		return nil
	}
}

// disconnectCmd hangs up the active connection.
func (m *Model) disconnectCmd() tea.Cmd {
	return func() tea.Msg {
		if m.orch.State() != vpn.StateConnected {
			return noteMsg("No active connection")
		}
		if err := m.orch.Disconnect(); err != nil {
			return actionErrMsg{err}
		}
		return nil
	}
}

// addProfileCmd stores a new profile built from the submitted form.
func (m *Model) addProfileCmd(values formSubmitMsg) tea.Cmd {
	return func() tea.Msg {
		country := values.country
		if country == "" {
			country = m.cfg.DefaultCountry
		}

		profile := vpn.NewServerProfile(values.name, values.address,
			values.username, values.secret, country)
		if values.saveSecret && values.secret != "" {
			if err := keyring.Store(profile.ID, values.secret); err != nil {
				return actionErrMsg{fmt.Errorf("cannot save secret to keyring: %w", err)}
			}
			// The profile file never sees the secret.
			profile.Secret = ""
		}

		if err := m.registry.Add(profile); err != nil {
			return actionErrMsg{fmt.Errorf("cannot add profile: %w", err)}
		}
		return nil
	}
}

// removeProfileCmd deletes the profile and any secret stored for it.
func (m *Model) removeProfileCmd(profile *vpn.ServerProfile) tea.Cmd {
	return func() tea.Msg {
		// Best-effort: the keyring may never have held this profile.
		_ = keyring.Delete(profile.ID)
		if !m.registry.Remove(profile) {
			return actionErrMsg{fmt.Errorf("profile not found: %s", profile.Label())}
		}
		return nil
	}
}

// View renders the form when it is open, otherwise the server browser.
func (m *Model) View() string {
	if m.form != nil {
		return appStyle.Render(m.form.View())
	}

	sections := []string{
		m.headerView(),
		m.list.View(),
	}
	if tail := m.logTailView(); tail != "" {
		sections = append(sections, tail)
	}
	sections = append(sections, m.statusView(), m.help.View(m.keys))

	return appStyle.Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
}

// headerView renders the application name, the session badge and the
// uptime when connected.
func (m *Model) headerView() string {
	parts := []string{
		m.styles.Title.Render(common.AppName),
		m.styles.StateStyle(m.delegate.state).Render(m.delegate.state.String()),
	}
	if m.delegate.state == vpn.StateConnected && m.uptime > 0 {
		parts = append(parts, m.styles.Uptime.Render("up "+formatUptime(m.uptime)))
	}
	return strings.Join(parts, "  ") + "\n"
}

// logTailView renders the most recent session transitions.
func (m *Model) logTailView() string {
	if len(m.logTail) == 0 {
		return ""
	}
	lines := make([]string, 0, len(m.logTail))
	for _, ev := range m.logTail {
		lines = append(lines,
			m.styles.LogTime.Render(ev.Time.Format("15:04:05"))+" "+
				m.styles.LogLine.Render(ev.Message))
	}
	return strings.Join(lines, "\n")
}

// statusView renders the status line, or the pending remove prompt.
func (m *Model) statusView() string {
	if m.confirm != nil {
		return m.styles.StatusBar.Render(
			fmt.Sprintf("Remove %s? (y/n)", m.confirm.Label()))
	}
	if m.statusErr {
		return m.styles.StatusErr.Render(m.status)
	}
	return m.styles.StatusBar.Render(m.status)
}

// formatUptime renders a connection duration for the header.
func formatUptime(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	}
	if minutes > 0 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%ds", seconds)
}

// Run starts the terminal interface and blocks until the user quits.
// A connection left up when the interface exits stays up; shutdown
// policy is the caller's concern.
func Run(registry *vpn.Registry, orch *vpn.Orchestrator, cfg *config.Config) error {
	m := New(registry, orch, cfg)
	defer m.Close()

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("terminal interface: %w", err)
	}
	return nil
}
