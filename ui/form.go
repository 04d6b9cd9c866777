// Package ui provides the interactive terminal interface for vpndial.
// This file contains the add-server form.
package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// Field order in the add-server form. The save toggle sits after the
// text inputs and is the submit row.
const (
	fieldName = iota
	fieldAddress
	fieldUsername
	fieldSecret
	fieldCountry
	fieldSave
	fieldCount
)

// formSubmitMsg carries the values of a completed add-server form.
type formSubmitMsg struct {
	name       string
	address    string
	username   string
	secret     string
	country    string
	saveSecret bool
}

// formCancelMsg signals that the add-server form was dismissed.
type formCancelMsg struct{}

// profileForm collects the fields of a new server profile.
type profileForm struct {
	styles *Styles
	inputs []textinput.Model
	focus  int
	save   bool
	errMsg string
}

// newProfileForm builds the form with the name field focused and the
// country field preset to the configured default.
func newProfileForm(styles *Styles, defaultCountry string) *profileForm {
	inputs := make([]textinput.Model, fieldSave)

	name := textinput.New()
	name.Placeholder = "Work VPN"
	name.CharLimit = 64
	name.Width = 32
	name.Focus()
	inputs[fieldName] = name

	address := textinput.New()
	address.Placeholder = "vpn.example.com"
	address.CharLimit = 128
	address.Width = 32
	inputs[fieldAddress] = address

	username := textinput.New()
	username.Placeholder = "user"
	username.CharLimit = 64
	username.Width = 32
	inputs[fieldUsername] = username

	secret := textinput.New()
	secret.Placeholder = "secret"
	secret.EchoMode = textinput.EchoPassword
	secret.EchoCharacter = '*'
	secret.CharLimit = 128
	secret.Width = 32
	inputs[fieldSecret] = secret

	country := textinput.New()
	country.SetValue(defaultCountry)
	country.CharLimit = 2
	country.Width = 4
	inputs[fieldCountry] = country

	return &profileForm{
		styles: styles,
		inputs: inputs,
		save:   true,
	}
}

// Init starts the cursor blink for the focused input.
func (f *profileForm) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles one message for the form. Enter advances through the
// fields and submits from the save row, escape dismisses the form.
func (f *profileForm) Update(msg tea.Msg) tea.Cmd {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return f.updateInputs(msg)
	}

	switch keyMsg.String() {
	case "esc":
		return func() tea.Msg { return formCancelMsg{} }
	case "tab", "down":
		return f.setFocus(f.focus + 1)
	case "shift+tab", "up":
		return f.setFocus(f.focus - 1)
	case " ":
		if f.focus == fieldSave {
			f.save = !f.save
			return nil
		}
	case "enter":
		if f.focus == fieldSave {
			return f.submit()
		}
		return f.setFocus(f.focus + 1)
	}
	return f.updateInputs(msg)
}

// setFocus moves the focus to the given field, wrapping at both ends.
func (f *profileForm) setFocus(focus int) tea.Cmd {
	if focus < 0 {
		focus = fieldCount - 1
	}
	if focus >= fieldCount {
		focus = 0
	}
	f.focus = focus

	var cmd tea.Cmd
	for i := range f.inputs {
		if i == focus {
			cmd = f.inputs[i].Focus()
		} else {
			f.inputs[i].Blur()
		}
	}
	return cmd
}

func (f *profileForm) updateInputs(msg tea.Msg) tea.Cmd {
	cmds := make([]tea.Cmd, len(f.inputs))
	for i := range f.inputs {
		f.inputs[i], cmds[i] = f.inputs[i].Update(msg)
	}
	return tea.Batch(cmds...)
}

// submit validates the fields and emits a formSubmitMsg. The address
// is the only required field, matching profile validation.
func (f *profileForm) submit() tea.Cmd {
	address := strings.TrimSpace(f.inputs[fieldAddress].Value())
	if address == "" {
		f.errMsg = "address is required"
		return f.setFocus(fieldAddress)
	}

	result := formSubmitMsg{
		name:       strings.TrimSpace(f.inputs[fieldName].Value()),
		address:    address,
		username:   strings.TrimSpace(f.inputs[fieldUsername].Value()),
		secret:     f.inputs[fieldSecret].Value(),
		country:    strings.ToUpper(strings.TrimSpace(f.inputs[fieldCountry].Value())),
		saveSecret: f.save,
	}
	return func() tea.Msg { return result }
}

// View renders the form.
func (f *profileForm) View() string {
	labels := [...]string{"Name", "Address", "Username", "Secret", "Country"}

	var b strings.Builder
	b.WriteString(f.styles.FormTitle.Render("Add server"))
	b.WriteString("\n\n")
	for i := range f.inputs {
		b.WriteString(f.styles.FormLabel.Render(labels[i]))
		b.WriteString(f.inputs[i].View())
		b.WriteString("\n")
	}

	check := "[ ]"
	if f.save {
		check = "[x]"
	}
	marker := "  "
	if f.focus == fieldSave {
		marker = "> "
	}
	b.WriteString("\n")
	b.WriteString(marker + check + " store secret in the system keyring")
	b.WriteString("\n")

	if f.errMsg != "" {
		b.WriteString("\n")
		b.WriteString(f.styles.FormError.Render(f.errMsg))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(f.styles.FormHint.Render("enter: next/add  tab: move  space: toggle  esc: cancel"))
	return b.String()
}
