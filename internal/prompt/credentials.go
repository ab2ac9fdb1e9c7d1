// Package prompt implements the interactive collaborators of a publish
// run: the credential dialog shown after an access-denied sync and the
// destination prompt.
package prompt

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/stevehiehn/relaypub/internal/vcs"
)

// CredentialsModel asks for a username and a masked password.
type CredentialsModel struct {
	username textinput.Model
	password textinput.Model
	focus    int

	submitted bool
	cancelled bool
	err       string
}

// NewCredentialsModel prefills the username with hint and focuses the
// first empty field.
func NewCredentialsModel(hint string) CredentialsModel {
	u := textinput.New()
	u.Placeholder = `DOMAIN\user`
	u.CharLimit = 256
	u.SetValue(hint)

	p := textinput.New()
	p.Placeholder = "password"
	p.EchoMode = textinput.EchoPassword
	p.EchoCharacter = '•'
	p.CharLimit = 256

	m := CredentialsModel{username: u, password: p}
	if strings.TrimSpace(hint) != "" {
		m.focus = 1
	}
	m.applyFocus()
	return m
}

func (m CredentialsModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m CredentialsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "ctrl+c", "esc":
			m.cancelled = true
			return m, tea.Quit
		case "tab", "shift+tab", "up", "down":
			m.focus = (m.focus + 1) % 2
			m.applyFocus()
			return m, nil
		case "enter":
			if m.focus == 0 {
				m.focus = 1
				m.applyFocus()
				return m, nil
			}
			if strings.TrimSpace(m.username.Value()) == "" || m.password.Value() == "" {
				m.err = "username and password are both required"
				return m, nil
			}
			m.submitted = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	if m.focus == 0 {
		m.username, cmd = m.username.Update(msg)
	} else {
		m.password, cmd = m.password.Update(msg)
	}
	m.err = ""
	return m, cmd
}

func (m CredentialsModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Version control access denied"))
	b.WriteString("\n\n")
	b.WriteString(labelStyle.Render("Username") + m.username.View() + "\n")
	b.WriteString(labelStyle.Render("Password") + m.password.View() + "\n\n")
	if m.err != "" {
		b.WriteString(errorStyle.Render(m.err) + "\n")
	}
	b.WriteString(hintStyle.Render("enter: submit • tab: switch field • esc: cancel"))
	b.WriteString("\n")
	return b.String()
}

// Submitted reports whether the user confirmed both fields.
func (m CredentialsModel) Submitted() bool { return m.submitted && !m.cancelled }

// Credentials returns the entered values with the username trimmed.
func (m CredentialsModel) Credentials() *vcs.Credentials {
	return &vcs.Credentials{
		Username: strings.TrimSpace(m.username.Value()),
		Password: m.password.Value(),
	}
}

func (m *CredentialsModel) applyFocus() {
	if m.focus == 0 {
		m.username.Focus()
		m.password.Blur()
		return
	}
	m.username.Blur()
	m.password.Focus()
}
