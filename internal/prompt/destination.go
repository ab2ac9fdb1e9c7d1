package prompt

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// DestinationModel asks for the publish destination, prefilled with the
// remembered path.
type DestinationModel struct {
	input      textinput.Model
	remembered string

	submitted bool
	cancelled bool
}

func NewDestinationModel(remembered string) DestinationModel {
	in := textinput.New()
	in.Placeholder = "/path/to/publish/root"
	in.CharLimit = 1024
	in.SetValue(remembered)
	in.Focus()
	return DestinationModel{input: in, remembered: remembered}
}

func (m DestinationModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m DestinationModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "ctrl+c", "esc":
			m.cancelled = true
			return m, tea.Quit
		case "enter":
			if strings.TrimSpace(m.input.Value()) == "" {
				return m, nil
			}
			m.submitted = true
			return m, tea.Quit
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m DestinationModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Publish destination"))
	b.WriteString("\n\n")
	b.WriteString(m.input.View() + "\n\n")
	if m.remembered != "" {
		b.WriteString(hintStyle.Render("last used: "+m.remembered) + "\n")
	}
	b.WriteString(hintStyle.Render("enter: confirm • esc: cancel"))
	b.WriteString("\n")
	return b.String()
}

// Path returns the chosen destination, or "" if the prompt was cancelled.
func (m DestinationModel) Path() string {
	if !m.submitted || m.cancelled {
		return ""
	}
	return strings.TrimSpace(m.input.Value())
}
