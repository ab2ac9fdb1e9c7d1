package prompt

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"

	"github.com/stevehiehn/relaypub/internal/engine"
	"github.com/stevehiehn/relaypub/internal/vcs"
)

// runModel runs a bubbletea model to completion and returns its final
// state.
type runModel func(ctx context.Context, m tea.Model, in io.Reader, out io.Writer) (tea.Model, error)

func runProgram(ctx context.Context, m tea.Model, in io.Reader, out io.Writer) (tea.Model, error) {
	p := tea.NewProgram(m, tea.WithContext(ctx), tea.WithInput(in), tea.WithOutput(out))
	return p.Run()
}

// Terminal is the interactive provider for credentials and destinations.
// It implements vcs.CredentialsProvider and engine.DestinationProvider.
type Terminal struct {
	In  io.Reader
	Out io.Writer

	// Interactive enables prompts. Without it, credentials are never
	// supplied and the remembered destination is reused if present.
	Interactive bool

	// AssumeYes reuses a remembered destination without asking.
	AssumeYes bool

	// UsernameHint prefills the credential dialog when the failed attempt
	// carried no username.
	UsernameHint string

	// OnCredentials and OnDestination are told about accepted values so
	// the caller can remember them.
	OnCredentials func(creds *vcs.Credentials)
	OnDestination func(path string)

	run runModel
}

// NewTerminal returns a provider on stdin/stderr, interactive when stdin is
// a terminal.
func NewTerminal(assumeYes bool) *Terminal {
	return &Terminal{
		In:          os.Stdin,
		Out:         os.Stderr,
		Interactive: IsTerminal(os.Stdin),
		AssumeYes:   assumeYes,
	}
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func (t *Terminal) program() runModel {
	if t.run != nil {
		return t.run
	}
	return runProgram
}

// Credentials shows the credential dialog prefilled with usernameHint.
func (t *Terminal) Credentials(ctx context.Context, usernameHint string) (*vcs.Credentials, error) {
	if !t.Interactive {
		return nil, vcs.ErrCancelled
	}
	if strings.TrimSpace(usernameHint) == "" {
		usernameHint = t.UsernameHint
	}
	final, err := t.program()(ctx, NewCredentialsModel(usernameHint), t.In, t.Out)
	if err != nil {
		return nil, err
	}
	m, ok := final.(CredentialsModel)
	if !ok || !m.Submitted() {
		return nil, vcs.ErrCancelled
	}
	creds := m.Credentials()
	if creds.Username == "" || creds.Password == "" {
		return nil, vcs.ErrCancelled
	}
	if t.OnCredentials != nil {
		t.OnCredentials(creds)
	}
	return creds, nil
}

// Destination reuses remembered under AssumeYes or when not interactive,
// and otherwise asks with remembered prefilled.
func (t *Terminal) Destination(ctx context.Context, remembered string) (string, error) {
	remembered = strings.TrimSpace(remembered)
	if t.AssumeYes || !t.Interactive {
		if remembered == "" {
			return "", engine.ErrNoDestination
		}
		return remembered, nil
	}
	final, err := t.program()(ctx, NewDestinationModel(remembered), t.In, t.Out)
	if err != nil {
		if errors.Is(err, tea.ErrProgramKilled) {
			return "", engine.ErrNoDestination
		}
		return "", err
	}
	m, ok := final.(DestinationModel)
	if !ok || m.Path() == "" {
		return "", engine.ErrNoDestination
	}
	if t.OnDestination != nil && m.Path() != remembered {
		t.OnDestination(m.Path())
	}
	return m.Path(), nil
}
