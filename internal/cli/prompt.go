// Package cli provides shared helpers for CLI commands.
package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/siteops/permitboard/internal/session"
)

// ErrNonInteractive means stdin is not a TTY and --pin-stdin was not set.
var ErrNonInteractive = errors.New("refusing to read a PIN from a non-interactive stdin; re-run with --pin-stdin")

// Prompter reads credentials from the operator.
type Prompter struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	// IsTTY reports whether stdin is a terminal. Injected for tests.
	IsTTY func() bool
	// ReadSecret reads one line without echo. Injected for tests.
	ReadSecret func() (string, error)

	reader *bufio.Reader
}

// NewPrompter creates a Prompter bound to the process's stdio.
func NewPrompter() *Prompter {
	return &Prompter{
		Stdin:      os.Stdin,
		Stdout:     os.Stdout,
		Stderr:     os.Stderr,
		IsTTY:      defaultIsTTY,
		ReadSecret: defaultReadSecret,
	}
}

func defaultIsTTY() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

func defaultReadSecret() (string, error) {
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (p *Prompter) lineReader() *bufio.Reader {
	if p.reader == nil {
		p.reader = bufio.NewReader(p.Stdin)
	}
	return p.reader
}

// Line prints label and reads one line of plain input. An empty answer
// yields fallback.
func (p *Prompter) Line(label, fallback string) (string, error) {
	if fallback != "" {
		fmt.Fprintf(p.Stdout, "%s [%s]: ", label, fallback)
	} else {
		fmt.Fprintf(p.Stdout, "%s: ", label)
	}
	input, err := p.lineReader().ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && input != "") {
		return "", fmt.Errorf("failed to read %s: %w", strings.ToLower(label), err)
	}
	input = strings.TrimSpace(input)
	if input == "" {
		return fallback, nil
	}
	return input, nil
}

// PIN reads the PIN. On a terminal it is read without echo. When stdin is
// not a terminal the PIN is only read if fromStdin is set, as the first
// line of stdin.
func (p *Prompter) PIN(fromStdin bool) (string, error) {
	if fromStdin {
		input, err := p.lineReader().ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && input != "") {
			return "", fmt.Errorf("failed to read PIN from stdin: %w", err)
		}
		return strings.TrimSpace(input), nil
	}
	if !p.IsTTY() {
		return "", ErrNonInteractive
	}

	fmt.Fprint(p.Stdout, "PIN: ")
	pin, err := p.ReadSecret()
	fmt.Fprintln(p.Stdout)
	if err != nil {
		return "", fmt.Errorf("failed to read PIN: %w", err)
	}
	return strings.TrimSpace(pin), nil
}

// Identity resolves who to log in as. With neither a user nor admin given,
// a terminal is asked for the user name; otherwise ParseIdentity decides.
func (p *Prompter) Identity(user string, admin bool, adminName string) (session.Credentials, error) {
	if !admin && strings.TrimSpace(user) == "" && p.IsTTY() {
		name, err := p.Line("User", "")
		if err != nil {
			return session.Credentials{}, err
		}
		user = name
	}
	return ParseIdentity(user, admin, adminName)
}
