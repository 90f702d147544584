package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

var errNotSignedIn = errors.New("not signed in; run `ticketapp login` first")

// Test seams for the terminal.
var (
	readPassword = term.ReadPassword
	isTerminal   = term.IsTerminal
)

// prompt reads one trimmed line after printing label.
func (a *App) prompt(label string) (string, error) {
	fmt.Fprintf(a.out, "%s: ", label)
	line, err := a.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// promptPassword reads a password without echo when stdin is a terminal.
func (a *App) promptPassword(label string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !isTerminal(fd) {
		return a.prompt(label)
	}
	fmt.Fprintf(a.out, "%s: ", label)
	pw, err := readPassword(fd)
	fmt.Fprintln(a.out)
	if err != nil {
		return "", err
	}
	return string(pw), nil
}

// valueOrPrompt returns v, prompting for it when empty.
func (a *App) valueOrPrompt(v, label string, secret bool) (string, error) {
	if v != "" {
		return v, nil
	}
	if secret {
		return a.promptPassword(label)
	}
	return a.prompt(label)
}
