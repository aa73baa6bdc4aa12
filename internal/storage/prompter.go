package storage

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// TerminalPrompter implements GrantPrompter by asking on the controlling
// terminal. It stands in for the platform directory picker: the user types a
// volume-relative location ("primary/Documents/backups") or an empty line to
// decline.
type TerminalPrompter struct {
	in  io.Reader
	out io.Writer
}

// NewTerminalPrompter creates a prompter reading from stdin
func NewTerminalPrompter() *TerminalPrompter {
	return &TerminalPrompter{in: os.Stdin, out: os.Stderr}
}

// PromptDirectory asks for a directory grant. Without an interactive
// terminal the prompt cannot be answered, which counts as a decline.
func (p *TerminalPrompter) PromptDirectory(ctx context.Context) (string, error) {
	if f, ok := p.in.(*os.File); ok && !term.IsTerminal(int(f.Fd())) {
		return "", ErrGrantDenied
	}

	fmt.Fprint(p.out, "Choose a backup folder (volume/path, e.g. primary/Documents/stockbook), empty to decline: ")

	line, err := bufio.NewReader(p.in).ReadString('\n')
	if err != nil && line == "" {
		return "", ErrGrantDenied
	}

	line = strings.TrimSpace(line)
	if line == "" {
		return "", ErrGrantDenied
	}

	if IsGrantURI(line) {
		return line, nil
	}

	parts := strings.SplitN(line, "/", 2)
	if len(parts) == 1 {
		return FormatGrantURI(parts[0], ""), nil
	}
	return FormatGrantURI(parts[0], parts[1]), nil
}
