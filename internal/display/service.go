// Package display renders user-facing status messages for the CLI with
// colors and icons, degrading to plain text on dumb terminals and pipes.
package display

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
)

// Service prints status messages to the terminal
type Service struct {
	out          io.Writer
	colorEnabled bool
	success      *color.Color
	info         *color.Color
	warning      *color.Color
	errorc       *color.Color
}

// NewService creates a display service writing to stdout. Colors are enabled
// only on capable terminals and can be force-disabled.
func NewService(noColor bool) *Service {
	return newService(os.Stdout, detectColorSupport() && !noColor)
}

func newService(out io.Writer, colorEnabled bool) *Service {
	s := &Service{
		out:          out,
		colorEnabled: colorEnabled,
		success:      color.New(color.FgGreen, color.Bold),
		info:         color.New(color.FgCyan),
		warning:      color.New(color.FgYellow),
		errorc:       color.New(color.FgRed, color.Bold),
	}
	if !colorEnabled {
		for _, c := range []*color.Color{s.success, s.info, s.warning, s.errorc} {
			c.DisableColor()
		}
	}
	return s
}

// detectColorSupport checks whether the terminal can render colors
func detectColorSupport() bool {
	if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		return false
	}
	if os.Getenv("NO_COLOR") != "" || os.Getenv("TERM") == "dumb" {
		return false
	}
	return termenv.ColorProfile() != termenv.Ascii
}

// Success prints a success message
func (s *Service) Success(msg string) {
	fmt.Fprintf(s.out, "%s %s\n", s.success.Sprint("✓"), msg)
}

// Info prints an informational message
func (s *Service) Info(msg string) {
	fmt.Fprintf(s.out, "%s %s\n", s.info.Sprint("•"), msg)
}

// Warning prints a warning message
func (s *Service) Warning(msg string) {
	fmt.Fprintf(s.out, "%s %s\n", s.warning.Sprint("!"), msg)
}

// Error prints an error message
func (s *Service) Error(msg string) {
	fmt.Fprintf(s.out, "%s %s\n", s.errorc.Sprint("✗"), msg)
}

// Notice prints a storage placement notice, the human explanation attached to
// a fallback placement.
func (s *Service) Notice(msg string) {
	if msg == "" {
		return
	}
	s.Warning(msg)
}
