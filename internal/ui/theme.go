// Package ui renders CLI output: question tables, mutation results, notices
// and solution write-ups.
package ui

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

const defaultWidth = 100

func ac(light, dark string) lipgloss.AdaptiveColor {
	return lipgloss.AdaptiveColor{Light: light, Dark: dark}
}

var (
	colorMuted   lipgloss.TerminalColor = ac("240", "245")
	colorAccent  lipgloss.TerminalColor = ac("27", "75")
	colorSolved  lipgloss.TerminalColor = ac("28", "78")
	colorPending lipgloss.TerminalColor = ac("130", "214")
	colorError   lipgloss.TerminalColor = ac("160", "203")
)

var (
	styleHeader  = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	styleMuted   = lipgloss.NewStyle().Foreground(colorMuted)
	styleSolved  = lipgloss.NewStyle().Foreground(colorSolved)
	stylePending = lipgloss.NewStyle().Foreground(colorPending)
	styleError   = lipgloss.NewStyle().Bold(true).Foreground(colorError)
	styleTitle   = lipgloss.NewStyle().Bold(true)
)

// Setup picks the color profile for f. Output that is not a terminal, or
// NO_COLOR, gets plain text; otherwise termenv's environment detection
// (which honors CLICOLOR and CLICOLOR_FORCE) decides.
func Setup(f *os.File) {
	if strings.TrimSpace(os.Getenv("NO_COLOR")) != "" || !IsTerminal(f) {
		lipgloss.SetColorProfile(termenv.Ascii)
		return
	}
	lipgloss.SetColorProfile(termenv.EnvColorProfile())
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return f != nil && term.IsTerminal(int(f.Fd()))
}

// Width returns the terminal width of f, or a default when unknown.
func Width(f *os.File) int {
	if !IsTerminal(f) {
		return defaultWidth
	}
	w, _, err := term.GetSize(int(f.Fd()))
	if err != nil || w <= 0 {
		return defaultWidth
	}
	return w
}

// RenderAccent renders s in the accent color.
func RenderAccent(s string) string { return styleHeader.Render(s) }

// RenderPass renders s as a success marker.
func RenderPass(s string) string { return styleSolved.Render(s) }

// RenderFail renders s as a failure marker.
func RenderFail(s string) string { return styleError.Render(s) }

// RenderMuted renders s in the secondary color.
func RenderMuted(s string) string { return styleMuted.Render(s) }
