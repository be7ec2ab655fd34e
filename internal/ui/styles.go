// Package ui renders relayhub's terminal output: status lines, tables, the room box
// and the live stats dashboard.
package ui

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
)

var (
	colorAccent = lipgloss.Color("#22d3ee")
	colorHost   = lipgloss.Color("#7C3AED")
	colorOK     = lipgloss.Color("#10B981")
	colorWarn   = lipgloss.Color("#F59E0B")
	colorFail   = lipgloss.Color("#EF4444")
	colorDim    = lipgloss.Color("#6B7280")
	colorText   = lipgloss.Color("#F9FAFB")
)

var (
	accent = lipgloss.NewStyle().Foreground(colorAccent)
	pass   = lipgloss.NewStyle().Foreground(colorOK).Bold(true)
	warn   = lipgloss.NewStyle().Foreground(colorWarn)
	fail   = lipgloss.NewStyle().Foreground(colorFail).Bold(true)
	dim    = lipgloss.NewStyle().Foreground(colorDim)

	codeStyle  = lipgloss.NewStyle().Foreground(colorAccent).Bold(true)
	badgeStyle = lipgloss.NewStyle().Foreground(colorText).Background(colorAccent).Bold(true).Padding(0, 1)

	hostBox = lipgloss.NewStyle().Border(lipgloss.DoubleBorder()).BorderForeground(colorOK).Padding(1, 2)
	peerBox = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorHost).Padding(1, 2)

	headerCell = lipgloss.NewStyle().Bold(true).Foreground(colorAccent).Align(lipgloss.Center)
	evenCell   = lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("255"))
	oddCell    = lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("245"))
)

const (
	IconSuccess = "✅"
	IconError   = "❌"
	IconWarning = "⚠️"
	IconInfo    = "ℹ️"
	IconPeer    = "👤"
	IconTime    = "⏱️"
	IconCopy    = "📋"
	IconWeb     = "🌐"
)

// Errors go to stderr; everything else to stdout.
var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

func line(w io.Writer, icon, msg string) {
	fmt.Fprintf(w, "%s %s\n", icon, msg)
}

func PrintError(msg string) {
	line(stderr, fail.Render(IconError), fail.Render(msg))
}

func PrintWarning(msg string) {
	line(stdout, warn.Render(IconWarning), warn.Render(msg))
}

func PrintWarningf(format string, args ...any) {
	PrintWarning(fmt.Sprintf(format, args...))
}

func PrintSuccess(msg string) {
	line(stdout, pass.Render(IconSuccess), msg)
}

func PrintSuccessf(format string, args ...any) {
	PrintSuccess(fmt.Sprintf(format, args...))
}

func PrintInfo(msg string) {
	line(stdout, IconInfo, msg)
}

func PrintInfof(format string, args ...any) {
	PrintInfo(fmt.Sprintf(format, args...))
}
