// Package ui holds the terminal styling shared by the CLI commands.
package ui

import "github.com/charmbracelet/lipgloss"

var (
	accentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	passStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// Accent renders highlighted values (names, counts).
func Accent(s string) string { return accentStyle.Render(s) }

// Pass renders success markers.
func Pass(s string) string { return passStyle.Render(s) }

// Warn renders warnings.
func Warn(s string) string { return warnStyle.Render(s) }

// Error renders failure markers.
func Error(s string) string { return errorStyle.Render(s) }

// Dim renders secondary detail.
func Dim(s string) string { return dimStyle.Render(s) }
