package tui

import "github.com/charmbracelet/lipgloss"

// ANSI 256 palette. Renders as plain text when the output has no colors.
var (
	ColorAccent = lipgloss.Color("39")
	ColorHeader = lipgloss.Color("245")
	ColorMuted  = lipgloss.Color("240")
	ColorOK     = lipgloss.Color("34")
	ColorWarn   = lipgloss.Color("214")
	ColorError  = lipgloss.Color("196")
)

var (
	TitleStyle   = lipgloss.NewStyle().Bold(true).Foreground(ColorAccent).MarginBottom(1)
	SpinnerStyle = lipgloss.NewStyle().Foreground(ColorAccent)
	HelpStyle    = lipgloss.NewStyle().Foreground(ColorMuted).MarginTop(1)

	SuccessStyle = lipgloss.NewStyle().Foreground(ColorOK)
	WarningStyle = lipgloss.NewStyle().Foreground(ColorWarn)
	ErrorStyle   = lipgloss.NewStyle().Foreground(ColorError)
	MutedStyle   = lipgloss.NewStyle().Foreground(ColorMuted)

	// Report and catalog tables.
	HeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorHeader).Padding(0, 1)
	CellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

// Entity outcome markers.
const (
	SymbolCheck   = "✓" // committed
	SymbolCross   = "✗" // rolled back
	SymbolWarning = "!" // committed with row errors
	SymbolBullet  = "•"
)
