package tui

import "github.com/charmbracelet/lipgloss"

type styles struct {
	Title       lipgloss.Style
	TrackingOn  lipgloss.Style
	TrackingOff lipgloss.Style
	Page        lipgloss.Style
	Index       lipgloss.Style
	Recent      lipgloss.Style
	Cursor      lipgloss.Style
	Pending     lipgloss.Style
	Placeholder lipgloss.Style
	Status      lipgloss.Style
	Error       lipgloss.Style
	Confirm     lipgloss.Style
}

func defaultStyles() styles {
	return styles{
		Title:       lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99")),
		TrackingOn:  lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		TrackingOff: lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		Page:        lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		Index:       lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Width(4).Align(lipgloss.Right),
		Recent:      lipgloss.NewStyle().Bold(true),
		Cursor:      lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true),
		Pending:     lipgloss.NewStyle().Faint(true),
		Placeholder: lipgloss.NewStyle().Faint(true).Italic(true).PaddingLeft(2),
		Status:      lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		Error:       lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		Confirm:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214")),
	}
}
