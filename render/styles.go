package render

import "github.com/charmbracelet/lipgloss"

type styles struct {
	title  lipgloss.Style
	header lipgloss.Style
	label  lipgloss.Style
	busy   lipgloss.Style
	idle   lipgloss.Style
	warn   lipgloss.Style
	empty  lipgloss.Style
}

func newStyles(plain bool) styles {
	if plain {
		s := lipgloss.NewStyle()
		return styles{title: s, header: s, label: s, busy: s, idle: s, warn: s, empty: s}
	}
	return styles{
		title:  lipgloss.NewStyle().Bold(true),
		header: lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		label:  lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
		busy:   lipgloss.NewStyle().Foreground(lipgloss.Color("159")),
		idle:   lipgloss.NewStyle().Foreground(lipgloss.Color("238")),
		warn:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),
		empty:  lipgloss.NewStyle().Faint(true),
	}
}
