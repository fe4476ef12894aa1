package monitorapp

import "github.com/charmbracelet/lipgloss"

var (
	clrBrand  = lipgloss.Color("214")
	clrMuted  = lipgloss.Color("245")
	clrSubtle = lipgloss.Color("242")
	clrGreen  = lipgloss.Color("34")
	clrRed    = lipgloss.Color("203")
)

var (
	styleTitle  = lipgloss.NewStyle().Foreground(clrBrand).Bold(true)
	styleMuted  = lipgloss.NewStyle().Foreground(clrMuted)
	styleSubtle = lipgloss.NewStyle().Foreground(clrSubtle)
	styleGreen  = lipgloss.NewStyle().Foreground(clrGreen).Bold(true)
	styleRed    = lipgloss.NewStyle().Foreground(clrRed).Bold(true)
	styleBox    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(clrSubtle).Padding(1, 2)
)
