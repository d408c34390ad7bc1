package viz

import "github.com/charmbracelet/lipgloss"

var (
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true)
	canvasStyle = lipgloss.NewStyle().Padding(0, 2)
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	graphStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("49")).Padding(1, 2, 0, 2)
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(1)

	// palette indexed by the frame's cyclic color counter
	tracePalette = []lipgloss.Style{
		lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
		lipgloss.NewStyle().Foreground(lipgloss.Color("45")),
		lipgloss.NewStyle().Foreground(lipgloss.Color("51")),
		lipgloss.NewStyle().Foreground(lipgloss.Color("87")),
		lipgloss.NewStyle().Foreground(lipgloss.Color("123")),
		lipgloss.NewStyle().Foreground(lipgloss.Color("159")),
		lipgloss.NewStyle().Foreground(lipgloss.Color("195")),
		lipgloss.NewStyle().Foreground(lipgloss.Color("231")),
	}
)
