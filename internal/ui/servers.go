package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/muurk/relay-server/internal/discovery"
)

// RenderServers renders discovered relay servers as a table.
func RenderServers(servers []*discovery.Server, width int) string {
	if len(servers) == 0 {
		return HintStyle.Render("  No relay servers answered. Check that the board is powered and on this network.")
	}

	rows := make([][]string, 0, len(servers))
	for _, s := range servers {
		rows = append(rows, []string{
			s.Instance,
			s.PinsURL(),
			strings.TrimSuffix(s.Hostname, "."),
			s.GetMetadata("srcvers"),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(PrimaryColor)).
		Width(clampWidth(width)).
		Headers("INSTANCE", "API", "HOSTNAME", "VERSION").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return lipgloss.NewStyle().Foreground(TextColor).Bold(true).Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
	return t.Render()
}
