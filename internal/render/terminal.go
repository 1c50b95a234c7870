package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// cardWidth matches the widest card in the canvas, in terminal cells.
const cardWidth = 40

// cssColors maps the named colors a palette may use to hex values lipgloss
// understands. Hex and ANSI codes pass through unchanged.
var cssColors = map[string]string{
	"white": "#ffffff",
	"black": "#000000",
}

func color(c string) lipgloss.Color {
	if hex, ok := cssColors[strings.ToLower(c)]; ok {
		return lipgloss.Color(hex)
	}
	return lipgloss.Color(c)
}

// Terminal renders a card as a bordered box: the address on a colored
// header line, the bold balance and any notes below.
func Terminal(c Card) string {
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(color(c.Palette.Border)).
		Width(cardWidth).
		Padding(0, 1).
		Align(lipgloss.Center)
	header := lipgloss.NewStyle().
		Background(color(c.Palette.HeaderBackground)).
		Foreground(color(c.Palette.HeaderForeground)).
		Padding(0, 1)
	balance := lipgloss.NewStyle().
		Bold(true).
		Foreground(color(c.Palette.BalanceForeground))
	note := lipgloss.NewStyle().
		Italic(true)

	lines := []string{header.Render(c.Address)}
	if c.Balance != "" {
		lines = append(lines, balance.Render(c.Balance))
	}
	for _, n := range c.Notes {
		lines = append(lines, note.Render(n))
	}
	return box.Render(lipgloss.JoinVertical(lipgloss.Center, lines...))
}

// Sidebar renders the view summary shown next to the canvas.
func Sidebar(totalNodes int, focused string) string {
	title := lipgloss.NewStyle().Bold(true)
	out := []string{
		title.Render("Graph Controls"),
		fmt.Sprintf("Total Nodes: %d", totalNodes),
	}
	if focused != "" {
		out = append(out, "Focused: "+focused)
	}
	return lipgloss.NewStyle().
		Border(lipgloss.NormalBorder(), false, true, false, false).
		PaddingRight(1).
		Render(strings.Join(out, "\n"))
}
