// Package render turns wallet nodes into two-part cards: the address in a
// colored header and the balance below it.
package render

import (
	"maps"
	"strings"

	"github.com/starford/walletgraph/internal/models"
)

// Palette holds card colors as CSS-style strings ("#4caf50", "white").
type Palette struct {
	Border            string `json:"border" yaml:"border"`
	Background        string `json:"background" yaml:"background"`
	HeaderBackground  string `json:"header_background" yaml:"header_background"`
	HeaderForeground  string `json:"header_foreground" yaml:"header_foreground"`
	BalanceForeground string `json:"balance_foreground" yaml:"balance_foreground"`
}

// DefaultPalette is the green card style.
func DefaultPalette() Palette {
	return Palette{
		Border:            "#4caf50",
		Background:        "#f9fff9",
		HeaderBackground:  "#4caf50",
		HeaderForeground:  "white",
		BalanceForeground: "#333",
	}
}

// Card is the view model of one rendered node.
type Card struct {
	ID      string   `json:"id"`
	Address string   `json:"address"`
	Balance string   `json:"balance"`
	Notes   []string `json:"notes,omitempty"`
	Palette Palette  `json:"palette"`
	Hidden  bool     `json:"hidden"`
}

// SplitLabel splits "address\nbalance[\nnote...]". A label without a line
// break has an empty balance.
func SplitLabel(label string) (address, balance string, notes []string) {
	parts := strings.Split(label, "\n")
	address = parts[0]
	if len(parts) > 1 {
		balance = parts[1]
	}
	if len(parts) > 2 {
		notes = parts[2:]
	}
	return address, balance, notes
}

// Renderer builds cards. An override color, matched by exact node id,
// replaces the border and header background of the base palette.
type Renderer struct {
	palette   Palette
	overrides map[string]string
}

// NewRenderer creates a renderer. Later override maps take precedence.
func NewRenderer(palette Palette, overrides ...map[string]string) *Renderer {
	merged := make(map[string]string)
	for _, o := range overrides {
		maps.Copy(merged, o)
	}
	return &Renderer{palette: palette, overrides: merged}
}

// WithOverrides returns a renderer with extra overrides layered beneath the
// existing ones.
func (r *Renderer) WithOverrides(base map[string]string) *Renderer {
	return NewRenderer(r.palette, base, r.overrides)
}

// PaletteFor returns the palette used for the node with the given id.
func (r *Renderer) PaletteFor(id string) Palette {
	p := r.palette
	if c, ok := r.overrides[id]; ok && c != "" {
		p.Border = c
		p.HeaderBackground = c
	}
	return p
}

// Card renders one node.
func (r *Renderer) Card(n models.Node) Card {
	address, balance, notes := SplitLabel(n.Label)
	return Card{
		ID:      n.ID,
		Address: address,
		Balance: balance,
		Notes:   notes,
		Palette: r.PaletteFor(n.ID),
		Hidden:  n.Hidden,
	}
}

// Cards renders nodes in order.
func (r *Renderer) Cards(nodes []models.Node) []Card {
	out := make([]Card, len(nodes))
	for i, n := range nodes {
		out[i] = r.Card(n)
	}
	return out
}
