// Package layout spreads fixture positions away from their centroid and
// nudges overlapping node cards apart.
package layout

import (
	"math"

	"github.com/starford/walletgraph/internal/models"
)

// Options controls the adjuster. Card sizes are in canvas units.
type Options struct {
	Spread     float64 // radial scale factor, must be > 1
	CardWidth  float64
	CardHeight float64
	Padding    float64 // added to each half extent
	MaxPasses  int
}

// DefaultOptions returns the adjuster settings used when none are configured.
func DefaultOptions() Options {
	return Options{
		Spread:     1.5,
		CardWidth:  110,
		CardHeight: 56,
		Padding:    12,
		MaxPasses:  200,
	}
}

func (o Options) halfExtents() (float64, float64) {
	return math.Ceil(o.CardWidth/2) + o.Padding, math.Ceil(o.CardHeight/2) + o.Padding
}

// Adjust returns a copy of nodes with spread and de-overlapped positions.
// It is deterministic: the same input always yields the same output.
func Adjust(nodes []models.Node, opts Options) []models.Node {
	out := make([]models.Node, len(nodes))
	copy(out, nodes)
	if len(out) == 0 {
		return out
	}

	spread(out, opts.Spread)
	separate(out, opts)

	for i := range out {
		out[i].Position.X = math.Round(out[i].Position.X)
		out[i].Position.Y = math.Round(out[i].Position.Y)
	}
	return out
}

// spread scales every position away from the centroid by k. Positions are
// rounded so that separation works on whole units.
func spread(nodes []models.Node, k float64) {
	var cx, cy float64
	for _, n := range nodes {
		cx += n.Position.X
		cy += n.Position.Y
	}
	cx /= float64(len(nodes))
	cy /= float64(len(nodes))

	for i := range nodes {
		p := &nodes[i].Position
		p.X = math.Round(cx + (p.X-cx)*k)
		p.Y = math.Round(cy + (p.Y-cy)*k)
	}
}

// separate relaxes pairwise overlaps for at most opts.MaxPasses passes and
// returns the number of passes run.
func separate(nodes []models.Node, opts Options) int {
	hw, hh := opts.halfExtents()
	passes := 0
	for passes < opts.MaxPasses {
		passes++
		moved := false
		for i := 0; i < len(nodes); i++ {
			for j := i + 1; j < len(nodes); j++ {
				if push(&nodes[i].Position, &nodes[j].Position, hw, hh) {
					moved = true
				}
			}
		}
		if !moved {
			break
		}
	}
	return passes
}

// push moves a and b apart along the axis of least overlap. It reports
// whether anything moved.
func push(a, b *models.Position, hw, hh float64) bool {
	dx := b.X - a.X
	dy := b.Y - a.Y
	ox := 2*hw - math.Abs(dx)
	oy := 2*hh - math.Abs(dy)
	if ox <= 0 || oy <= 0 {
		return false
	}

	if ox <= oy {
		shift := math.Ceil(ox / 2)
		s := sign(dx)
		a.X -= shift * s
		b.X += shift * s
	} else {
		shift := math.Ceil(oy / 2)
		s := sign(dy)
		a.Y -= shift * s
		b.Y += shift * s
	}
	return true
}

func sign(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}

// Overlaps reports whether the cards of a and b intersect on both axes.
func Overlaps(a, b models.Node, opts Options) bool {
	hw, hh := opts.halfExtents()
	return math.Abs(b.Position.X-a.Position.X) < 2*hw &&
		math.Abs(b.Position.Y-a.Position.Y) < 2*hh
}
