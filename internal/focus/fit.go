package focus

import (
	"math"
	"time"

	"github.com/starford/walletgraph/internal/models"
)

// Bounds is an axis-aligned rectangle in canvas units.
type Bounds struct {
	MinX float64 `json:"min_x"`
	MinY float64 `json:"min_y"`
	MaxX float64 `json:"max_x"`
	MaxY float64 `json:"max_y"`
}

// FitRequest asks the view to zoom to a set of nodes.
type FitRequest struct {
	NodeIDs    []string `json:"node_ids"`
	Padding    float64  `json:"padding"`
	DurationMS int64    `json:"duration_ms"`
	Bounds     Bounds   `json:"bounds"`
}

// FitTo builds the fit request for the nodes in visible, in node order.
// Ids in visible with no matching node are ignored. It returns false when
// no node qualifies, in which case the view should not be refit.
//
// Bounds cover the node positions, grown on each side by padding times the
// extent (a single node yields a zero-size box).
func FitTo(nodes []models.Node, visible Set, padding float64, duration time.Duration) (FitRequest, bool) {
	req := FitRequest{
		Padding:    padding,
		DurationMS: duration.Milliseconds(),
	}
	b := Bounds{
		MinX: math.Inf(1), MinY: math.Inf(1),
		MaxX: math.Inf(-1), MaxY: math.Inf(-1),
	}
	for _, n := range nodes {
		if !visible.Has(n.ID) {
			continue
		}
		req.NodeIDs = append(req.NodeIDs, n.ID)
		b.MinX = math.Min(b.MinX, n.Position.X)
		b.MinY = math.Min(b.MinY, n.Position.Y)
		b.MaxX = math.Max(b.MaxX, n.Position.X)
		b.MaxY = math.Max(b.MaxY, n.Position.Y)
	}
	if len(req.NodeIDs) == 0 {
		return FitRequest{}, false
	}

	padX := (b.MaxX - b.MinX) * padding
	padY := (b.MaxY - b.MinY) * padding
	req.Bounds = Bounds{
		MinX: b.MinX - padX,
		MinY: b.MinY - padY,
		MaxX: b.MaxX + padX,
		MaxY: b.MaxY + padY,
	}
	return req, true
}
