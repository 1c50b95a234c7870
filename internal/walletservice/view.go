package walletservice

import (
	"github.com/starford/walletgraph/internal/dataset"
	"github.com/starford/walletgraph/internal/focus"
	"github.com/starford/walletgraph/internal/models"
	"github.com/starford/walletgraph/internal/render"
)

// NodeView is a node together with its rendered card.
type NodeView struct {
	models.Node
	Card render.Card `json:"card"`
}

// Summary is the sidebar information of a view.
type Summary struct {
	TotalNodes   int    `json:"total_nodes"`
	VisibleNodes int    `json:"visible_nodes"`
	TotalEdges   int    `json:"total_edges"`
	VisibleEdges int    `json:"visible_edges"`
	Focused      string `json:"focused,omitempty"`
}

// View is everything a canvas needs to draw the current state.
type View struct {
	Dataset   string        `json:"dataset"`
	Name      string        `json:"name"`
	Policy    focus.Policy  `json:"policy"`
	Selection string        `json:"selection"`
	Nodes     []NodeView    `json:"nodes"`
	Edges     []models.Edge `json:"edges"`
	Summary   Summary       `json:"summary"`
}

// VisibleNodes returns the nodes that are not hidden, in order.
func (v *View) VisibleNodes() []NodeView {
	var out []NodeView
	for _, n := range v.Nodes {
		if !n.Hidden {
			out = append(out, n)
		}
	}
	return out
}

// VisibleEdges returns the edges that are not hidden, in order.
func (v *View) VisibleEdges() []models.Edge {
	var out []models.Edge
	for _, e := range v.Edges {
		if !e.Hidden {
			out = append(out, e)
		}
	}
	return out
}

// WalletDetail is one wallet with its transfers in both directions.
type WalletDetail struct {
	Node     models.Node   `json:"node"`
	Card     render.Card   `json:"card"`
	Incoming []models.Edge `json:"incoming"`
	Outgoing []models.Edge `json:"outgoing"`
}

// ClickResult is the outcome of a node click.
type ClickResult struct {
	Selection    string            `json:"selection"`
	Reset        bool              `json:"reset"`
	VisibleNodes []string          `json:"visible_nodes"`
	VisibleEdges []string          `json:"visible_edges"`
	Fit          *focus.FitRequest `json:"fit,omitempty"`
}

// DatasetList names the available datasets and the active one.
type DatasetList struct {
	Active   string         `json:"active"`
	Datasets []dataset.Info `json:"datasets"`
}

func buildView(name string, policy focus.Policy, g *models.Graph, selection string, r *render.Renderer) *View {
	r = r.WithOverrides(g.Overrides)
	v := &View{
		Dataset:   name,
		Name:      g.Name,
		Policy:    policy,
		Selection: selection,
		Nodes:     make([]NodeView, len(g.Nodes)),
		Edges:     g.Edges,
		Summary: Summary{
			TotalNodes: len(g.Nodes),
			TotalEdges: len(g.Edges),
			Focused:    selection,
		},
	}
	for i, n := range g.Nodes {
		v.Nodes[i] = NodeView{Node: n, Card: r.Card(n)}
		if !n.Hidden {
			v.Summary.VisibleNodes++
		}
	}
	for _, e := range g.Edges {
		if !e.Hidden {
			v.Summary.VisibleEdges++
		}
	}
	return v
}
