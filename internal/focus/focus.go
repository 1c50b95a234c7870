// Package focus computes which wallets and transfers stay visible when a
// node is clicked in focus mode.
//
// Compute is a pure function of the clicked id, the graph and the previous
// selection. Clicking the selected node again resets the view; clicking any
// other node selects it and keeps visible only the set S produced by the
// active Policy. A node is visible iff it is in S, an edge iff both of its
// endpoints are.
package focus

import (
	"errors"
	"fmt"

	"github.com/dominikbraun/graph"

	"github.com/starford/walletgraph/internal/models"
)

// Policy selects how the visible set is derived from the clicked node.
type Policy string

const (
	// OneHopUndirected keeps the clicked node and every node sharing an
	// edge with it, regardless of direction.
	OneHopUndirected Policy = "one_hop_undirected"
	// ParentsPlusDownstream keeps the direct senders into the clicked node
	// and everything reachable from it along outgoing edges.
	ParentsPlusDownstream Policy = "parents_plus_downstream"
	// ResetAll keeps the same set as OneHopUndirected.
	ResetAll Policy = "reset_all"
)

// Policies lists every supported policy.
var Policies = []Policy{OneHopUndirected, ParentsPlusDownstream, ResetAll}

// ParsePolicy converts a configuration value to a Policy.
func ParsePolicy(s string) (Policy, error) {
	for _, p := range Policies {
		if string(p) == s {
			return p, nil
		}
	}
	return "", fmt.Errorf("focus: unknown policy %q", s)
}

// Set is a set of node ids.
type Set map[string]struct{}

// Has reports whether id is in the set.
func (s Set) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// State is the focus-mode state carried between clicks.
type State struct {
	Selection   string          // empty when nothing is selected
	NodeVisible map[string]bool // by node id
	EdgeVisible map[string]bool // by edge id
}

// Result is the state after a click plus the set it was derived from.
// Visible is nil when the click reset the view.
type Result struct {
	State
	Visible Set
	Reset   bool
}

// Compute applies a click on clickedID to the graph. The returned maps
// cover every node and edge passed in.
func Compute(policy Policy, clickedID string, nodes []models.Node, edges []models.Edge, previous string) Result {
	if previous != "" && clickedID == previous {
		return Result{State: AllVisible(nodes, edges), Reset: true}
	}

	visible := VisibleSet(policy, clickedID, edges)
	st := State{
		Selection:   clickedID,
		NodeVisible: make(map[string]bool, len(nodes)),
		EdgeVisible: make(map[string]bool, len(edges)),
	}
	for _, n := range nodes {
		st.NodeVisible[n.ID] = visible.Has(n.ID)
	}
	for _, e := range edges {
		st.EdgeVisible[e.ID] = visible.Has(e.Source) && visible.Has(e.Target)
	}
	return Result{State: st, Visible: visible}
}

// AllVisible returns a state with no selection and everything shown.
func AllVisible(nodes []models.Node, edges []models.Edge) State {
	st := State{
		NodeVisible: make(map[string]bool, len(nodes)),
		EdgeVisible: make(map[string]bool, len(edges)),
	}
	for _, n := range nodes {
		st.NodeVisible[n.ID] = true
	}
	for _, e := range edges {
		st.EdgeVisible[e.ID] = true
	}
	return st
}

// VisibleSet returns S for a click on clickedID under policy.
func VisibleSet(policy Policy, clickedID string, edges []models.Edge) Set {
	switch policy {
	case ParentsPlusDownstream:
		return parentsPlusDownstream(clickedID, edges)
	default:
		return oneHop(clickedID, edges)
	}
}

// transfers loads the edge list into a directed graph holding id and every
// endpoint, dangling ones included. Parallel transfers collapse into one
// graph edge; neighbourhoods and reachability are unaffected.
func transfers(id string, edges []models.Edge) graph.Graph[string, string] {
	g := graph.New(graph.StringHash, graph.Directed())
	addVertex := func(v string) {
		if err := g.AddVertex(v); err != nil && !errors.Is(err, graph.ErrVertexAlreadyExists) {
			panic(fmt.Sprintf("focus: add wallet %q: %v", v, err))
		}
	}
	addVertex(id)
	for _, e := range edges {
		addVertex(e.Source)
		addVertex(e.Target)
		if err := g.AddEdge(e.Source, e.Target); err != nil && !errors.Is(err, graph.ErrEdgeAlreadyExists) {
			panic(fmt.Sprintf("focus: add transfer %s: %v", e.ID, err))
		}
	}
	return g
}

func oneHop(id string, edges []models.Edge) Set {
	g := transfers(id, edges)
	s := Set{id: {}}
	for n := range successors(g)[id] {
		s[n] = struct{}{}
	}
	for n := range predecessors(g)[id] {
		s[n] = struct{}{}
	}
	return s
}

func parentsPlusDownstream(id string, edges []models.Edge) Set {
	g := transfers(id, edges)
	s := reachable(g, id)
	for n := range predecessors(g)[id] {
		s[n] = struct{}{}
	}
	return s
}

// Downstream returns every node reachable from id along outgoing edges,
// including id itself. The result is closed under outgoing edges and the
// walk terminates on cycles.
func Downstream(id string, edges []models.Edge) Set {
	return reachable(transfers(id, edges), id)
}

func reachable(g graph.Graph[string, string], id string) Set {
	s := Set{}
	// id is always a vertex of g, so BFS cannot fail.
	_ = graph.BFS(g, id, func(v string) bool {
		s[v] = struct{}{}
		return false
	})
	return s
}

func successors(g graph.Graph[string, string]) map[string]map[string]graph.Edge[string] {
	m, err := g.AdjacencyMap()
	if err != nil {
		panic(fmt.Sprintf("focus: adjacency map: %v", err))
	}
	return m
}

func predecessors(g graph.Graph[string, string]) map[string]map[string]graph.Edge[string] {
	m, err := g.PredecessorMap()
	if err != nil {
		panic(fmt.Sprintf("focus: predecessor map: %v", err))
	}
	return m
}
