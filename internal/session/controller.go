// Package session owns the interactive state of a loaded graph: the focus
// selection, the hidden flags and every write to the graph store.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/starford/walletgraph/internal/apperr"
	"github.com/starford/walletgraph/internal/focus"
	"github.com/starford/walletgraph/internal/graphstore"
	"github.com/starford/walletgraph/internal/models"
)

// ErrClosed is returned by every operation after Close.
var ErrClosed = errors.New("session: controller closed")

// Snapshot is a consistent read of the graph and the current selection.
type Snapshot struct {
	Graph     *models.Graph
	Selection string
}

// Controller serializes all interaction on one graph.
//
// Concurrency model: a single internal event loop (goroutine) owns the
// selection and is the only caller of store writes. Public methods submit
// closures to the loop and wait for them, so no mutexes are required.
type Controller struct {
	store  graphstore.Store
	policy focus.Policy

	reqCh   chan func()
	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool

	// owned by run
	selection string
}

// New starts a controller over store using the given focus policy.
func New(store graphstore.Store, policy focus.Policy) *Controller {
	if policy == "" {
		policy = focus.OneHopUndirected
	}
	c := &Controller{
		store:   store,
		policy:  policy,
		reqCh:   make(chan func()),
		stopCh:  make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go c.run()
	return c
}

func (c *Controller) run() {
	defer close(c.stopped)
	for {
		select {
		case <-c.stopCh:
			return
		case fn := <-c.reqCh:
			fn()
		}
	}
}

// do runs fn on the loop and waits for it to finish.
func (c *Controller) do(ctx context.Context, fn func()) error {
	if c.closed.Load() {
		return ErrClosed
	}
	done := make(chan struct{})
	select {
	case c.reqCh <- func() { fn(); close(done) }:
	case <-c.stopped:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	<-done
	return nil
}

// Close stops the loop. It is safe to call more than once.
func (c *Controller) Close() {
	if c.closed.CompareAndSwap(false, true) {
		close(c.stopCh)
	}
	<-c.stopped
}

// Policy returns the focus policy in use.
func (c *Controller) Policy() focus.Policy {
	return c.policy
}

// Click applies a node click. Unknown ids are reported as not found and
// leave the state untouched.
func (c *Controller) Click(ctx context.Context, id string) (focus.Result, error) {
	var (
		res focus.Result
		err error
	)
	if derr := c.do(ctx, func() {
		if _, err = c.store.Node(id); err != nil {
			return
		}
		var (
			nodes []models.Node
			edges []models.Edge
		)
		if nodes, err = c.store.Nodes(); err != nil {
			return
		}
		if edges, err = c.store.Edges(); err != nil {
			return
		}
		res = focus.Compute(c.policy, id, nodes, edges, c.selection)
		if err = c.store.ApplyVisibility(res.NodeVisible, res.EdgeVisible); err != nil {
			err = fmt.Errorf("session: click: %w", err)
			return
		}
		c.selection = res.Selection
	}); derr != nil {
		return focus.Result{}, derr
	}
	return res, err
}

// Reset makes every node and edge visible and clears the selection.
func (c *Controller) Reset(ctx context.Context) error {
	var err error
	if derr := c.do(ctx, func() {
		if err = c.store.ApplyVisibility(nil, nil); err != nil {
			err = fmt.Errorf("session: reset: %w", err)
			return
		}
		c.selection = ""
	}); derr != nil {
		return derr
	}
	return err
}

// Snapshot reads the graph and selection in one step.
func (c *Controller) Snapshot(ctx context.Context) (Snapshot, error) {
	var (
		snap Snapshot
		err  error
	)
	if derr := c.do(ctx, func() {
		snap.Graph, err = c.store.Graph()
		snap.Selection = c.selection
	}); derr != nil {
		return Snapshot{}, derr
	}
	return snap, err
}

// AppendEdge stores a new edge. With no focus the edge is visible. While a
// focus is active it is visible only if neither endpoint wallet is hidden;
// the next click recomputes visibility with it included. The stored edge
// is returned.
func (c *Controller) AppendEdge(ctx context.Context, e models.Edge) (models.Edge, error) {
	var err error
	if derr := c.do(ctx, func() {
		e.Hidden = false
		if c.selection != "" {
			if e.Hidden, err = c.endpointHidden(e); err != nil {
				return
			}
		}
		err = c.store.AppendEdge(e)
	}); derr != nil {
		return models.Edge{}, derr
	}
	if err != nil {
		return models.Edge{}, err
	}
	return e, nil
}

// endpointHidden reports whether a stored endpoint of e is hidden. Ids
// without a wallet do not hide the edge.
func (c *Controller) endpointHidden(e models.Edge) (bool, error) {
	for _, id := range []string{e.Source, e.Target} {
		n, err := c.store.Node(id)
		if errors.Is(err, apperr.ErrNotFound) {
			continue
		}
		if err != nil {
			return false, fmt.Errorf("session: append edge: %w", err)
		}
		if n.Hidden {
			return true, nil
		}
	}
	return false, nil
}

// Replace loads a new graph, showing everything and clearing the selection.
func (c *Controller) Replace(ctx context.Context, g *models.Graph) error {
	clean := *g
	clean.Nodes = make([]models.Node, len(g.Nodes))
	for i, n := range g.Nodes {
		n.Hidden = false
		clean.Nodes[i] = n
	}
	clean.Edges = make([]models.Edge, len(g.Edges))
	for i, e := range g.Edges {
		e.Hidden = false
		clean.Edges[i] = e
	}

	var err error
	if derr := c.do(ctx, func() {
		if err = c.store.Replace(&clean); err != nil {
			err = fmt.Errorf("session: replace: %w", err)
			return
		}
		c.selection = ""
	}); derr != nil {
		return derr
	}
	return err
}
