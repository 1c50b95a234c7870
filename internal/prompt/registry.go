// Package prompt keeps the pending amount prompts opened by connect
// gestures. A prompt is answered or cancelled from any caller while the
// opener waits for it on its own goroutine.
package prompt

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/starford/walletgraph/internal/apperr"
)

// Request describes a pending prompt.
type Request struct {
	ID        string    `json:"id"`
	Source    string    `json:"source"`
	Target    string    `json:"target"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// Answer is the outcome of a prompt. Cancelled answers carry no value.
type Answer struct {
	Value     string
	Cancelled bool
}

// Pending is an open prompt handle returned by Open.
type Pending struct {
	Request
	answer chan Answer
}

// Registry tracks open prompts by id.
type Registry struct {
	mu      sync.Mutex
	pending map[string]*Pending
	now     func() time.Time
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		pending: make(map[string]*Pending),
		now:     time.Now,
	}
}

// Open registers a new prompt for a source→target connection.
func (r *Registry) Open(source, target, message string) *Pending {
	p := &Pending{
		Request: Request{
			ID:        uuid.NewString(),
			Source:    source,
			Target:    target,
			Message:   message,
			CreatedAt: r.now().UTC(),
		},
		answer: make(chan Answer, 1),
	}

	r.mu.Lock()
	r.pending[p.ID] = p
	r.mu.Unlock()
	return p
}

// Wait blocks until the prompt is answered or ctx is done. A prompt whose
// context ends first is removed and reported as cancelled together with the
// context error.
func (r *Registry) Wait(ctx context.Context, p *Pending) (Answer, error) {
	select {
	case a := <-p.answer:
		return a, nil
	case <-ctx.Done():
	}

	if r.take(p.ID) != nil {
		return Answer{Cancelled: true}, ctx.Err()
	}
	// Answered concurrently with the deadline; the answer is already buffered.
	return <-p.answer, nil
}

// Resolve answers a prompt with the raw input value.
func (r *Registry) Resolve(id, value string) error {
	return r.finish(id, Answer{Value: value})
}

// Cancel dismisses a prompt without a value.
func (r *Registry) Cancel(id string) error {
	return r.finish(id, Answer{Cancelled: true})
}

func (r *Registry) finish(id string, a Answer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.pending[id]
	if !ok {
		return fmt.Errorf("prompt %q: %w", id, apperr.ErrNotFound)
	}
	delete(r.pending, id)
	p.answer <- a
	return nil
}

func (r *Registry) take(id string) *Pending {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.pending[id]
	if !ok {
		return nil
	}
	delete(r.pending, id)
	return p
}

// Get returns a pending prompt by id.
func (r *Registry) Get(id string) (Request, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.pending[id]
	if !ok {
		return Request{}, fmt.Errorf("prompt %q: %w", id, apperr.ErrNotFound)
	}
	return p.Request, nil
}

// List returns pending prompts, oldest first.
func (r *Registry) List() []Request {
	r.mu.Lock()
	out := make([]Request, 0, len(r.pending))
	for _, p := range r.pending {
		out = append(out, p.Request)
	}
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// CancelAll dismisses every pending prompt.
func (r *Registry) CancelAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, p := range r.pending {
		delete(r.pending, id)
		p.answer <- Answer{Cancelled: true}
	}
}
