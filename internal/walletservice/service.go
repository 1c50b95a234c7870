// Package walletservice coordinates the graph controller, the prompt
// registry and event publishing behind one API used by the HTTP and MCP
// surfaces.
package walletservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/starford/walletgraph/internal/apperr"
	"github.com/starford/walletgraph/internal/dataset"
	"github.com/starford/walletgraph/internal/focus"
	"github.com/starford/walletgraph/internal/graphstore"
	"github.com/starford/walletgraph/internal/layout"
	"github.com/starford/walletgraph/internal/models"
	"github.com/starford/walletgraph/internal/prompt"
	"github.com/starford/walletgraph/internal/render"
	"github.com/starford/walletgraph/internal/session"
	"github.com/starford/walletgraph/internal/sse"
	"github.com/starford/walletgraph/internal/transfer"
)

// ErrEmptyAmount is returned when a transfer is created without an amount.
var ErrEmptyAmount = errors.New("transfer amount is empty")

// Publisher receives interaction events. *sse.Broker implements it.
type Publisher interface {
	Publish(event sse.Event)
	PublishGraphEvent(kind string, data any)
}

type nopPublisher struct{}

func (nopPublisher) Publish(sse.Event)             {}
func (nopPublisher) PublishGraphEvent(string, any) {}

// Options configures a Service.
type Options struct {
	Policy        focus.Policy
	FitPadding    float64
	FitDuration   time.Duration
	Layout        *layout.Options // nil keeps dataset positions
	PromptTimeout time.Duration
	Palette       render.Palette
	Overrides     map[string]string
}

// Service is the application facade over one loaded graph.
type Service struct {
	store    graphstore.Store
	ctrl     *session.Controller
	datasets dataset.Provider
	prompts  *prompt.Registry
	events   Publisher
	renderer *render.Renderer
	tracer   oteltrace.Tracer
	logger   *slog.Logger
	opts     Options

	mu     sync.Mutex
	active string
	loaded sse.DatasetLoaded

	baseCtx context.Context
	cancel  context.CancelFunc
	waiters sync.WaitGroup
}

// New creates a service over store. No dataset is loaded until Load or
// ActivateDataset is called. events and tracer may be nil.
func New(store graphstore.Store, datasets dataset.Provider, events Publisher, tracer oteltrace.Tracer, logger *slog.Logger, opts Options) *Service {
	if events == nil {
		events = nopPublisher{}
	}
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("walletservice")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if opts.PromptTimeout <= 0 {
		opts.PromptTimeout = 5 * time.Minute
	}
	if opts.Palette == (render.Palette{}) {
		opts.Palette = render.DefaultPalette()
	}

	ctx, cancel := context.WithCancel(context.Background())
	ctrl := session.New(store, opts.Policy)
	opts.Policy = ctrl.Policy()

	return &Service{
		store:    store,
		ctrl:     ctrl,
		datasets: datasets,
		prompts:  prompt.NewRegistry(),
		events:   events,
		renderer: render.NewRenderer(opts.Palette, opts.Overrides),
		tracer:   tracer,
		logger:   logger.With(slog.String("component", "walletservice")),
		opts:     opts,
		baseCtx:  ctx,
		cancel:   cancel,
	}
}

// Close cancels pending prompts, waits for their waiters and stops the
// controller. The store is left open.
func (s *Service) Close() {
	s.prompts.CancelAll()
	s.cancel()
	s.waiters.Wait()
	s.ctrl.Close()
}

func (s *Service) start(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, oteltrace.Span) {
	return s.tracer.Start(ctx, "walletservice."+op, oteltrace.WithAttributes(attrs...))
}

func fail(span oteltrace.Span, err error) error {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// Active returns the name of the loaded dataset.
func (s *Service) Active() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Load reads, lays out and installs the named dataset.
func (s *Service) Load(ctx context.Context, name string) error {
	ctx, span := s.start(ctx, "Load", attribute.String("dataset.name", name))
	defer span.End()

	data, err := s.datasets.Read(name)
	if err != nil {
		return fail(span, err)
	}
	return fail(span, s.install(ctx, name, data))
}

func (s *Service) install(ctx context.Context, name string, data []byte) error {
	g, err := dataset.Decode(data)
	if err != nil {
		return err
	}
	if s.opts.Layout != nil {
		g.Nodes = layout.Adjust(g.Nodes, *s.opts.Layout)
	}
	if err := s.ctrl.Replace(ctx, g); err != nil {
		return err
	}

	s.mu.Lock()
	s.active = name
	s.loaded = sse.DatasetLoaded{Name: name, Nodes: len(g.Nodes), Edges: len(g.Edges)}
	s.mu.Unlock()

	s.logger.Info("dataset loaded",
		slog.String("dataset", name),
		slog.Int("nodes", len(g.Nodes)),
		slog.Int("edges", len(g.Edges)),
	)
	return nil
}

// ActivateDataset loads another dataset and announces the reload.
func (s *Service) ActivateDataset(ctx context.Context, name string) (*View, error) {
	if err := s.Load(ctx, name); err != nil {
		return nil, err
	}
	s.announceReload()
	return s.View(ctx)
}

// Reload installs new content for the active dataset. Changes to other
// datasets are ignored. It matches dataset.ChangeCallback.
func (s *Service) Reload(name string, data []byte) {
	if name != s.Active() {
		s.logger.Debug("ignoring change to inactive dataset", slog.String("dataset", name))
		return
	}

	ctx, span := s.start(s.baseCtx, "Reload", attribute.String("dataset.name", name))
	defer span.End()

	if err := s.install(ctx, name, data); err != nil {
		fail(span, err)
		s.logger.Warn("reload failed, keeping previous graph",
			slog.String("dataset", name),
			slog.String("error", err.Error()),
		)
		return
	}
	s.announceReload()
}

// announceReload dismisses prompts opened against the previous graph and
// publishes graph.reloaded.
func (s *Service) announceReload() {
	s.prompts.CancelAll()
	s.mu.Lock()
	loaded := s.loaded
	s.mu.Unlock()
	s.events.PublishGraphEvent(sse.GraphReloaded, loaded)
}

// Datasets lists the available datasets.
func (s *Service) Datasets(ctx context.Context) (*DatasetList, error) {
	_, span := s.start(ctx, "Datasets")
	defer span.End()

	infos, err := s.datasets.List()
	if err != nil {
		return nil, fail(span, err)
	}
	return &DatasetList{Active: s.Active(), Datasets: infos}, nil
}

// View returns the current graph with cards and the selection.
func (s *Service) View(ctx context.Context) (*View, error) {
	ctx, span := s.start(ctx, "View")
	defer span.End()

	snap, err := s.ctrl.Snapshot(ctx)
	if err != nil {
		return nil, fail(span, err)
	}
	return buildView(s.Active(), s.opts.Policy, snap.Graph, snap.Selection, s.renderer), nil
}

// ListWallets returns a card per wallet, in dataset order.
func (s *Service) ListWallets(ctx context.Context) ([]render.Card, error) {
	_, span := s.start(ctx, "ListWallets")
	defer span.End()

	nodes, err := s.store.Nodes()
	if err != nil {
		return nil, fail(span, err)
	}
	r, err := s.datasetRenderer()
	if err != nil {
		return nil, fail(span, err)
	}
	return r.Cards(nodes), nil
}

// Wallet returns one wallet with its incoming and outgoing transfers.
func (s *Service) Wallet(ctx context.Context, id string) (*WalletDetail, error) {
	_, span := s.start(ctx, "Wallet", attribute.String("wallet.id", id))
	defer span.End()

	n, err := s.store.Node(id)
	if err != nil {
		return nil, fail(span, err)
	}
	in, err := s.store.Incoming(id)
	if err != nil {
		return nil, fail(span, err)
	}
	out, err := s.store.Outgoing(id)
	if err != nil {
		return nil, fail(span, err)
	}
	r, err := s.datasetRenderer()
	if err != nil {
		return nil, fail(span, err)
	}
	return &WalletDetail{Node: n, Card: r.Card(n), Incoming: in, Outgoing: out}, nil
}

func (s *Service) datasetRenderer() (*render.Renderer, error) {
	overrides, err := s.store.Overrides()
	if err != nil {
		return nil, err
	}
	return s.renderer.WithOverrides(overrides), nil
}

// Click applies a focus click on a wallet.
func (s *Service) Click(ctx context.Context, id string) (*ClickResult, error) {
	ctx, span := s.start(ctx, "Click", attribute.String("wallet.id", id))
	defer span.End()

	res, err := s.ctrl.Click(ctx, id)
	if err != nil {
		return nil, fail(span, err)
	}

	out := &ClickResult{
		Selection:    res.Selection,
		Reset:        res.Reset,
		VisibleNodes: visibleIDs(res.NodeVisible),
		VisibleEdges: visibleIDs(res.EdgeVisible),
	}
	if res.Reset {
		span.SetAttributes(attribute.Bool("focus.reset", true))
		s.events.PublishGraphEvent(sse.FocusReset, out)
		return out, nil
	}

	nodes, err := s.store.Nodes()
	if err != nil {
		return nil, fail(span, err)
	}
	if fit, ok := focus.FitTo(nodes, res.Visible, s.opts.FitPadding, s.opts.FitDuration); ok {
		out.Fit = &fit
	}
	span.SetAttributes(attribute.Int("focus.visible_nodes", len(out.VisibleNodes)))
	s.events.PublishGraphEvent(sse.FocusChanged, out)
	return out, nil
}

// visibleIDs returns the ids marked visible. Order is not significant.
func visibleIDs(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for id, ok := range m {
		if ok {
			out = append(out, id)
		}
	}
	return out
}

// Reset shows every node and edge and clears the selection.
func (s *Service) Reset(ctx context.Context) (*View, error) {
	ctx, span := s.start(ctx, "Reset")
	defer span.End()

	if err := s.ctrl.Reset(ctx); err != nil {
		return nil, fail(span, err)
	}
	s.events.PublishGraphEvent(sse.FocusReset, sse.FocusCleared{})
	return s.View(ctx)
}

// BeginConnect opens an amount prompt for a drag from source to target and
// returns without waiting for the answer.
func (s *Service) BeginConnect(ctx context.Context, source, target string) (prompt.Request, error) {
	_, span := s.start(ctx, "BeginConnect",
		attribute.String("transfer.source", source),
		attribute.String("transfer.target", target),
	)
	defer span.End()

	for _, id := range []string{source, target} {
		if _, err := s.store.Node(id); err != nil {
			return prompt.Request{}, fail(span, err)
		}
	}

	p := s.prompts.Open(source, target, transfer.PromptMessage)
	span.SetAttributes(attribute.String("prompt.id", p.ID))
	s.events.Publish(sse.Event{Type: sse.PromptRequested, Data: p.Request})

	s.waiters.Add(1)
	go s.await(p)
	return p.Request, nil
}

func (s *Service) await(p *prompt.Pending) {
	defer s.waiters.Done()

	ctx, cancel := context.WithTimeout(s.baseCtx, s.opts.PromptTimeout)
	defer cancel()

	answer, err := s.prompts.Wait(ctx, p)
	reason := ""
	switch {
	case err != nil:
		reason = sse.ReasonTimeout
		if errors.Is(err, context.Canceled) {
			reason = sse.ReasonShutdown
		}
	case answer.Cancelled:
		reason = sse.ReasonCancelled
	case answer.Value == "":
		reason = sse.ReasonEmpty
	}
	if reason != "" {
		s.logger.Debug("prompt dismissed", slog.String("prompt", p.ID), slog.String("reason", reason))
		s.events.Publish(sse.Event{
			Type: sse.PromptCancelled,
			Data: sse.PromptDismissed{ID: p.ID, Source: p.Source, Target: p.Target, Reason: reason},
		})
		return
	}

	if _, err := s.CreateTransfer(s.baseCtx, p.Source, p.Target, answer.Value); err != nil {
		s.logger.Warn("create transfer from prompt",
			slog.String("prompt", p.ID),
			slog.String("error", err.Error()),
		)
	}
}

// AnswerPrompt resolves a pending prompt with the raw input value. An empty
// value dismisses the prompt without creating an edge.
func (s *Service) AnswerPrompt(ctx context.Context, id, value string) error {
	_, span := s.start(ctx, "AnswerPrompt", attribute.String("prompt.id", id))
	defer span.End()
	return fail(span, s.prompts.Resolve(id, value))
}

// CancelPrompt dismisses a pending prompt.
func (s *Service) CancelPrompt(ctx context.Context, id string) error {
	_, span := s.start(ctx, "CancelPrompt", attribute.String("prompt.id", id))
	defer span.End()
	return fail(span, s.prompts.Cancel(id))
}

// Prompt returns a pending prompt. Answered or dismissed prompts are not
// found.
func (s *Service) Prompt(ctx context.Context, id string) (prompt.Request, error) {
	_, span := s.start(ctx, "Prompt", attribute.String("prompt.id", id))
	defer span.End()
	p, err := s.prompts.Get(id)
	if err != nil {
		return prompt.Request{}, fail(span, err)
	}
	return p, nil
}

// Prompts lists the pending prompts, oldest first.
func (s *Service) Prompts(ctx context.Context) []prompt.Request {
	_, span := s.start(ctx, "Prompts")
	defer span.End()
	return s.prompts.List()
}

// CreateTransfer appends a transfer edge labeled with the raw value.
func (s *Service) CreateTransfer(ctx context.Context, source, target, value string) (*models.Edge, error) {
	ctx, span := s.start(ctx, "CreateTransfer",
		attribute.String("transfer.source", source),
		attribute.String("transfer.target", target),
	)
	defer span.End()

	if value == "" {
		return nil, fail(span, fmt.Errorf("%w: %w", apperr.ErrInvalidInput, ErrEmptyAmount))
	}
	for _, id := range []string{source, target} {
		if _, err := s.store.Node(id); err != nil {
			return nil, fail(span, err)
		}
	}

	e, err := s.ctrl.AppendEdge(ctx, transfer.NewEdge(source, target, value))
	if err != nil {
		return nil, fail(span, err)
	}
	span.SetAttributes(attribute.String("edge.id", e.ID))

	s.logger.Info("transfer created",
		slog.String("edge", e.ID),
		slog.String("source", source),
		slog.String("target", target),
		slog.String("label", e.Label),
		slog.Bool("hidden", e.Hidden),
	)
	s.events.PublishGraphEvent(sse.EdgeCreated, e)
	return &e, nil
}
