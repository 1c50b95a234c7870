package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/walletgraph/internal/walletservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *walletservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Graph view and focus.
	r.Get("/graph", h.Graph)
	r.Post("/focus/reset", h.ResetFocus)

	// Wallets.
	r.Get("/wallets", h.ListWallets)
	r.Get("/wallets/{id}", h.GetWallet)
	r.Post("/wallets/{id}/click", h.ClickWallet)

	// Edge creation.
	r.Post("/connections", h.BeginConnect)
	r.Get("/prompts", h.ListPrompts)
	r.Get("/prompts/{id}", h.GetPrompt)
	r.Post("/prompts/{id}", h.AnswerPrompt)
	r.Delete("/prompts/{id}", h.CancelPrompt)
	r.Post("/transfers", h.CreateTransfer)

	// Datasets.
	r.Get("/datasets", h.ListDatasets)
	r.Post("/datasets/{name}/activate", h.ActivateDataset)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
