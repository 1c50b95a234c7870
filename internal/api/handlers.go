package api

import (
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/starford/walletgraph/internal/walletservice"
)

// Handler holds API route handlers.
type Handler struct {
	svc *walletservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *walletservice.Service) *Handler {
	return &Handler{svc: svc}
}

// urlParam returns a decoded path parameter. chi matches on the decoded
// path unless the request carries a RawPath, in which case the segment is
// still escaped. Wallet ids may contain spaces ("Binance-Hot 2").
func urlParam(r *http.Request, name string) string {
	raw := chi.URLParam(r, name)
	if r.URL.RawPath == "" {
		return raw
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return false
	}
	return true
}

// Graph handles GET /api/graph.
//
//	@Summary		Get the current graph view
//	@Tags			graph
//	@Produce		json
//	@Success		200	{object}	View
//	@Security		BearerAuth
//	@Router			/graph [get]
func (h *Handler) Graph(w http.ResponseWriter, r *http.Request) {
	v, err := h.svc.View(r.Context())
	if err != nil {
		writeError(w, "graph", err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// ListWallets handles GET /api/wallets.
//
//	@Summary		List wallet cards
//	@Tags			wallets
//	@Produce		json
//	@Success		200	{object}	WalletListResponse
//	@Security		BearerAuth
//	@Router			/wallets [get]
func (h *Handler) ListWallets(w http.ResponseWriter, r *http.Request) {
	cards, err := h.svc.ListWallets(r.Context())
	if err != nil {
		writeError(w, "list wallets", err)
		return
	}
	writeJSON(w, http.StatusOK, WalletListResponse{Wallets: cards})
}

// GetWallet handles GET /api/wallets/{id}.
//
//	@Summary		Get a wallet with its transfers
//	@Tags			wallets
//	@Produce		json
//	@Param			id	path		string	true	"Wallet id"
//	@Success		200	{object}	WalletDetail
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/wallets/{id} [get]
func (h *Handler) GetWallet(w http.ResponseWriter, r *http.Request) {
	detail, err := h.svc.Wallet(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeError(w, "get wallet", err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// ClickWallet handles POST /api/wallets/{id}/click.
//
//	@Summary		Focus on a wallet, or reset when it is already focused
//	@Tags			focus
//	@Produce		json
//	@Param			id	path		string	true	"Wallet id"
//	@Success		200	{object}	ClickResult
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/wallets/{id}/click [post]
func (h *Handler) ClickWallet(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Click(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeError(w, "click wallet", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ResetFocus handles POST /api/focus/reset.
//
//	@Summary		Show every wallet and transfer
//	@Tags			focus
//	@Produce		json
//	@Success		200	{object}	View
//	@Security		BearerAuth
//	@Router			/focus/reset [post]
func (h *Handler) ResetFocus(w http.ResponseWriter, r *http.Request) {
	v, err := h.svc.Reset(r.Context())
	if err != nil {
		writeError(w, "reset focus", err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// BeginConnect handles POST /api/connections.
//
//	@Summary		Start a connect gesture and open an amount prompt
//	@Tags			transfers
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ConnectRequest	true	"Endpoints"
//	@Success		202		{object}	PromptResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/connections [post]
func (h *Handler) BeginConnect(w http.ResponseWriter, r *http.Request) {
	var req ConnectRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	p, err := h.svc.BeginConnect(r.Context(), req.Source, req.Target)
	if err != nil {
		writeError(w, "begin connect", err)
		return
	}
	writeJSON(w, http.StatusAccepted, p)
}

// ListPrompts handles GET /api/prompts.
//
//	@Summary		List pending amount prompts
//	@Tags			transfers
//	@Produce		json
//	@Success		200	{object}	PromptListResponse
//	@Security		BearerAuth
//	@Router			/prompts [get]
func (h *Handler) ListPrompts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, PromptListResponse{Prompts: h.svc.Prompts(r.Context())})
}

// GetPrompt handles GET /api/prompts/{id}.
//
//	@Summary		Get a pending prompt
//	@Tags			transfers
//	@Produce		json
//	@Param			id	path		string	true	"Prompt id"
//	@Success		200	{object}	PromptResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/prompts/{id} [get]
func (h *Handler) GetPrompt(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Prompt(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeError(w, "get prompt", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// AnswerPrompt handles POST /api/prompts/{id}.
//
//	@Summary		Answer a pending prompt
//	@Tags			transfers
//	@Accept			json
//	@Param			id		path	string			true	"Prompt id"
//	@Param			body	body	AnswerRequest	true	"Raw amount input"
//	@Success		204		"Prompt answered"
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/prompts/{id} [post]
func (h *Handler) AnswerPrompt(w http.ResponseWriter, r *http.Request) {
	var req AnswerRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	if err := h.svc.AnswerPrompt(r.Context(), urlParam(r, "id"), *req.Value); err != nil {
		writeError(w, "answer prompt", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CancelPrompt handles DELETE /api/prompts/{id}.
//
//	@Summary		Dismiss a pending prompt
//	@Tags			transfers
//	@Param			id	path	string	true	"Prompt id"
//	@Success		204	"Prompt cancelled"
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/prompts/{id} [delete]
func (h *Handler) CancelPrompt(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.CancelPrompt(r.Context(), urlParam(r, "id")); err != nil {
		writeError(w, "cancel prompt", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateTransfer handles POST /api/transfers.
//
//	@Summary		Create a transfer edge with an amount
//	@Tags			transfers
//	@Accept			json
//	@Produce		json
//	@Param			body	body		TransferRequest	true	"Transfer"
//	@Success		201		{object}	EdgeResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/transfers [post]
func (h *Handler) CreateTransfer(w http.ResponseWriter, r *http.Request) {
	var req TransferRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	e, err := h.svc.CreateTransfer(r.Context(), req.Source, req.Target, req.Amount)
	if err != nil {
		writeError(w, "create transfer", err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

// ListDatasets handles GET /api/datasets.
//
//	@Summary		List datasets and the active one
//	@Tags			datasets
//	@Produce		json
//	@Success		200	{object}	DatasetList
//	@Security		BearerAuth
//	@Router			/datasets [get]
func (h *Handler) ListDatasets(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.Datasets(r.Context())
	if err != nil {
		writeError(w, "list datasets", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// ActivateDataset handles POST /api/datasets/{name}/activate.
//
//	@Summary		Load another dataset
//	@Tags			datasets
//	@Produce		json
//	@Param			name	path		string	true	"Dataset file name"
//	@Success		200		{object}	View
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/datasets/{name}/activate [post]
func (h *Handler) ActivateDataset(w http.ResponseWriter, r *http.Request) {
	v, err := h.svc.ActivateDataset(r.Context(), urlParam(r, "name"))
	if err != nil {
		writeError(w, "activate dataset", err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}
