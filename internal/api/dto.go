package api

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/walletgraph/internal/dataset"
	"github.com/starford/walletgraph/internal/models"
	"github.com/starford/walletgraph/internal/prompt"
	"github.com/starford/walletgraph/internal/render"
	"github.com/starford/walletgraph/internal/walletservice"
)

// ConnectRequest is the request body for starting a connect gesture.
type ConnectRequest struct {
	Source string `json:"source" example:"Binance-Hot 2" validate:"required"`
	Target string `json:"target" example:"TEneWEhq6j4V8Ruvpbfhtrg1ZynWsAwa78" validate:"required"`
}

// Validate checks that both endpoints are named.
func (r ConnectRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Source, validation.Required),
		validation.Field(&r.Target, validation.Required),
	)
}

// AnswerRequest is the request body for answering a prompt. An empty value
// dismisses the prompt.
type AnswerRequest struct {
	Value *string `json:"value" example:"12.5" validate:"required"`
}

// Validate checks that a value was sent, possibly empty.
func (r AnswerRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Value, validation.NotNil),
	)
}

// TransferRequest is the request body for creating a transfer directly.
type TransferRequest struct {
	Source string `json:"source" example:"Binance-Hot 2" validate:"required"`
	Target string `json:"target" example:"TEneWEhq6j4V8Ruvpbfhtrg1ZynWsAwa78" validate:"required"`
	Amount string `json:"amount" example:"12.5" validate:"required"`
}

// Validate checks the endpoints. The amount is checked by the service.
func (r TransferRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Source, validation.Required),
		validation.Field(&r.Target, validation.Required),
	)
}

// View is the graph view response type (aliased from the domain layer).
type View = walletservice.View

// WalletDetail is the wallet response type (aliased from the domain layer).
type WalletDetail = walletservice.WalletDetail

// ClickResult is the focus outcome response type (aliased from the domain layer).
type ClickResult = walletservice.ClickResult

// DatasetList is the dataset listing response type (aliased from the domain layer).
type DatasetList = walletservice.DatasetList

// PromptResponse is a pending prompt.
type PromptResponse = prompt.Request

// WalletListResponse wraps the card listing.
type WalletListResponse struct {
	Wallets []render.Card `json:"wallets" validate:"required"`
}

// PromptListResponse wraps the pending prompts.
type PromptListResponse struct {
	Prompts []prompt.Request `json:"prompts" validate:"required"`
}

// EdgeResponse is a created transfer edge.
type EdgeResponse = models.Edge

// DatasetInfo describes one dataset file.
type DatasetInfo = dataset.Info
