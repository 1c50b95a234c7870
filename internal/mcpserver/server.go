// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes walletgraph tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/walletgraph/internal/apperr"
	"github.com/starford/walletgraph/internal/walletservice"
)

// DatasetFormatURI is the resource URI of the dataset format contract.
const DatasetFormatURI = "walletgraph://dataset-format"

// Server wraps the MCP server with walletgraph tools.
type Server struct {
	mcp *server.MCPServer
	svc *walletservice.Service
}

// New creates a new MCP server with all walletgraph tools registered.
func New(svc *walletservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"walletgraph",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_wallets",
		mcp.WithDescription("List every wallet in the loaded dataset with its address, balance and hidden flag."),
	), s.listWallets)

	s.mcp.AddTool(mcp.NewTool("get_wallet",
		mcp.WithDescription("Get one wallet with its incoming and outgoing transfers."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Wallet id (the address, e.g. TEneWEhq6j4V8Ruvpbfhtrg1ZynWsAwa78 or \"Binance-Hot 2\")")),
	), s.getWallet)

	s.mcp.AddTool(mcp.NewTool("focus_wallet",
		mcp.WithDescription("Click a wallet in focus mode. Only related wallets stay visible. "+
			"Focusing the already focused wallet shows everything again."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Wallet id")),
	), s.focusWallet)

	s.mcp.AddTool(mcp.NewTool("reset_focus",
		mcp.WithDescription("Show every wallet and transfer and clear the focus."),
	), s.resetFocus)

	s.mcp.AddTool(mcp.NewTool("create_transfer",
		mcp.WithDescription("Add a transfer edge between two wallets. The edge label is the amount "+
			"exactly as given followed by \" TRX\"."),
		mcp.WithString("source", mcp.Required(), mcp.Description("Sending wallet id")),
		mcp.WithString("target", mcp.Required(), mcp.Description("Receiving wallet id")),
		mcp.WithString("amount", mcp.Required(), mcp.Description("Amount as entered, e.g. 12.5")),
	), s.createTransfer)

	s.mcp.AddTool(mcp.NewTool("get_view",
		mcp.WithDescription("Summarize the current view: focused wallet, visible wallets and visible transfers."),
	), s.getView)

	s.mcp.AddTool(mcp.NewTool("get_dataset_format",
		mcp.WithDescription("Returns the wallet dataset YAML format. "+
			"Call this before writing a dataset file."),
	), s.getDatasetFormat)

	// Resource: dataset format contract.
	s.mcp.AddResource(
		mcp.NewResource(DatasetFormatURI, "Dataset Format Contract",
			mcp.WithResourceDescription("YAML format of wallet dataset files."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readDatasetFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func toolError(err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, walletservice.ErrEmptyAmount):
		return mcp.NewToolResultError("amount is required")
	case errors.Is(err, apperr.ErrNotFound):
		return mcp.NewToolResultError(fmt.Sprintf("not found: %v", err))
	default:
		return mcp.NewToolResultError(err.Error())
	}
}

func jsonResult(v any) *mcp.CallToolResult {
	out, _ := json.MarshalIndent(v, "", "  ")
	return mcp.NewToolResultText(string(out))
}

func (s *Server) listWallets(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cards, err := s.svc.ListWallets(ctx)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(cards), nil
}

func (s *Server) getWallet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	w, err := s.svc.Wallet(ctx, id)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(w), nil
}

func (s *Server) focusWallet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.svc.Click(ctx, id)
	if err != nil {
		return toolError(err), nil
	}
	if res.Reset {
		return mcp.NewToolResultText("focus cleared: all wallets visible"), nil
	}
	return jsonResult(res), nil
}

func (s *Server) resetFocus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	v, err := s.svc.Reset(ctx)
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("focus cleared: %d wallets visible", v.Summary.VisibleNodes)), nil
}

func (s *Server) createTransfer(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	source, err := req.RequireString("source")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	target, err := req.RequireString("target")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	amount, err := req.RequireString("amount")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	e, err := s.svc.CreateTransfer(ctx, source, target, amount)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(e), nil
}

func (s *Server) getView(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	v, err := s.svc.View(ctx)
	if err != nil {
		return toolError(err), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "dataset: %s (%s)\n", v.Dataset, v.Name)
	if v.Selection != "" {
		fmt.Fprintf(&b, "focused: %s\n", v.Selection)
	}
	fmt.Fprintf(&b, "wallets: %d of %d visible\n", v.Summary.VisibleNodes, v.Summary.TotalNodes)
	for _, n := range v.VisibleNodes() {
		fmt.Fprintf(&b, "  %s %s\n", n.Card.Address, n.Card.Balance)
	}
	fmt.Fprintf(&b, "transfers: %d of %d visible\n", v.Summary.VisibleEdges, v.Summary.TotalEdges)
	for _, e := range v.VisibleEdges() {
		fmt.Fprintf(&b, "  %s -> %s %s\n", e.Source, e.Target, e.Label)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (s *Server) getDatasetFormat(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(DatasetFormatContract), nil
}

func (s *Server) readDatasetFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      DatasetFormatURI,
			MIMEType: "text/markdown",
			Text:     DatasetFormatContract,
		},
	}, nil
}
