package mcpserver

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/walletgraph/internal/dataset"
	"github.com/starford/walletgraph/internal/graphstore"
	"github.com/starford/walletgraph/internal/walletservice"
)

func testServer(t *testing.T) (*Server, *walletservice.Service) {
	t.Helper()

	db, err := graphstore.Open(graphstore.MemoryDSN)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	svc := walletservice.New(db, dataset.Embedded{}, nil, nil, nil, walletservice.Options{})
	t.Cleanup(svc.Close)
	if err := svc.Load(context.Background(), dataset.DefaultName); err != nil {
		t.Fatal(err)
	}
	return New(svc, "test"), svc
}

func callTool(t *testing.T, srv *Server, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no "call tool" test helper, so handlers are called directly.
	var (
		result *mcp.CallToolResult
		err    error
	)
	switch name {
	case "list_wallets":
		result, err = srv.listWallets(ctx, req)
	case "get_wallet":
		result, err = srv.getWallet(ctx, req)
	case "focus_wallet":
		result, err = srv.focusWallet(ctx, req)
	case "reset_focus":
		result, err = srv.resetFocus(ctx, req)
	case "create_transfer":
		result, err = srv.createTransfer(ctx, req)
	case "get_view":
		result, err = srv.getView(ctx, req)
	case "get_dataset_format":
		result, err = srv.getDatasetFormat(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestListWallets(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "list_wallets", map[string]any{})

	var cards []map[string]any
	if err := json.Unmarshal([]byte(resultText(r)), &cards); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(cards) != 30 {
		t.Errorf("cards = %d, want 30", len(cards))
	}
}

func TestGetWallet(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "get_wallet", map[string]any{"id": "Binance-Hot 2"})
	if r.IsError || !strings.Contains(resultText(r), "#f0b90b") {
		t.Errorf("get_wallet = %s", resultText(r))
	}

	r = callTool(t, srv, "get_wallet", map[string]any{"id": "nope"})
	if !r.IsError {
		t.Error("expected error for unknown wallet")
	}
	r = callTool(t, srv, "get_wallet", map[string]any{})
	if !r.IsError {
		t.Error("expected error for missing id")
	}
}

func TestFocusAndReset(t *testing.T) {
	srv, svc := testServer(t)

	r := callTool(t, srv, "focus_wallet", map[string]any{"id": "Binance-Hot 2"})
	if r.IsError || !strings.Contains(resultText(r), `"selection": "Binance-Hot 2"`) {
		t.Fatalf("focus = %s", resultText(r))
	}
	v, _ := svc.View(context.Background())
	if v.Summary.VisibleNodes >= v.Summary.TotalNodes {
		t.Errorf("focus should hide wallets: %+v", v.Summary)
	}

	r = callTool(t, srv, "get_view", map[string]any{})
	if !strings.Contains(resultText(r), "focused: Binance-Hot 2") {
		t.Errorf("view = %s", resultText(r))
	}

	r = callTool(t, srv, "focus_wallet", map[string]any{"id": "Binance-Hot 2"})
	if !strings.Contains(resultText(r), "focus cleared") {
		t.Errorf("toggle = %s", resultText(r))
	}

	_ = callTool(t, srv, "focus_wallet", map[string]any{"id": "Binance-Hot 2"})
	r = callTool(t, srv, "reset_focus", map[string]any{})
	if resultText(r) != "focus cleared: 30 wallets visible" {
		t.Errorf("reset = %q", resultText(r))
	}
}

func TestCreateTransfer(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "create_transfer", map[string]any{
		"source": "Binance-Hot 2",
		"target": "Binance-Cold 2",
		"amount": "12.5",
	})
	if r.IsError || !strings.Contains(resultText(r), `"label": "12.5 TRX"`) {
		t.Errorf("create = %s", resultText(r))
	}

	r = callTool(t, srv, "create_transfer", map[string]any{
		"source": "Binance-Hot 2",
		"target": "Binance-Cold 2",
		"amount": "",
	})
	if !r.IsError || resultText(r) != "amount is required" {
		t.Errorf("empty amount = %s", resultText(r))
	}
}

func TestDatasetFormat(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "get_dataset_format", map[string]any{})
	if !strings.Contains(resultText(r), "overrides:") {
		t.Error("contract missing overrides section")
	}

	contents, err := srv.readDatasetFormatResource(context.Background(), mcp.ReadResourceRequest{})
	if err != nil || len(contents) != 1 {
		t.Fatalf("resource = %v, %v", contents, err)
	}
	if tc, ok := contents[0].(mcp.TextResourceContents); !ok || tc.URI != DatasetFormatURI {
		t.Errorf("resource = %+v", contents[0])
	}
}
