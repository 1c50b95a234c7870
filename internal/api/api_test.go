package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/starford/walletgraph/internal/sse"
	"github.com/starford/walletgraph/internal/testutil"
	"github.com/starford/walletgraph/internal/walletservice"
)

const chainYAML = `
name: chain
nodes:
  - {id: "Hot 1", label: "Hot 1\n$1", position: {x: 0, y: 0}}
  - {id: B, label: "B\n$2", position: {x: 100, y: 0}}
  - {id: C, label: "C\n$3", position: {x: 200, y: 0}}
edges:
  - {id: e1, source: "Hot 1", target: B, label: "$10"}
  - {id: e2, source: B, target: C, label: "$20"}
`

// testEnv sets up a dataset dir, in-memory store, service and router.
// An empty authToken means disabled mode.
func testEnv(t *testing.T, authToken string) (*walletservice.Service, http.Handler) {
	t.Helper()
	svc, router, _ := testEnvWithBroker(t, authToken)
	return svc, router
}

func testEnvWithBroker(t *testing.T, authToken string) (*walletservice.Service, http.Handler, *sse.Broker) {
	t.Helper()

	_, store := testutil.TestDatasets(t, map[string]string{
		"chain.yaml": chainYAML,
		"tiny.yaml":  "name: tiny\nnodes:\n  - {id: Z, label: Z}\n",
	})
	db := testutil.TestDB(t)

	broker := sse.NewBroker(100 * time.Millisecond)
	t.Cleanup(broker.Close)

	svc := walletservice.New(db, store, broker, nil, nil, walletservice.Options{FitPadding: 0.2, FitDuration: 500 * time.Millisecond})
	t.Cleanup(svc.Close)
	if err := svc.Load(context.Background(), "chain.yaml"); err != nil {
		t.Fatalf("Load: %v", err)
	}

	router := NewRouter(svc, authToken != "", authToken, broker)
	return svc, router, broker
}

func do(t *testing.T, router http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, rd)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestGraphEndpoint(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodGet, "/graph", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var v View
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatal(err)
	}
	if v.Name != "chain" || len(v.Nodes) != 3 || len(v.Edges) != 2 {
		t.Errorf("view = %+v", v)
	}
	if v.Nodes[0].Card.Address != "Hot 1" || v.Nodes[0].Card.Balance != "$1" {
		t.Errorf("card = %+v", v.Nodes[0].Card)
	}
}

func TestWallets(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodGet, "/wallets", nil)
	var list WalletListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &list)
	if w.Code != http.StatusOK || len(list.Wallets) != 3 {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	w = do(t, router, http.MethodGet, "/wallets/"+url.PathEscape("Hot 1"), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d, body = %s", w.Code, w.Body.String())
	}
	var detail WalletDetail
	_ = json.Unmarshal(w.Body.Bytes(), &detail)
	if detail.Node.ID != "Hot 1" || len(detail.Outgoing) != 1 || len(detail.Incoming) != 0 {
		t.Errorf("detail = %+v", detail)
	}
}

func TestGetWallet_EscapedID(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodGet, "/wallets/Hot%201", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var detail WalletDetail
	_ = json.Unmarshal(w.Body.Bytes(), &detail)
	if detail.Node.ID != "Hot 1" {
		t.Errorf("id = %q", detail.Node.ID)
	}

	// The literal id "Hot%201" is a different wallet and does not exist.
	if w := do(t, router, http.MethodGet, "/wallets/Hot%25201", nil); w.Code != http.StatusNotFound {
		t.Errorf("double-escaped status = %d, want 404", w.Code)
	}
	// An escaped slash keeps a RawPath on the request; the segment is still decoded.
	if w := do(t, router, http.MethodGet, "/wallets/Hot%201%2Fx", nil); w.Code != http.StatusNotFound {
		t.Errorf("escaped slash status = %d, want 404", w.Code)
	}
}

func TestGetWallet_NotFound(t *testing.T) {
	_, router := testEnv(t, "")
	if w := do(t, router, http.MethodGet, "/wallets/ghost", nil); w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
	if w := do(t, router, http.MethodPost, "/wallets/ghost/click", nil); w.Code != http.StatusNotFound {
		t.Errorf("click status = %d, want 404", w.Code)
	}
}

func TestClickAndToggle(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodPost, "/wallets/"+url.PathEscape("Hot 1")+"/click", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var res ClickResult
	_ = json.Unmarshal(w.Body.Bytes(), &res)
	if res.Selection != "Hot 1" || len(res.VisibleNodes) != 2 || res.Fit == nil {
		t.Errorf("result = %+v", res)
	}

	w = do(t, router, http.MethodGet, "/graph", nil)
	var v View
	_ = json.Unmarshal(w.Body.Bytes(), &v)
	if v.Selection != "Hot 1" || v.Summary.VisibleNodes != 2 || !v.Nodes[2].Hidden {
		t.Errorf("view = %+v", v.Summary)
	}

	w = do(t, router, http.MethodPost, "/wallets/"+url.PathEscape("Hot 1")+"/click", nil)
	_ = json.Unmarshal(w.Body.Bytes(), &res)
	if !res.Reset || res.Selection != "" {
		t.Errorf("toggle = %+v", res)
	}
}

func TestResetFocus(t *testing.T) {
	_, router := testEnv(t, "")
	_ = do(t, router, http.MethodPost, "/wallets/C/click", nil)

	w := do(t, router, http.MethodPost, "/focus/reset", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var v View
	_ = json.Unmarshal(w.Body.Bytes(), &v)
	if v.Selection != "" || v.Summary.VisibleNodes != 3 {
		t.Errorf("view = %+v", v.Summary)
	}
}

func TestConnectPromptFlow(t *testing.T) {
	svc, router := testEnv(t, "")

	w := do(t, router, http.MethodPost, "/connections", ConnectRequest{Source: "C", Target: "Hot 1"})
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var p PromptResponse
	_ = json.Unmarshal(w.Body.Bytes(), &p)
	if p.ID == "" || p.Message != "Enter transaction amount (TRX):" {
		t.Fatalf("prompt = %+v", p)
	}

	w = do(t, router, http.MethodGet, "/prompts", nil)
	var list PromptListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &list)
	if len(list.Prompts) != 1 {
		t.Fatalf("prompts = %+v", list)
	}

	w = do(t, router, http.MethodGet, "/prompts/"+p.ID, nil)
	var got PromptResponse
	_ = json.Unmarshal(w.Body.Bytes(), &got)
	if w.Code != http.StatusOK || got.ID != p.ID || got.Source != "C" || got.Target != "Hot 1" {
		t.Fatalf("get prompt = %d %+v", w.Code, got)
	}

	w = do(t, router, http.MethodPost, "/prompts/"+p.ID, map[string]string{"value": "7"})
	if w.Code != http.StatusNoContent {
		t.Fatalf("answer status = %d, body = %s", w.Code, w.Body.String())
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		v, _ := svc.View(context.Background())
		if len(v.Edges) == 3 {
			if v.Edges[2].Label != "7 TRX" {
				t.Errorf("edge = %+v", v.Edges[2])
			}
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("edge not created")
}

func TestConnectValidation(t *testing.T) {
	_, router := testEnv(t, "")

	if w := do(t, router, http.MethodPost, "/connections", map[string]string{"source": "C"}); w.Code != http.StatusBadRequest {
		t.Errorf("missing target = %d, want 400", w.Code)
	}
	if w := do(t, router, http.MethodPost, "/connections", ConnectRequest{Source: "C", Target: "ghost"}); w.Code != http.StatusNotFound {
		t.Errorf("unknown target = %d, want 404", w.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/connections", strings.NewReader("{"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad json = %d, want 400", w.Code)
	}
}

func TestAnswerPromptErrors(t *testing.T) {
	_, router := testEnv(t, "")

	if w := do(t, router, http.MethodPost, "/prompts/nope", map[string]string{"value": "1"}); w.Code != http.StatusNotFound {
		t.Errorf("unknown prompt = %d, want 404", w.Code)
	}
	if w := do(t, router, http.MethodPost, "/prompts/nope", map[string]string{}); w.Code != http.StatusBadRequest {
		t.Errorf("missing value = %d, want 400", w.Code)
	}
	if w := do(t, router, http.MethodGet, "/prompts/nope", nil); w.Code != http.StatusNotFound {
		t.Errorf("get unknown = %d, want 404", w.Code)
	}
	if w := do(t, router, http.MethodDelete, "/prompts/nope", nil); w.Code != http.StatusNotFound {
		t.Errorf("cancel unknown = %d, want 404", w.Code)
	}
}

func TestCancelPrompt(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodPost, "/connections", ConnectRequest{Source: "B", Target: "C"})
	var p PromptResponse
	_ = json.Unmarshal(w.Body.Bytes(), &p)

	if w := do(t, router, http.MethodDelete, "/prompts/"+p.ID, nil); w.Code != http.StatusNoContent {
		t.Fatalf("cancel = %d", w.Code)
	}
	w = do(t, router, http.MethodGet, "/prompts", nil)
	var list PromptListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &list)
	if len(list.Prompts) != 0 {
		t.Errorf("prompts = %+v", list)
	}
}

func TestCreateTransfer(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodPost, "/transfers", TransferRequest{Source: "B", Target: "Hot 1", Amount: "0x10"})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var e EdgeResponse
	_ = json.Unmarshal(w.Body.Bytes(), &e)
	if e.Label != "0x10 TRX" || e.Amount == nil || float64(*e.Amount) != 16 {
		t.Errorf("edge = %+v", e)
	}

	w = do(t, router, http.MethodPost, "/transfers", TransferRequest{Source: "B", Target: "C", Amount: "lots"})
	if w.Code != http.StatusCreated || !strings.Contains(w.Body.String(), `"amount":null`) {
		t.Errorf("nan transfer = %d %s", w.Code, w.Body.String())
	}
}

func TestCreateTransfer_Errors(t *testing.T) {
	_, router := testEnv(t, "")

	if w := do(t, router, http.MethodPost, "/transfers", TransferRequest{Source: "B", Target: "C"}); w.Code != http.StatusUnprocessableEntity {
		t.Errorf("empty amount = %d, want 422", w.Code)
	}
	if w := do(t, router, http.MethodPost, "/transfers", TransferRequest{Target: "C", Amount: "1"}); w.Code != http.StatusBadRequest {
		t.Errorf("missing source = %d, want 400", w.Code)
	}
	if w := do(t, router, http.MethodPost, "/transfers", TransferRequest{Source: "ghost", Target: "C", Amount: "1"}); w.Code != http.StatusNotFound {
		t.Errorf("unknown source = %d, want 404", w.Code)
	}
}

func TestDatasets(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodGet, "/datasets", nil)
	var list DatasetList
	_ = json.Unmarshal(w.Body.Bytes(), &list)
	if list.Active != "chain.yaml" || len(list.Datasets) != 2 {
		t.Fatalf("datasets = %+v", list)
	}

	w = do(t, router, http.MethodPost, "/datasets/tiny.yaml/activate", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("activate = %d, body = %s", w.Code, w.Body.String())
	}
	var v View
	_ = json.Unmarshal(w.Body.Bytes(), &v)
	if v.Dataset != "tiny.yaml" || len(v.Nodes) != 1 {
		t.Errorf("view = %+v", v)
	}

	if w := do(t, router, http.MethodPost, "/datasets/missing.yaml/activate", nil); w.Code != http.StatusNotFound {
		t.Errorf("missing = %d, want 404", w.Code)
	}
	if w := do(t, router, http.MethodPost, "/datasets/notes.txt/activate", nil); w.Code != http.StatusBadRequest {
		t.Errorf("non-yaml = %d, want 400", w.Code)
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	req := httptest.NewRequest(http.MethodGet, "/graph", nil)
	req.Header.Set("Authorization", "Bearer secret123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("authed graph = %d, want 200", w.Code)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	_, router := testEnv(t, "secret123")
	if w := do(t, router, http.MethodGet, "/graph", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("unauthed = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_WrongToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	req := httptest.NewRequest(http.MethodGet, "/graph", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_StreamQueryToken(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	h := AuthMiddleware(true, "tok")(ok)

	tests := []struct {
		name   string
		target string
		accept string
		want   int
	}{
		{"stream with token", "/events?access_token=tok", "text/event-stream", http.StatusOK},
		{"stream wrong token", "/events?access_token=nope", "text/event-stream", http.StatusUnauthorized},
		{"query token without stream accept", "/graph?access_token=tok", "application/json", http.StatusUnauthorized},
		{"stream without token", "/events", "text/event-stream", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			req.Header.Set("Accept", tt.accept)
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
			if tt.want == http.StatusUnauthorized && w.Header().Get("WWW-Authenticate") == "" {
				t.Error("missing WWW-Authenticate header")
			}
		})
	}
}

func TestAuthMiddleware_EmptyConfiguredToken(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	h := AuthMiddleware(true, "")(ok)

	req := httptest.NewRequest(http.MethodGet, "/graph", nil)
	req.Header.Set("Authorization", "Bearer ")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("empty bearer = %d, want 401", w.Code)
	}
}

func TestSSEEvents_AuthProtected(t *testing.T) {
	_, router := testEnv(t, "tok")
	if w := do(t, router, http.MethodGet, "/events", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("SSE no auth = %d, want 401", w.Code)
	}
}

func TestSSEEvents_ReceivesFocusChange(t *testing.T) {
	_, router, broker := testEnvWithBroker(t, "")

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	done := make(chan struct{})
	go func() {
		router.ServeHTTP(w, req)
		close(done)
	}()

	deadline := time.Now().Add(time.Second)
	for broker.ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	_ = do(t, router, http.MethodPost, "/wallets/B/click", nil)
	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	body := w.Body.String()
	if !strings.Contains(body, "event: focus.changed") || !strings.Contains(body, "event: graph.updated") {
		t.Errorf("stream = %q", body)
	}
	if !strings.Contains(body, `"cause":"focus.changed"`) {
		t.Errorf("graph.updated should name its cause: %q", body)
	}
}
