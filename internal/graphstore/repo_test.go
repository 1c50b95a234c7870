package graphstore

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/walletgraph/internal/apperr"
	"github.com/starford/walletgraph/internal/dataset"
	"github.com/starford/walletgraph/internal/models"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "graph.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func amount(f float64) *models.Amount {
	a := models.Amount(f)
	return &a
}

func sample() *models.Graph {
	return &models.Graph{
		Name: "sample",
		Nodes: []models.Node{
			{ID: "A", Label: "A\n$1", Position: models.Position{X: 1, Y: 2}},
			{ID: "B", Label: "B\n$2", Position: models.Position{X: 3, Y: 4}},
			{ID: "C", Label: "C\n$3"},
		},
		Edges: []models.Edge{
			{ID: "e1", Source: "A", Target: "B", Label: "$10"},
			{ID: "e2", Source: "B", Target: "C", Label: "$20"},
			{ID: "e3", Source: "C", Target: "ghost", Label: "$30"},
		},
		Overrides: map[string]string{"B": "#f0b90b"},
	}
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	for _, table := range []string{"meta", "nodes", "edges", "overrides"} {
		if err := db.conn.QueryRow(`SELECT count(*) FROM ` + table).Scan(&count); err != nil {
			t.Fatalf("%s table missing: %v", table, err)
		}
	}
}

func TestReplaceAndRead(t *testing.T) {
	db := testDB(t)
	if err := db.Replace(sample()); err != nil {
		t.Fatalf("Replace: %v", err)
	}

	g, err := db.Graph()
	if err != nil {
		t.Fatalf("Graph: %v", err)
	}
	if g.Name != "sample" || len(g.Nodes) != 3 || len(g.Edges) != 3 {
		t.Fatalf("graph = %+v", g)
	}
	if g.Nodes[0].ID != "A" || g.Nodes[1].Position != (models.Position{X: 3, Y: 4}) {
		t.Errorf("nodes = %+v", g.Nodes)
	}
	if g.Edges[2].Target != "ghost" {
		t.Error("dangling endpoints must be stored as-is")
	}
	if g.Overrides["B"] != "#f0b90b" {
		t.Errorf("overrides = %v", g.Overrides)
	}

	// A second Replace drops the previous contents.
	if err := db.Replace(&models.Graph{Name: "other", Nodes: []models.Node{{ID: "Z"}}}); err != nil {
		t.Fatal(err)
	}
	g, _ = db.Graph()
	if g.Name != "other" || len(g.Nodes) != 1 || len(g.Edges) != 0 || len(g.Overrides) != 0 {
		t.Errorf("graph after replace = %+v", g)
	}
}

func TestNodeNotFound(t *testing.T) {
	db := testDB(t)
	_ = db.Replace(sample())

	if n, err := db.Node("A"); err != nil || n.Label != "A\n$1" {
		t.Errorf("Node(A) = %+v, %v", n, err)
	}
	if _, err := db.Node("missing"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestAppendEdge(t *testing.T) {
	db := testDB(t)
	_ = db.Replace(sample())

	e := models.Edge{ID: "e-new", Source: "C", Target: "A", Label: "12.5 TRX", Amount: amount(12.5)}
	if err := db.AppendEdge(e); err != nil {
		t.Fatalf("AppendEdge: %v", err)
	}
	edges, _ := db.Edges()
	if len(edges) != 4 || edges[3].ID != "e-new" {
		t.Fatalf("edges = %+v", edges)
	}
	if edges[3].Amount == nil || float64(*edges[3].Amount) != 12.5 {
		t.Errorf("amount = %v", edges[3].Amount)
	}
	if edges[0].Amount != nil {
		t.Error("fixture edges carry no amount")
	}

	if err := db.AppendEdge(e); !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Errorf("duplicate err = %v", err)
	}
}

func TestAppendEdgeToEmptyStore(t *testing.T) {
	db := testDB(t)
	if err := db.AppendEdge(models.Edge{ID: "e1", Source: "A", Target: "B"}); err != nil {
		t.Fatalf("AppendEdge: %v", err)
	}
	if edges, _ := db.Edges(); len(edges) != 1 {
		t.Errorf("edges = %+v", edges)
	}
}

func TestNonFiniteAmountsRoundTrip(t *testing.T) {
	db := testDB(t)
	_ = db.Replace(sample())

	_ = db.AppendEdge(models.Edge{ID: "nan", Source: "A", Target: "B", Amount: amount(math.NaN())})
	_ = db.AppendEdge(models.Edge{ID: "inf", Source: "A", Target: "B", Amount: amount(math.Inf(-1))})

	out, err := db.Outgoing("A")
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 3 {
		t.Fatalf("outgoing = %+v", out)
	}
	if out[1].Amount == nil || !math.IsNaN(float64(*out[1].Amount)) {
		t.Errorf("nan amount = %v", out[1].Amount)
	}
	if out[2].Amount == nil || !math.IsInf(float64(*out[2].Amount), -1) {
		t.Errorf("inf amount = %v", out[2].Amount)
	}
}

func TestIncomingOutgoing(t *testing.T) {
	db := testDB(t)
	_ = db.Replace(sample())

	in, _ := db.Incoming("B")
	out, _ := db.Outgoing("B")
	if len(in) != 1 || in[0].ID != "e1" {
		t.Errorf("incoming = %+v", in)
	}
	if len(out) != 1 || out[0].ID != "e2" {
		t.Errorf("outgoing = %+v", out)
	}
}

func TestApplyVisibility(t *testing.T) {
	db := testDB(t)
	_ = db.Replace(sample())

	err := db.ApplyVisibility(
		map[string]bool{"A": true, "B": true, "C": false},
		map[string]bool{"e1": true, "e2": false},
	)
	if err != nil {
		t.Fatalf("ApplyVisibility: %v", err)
	}
	nodes, _ := db.Nodes()
	if nodes[0].Hidden || nodes[1].Hidden || !nodes[2].Hidden {
		t.Errorf("nodes = %+v", nodes)
	}
	edges, _ := db.Edges()
	if edges[0].Hidden || !edges[1].Hidden || edges[2].Hidden {
		t.Errorf("edges = %+v (ids absent from the map stay visible)", edges)
	}

	// Empty maps show everything.
	_ = db.ApplyVisibility(nil, nil)
	nodes, _ = db.Nodes()
	for _, n := range nodes {
		if n.Hidden {
			t.Errorf("node %s still hidden", n.ID)
		}
	}
}

func TestDefaultDatasetInMemory(t *testing.T) {
	db, err := Open(MemoryDSN)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	if err := db.Replace(dataset.Default()); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	g, err := db.Graph()
	if err != nil {
		t.Fatal(err)
	}
	if len(g.Nodes) != 30 || len(g.Edges) != 30 {
		t.Errorf("nodes=%d edges=%d", len(g.Nodes), len(g.Edges))
	}
}

func TestOpenBadPath(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "missing", "dir")
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Skip("unexpected directory")
	}
	if _, err := Open(filepath.Join(dir, "graph.db")); err == nil {
		t.Error("expected error for unreachable path")
	}
}
