package graphstore

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/starford/walletgraph/internal/apperr"
	"github.com/starford/walletgraph/internal/models"
)

// Replace swaps the whole stored graph for g in one transaction.
func (db *DB) Replace(g *models.Graph) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("graphstore: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	for _, table := range []string{"meta", "nodes", "edges", "overrides"} {
		if _, err := tx.Exec(`DELETE FROM ` + table); err != nil {
			return fmt.Errorf("graphstore: clear %s: %w", table, err)
		}
	}

	if _, err := tx.Exec(`INSERT INTO meta (key, value) VALUES ('name', ?)`, g.Name); err != nil {
		return fmt.Errorf("graphstore: insert name: %w", err)
	}

	nodeStmt, err := tx.Prepare(`INSERT INTO nodes (id, ord, label, x, y, hidden) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("graphstore: prepare node insert: %w", err)
	}
	defer nodeStmt.Close()
	for i, n := range g.Nodes {
		if _, err := nodeStmt.Exec(n.ID, i, n.Label, n.Position.X, n.Position.Y, n.Hidden); err != nil {
			return fmt.Errorf("graphstore: insert node %q: %w", n.ID, err)
		}
	}

	edgeStmt, err := tx.Prepare(`INSERT INTO edges (id, ord, source, target, label, amount, hidden) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("graphstore: prepare edge insert: %w", err)
	}
	defer edgeStmt.Close()
	for i, e := range g.Edges {
		if _, err := edgeStmt.Exec(e.ID, i, e.Source, e.Target, e.Label, encodeAmount(e.Amount), e.Hidden); err != nil {
			return fmt.Errorf("graphstore: insert edge %q: %w", e.ID, err)
		}
	}

	for id, color := range g.Overrides {
		if _, err := tx.Exec(`INSERT INTO overrides (id, color) VALUES (?, ?)`, id, color); err != nil {
			return fmt.Errorf("graphstore: insert override: %w", err)
		}
	}

	return tx.Commit()
}

// AppendEdge adds an edge after all existing ones.
func (db *DB) AppendEdge(e models.Edge) error {
	res, err := db.conn.Exec(`
		INSERT INTO edges (id, ord, source, target, label, amount, hidden)
		SELECT ?, COALESCE(MAX(ord), -1) + 1, ?, ?, ?, ?, ? FROM edges WHERE true
		ON CONFLICT(id) DO NOTHING
	`, e.ID, e.Source, e.Target, e.Label, encodeAmount(e.Amount), e.Hidden)
	if err != nil {
		return fmt.Errorf("graphstore: append edge: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("graphstore: edge %q: %w", e.ID, apperr.ErrAlreadyExists)
	}
	return nil
}

// ApplyVisibility rewrites the hidden flags. Ids missing from the maps are
// shown.
func (db *DB) ApplyVisibility(nodeVisible, edgeVisible map[string]bool) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("graphstore: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec(`UPDATE nodes SET hidden = 0`); err != nil {
		return fmt.Errorf("graphstore: show nodes: %w", err)
	}
	if _, err := tx.Exec(`UPDATE edges SET hidden = 0`); err != nil {
		return fmt.Errorf("graphstore: show edges: %w", err)
	}
	for id, visible := range nodeVisible {
		if visible {
			continue
		}
		if _, err := tx.Exec(`UPDATE nodes SET hidden = 1 WHERE id = ?`, id); err != nil {
			return fmt.Errorf("graphstore: hide node: %w", err)
		}
	}
	for id, visible := range edgeVisible {
		if visible {
			continue
		}
		if _, err := tx.Exec(`UPDATE edges SET hidden = 1 WHERE id = ?`, id); err != nil {
			return fmt.Errorf("graphstore: hide edge: %w", err)
		}
	}
	return tx.Commit()
}

// Name returns the name of the stored dataset.
func (db *DB) Name() (string, error) {
	var name string
	err := db.conn.QueryRow(`SELECT value FROM meta WHERE key = 'name'`).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("graphstore: name: %w", err)
	}
	return name, nil
}

// Node returns one node by id.
func (db *DB) Node(id string) (models.Node, error) {
	var (
		n      models.Node
		hidden int
	)
	err := db.conn.QueryRow(`SELECT id, label, x, y, hidden FROM nodes WHERE id = ?`, id).
		Scan(&n.ID, &n.Label, &n.Position.X, &n.Position.Y, &hidden)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Node{}, fmt.Errorf("wallet %q: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return models.Node{}, fmt.Errorf("graphstore: node: %w", err)
	}
	n.Hidden = hidden != 0
	return n, nil
}

// Nodes returns every node in dataset order.
func (db *DB) Nodes() ([]models.Node, error) {
	rows, err := db.conn.Query(`SELECT id, label, x, y, hidden FROM nodes ORDER BY ord`)
	if err != nil {
		return nil, fmt.Errorf("graphstore: nodes: %w", err)
	}
	defer rows.Close()

	out := []models.Node{}
	for rows.Next() {
		var (
			n      models.Node
			hidden int
		)
		if err := rows.Scan(&n.ID, &n.Label, &n.Position.X, &n.Position.Y, &hidden); err != nil {
			return nil, err
		}
		n.Hidden = hidden != 0
		out = append(out, n)
	}
	return out, rows.Err()
}

// Edges returns every edge in insertion order.
func (db *DB) Edges() ([]models.Edge, error) {
	return db.queryEdges(`SELECT id, source, target, label, amount, hidden FROM edges ORDER BY ord`)
}

// Incoming returns the edges whose target is id.
func (db *DB) Incoming(id string) ([]models.Edge, error) {
	return db.queryEdges(`SELECT id, source, target, label, amount, hidden FROM edges WHERE target = ? ORDER BY ord`, id)
}

// Outgoing returns the edges whose source is id.
func (db *DB) Outgoing(id string) ([]models.Edge, error) {
	return db.queryEdges(`SELECT id, source, target, label, amount, hidden FROM edges WHERE source = ? ORDER BY ord`, id)
}

func (db *DB) queryEdges(query string, args ...any) ([]models.Edge, error) {
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("graphstore: edges: %w", err)
	}
	defer rows.Close()

	out := []models.Edge{}
	for rows.Next() {
		var (
			e      models.Edge
			amount sql.NullString
			hidden int
		)
		if err := rows.Scan(&e.ID, &e.Source, &e.Target, &e.Label, &amount, &hidden); err != nil {
			return nil, err
		}
		e.Amount = decodeAmount(amount)
		e.Hidden = hidden != 0
		out = append(out, e)
	}
	return out, rows.Err()
}

// Overrides returns the dataset's color overrides.
func (db *DB) Overrides() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT id, color FROM overrides`)
	if err != nil {
		return nil, fmt.Errorf("graphstore: overrides: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var id, color string
		if err := rows.Scan(&id, &color); err != nil {
			return nil, err
		}
		out[id] = color
	}
	return out, rows.Err()
}

// Graph reads the full stored graph.
func (db *DB) Graph() (*models.Graph, error) {
	name, err := db.Name()
	if err != nil {
		return nil, err
	}
	nodes, err := db.Nodes()
	if err != nil {
		return nil, err
	}
	edges, err := db.Edges()
	if err != nil {
		return nil, err
	}
	overrides, err := db.Overrides()
	if err != nil {
		return nil, err
	}
	return &models.Graph{Name: name, Nodes: nodes, Edges: edges, Overrides: overrides}, nil
}

// Amounts are kept as text: SQLite REAL columns cannot hold NaN.
func encodeAmount(a *models.Amount) any {
	if a == nil {
		return nil
	}
	return strconv.FormatFloat(float64(*a), 'g', -1, 64)
}

func decodeAmount(s sql.NullString) *models.Amount {
	if !s.Valid {
		return nil
	}
	f, err := strconv.ParseFloat(s.String, 64)
	if err != nil {
		var numErr *strconv.NumError
		if !errors.As(err, &numErr) || !errors.Is(numErr.Err, strconv.ErrRange) {
			return nil
		}
	}
	a := models.Amount(f)
	return &a
}
