package graphstore

import "github.com/starford/walletgraph/internal/models"

// Store defines the graph storage operations used by the controller and the
// service. Consumers depend on this interface rather than *DB.
type Store interface {
	Replace(g *models.Graph) error
	AppendEdge(e models.Edge) error
	ApplyVisibility(nodeVisible, edgeVisible map[string]bool) error
	Name() (string, error)
	Node(id string) (models.Node, error)
	Nodes() ([]models.Node, error)
	Edges() ([]models.Edge, error)
	Incoming(id string) ([]models.Edge, error)
	Outgoing(id string) ([]models.Edge, error)
	Overrides() (map[string]string, error)
	Graph() (*models.Graph, error)
	Close() error
}

// Verify *DB satisfies Store at compile time.
var _ Store = (*DB)(nil)
