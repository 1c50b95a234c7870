package dataset

import (
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"

	"github.com/starford/walletgraph/internal/apperr"
	"github.com/starford/walletgraph/internal/models"
)

// DefaultName is the name under which the embedded dataset is served.
const DefaultName = "default.yaml"

//go:embed default.yaml
var defaultYAML []byte

// Decode parses a YAML dataset and validates it. Node and edge ids must be
// present and unique; edge endpoints are not checked against the node set.
func Decode(data []byte) (*models.Graph, error) {
	var g models.Graph
	if err := yaml.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("dataset: parse: %w", err)
	}
	if err := validate(&g); err != nil {
		return nil, fmt.Errorf("dataset: %w: %w", apperr.ErrInvalidInput, err)
	}
	return &g, nil
}

// Default returns a fresh copy of the embedded dataset.
func Default() *models.Graph {
	g, err := Decode(defaultYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded dataset is invalid: %v", err))
	}
	return g
}

// Digest returns the hex-encoded SHA-256 digest of data.
func Digest(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

func validate(g *models.Graph) error {
	if err := validation.ValidateStruct(g,
		validation.Field(&g.Nodes, validation.Required),
	); err != nil {
		return err
	}

	seen := make(map[string]struct{}, len(g.Nodes))
	for i := range g.Nodes {
		n := &g.Nodes[i]
		if err := validation.ValidateStruct(n,
			validation.Field(&n.ID, validation.Required),
		); err != nil {
			return fmt.Errorf("node %d: %w", i, err)
		}
		if _, dup := seen[n.ID]; dup {
			return fmt.Errorf("node %d: duplicate id %q", i, n.ID)
		}
		seen[n.ID] = struct{}{}
	}

	seen = make(map[string]struct{}, len(g.Edges))
	for i := range g.Edges {
		e := &g.Edges[i]
		if err := validation.ValidateStruct(e,
			validation.Field(&e.ID, validation.Required),
			validation.Field(&e.Source, validation.Required),
			validation.Field(&e.Target, validation.Required),
		); err != nil {
			return fmt.Errorf("edge %d: %w", i, err)
		}
		if _, dup := seen[e.ID]; dup {
			return fmt.Errorf("edge %d: duplicate id %q", i, e.ID)
		}
		seen[e.ID] = struct{}{}
	}
	return nil
}

// Embedded is a Provider serving only the built-in dataset.
type Embedded struct{}

// List implements Provider.
func (Embedded) List() ([]Info, error) {
	return []Info{{Name: DefaultName, Digest: Digest(defaultYAML)}}, nil
}

// Read implements Provider.
func (Embedded) Read(name string) ([]byte, error) {
	if name != DefaultName {
		return nil, fmt.Errorf("dataset: read %s: %w", name, apperr.ErrNotFound)
	}
	out := make([]byte, len(defaultYAML))
	copy(out, defaultYAML)
	return out, nil
}
