// Package dataset loads wallet datasets (nodes, transfers, color overrides)
// from YAML, either embedded or from a directory on disk.
package dataset

// Info describes one dataset file.
type Info struct {
	Name   string `json:"name"`
	Digest string `json:"digest"`
}

// Provider is the interface for dataset file access.
type Provider interface {
	// List returns every dataset file (.yaml or .yml) in the root.
	List() ([]Info, error)
	// Read returns the raw bytes of the named dataset file.
	Read(name string) ([]byte, error)
}
