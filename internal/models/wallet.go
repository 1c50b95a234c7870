// Package models defines the domain types for walletgraph.
package models

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Position is a node's canvas coordinate.
type Position struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Node is a wallet in the diagram. ID doubles as the display address.
type Node struct {
	ID       string   `json:"id" yaml:"id"`
	Label    string   `json:"label" yaml:"label"`
	Position Position `json:"position" yaml:"position"`
	Hidden   bool     `json:"hidden" yaml:"-"`
}

// Edge is a directed transfer: funds moved from Source to Target.
// Amount is set only on edges created at runtime.
type Edge struct {
	ID     string  `json:"id" yaml:"id"`
	Source string  `json:"source" yaml:"source"`
	Target string  `json:"target" yaml:"target"`
	Label  string  `json:"label" yaml:"label"`
	Amount *Amount `json:"amount,omitempty" yaml:"-"`
	Hidden bool    `json:"hidden" yaml:"-"`
}

// Graph is a full dataset: nodes, edges and per-node color overrides.
type Graph struct {
	Name      string            `json:"name" yaml:"name"`
	Nodes     []Node            `json:"nodes" yaml:"nodes"`
	Edges     []Edge            `json:"edges" yaml:"edges"`
	Overrides map[string]string `json:"overrides,omitempty" yaml:"overrides"`
}

// UnmarshalJSON implements json.Unmarshaler. encoding/json leaves a pointer
// field nil on null, so a present "amount": null is mapped to NaN here and
// an absent amount stays nil.
func (e *Edge) UnmarshalJSON(data []byte) error {
	type plain Edge
	aux := struct {
		*plain
		Amount json.RawMessage `json:"amount"`
	}{plain: (*plain)(e)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	e.Amount = nil
	if len(aux.Amount) == 0 {
		return nil
	}
	var a Amount
	if err := a.UnmarshalJSON(aux.Amount); err != nil {
		return fmt.Errorf("edge %s: amount: %w", e.ID, err)
	}
	e.Amount = &a
	return nil
}

// Amount is a coerced transfer amount. It may be NaN or infinite. NaN
// encodes as null and infinities as "Infinity" or "-Infinity".
type Amount float64

const (
	posInf = "Infinity"
	negInf = "-Infinity"
)

// Valid reports whether the amount is a finite number.
func (a Amount) Valid() bool {
	f := float64(a)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// MarshalJSON implements json.Marshaler.
func (a Amount) MarshalJSON() ([]byte, error) {
	f := float64(a)
	switch {
	case math.IsNaN(f):
		return []byte("null"), nil
	case math.IsInf(f, 1):
		return json.Marshal(posInf)
	case math.IsInf(f, -1):
		return json.Marshal(negInf)
	}
	return []byte(strconv.FormatFloat(f, 'f', -1, 64)), nil
}

// UnmarshalJSON implements json.Unmarshaler; null decodes as NaN.
func (a *Amount) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*a = Amount(math.NaN())
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		switch s {
		case posInf:
			*a = Amount(math.Inf(1))
		case negInf:
			*a = Amount(math.Inf(-1))
		case "NaN":
			*a = Amount(math.NaN())
		default:
			return fmt.Errorf("invalid amount %q", s)
		}
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*a = Amount(f)
	return nil
}
