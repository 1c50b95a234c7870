package transfer

import (
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/starford/walletgraph/internal/models"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"12.5", 12.5},
		{"  42 ", 42},
		{"", 0},
		{"   ", 0},
		{"-3", -3},
		{"+7", 7},
		{".5", 0.5},
		{"5.", 5},
		{"1e3", 1000},
		{"2.5E-1", 0.25},
		{"0x1F", 31},
		{"0o17", 15},
		{"0b101", 5},
		{"1e-400", 0},
	}
	for _, tc := range cases {
		if got := float64(ParseAmount(tc.in)); got != tc.want {
			t.Errorf("ParseAmount(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestParseAmountInfinity(t *testing.T) {
	for in, sign := range map[string]int{"Infinity": 1, "+Infinity": 1, "-Infinity": -1, "1e400": 1} {
		if got := float64(ParseAmount(in)); !math.IsInf(got, sign) {
			t.Errorf("ParseAmount(%q) = %v, want Inf(%d)", in, got, sign)
		}
	}
}

func TestParseAmountNaN(t *testing.T) {
	for _, in := range []string{"abc", "12abc", "1,000", "1_000", "inf", "NaN", "-0x10", "0b2", "0x", ".", "0x1p-2", "$5"} {
		if got := float64(ParseAmount(in)); !math.IsNaN(got) {
			t.Errorf("ParseAmount(%q) = %v, want NaN", in, got)
		}
	}
}

func TestNewEdge(t *testing.T) {
	e := NewEdge("X", "Y", "12.5")
	if e.Source != "X" || e.Target != "Y" {
		t.Errorf("endpoints = %s -> %s", e.Source, e.Target)
	}
	if e.Label != "12.5 TRX" {
		t.Errorf("label = %q", e.Label)
	}
	if e.Amount == nil || float64(*e.Amount) != 12.5 {
		t.Errorf("amount = %v", e.Amount)
	}
	if !strings.HasPrefix(e.ID, "e-") {
		t.Errorf("id = %q", e.ID)
	}
	if e.Hidden {
		t.Error("new edges are visible")
	}
	if other := NewEdge("X", "Y", "12.5"); other.ID == e.ID {
		t.Error("edge ids must be unique")
	}
}

func TestNonNumericLabelKeptAsEntered(t *testing.T) {
	e := NewEdge("X", "Y", "lots")
	if e.Label != "lots TRX" {
		t.Errorf("label = %q", e.Label)
	}
	if e.Amount.Valid() {
		t.Error("amount should be NaN")
	}
	data, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), `"amount":null`) {
		t.Errorf("json = %s", data)
	}

	var back models.Edge
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if back.Amount == nil || back.Amount.Valid() {
		t.Errorf("null amount should decode as NaN, got %v", back.Amount)
	}
}

func TestInfiniteAmountSurvivesJSON(t *testing.T) {
	e := NewEdge("X", "Y", "-Infinity")
	data, err := json.Marshal(e)
	if err != nil {
		t.Fatal(err)
	}
	var back models.Edge
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if back.Amount == nil || !math.IsInf(float64(*back.Amount), -1) {
		t.Errorf("amount = %v, want -Inf", back.Amount)
	}
}
