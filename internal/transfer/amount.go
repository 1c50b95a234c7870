// Package transfer builds user-created transfer edges from prompt input.
package transfer

import (
	"errors"
	"math"
	"math/big"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/starford/walletgraph/internal/models"
)

// Unit is appended to the entered amount to form the edge label.
const Unit = "TRX"

// PromptMessage is shown when asking for a transfer amount.
const PromptMessage = "Enter transaction amount (TRX):"

var (
	decimalRe = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)
	radixRe   = regexp.MustCompile(`^0([xXoObB])([0-9a-fA-F]+)$`)
)

// ParseAmount converts input the way a browser's Number() does: surrounding
// whitespace is ignored, an empty string is 0, decimal and exponent forms,
// 0x/0o/0b integers and signed Infinity are accepted, everything else is
// NaN.
func ParseAmount(input string) models.Amount {
	s := strings.TrimSpace(input)
	switch s {
	case "":
		return 0
	case "Infinity", "+Infinity":
		return models.Amount(math.Inf(1))
	case "-Infinity":
		return models.Amount(math.Inf(-1))
	}

	if m := radixRe.FindStringSubmatch(s); m != nil {
		return parseRadix(m[1], m[2])
	}

	if !decimalRe.MatchString(s) {
		return models.Amount(math.NaN())
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange) {
			return models.Amount(f) // ±Inf or 0, as Number() would give
		}
		return models.Amount(math.NaN())
	}
	return models.Amount(f)
}

func parseRadix(prefix, digits string) models.Amount {
	base := 16
	switch strings.ToLower(prefix) {
	case "o":
		base = 8
	case "b":
		base = 2
	}
	n, ok := new(big.Int).SetString(digits, base)
	if !ok {
		return models.Amount(math.NaN())
	}
	f, _ := new(big.Float).SetInt(n).Float64()
	return models.Amount(f)
}

// Label returns the edge label for the raw input, exactly as entered.
func Label(input string) string {
	return input + " " + Unit
}

// NewEdge builds a visible transfer edge from source to target for the raw
// prompt input. It does not check that input is non-empty.
func NewEdge(source, target, input string) models.Edge {
	amount := ParseAmount(input)
	return models.Edge{
		ID:     "e-" + uuid.NewString(),
		Source: source,
		Target: target,
		Label:  Label(input),
		Amount: &amount,
	}
}
