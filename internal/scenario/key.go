package scenario

import (
	"fmt"
	"strconv"
	"strings"
)

// =============================================================================
// Risk factor keys
// =============================================================================

// KeyType identifies the family a simulated risk factor belongs to.
// The numeric order of the constants defines the sort order of keys,
// so it must stay stable.
type KeyType int

const (
	DiscountCurve KeyType = iota
	YieldCurve
	IndexCurve
	SwaptionVolatility
	OptionletVolatility
	FXSpot
	FXVolatility
	EQSpot
	EQVolatility
	DefaultCurve
	Correlation
)

var keyTypeNames = map[KeyType]string{
	DiscountCurve:       "DiscountCurve",
	YieldCurve:          "YieldCurve",
	IndexCurve:          "IndexCurve",
	SwaptionVolatility:  "SwaptionVolatility",
	OptionletVolatility: "OptionletVolatility",
	FXSpot:              "FXSpot",
	FXVolatility:        "FXVolatility",
	EQSpot:              "EQSpot",
	EQVolatility:        "EQVolatility",
	DefaultCurve:        "DefaultCurve",
	Correlation:         "Correlation",
}

func (t KeyType) String() string {
	if s, ok := keyTypeNames[t]; ok {
		return s
	}
	return "?"
}

// ParseKeyType converts the string form back into a KeyType.
func ParseKeyType(s string) (KeyType, error) {
	for t, name := range keyTypeNames {
		if name == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown risk factor key type %q", s)
}

// RiskFactorKey identifies one scalar simulateable quantity,
// e.g. DiscountCurve/USD/3 or FXSpot/EURUSD/0. Immutable value type.
type RiskFactorKey struct {
	Type      KeyType
	Qualifier string
	Index     int
}

// String renders the key in its canonical Type/Qualifier/Index form.
func (k RiskFactorKey) String() string {
	return fmt.Sprintf("%s/%s/%d", k.Type, k.Qualifier, k.Index)
}

// Compare defines the total order (KeyType, Qualifier, Index) used for
// deterministic iteration over key sets.
func (k RiskFactorKey) Compare(other RiskFactorKey) int {
	if k.Type != other.Type {
		if k.Type < other.Type {
			return -1
		}
		return 1
	}
	if c := strings.Compare(k.Qualifier, other.Qualifier); c != 0 {
		return c
	}
	switch {
	case k.Index < other.Index:
		return -1
	case k.Index > other.Index:
		return 1
	default:
		return 0
	}
}

// Less reports whether k sorts before other.
func (k RiskFactorKey) Less(other RiskFactorKey) bool {
	return k.Compare(other) < 0
}

// ParseRiskFactorKey parses the canonical Type/Qualifier/Index form.
func ParseRiskFactorKey(s string) (RiskFactorKey, error) {
	tokens := strings.Split(s, "/")
	if len(tokens) != 3 {
		return RiskFactorKey{}, fmt.Errorf("could not parse risk factor key %q", s)
	}

	keyType, err := ParseKeyType(tokens[0])
	if err != nil {
		return RiskFactorKey{}, err
	}

	index, err := strconv.Atoi(tokens[2])
	if err != nil {
		return RiskFactorKey{}, fmt.Errorf("could not parse index in key %q: %w", s, err)
	}

	return RiskFactorKey{Type: keyType, Qualifier: tokens[1], Index: index}, nil
}
