package chem

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"
)

// Unbounded marks an element without an upper count limit.
const Unbounded = -1

// ElementConstraints restricts which elements a candidate formula may contain
// and, optionally, how many atoms of each.
type ElementConstraints struct {
	bounds map[string]int
}

// ParseElementConstraints parses strings such as "CHNOPS[5]Cl[2]Br".
// A bracketed number following an element sets its maximum count.
func ParseElementConstraints(raw string) (ElementConstraints, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return ElementConstraints{}, fmt.Errorf("element constraint is empty")
	}
	bounds := make(map[string]int)
	runes := []rune(value)
	for i := 0; i < len(runes); {
		if !unicode.IsUpper(runes[i]) {
			return ElementConstraints{}, fmt.Errorf("element constraint %q: unexpected character %q", value, runes[i])
		}
		j := i + 1
		for j < len(runes) && unicode.IsLower(runes[j]) {
			j++
		}
		symbol := string(runes[i:j])
		if !KnownElement(symbol) {
			return ElementConstraints{}, fmt.Errorf("element constraint %q: unknown element %q", value, symbol)
		}
		limit := Unbounded
		if j < len(runes) && runes[j] == '[' {
			end := j + 1
			for end < len(runes) && runes[end] != ']' {
				end++
			}
			if end >= len(runes) {
				return ElementConstraints{}, fmt.Errorf("element constraint %q: unterminated bound for %s", value, symbol)
			}
			n, err := strconv.Atoi(string(runes[j+1 : end]))
			if err != nil || n < 0 {
				return ElementConstraints{}, fmt.Errorf("element constraint %q: invalid bound for %s", value, symbol)
			}
			limit = n
			j = end + 1
		}
		bounds[symbol] = limit
		i = j
	}
	return ElementConstraints{bounds: bounds}, nil
}

// IsEmpty reports whether no elements are constrained.
func (c ElementConstraints) IsEmpty() bool { return len(c.bounds) == 0 }

// Allows reports whether f only uses permitted elements within their bounds.
func (c ElementConstraints) Allows(f Formula) bool {
	if c.IsEmpty() {
		return true
	}
	for _, symbol := range f.Elements() {
		limit, ok := c.bounds[symbol]
		if !ok {
			return false
		}
		if limit != Unbounded && f.Count(symbol) > limit {
			return false
		}
	}
	return true
}

// String renders the constraint back into its textual form.
func (c ElementConstraints) String() string {
	symbols := make([]string, 0, len(c.bounds))
	for symbol := range c.bounds {
		symbols = append(symbols, symbol)
	}
	sort.Slice(symbols, func(i, j int) bool {
		return hillRank(symbols[i], true) < hillRank(symbols[j], true)
	})
	var b strings.Builder
	for _, symbol := range symbols {
		b.WriteString(symbol)
		if limit := c.bounds[symbol]; limit != Unbounded {
			b.WriteString("[")
			b.WriteString(strconv.Itoa(limit))
			b.WriteString("]")
		}
	}
	return b.String()
}
