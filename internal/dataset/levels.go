package dataset

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Levels is an ordered set of support or resistance prices.
type Levels []float64

// Min returns the lowest level, or NaN for an empty set.
func (l Levels) Min() float64 {
	if len(l) == 0 {
		return math.NaN()
	}
	m := l[0]
	for _, v := range l[1:] {
		m = math.Min(m, v)
	}
	return m
}

// Max returns the highest level, or NaN for an empty set.
func (l Levels) Max() float64 {
	if len(l) == 0 {
		return math.NaN()
	}
	m := l[0]
	for _, v := range l[1:] {
		m = math.Max(m, v)
	}
	return m
}

// String renders the set as a list literal that ParseLevels reads back exactly.
func (l Levels) String() string {
	parts := make([]string, len(l))
	for i, v := range l {
		parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

var errNotList = errors.New("not a list of numbers")

// ParseLevels reads a list literal such as "[101.5, 99, 1e2]". Only numbers,
// brackets, commas and whitespace are accepted; nothing is evaluated. Blank
// text and the usual missing-value markers yield an empty set.
func ParseLevels(s string) (Levels, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "nan", "none", "null":
		return Levels{}, nil
	}
	if !strings.HasPrefix(s, "[") || !strings.HasSuffix(s, "]") || len(s) < 2 {
		return nil, errNotList
	}
	inner := strings.TrimSpace(s[1 : len(s)-1])
	if inner == "" {
		return Levels{}, nil
	}
	items := strings.Split(inner, ",")
	// a single trailing comma is legal list syntax: [1, 2,]
	if len(items) > 1 && strings.TrimSpace(items[len(items)-1]) == "" {
		items = items[:len(items)-1]
	}
	out := make(Levels, 0, len(items))
	for _, it := range items {
		it = strings.TrimSpace(it)
		if it == "" {
			return nil, fmt.Errorf("%w: empty element", errNotList)
		}
		for _, r := range it {
			if !strings.ContainsRune("0123456789+-.eE", r) {
				return nil, fmt.Errorf("%w: unexpected %q", errNotList, r)
			}
		}
		v, err := strconv.ParseFloat(it, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", errNotList, it)
		}
		out = append(out, v)
	}
	return out, nil
}
