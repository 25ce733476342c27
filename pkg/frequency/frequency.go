// Package frequency counts currency codes.
//
// Each worker fills its own Table without locking; tables are combined with
// Merge once the workers are done. Merge is commutative and associative, so
// the final table does not depend on the order workers finish in.
package frequency

import (
	"cmp"
	"slices"
	"strings"
)

// Table maps a currency code to the number of records carrying it.
type Table map[string]int

type Entry struct {
	Code  string
	Count int
}

// Classify normalizes a raw currency cell. A code is three ASCII letters;
// anything else, including an empty cell, is not classified.
func Classify(raw string) (string, bool) {
	code := strings.TrimSpace(raw)
	if len(code) != 3 {
		return "", false
	}
	var b [3]byte
	for i := 0; i < 3; i++ {
		c := code[i]
		switch {
		case c >= 'A' && c <= 'Z':
		case c >= 'a' && c <= 'z':
			c -= 'a' - 'A'
		default:
			return "", false
		}
		b[i] = c
	}
	return string(b[:]), true
}

// Observe counts raw when it classifies and reports whether it did.
func (t Table) Observe(raw string) bool {
	code, ok := Classify(raw)
	if !ok {
		return false
	}
	t[code]++
	return true
}

// Merge adds every count of partial into t.
func (t Table) Merge(partial Table) {
	for code, n := range partial {
		t[code] += n
	}
}

func (t Table) Total() int {
	total := 0
	for _, n := range t {
		total += n
	}
	return total
}

// Sorted returns the entries by descending count, ties broken by code.
func (t Table) Sorted() []Entry {
	entries := make([]Entry, 0, len(t))
	for code, n := range t {
		entries = append(entries, Entry{Code: code, Count: n})
	}
	slices.SortFunc(entries, func(a, b Entry) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Code, b.Code)
	})
	return entries
}

// Above returns the codes counted strictly more than threshold times, in
// Sorted order.
func (t Table) Above(threshold int) []string {
	var codes []string
	for _, e := range t.Sorted() {
		if e.Count > threshold {
			codes = append(codes, e.Code)
		}
	}
	return codes
}
