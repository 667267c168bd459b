// Copyright (c) Liam Stanley <me@liamstanley.io>. All rights reserved. Use
// of this source code is governed by the MIT license that can be found in
// the LICENSE file.

package irc

import "strings"

// caseFoldTranslation maps the RFC 1459 special characters to their
// lowercase counterparts: {[]\^} -> {{}|~}.
var caseFoldTranslation = map[rune]rune{
	'[': '{',
	']': '}',
	'\\': '|',
	'^': '~',
}

// Fold returns the RFC 1459 case-folded form of s: ASCII A-Z is lowered,
// and {[]\^} are mapped to {{}|~}. Folding is idempotent: Fold(Fold(s)) ==
// Fold(s).
func Fold(s string) string {
	s = strings.ToLower(s)

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if tr, ok := caseFoldTranslation[r]; ok {
			b.WriteRune(tr)
			continue
		}
		b.WriteRune(r)
	}

	return b.String()
}

// FoldEqual reports whether a and b are equal once both are case-folded.
func FoldEqual(a, b string) bool {
	return Fold(a) == Fold(b)
}

// CaseFoldedMap is a case-insensitive (per Fold) dictionary keyed by
// string, used to hold channel and nickname lookups. The original,
// display-cased key supplied on first insertion is preserved; later inserts
// with a key that folds the same only update the value.
type CaseFoldedMap[V any] struct {
	values  map[string]V
	display map[string]string
}

// NewCaseFoldedMap returns an empty, ready-to-use CaseFoldedMap.
func NewCaseFoldedMap[V any]() *CaseFoldedMap[V] {
	return &CaseFoldedMap[V]{
		values:  make(map[string]V),
		display: make(map[string]string),
	}
}

// Get returns the value stored for key, folding key before lookup.
func (m *CaseFoldedMap[V]) Get(key string) (val V, ok bool) {
	val, ok = m.values[Fold(key)]
	return val, ok
}

// Set stores val for key, folding key before storage. The first-seen
// display form of the key is retained for Keys()/Range().
func (m *CaseFoldedMap[V]) Set(key string, val V) {
	fk := Fold(key)
	if _, ok := m.display[fk]; !ok {
		m.display[fk] = key
	}
	m.values[fk] = val
}

// Delete removes key (after folding) from the map.
func (m *CaseFoldedMap[V]) Delete(key string) {
	fk := Fold(key)
	delete(m.values, fk)
	delete(m.display, fk)
}

// Has reports whether key (after folding) is present.
func (m *CaseFoldedMap[V]) Has(key string) bool {
	_, ok := m.values[Fold(key)]
	return ok
}

// Len returns the number of entries.
func (m *CaseFoldedMap[V]) Len() int {
	return len(m.values)
}

// Keys returns the display-cased keys, in no particular order.
func (m *CaseFoldedMap[V]) Keys() []string {
	out := make([]string, 0, len(m.display))
	for _, k := range m.display {
		out = append(out, k)
	}
	return out
}

// Range calls fn for every key/value pair. fn receives the display-cased
// key. Iteration stops early if fn returns false.
func (m *CaseFoldedMap[V]) Range(fn func(key string, val V) bool) {
	for fk, val := range m.values {
		if !fn(m.display[fk], val) {
			return
		}
	}
}

// Rename moves the value stored under oldKey to newKey, preserving it.
// Reports false if oldKey was not present.
func (m *CaseFoldedMap[V]) Rename(oldKey, newKey string) bool {
	val, ok := m.Get(oldKey)
	if !ok {
		return false
	}
	m.Delete(oldKey)
	m.Set(newKey, val)
	return true
}
