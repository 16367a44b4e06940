// Package resultset aligns and merges columnar query results.
package resultset

import (
	"sort"
	"strings"

	"graphable/internal/coerce"
)

// KeyString normalizes a key value so equal keys from different series match.
func KeyString(v any) string {
	if t, ok := coerce.Time(v); ok {
		if _, isString := v.(string); !isString {
			return coerce.String(t.UTC())
		}
	}
	return coerce.String(v)
}

// Key is one distinct key value observed across series.
type Key struct {
	ID    string
	Value any
}

// KeySet collects distinct keys in first-seen order.
type KeySet struct {
	keys []Key
	seen map[string]bool
}

// NewKeySet returns an empty KeySet.
func NewKeySet() *KeySet {
	return &KeySet{seen: make(map[string]bool)}
}

// Add records v unless an equal key was already seen.
func (s *KeySet) Add(v any) {
	id := KeyString(v)
	if s.seen[id] {
		return
	}
	s.seen[id] = true
	s.keys = append(s.keys, Key{ID: id, Value: v})
}

// Sorted returns the keys ordered chronologically when every key is a date,
// numerically when every key is a number, and lexicographically otherwise.
func (s *KeySet) Sorted() []Key {
	keys := append([]Key(nil), s.keys...)
	SortKeys(keys)
	return keys
}

// SortKeys sorts keys in place. See KeySet.Sorted.
func SortKeys(keys []Key) {
	switch {
	case allKeys(keys, isDateKey):
		sort.SliceStable(keys, func(i, j int) bool {
			ti, _ := coerce.Time(keys[i].Value)
			tj, _ := coerce.Time(keys[j].Value)
			return ti.Before(tj)
		})
	case allKeys(keys, isNumericKey):
		sort.SliceStable(keys, func(i, j int) bool {
			fi, _ := coerce.Float(keys[i].Value)
			fj, _ := coerce.Float(keys[j].Value)
			return fi < fj
		})
	default:
		sort.SliceStable(keys, func(i, j int) bool {
			return strings.Compare(keys[i].ID, keys[j].ID) < 0
		})
	}
}

func isDateKey(v any) bool {
	_, ok := coerce.Time(v)
	return ok
}

func isNumericKey(v any) bool {
	if !coerce.IsNumber(v) {
		return false
	}
	_, ok := coerce.Float(v)
	return ok
}

func allKeys(keys []Key, pred func(any) bool) bool {
	if len(keys) == 0 {
		return false
	}
	for _, k := range keys {
		if !pred(k.Value) {
			return false
		}
	}
	return true
}
