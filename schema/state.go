package schema

import "sort"

// OrderedMap is a string map that remembers insertion order.
type OrderedMap struct {
	keys   []string
	values map[string]string
}

// NewOrderedMap returns an empty map.
func NewOrderedMap() *OrderedMap {
	return &OrderedMap{values: map[string]string{}}
}

// Set inserts or replaces key. Replacing keeps the original position.
func (m *OrderedMap) Set(key, value string) {
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

// SetIfAbsent inserts key only when it is not present yet.
func (m *OrderedMap) SetIfAbsent(key, value string) bool {
	if _, ok := m.values[key]; ok {
		return false
	}
	m.Set(key, value)
	return true
}

func (m *OrderedMap) Get(key string) (string, bool) {
	v, ok := m.values[key]
	return v, ok
}

func (m *OrderedMap) Has(key string) bool {
	_, ok := m.values[key]
	return ok
}

// Keys returns the keys in insertion order.
func (m *OrderedMap) Keys() []string {
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

func (m *OrderedMap) Len() int {
	return len(m.keys)
}

// DeclaredState is what an existing model file currently declares.
type DeclaredState struct {
	Fillable []string
	Hidden   []string
	Appends  []string
	Casts    *OrderedMap
}

// NewDeclaredState returns the all-empty state used for files that do not exist yet.
func NewDeclaredState() DeclaredState {
	return DeclaredState{Casts: NewOrderedMap()}
}

// Names returns every field name mentioned in any slot, first mention first.
func (s DeclaredState) Names() []string {
	seen := map[string]bool{}
	var out []string
	add := func(names ...string) {
		for _, n := range names {
			if !seen[n] {
				seen[n] = true
				out = append(out, n)
			}
		}
	}
	add(s.Fillable...)
	add(s.Hidden...)
	add(s.Appends...)
	if s.Casts != nil {
		add(s.Casts.Keys()...)
	}
	return out
}

// KnownColumnSet is the advisory union of every column name we could find.
type KnownColumnSet map[string]struct{}

func NewKnownColumnSet(names ...string) KnownColumnSet {
	s := KnownColumnSet{}
	s.Add(names...)
	return s
}

func (s KnownColumnSet) Add(names ...string) {
	for _, n := range names {
		if n != "" {
			s[n] = struct{}{}
		}
	}
}

func (s KnownColumnSet) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Missing returns the subset of cols not in the set, in input order.
func (s KnownColumnSet) Missing(cols []string) []string {
	var out []string
	for _, c := range cols {
		if !s.Has(c) {
			out = append(out, c)
		}
	}
	return out
}

// Sorted returns the set's members in lexical order.
func (s KnownColumnSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for n := range s {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
