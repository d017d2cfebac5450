// Package attribute implements the key/value attribute type and the
// attribute pool used by the changeset package to encode per-span
// formatting (author, bold, color, ...) as small integers on the wire.
package attribute

import "sort"

// Attribute is an ordered (key, value) pair marking a run of text with a
// property. An empty Value means "clear this attribute" when attached to
// a Keep op.
type Attribute struct {
	Key   string
	Value string
}

// New builds an Attribute.
func New(key, value string) Attribute {
	return Attribute{Key: key, Value: value}
}

// Less reports whether a sorts before b: lexicographic on Key, then Value.
func Less(a, b Attribute) bool {
	if a.Key != b.Key {
		return a.Key < b.Key
	}
	return a.Value < b.Value
}

// Equal reports componentwise equality.
func Equal(a, b Attribute) bool {
	return a.Key == b.Key && a.Value == b.Value
}

// Sort sorts attrs in place in canonical order.
func Sort(attrs []Attribute) {
	sort.Slice(attrs, func(i, j int) bool { return Less(attrs[i], attrs[j]) })
}

// EqualSets reports whether two already-sorted attribute slices are
// identical. Used by tidy to decide whether two ops can merge.
func EqualSets(a, b []Attribute) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

// Clone returns a copy of attrs safe to mutate independently.
func Clone(attrs []Attribute) []Attribute {
	if len(attrs) == 0 {
		return nil
	}
	out := make([]Attribute, len(attrs))
	copy(out, attrs)
	return out
}

// Pool is an ordered sequence of distinct attributes. The index of an
// attribute in the pool is its pool id, used to encode attribute
// references compactly in a changeset's op stream.
type Pool []Attribute

// IndexOf returns the position of attr in the pool, or -1 if absent.
func (p Pool) IndexOf(attr Attribute) int {
	for i, a := range p {
		if Equal(a, attr) {
			return i
		}
	}
	return -1
}

// At returns the attribute at index i and whether i was in range.
func (p Pool) At(i int) (Attribute, bool) {
	if i < 0 || i >= len(p) {
		return Attribute{}, false
	}
	return p[i], true
}

// Len returns the number of attributes in the pool.
func (p Pool) Len() int {
	return len(p)
}

// FromAttrLists builds a Pool containing the sorted, deduplicated union
// of every attribute appearing in attrLists. This is what Changeset.String
// uses (through Changeset.Attributes) to assign indices on demand; callers that need a stable pool across
// calls (e.g. to hand back into parse) must capture the returned value.
func FromAttrLists(attrLists ...[]Attribute) Pool {
	seen := make(map[Attribute]bool)
	var out []Attribute
	for _, list := range attrLists {
		for _, a := range list {
			if !seen[a] {
				seen[a] = true
				out = append(out, a)
			}
		}
	}
	Sort(out)
	return Pool(out)
}
