package changeset

import (
	"strconv"
	"strings"

	"github.com/coreseekdev/etherdraw-stresstest/pkg/attribute"
)

// Kind is the tag of an Op: Keep, Insert, or Delete.
type Kind int

const (
	// Keep copies Chars characters forward from the original document,
	// optionally re-attributing them.
	Keep Kind = iota
	// Insert produces Chars new characters of Text.
	Insert
	// Delete consumes Chars characters from the original document.
	Delete
)

func (k Kind) String() string {
	switch k {
	case Keep:
		return "Keep"
	case Insert:
		return "Insert"
	case Delete:
		return "Delete"
	default:
		return "Unknown"
	}
}

// Op is one edit operation within a Changeset.
//
// Lines is the number of newlines fully contained in the op's spanned
// text; if Lines > 0 the spanned text must end with '\n'. Text is
// populated only for Insert. Attrs is kept sorted; it is empty for
// Delete, and for Insert an empty-valued attribute is invalid.
type Op struct {
	Kind  Kind
	Lines int
	Chars int
	Text  string
	Attrs []attribute.Attribute
}

func base36(n int) string {
	return strconv.FormatInt(int64(n), 36)
}

func parseBase36(s string) (int, bool) {
	n, err := strconv.ParseInt(s, 36, 64)
	if err != nil {
		return 0, false
	}
	return int(n), true
}

// Serialize emits the op's wire form against pool, in the order
// attribute refs, line count, op letter, char count.
func (op Op) Serialize(pool attribute.Pool) string {
	var b strings.Builder
	for _, attr := range op.Attrs {
		b.WriteByte('*')
		b.WriteString(base36(pool.IndexOf(attr)))
	}
	if op.Lines > 0 {
		b.WriteByte('|')
		b.WriteString(base36(op.Lines))
	}
	switch op.Kind {
	case Keep:
		b.WriteByte('=')
	case Insert:
		b.WriteByte('+')
	case Delete:
		b.WriteByte('-')
	}
	b.WriteString(base36(op.Chars))
	return b.String()
}

// splitFrom produces a new op carrying the first (lines, chars) of
// source, and shrinks source by the same amounts. The attribute list is
// shared (copied) between both halves. The caller must ensure the split
// boundary lies at a newline whenever lines < source.Lines.
func splitFrom(source *Op, lines, chars int) Op {
	var out Op
	out.Kind = source.Kind
	out.Lines = lines
	source.Lines -= lines
	out.Chars = chars
	source.Chars -= chars
	if out.Kind == Insert {
		out.Text = source.Text[:chars]
		source.Text = source.Text[chars:]
	}
	out.Attrs = attribute.Clone(source.Attrs)
	return out
}

// mergeAttributes folds incoming into op.Attrs per the Keep-over-existing
// composition rule: a same-key attribute with an empty incoming value
// removes the attribute when op is an Insert, otherwise replaces it;
// attributes with a new key are appended. The result is re-sorted.
func mergeAttributes(op *Op, incoming []attribute.Attribute) {
	needsSort := false
	for _, attr := range incoming {
		found := false
		for i, existing := range op.Attrs {
			if existing.Key == attr.Key {
				if attr.Value == "" && op.Kind == Insert {
					op.Attrs = append(op.Attrs[:i], op.Attrs[i+1:]...)
				} else {
					op.Attrs[i] = attr
				}
				found = true
				break
			}
		}
		if !found {
			op.Attrs = append(op.Attrs, attr)
			needsSort = true
		}
	}
	if needsSort {
		attribute.Sort(op.Attrs)
	}
}

// mergeable reports whether adjacent ops a and b may be merged during
// tidy: same kind, same attribute set, and a multiline op never absorbs
// a following single-line-only op (a.Lines == 0 || b.Lines > 0).
func mergeable(a, b Op) bool {
	return a.Kind == b.Kind &&
		attribute.EqualSets(a.Attrs, b.Attrs) &&
		(a.Lines == 0 || b.Lines > 0)
}

func merge(a *Op, b Op) {
	a.Lines += b.Lines
	a.Chars += b.Chars
	a.Text += b.Text
}
