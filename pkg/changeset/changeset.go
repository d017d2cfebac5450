// Package changeset implements the compact textual encoding of edits
// over an attributed document (Etherpad's "changeset" format) together
// with the algorithms to build, canonicalize, serialize, parse, and
// compose them.
//
// A Changeset is created empty and grown with AddInsert/AddKeep/AddDelete,
// or populated in one shot by Parse. Canonicalization ("tidy") is lazy:
// it runs automatically the first time the op sequence is observed
// through String, Attributes, or Apply, and after any further mutation
// the next observation re-tidies. A Changeset is not safe for concurrent
// use by multiple goroutines; distinct Changesets are fully independent.
package changeset

import (
	"strings"

	"github.com/coreseekdev/etherdraw-stresstest/pkg/attribute"
)

// Changeset is a compact encoding of an edit from a document of OrigLen
// characters to one of NewLen characters.
type Changeset struct {
	origLen int
	newLen  int
	ops     []Op
	tidy    bool

	attrsValid bool
	attrs      attribute.Pool

	errs []string
}

// New returns an empty Changeset ready to be grown with the AddXxx
// builder methods.
func New() *Changeset {
	return &Changeset{tidy: true}
}

// OrigLen returns the length of the document this changeset edits.
func (c *Changeset) OrigLen() int { return c.origLen }

// NewLen returns the length of the document after applying this changeset.
func (c *Changeset) NewLen() int { return c.newLen }

// Errors returns the diagnostics accumulated so far.
func (c *Changeset) Errors() []string { return c.errs }

// ClearErrors empties the diagnostic buffer.
func (c *Changeset) ClearErrors() { c.errs = nil }

func (c *Changeset) pushError(msg string) {
	c.errs = append(c.errs, msg)
}

func (c *Changeset) invalidate() {
	c.tidy = false
	c.attrsValid = false
}

// splitMultiline splits text on its newlines as addInsert/addKeep/addDelete
// require: if text contains a newline but does not end with one, the
// caller must emit two ops (a multiline prefix ending in '\n', then a
// single-line suffix). splitMultiline returns (prefix, suffix, needsSplit)
// where needsSplit is false when no split is needed.
func splitMultiline(text string) (prefix, suffix string, needsSplit bool) {
	lines := strings.Count(text, "\n")
	if lines == 0 || strings.HasSuffix(text, "\n") {
		return "", "", false
	}
	whole := strings.LastIndexByte(text, '\n') + 1
	return text[:whole], text[whole:], true
}

// AddInsert appends an Insert op for text with the given attributes,
// splitting at the last newline first if text contains an interior
// newline not at the end.
func (c *Changeset) AddInsert(text string, attrs []attribute.Attribute) {
	if prefix, suffix, split := splitMultiline(text); split {
		c.AddInsert(prefix, attrs)
		c.AddInsert(suffix, attrs)
		return
	}

	sorted := attribute.Clone(attrs)
	attribute.Sort(sorted)

	op := Op{
		Kind:  Insert,
		Lines: strings.Count(text, "\n"),
		Chars: len(text),
		Text:  text,
		Attrs: sorted,
	}
	c.ops = append(c.ops, op)
	c.newLen += op.Chars
	c.invalidate()
}

// AddKeep appends a Keep op spanning text, splitting at the last newline
// first if text contains an interior newline not at the end.
func (c *Changeset) AddKeep(text string, attrs []attribute.Attribute) {
	if prefix, suffix, split := splitMultiline(text); split {
		c.AddKeepCount(strings.Count(prefix, "\n"), len(prefix), attrs)
		c.AddKeepCount(0, len(suffix), attrs)
		return
	}
	c.AddKeepCount(strings.Count(text, "\n"), len(text), attrs)
}

// AddKeepCount appends a Keep op of the given numeric (lines, chars) form
// directly, skipping text analysis. The caller warrants that if lines > 0
// the spanned text actually ends with a newline.
func (c *Changeset) AddKeepCount(lines, chars int, attrs []attribute.Attribute) {
	sorted := attribute.Clone(attrs)
	attribute.Sort(sorted)

	op := Op{Kind: Keep, Lines: lines, Chars: chars, Attrs: sorted}
	c.ops = append(c.ops, op)
	c.origLen += op.Chars
	c.newLen += op.Chars
	c.invalidate()
}

// AddDelete appends a Delete op spanning text, splitting at the last
// newline first if text contains an interior newline not at the end.
func (c *Changeset) AddDelete(text string) {
	if prefix, suffix, split := splitMultiline(text); split {
		c.AddDeleteCount(strings.Count(prefix, "\n"), len(prefix))
		c.AddDeleteCount(0, len(suffix))
		return
	}
	c.AddDeleteCount(strings.Count(text, "\n"), len(text))
}

// AddDeleteCount appends a Delete op of the given numeric (lines, chars)
// form directly, skipping text analysis.
func (c *Changeset) AddDeleteCount(lines, chars int) {
	op := Op{Kind: Delete, Lines: lines, Chars: chars}
	c.ops = append(c.ops, op)
	c.origLen += op.Chars
	c.invalidate()
}

// Tidy canonicalizes the op sequence in place: drops zero-length ops,
// drops a trailing empty-attrs Keep, migrates Inserts past following
// Deletes, and merges adjacent mergeable ops. It is idempotent and is
// invoked automatically by String, Attributes, and Apply.
func (c *Changeset) Tidy() {
	i := 0
	for i < len(c.ops) {
		if c.ops[i].Chars == 0 {
			c.ops = append(c.ops[:i], c.ops[i+1:]...)
			continue
		}

		if i == len(c.ops)-1 {
			if c.ops[i].Kind == Keep && len(c.ops[i].Attrs) == 0 {
				c.ops = append(c.ops[:i], c.ops[i+1:]...)
				// The previous op is now last; recheck it.
				if i > 0 {
					i--
				}
				continue
			}
		} else {
			if c.ops[i].Kind == Insert && c.ops[i+1].Kind == Delete {
				c.ops[i], c.ops[i+1] = c.ops[i+1], c.ops[i]
				if i > 0 {
					i--
				}
				continue
			}

			if mergeable(c.ops[i], c.ops[i+1]) {
				merge(&c.ops[i], c.ops[i+1])
				c.ops = append(c.ops[:i+1], c.ops[i+2:]...)
				continue
			}
		}
		i++
	}
	c.attrsValid = false
	c.tidy = true
}

// Attributes returns the sorted unique set of attributes appearing
// across all ops, recomputed lazily and cached until the next mutation
// or Tidy.
func (c *Changeset) Attributes() attribute.Pool {
	if !c.attrsValid {
		if !c.tidy {
			c.Tidy()
		}
		lists := make([][]attribute.Attribute, len(c.ops))
		for i, op := range c.ops {
			lists[i] = op.Attrs
		}
		c.attrs = attribute.FromAttrLists(lists...)
		c.attrsValid = true
	}
	return c.attrs
}

// String serializes the changeset to its canonical wire form. Returns ""
// if the op sequence is empty after tidying.
func (c *Changeset) String() string {
	if !c.tidy {
		c.Tidy()
	}
	if len(c.ops) == 0 {
		return ""
	}

	var result strings.Builder
	result.WriteString("Z:")
	result.WriteString(base36(c.origLen))
	if c.newLen >= c.origLen {
		result.WriteByte('>')
		result.WriteString(base36(c.newLen - c.origLen))
	} else {
		result.WriteByte('<')
		result.WriteString(base36(c.origLen - c.newLen))
	}

	pool := c.Attributes()
	var charbank strings.Builder
	for i, op := range c.ops {
		if i == len(c.ops)-1 && op.Kind == Keep && len(op.Attrs) == 0 {
			continue // final Keep is always implicit
		}
		result.WriteString(op.Serialize(pool))
		if op.Kind == Insert {
			charbank.WriteString(op.Text)
		}
	}

	result.WriteByte('$')
	result.WriteString(charbank.String())
	return result.String()
}

// Ops returns a copy of the (tidied) op sequence, mainly for tests and
// for callers (like pkg/pad) that need to inspect the changeset shape.
func (c *Changeset) Ops() []Op {
	if !c.tidy {
		c.Tidy()
	}
	out := make([]Op, len(c.ops))
	copy(out, c.ops)
	return out
}
