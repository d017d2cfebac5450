package changeset

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/coreseekdev/etherdraw-stresstest/pkg/attribute"
)

func TestSplitFromKeep(t *testing.T) {
	source := Op{Kind: Keep, Lines: 1, Chars: 10, Attrs: []attribute.Attribute{attribute.New("author", "a1")}}
	split := splitFrom(&source, 0, 4)

	assert.Equal(t, Keep, split.Kind)
	assert.Equal(t, 0, split.Lines)
	assert.Equal(t, 4, split.Chars)
	assert.Equal(t, []attribute.Attribute{attribute.New("author", "a1")}, split.Attrs)

	assert.Equal(t, 1, source.Lines)
	assert.Equal(t, 6, source.Chars)
}

func TestSplitFromInsert(t *testing.T) {
	source := Op{Kind: Insert, Chars: 5, Text: "hello"}
	split := splitFrom(&source, 0, 2)

	assert.Equal(t, "he", split.Text)
	assert.Equal(t, "llo", source.Text)
	assert.Equal(t, 3, source.Chars)
}

func TestMergeAttributesReplacesExisting(t *testing.T) {
	op := Op{Kind: Keep, Attrs: []attribute.Attribute{attribute.New("author", "a1")}}
	mergeAttributes(&op, []attribute.Attribute{attribute.New("author", "a2")})
	assert.Equal(t, []attribute.Attribute{attribute.New("author", "a2")}, op.Attrs)
}

func TestMergeAttributesAppendsNewKey(t *testing.T) {
	op := Op{Kind: Keep, Attrs: []attribute.Attribute{attribute.New("author", "a1")}}
	mergeAttributes(&op, []attribute.Attribute{attribute.New("bold", "true")})
	assert.Equal(t, []attribute.Attribute{attribute.New("author", "a1"), attribute.New("bold", "true")}, op.Attrs)
}

func TestMergeAttributesRemovesOnEmptyValueForInsert(t *testing.T) {
	op := Op{Kind: Insert, Attrs: []attribute.Attribute{attribute.New("author", "a1")}}
	mergeAttributes(&op, []attribute.Attribute{attribute.New("author", "")})
	assert.Empty(t, op.Attrs)
}

func TestMergeAttributesKeepsEmptyValueForKeep(t *testing.T) {
	// A Keep receiving an empty-valued attribute replaces rather than
	// removes: only an Insert being "un-attributed" collapses the entry.
	op := Op{Kind: Keep, Attrs: []attribute.Attribute{attribute.New("author", "a1")}}
	mergeAttributes(&op, []attribute.Attribute{attribute.New("author", "")})
	assert.Equal(t, []attribute.Attribute{attribute.New("author", "")}, op.Attrs)
}

func TestMergeableRules(t *testing.T) {
	keep0 := Op{Kind: Keep, Lines: 0, Chars: 1}
	keep1 := Op{Kind: Keep, Lines: 1, Chars: 1}

	assert.True(t, mergeable(keep0, keep0)) // a.Lines == 0
	assert.True(t, mergeable(keep0, keep1)) // a.Lines == 0
	assert.True(t, mergeable(keep1, keep1)) // b.Lines > 0
	assert.False(t, mergeable(keep1, keep0)) // multiline can't absorb single-line-only

	del := Op{Kind: Delete, Chars: 1}
	assert.False(t, mergeable(keep0, del)) // different kinds
}

func TestSerializeOrdersAttrsLinesThenKind(t *testing.T) {
	pool := attribute.Pool{attribute.New("author", "a1"), attribute.New("bold", "")}
	op := Op{Kind: Keep, Lines: 2, Chars: 5, Attrs: []attribute.Attribute{attribute.New("author", "a1"), attribute.New("bold", "")}}
	assert.Equal(t, "*0*1|2=5", op.Serialize(pool))
}
