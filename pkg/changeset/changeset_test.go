package changeset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreseekdev/etherdraw-stresstest/pkg/attribute"
)

func TestStringOfEmptyChangeset(t *testing.T) {
	c := New()
	assert.Equal(t, "", c.String())
}

func TestBuildAndSerialize(t *testing.T) {
	c := New()
	c.AddKeep("abc\n", nil)
	c.AddInsert("X", nil)
	c.AddKeep("def", nil)

	// The trailing keep("def") carries no attributes, so the implicit
	// trailing Keep rule drops it from the serialized ops entirely; its
	// length is still accounted for by newLen in the header.
	assert.Equal(t, "Z:7>1|1=4+1$X", c.String())
	assert.Equal(t, 7, c.OrigLen())
	assert.Equal(t, 8, c.NewLen())
}

func TestParseSimpleInsert(t *testing.T) {
	c := Parse("Z:5>4+4$BAM!", nil)
	require.Empty(t, c.Errors())
	assert.Equal(t, 5, c.OrigLen())
	assert.Equal(t, 9, c.NewLen())

	ops := c.Ops()
	require.Len(t, ops, 1)
	assert.Equal(t, Insert, ops[0].Kind)
	assert.Equal(t, 4, ops[0].Chars)
	assert.Equal(t, "BAM!", ops[0].Text)
	assert.Equal(t, c.String(), "Z:5>4+4$BAM!")
}

func TestParseFromEmptyDocument(t *testing.T) {
	c := Parse("Z:0>5+5$hello", nil)
	require.Empty(t, c.Errors())
	assert.Equal(t, 0, c.OrigLen())
	assert.Equal(t, 5, c.NewLen())
}

func TestTidySwapsInsertBeforeDelete(t *testing.T) {
	c := New()
	c.AddInsert("a", nil)
	c.AddDeleteCount(0, 1)
	c.AddKeepCount(0, 2, nil)

	s := c.String()
	assert.Contains(t, s, "-1+1")
}

func TestComposeAbsorbsDeletion(t *testing.T) {
	self := Parse("Z:3>2=3+2$XY", nil)
	require.Empty(t, self.Errors())

	// The trailing "=3" is the final Keep spelled out explicitly; tidy
	// still treats it as the implicit trailing Keep once parsed.
	other := Parse("Z:5<1=1-1=3$", nil)

	self.Apply(other)
	assert.Equal(t, 3, self.OrigLen())
	assert.Equal(t, 4, self.NewLen())

	// self started as keep(3)+insert(XY); other keeps char 0, deletes
	// char 1, keeps the rest. The delete falls inside self's leading
	// keep, so original char 1 becomes a delete; the insert is untouched.
	ops := self.Ops()
	var chars int
	for _, op := range ops {
		if op.Kind != Delete {
			chars += op.Chars
		}
	}
	assert.Equal(t, self.NewLen(), chars)
}

func TestRoundTrip(t *testing.T) {
	c := New()
	c.AddKeepCount(1, 4, []attribute.Attribute{attribute.New("author", "a1")})
	c.AddInsert("hi\n", []attribute.Attribute{attribute.New("author", "a1")})
	c.AddDeleteCount(0, 2)

	s := c.String()
	pool := c.Attributes()

	parsed := Parse(s, pool)
	assert.Empty(t, parsed.Errors())
	assert.Equal(t, c.OrigLen(), parsed.OrigLen())
	assert.Equal(t, c.NewLen(), parsed.NewLen())
	assert.Equal(t, s, parsed.String())
}

func TestTidyIdempotent(t *testing.T) {
	c := New()
	c.AddKeepCount(0, 3, nil)
	c.AddKeepCount(0, 2, nil)
	c.Tidy()
	first := c.String()
	c.Tidy()
	assert.Equal(t, first, c.String())
}

func TestLengthAccounting(t *testing.T) {
	c := New()
	c.AddKeepCount(0, 3, nil)
	c.AddInsert("xyz", nil)
	c.AddDeleteCount(0, 2)

	assert.Equal(t, 5, c.OrigLen()) // keep(3) + delete(2)
	assert.Equal(t, 6, c.NewLen())  // keep(3) + insert(3)
}

func TestParseNotAChangeset(t *testing.T) {
	c := Parse("garbage", nil)
	require.Len(t, c.Errors(), 1)
	assert.Contains(t, c.Errors()[0], "not a changeset")
}

func TestParseSyntaxError(t *testing.T) {
	c := Parse("Z:abc", nil)
	require.Len(t, c.Errors(), 1)
	assert.Contains(t, c.Errors()[0], "syntax error")
}

func TestParseAttributeOutOfRange(t *testing.T) {
	c := Parse("Z:0>1*5+1$a", nil)
	assert.Contains(t, c.Errors(), "changeset attribute out of range")
}

func TestParseDeleteWithAttributes(t *testing.T) {
	pool := attribute.Pool{attribute.New("author", "x")}
	c := Parse("Z:1<1*0-1$", pool)
	assert.Contains(t, c.Errors(), "changeset has delete with attributes")
}

func TestParseInsertEmptyAttribute(t *testing.T) {
	pool := attribute.Pool{attribute.New("author", "")}
	c := Parse("Z:0>1*0+1$a", pool)
	assert.Contains(t, c.Errors(), "changeset inserts empty attribute")
}

func TestApplyWrongOrigLength(t *testing.T) {
	self := New()
	self.AddKeepCount(0, 3, nil)

	other := New()
	other.AddKeepCount(0, 7, nil)

	self.Apply(other)
	assert.Contains(t, self.Errors(), "applying changeset with wrong orig length")
}

func TestFromDiff(t *testing.T) {
	c := FromDiff("hello world", "hello there world", nil)
	assert.Equal(t, 11, c.OrigLen())
	assert.Equal(t, 17, c.NewLen())
	assert.Empty(t, c.Errors())
}
