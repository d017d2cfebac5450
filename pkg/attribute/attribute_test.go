package attribute

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLess(t *testing.T) {
	assert.True(t, Less(New("author", "a"), New("author", "b")))
	assert.True(t, Less(New("author", "z"), New("bold", "")))
	assert.False(t, Less(New("author", "a"), New("author", "a")))
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal(New("k", "v"), New("k", "v")))
	assert.False(t, Equal(New("k", "v"), New("k", "v2")))
}

func TestSort(t *testing.T) {
	attrs := []Attribute{New("bold", ""), New("author", "x"), New("author", "")}
	Sort(attrs)
	assert.Equal(t, []Attribute{New("author", ""), New("author", "x"), New("bold", "")}, attrs)
}

func TestEqualSets(t *testing.T) {
	a := []Attribute{New("author", "x")}
	b := []Attribute{New("author", "x")}
	assert.True(t, EqualSets(a, b))
	assert.False(t, EqualSets(a, []Attribute{New("author", "y")}))
	assert.False(t, EqualSets(a, nil))
}

func TestPoolIndexOf(t *testing.T) {
	pool := FromAttrLists([]Attribute{New("author", "x"), New("bold", "")})
	assert.Equal(t, 2, pool.Len())
	assert.Equal(t, 0, pool.IndexOf(New("author", "x")))
	assert.Equal(t, 1, pool.IndexOf(New("bold", "")))
	assert.Equal(t, -1, pool.IndexOf(New("missing", "")))

	a, ok := pool.At(0)
	assert.True(t, ok)
	assert.Equal(t, New("author", "x"), a)

	_, ok = pool.At(5)
	assert.False(t, ok)
}

func TestFromAttrListsDedup(t *testing.T) {
	pool := FromAttrLists(
		[]Attribute{New("author", "x"), New("author", "x")},
		[]Attribute{New("bold", "")},
	)
	assert.Equal(t, 2, pool.Len())
}
