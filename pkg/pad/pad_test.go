package pad

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreseekdev/etherdraw-stresstest/pkg/attribute"
)

func TestSetInitialTextSeedsPad(t *testing.T) {
	p := New("client1")
	p.SetInitialText(7, "hello", "", nil)

	assert.Equal(t, 7, p.Rev())
	assert.Equal(t, "hello", p.Text())
	assert.Equal(t, 5, p.NewLen())
}

func TestInsertAtComposesOntoLocalChanges(t *testing.T) {
	p := New("client1")
	p.SetInitialText(0, "hello world", "", nil)

	p.InsertAt(5, ", there", nil)
	assert.Equal(t, "hello, there world", p.Text())
	assert.Equal(t, len("hello, there world"), p.NewLen())

	wire := p.ToChangeset()
	assert.NotEmpty(t, wire)
}

func TestDeleteAtComposesOntoLocalChanges(t *testing.T) {
	p := New("client1")
	p.SetInitialText(0, "hello world", "", nil)

	p.DeleteAt(5, 6)
	assert.Equal(t, "hello", p.Text())
	assert.Equal(t, 5, p.NewLen())
}

func TestMultipleEditsComposeInSequence(t *testing.T) {
	p := New("client1")
	p.SetInitialText(0, "abc", "", nil)

	p.InsertAt(3, "def", nil)
	p.InsertAt(0, "X", nil)
	p.DeleteAt(1, 1)

	assert.Equal(t, "Xbcdef", p.Text())
}

func TestToChangesetCarriesAttributes(t *testing.T) {
	p := New("client1")
	p.SetInitialText(0, "abc", "", nil)

	attr := attribute.New("author", "a1")
	p.InsertAt(3, "!", []attribute.Attribute{attr})

	require.NotEmpty(t, p.ToChangeset())
	pool := p.Attributes()
	assert.GreaterOrEqual(t, pool.IndexOf(attr), 0)
}
