package changeset

import (
	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/coreseekdev/etherdraw-stresstest/pkg/attribute"
)

// FromDiff builds a tidied Changeset transforming oldText into newText by
// running Myers diff (github.com/sergi/go-diff) and translating each
// diff span into the equivalent AddKeep/AddInsert/AddDelete call. attrs
// is attached to every inserted span (e.g. an "author" attribution); Keep
// spans carry no attributes. This is a convenience builder for callers
// (such as a random-edit driver) that know two document snapshots but
// not the positional edit that produced one from the other.
func FromDiff(oldText, newText string, attrs []attribute.Attribute) *Changeset {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(oldText, newText, false)
	diffs = dmp.DiffCleanupSemantic(diffs)

	c := New()
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			c.AddKeep(d.Text, nil)
		case diffmatchpatch.DiffInsert:
			c.AddInsert(d.Text, attrs)
		case diffmatchpatch.DiffDelete:
			c.AddDelete(d.Text)
		}
	}
	c.Tidy()
	return c
}
