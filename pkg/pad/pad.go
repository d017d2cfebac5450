// Package pad tracks one simulated collaborator's view of a single
// document: the changeset that brought it from empty to its last known
// server revision, and the local edits layered on top that haven't been
// sent yet.
package pad

import (
	"strconv"

	"github.com/coreseekdev/etherdraw-stresstest/pkg/attribute"
	"github.com/coreseekdev/etherdraw-stresstest/pkg/changeset"
	"github.com/coreseekdev/etherdraw-stresstest/pkg/logger"
)

// Pad mirrors the server's notion of a pad: the revision it was seeded
// from, and the accumulated local edits since then. Positions passed to
// InsertAt/DeleteAt are byte offsets into the current text, matching the
// byte-length convention pkg/changeset uses for Op.Chars.
type Pad struct {
	logger.Logger

	rev     int
	base    *changeset.Changeset // empty document -> rev
	changes *changeset.Changeset // rev -> current local text
	text    string
}

// New returns a Pad logging under clientName, with no document loaded.
func New(clientName string) *Pad {
	return &Pad{Logger: logger.New(clientName)}
}

// Rev reports the revision number the pad was last seeded from.
func (p *Pad) Rev() int { return p.rev }

// Text returns the current local text, after any InsertAt/DeleteAt calls
// made since SetInitialText.
func (p *Pad) Text() string { return p.text }

// SetInitialText seeds the pad from a CLIENT_VARS-style snapshot: a
// revision number, the document text at that revision, the attribute
// string that decorates it (everything a changeset carries except the
// "Z:0>N" header and charbank, which SetInitialText reconstructs), and
// the attribute pool to resolve it against.
func (p *Pad) SetInitialText(rev int, text, attribstr string, apool attribute.Pool) {
	p.rev = rev

	wire := "Z:0>" + strconv.FormatInt(int64(len(text)), 36) + attribstr + "$" + text
	p.base = changeset.Parse(wire, apool)
	for _, err := range p.base.Errors() {
		p.Errorf("%s: %s", err, attribstr)
	}
	p.base.ClearErrors()

	p.changes = changeset.New()
	p.changes.AddKeep(text, nil)
	p.text = text
}

// ToChangeset serializes the local changes accumulated since
// SetInitialText, the form sent to the server as a USER_CHANGES message.
// It re-parses its own output against the emitted attribute pool as a
// sanity check before returning, logging anything that doesn't round-trip.
func (p *Pad) ToChangeset() string {
	wire := p.changes.String()
	for _, err := range p.changes.Errors() {
		p.Errorf("%s: %s", err, wire)
	}
	p.changes.ClearErrors()

	check := changeset.Parse(wire, p.changes.Attributes())
	for _, err := range check.Errors() {
		p.Errorf("%s: %s", err, wire)
	}

	return wire
}

// Attributes returns the attribute pool referenced by ToChangeset's
// output, for embedding in the outgoing USER_CHANGES message alongside
// the changeset text.
func (p *Pad) Attributes() attribute.Pool {
	return p.changes.Attributes()
}

// NewLen returns the length of the local text, in the same units as
// pkg/changeset.Changeset.NewLen.
func (p *Pad) NewLen() int {
	return len(p.text)
}

// InsertAt inserts text with the given attributes at byte offset pos in
// the current text, composing the edit onto the pending local changes.
func (p *Pad) InsertAt(pos int, text string, attrs []attribute.Attribute) {
	edit := changeset.New()
	edit.AddKeep(p.text[:pos], nil)
	edit.AddInsert(text, attrs)
	edit.AddKeep(p.text[pos:], nil)

	p.changes.Apply(edit)
	p.text = p.text[:pos] + text + p.text[pos:]

	if len(p.text) != p.changes.NewLen() {
		p.Errorf("changeset and local text length do not match after insert")
	}
	for _, err := range p.changes.Errors() {
		p.Errorf("%s", err)
	}
	p.changes.ClearErrors()
}

// DeleteAt removes the n bytes starting at byte offset pos in the
// current text, composing the edit onto the pending local changes.
func (p *Pad) DeleteAt(pos, n int) {
	deleted := p.text[pos : pos+n]
	edit := changeset.New()
	edit.AddKeep(p.text[:pos], nil)
	edit.AddDelete(deleted)
	edit.AddKeep(p.text[pos+n:], nil)

	p.changes.Apply(edit)
	p.text = p.text[:pos] + p.text[pos+n:]

	if len(p.text) != p.changes.NewLen() {
		p.Errorf("changeset and local text length do not match after delete")
	}
	for _, err := range p.changes.Errors() {
		p.Errorf("%s", err)
	}
	p.changes.ClearErrors()
}
