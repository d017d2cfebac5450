package changeset

import (
	"strings"

	"github.com/dlclark/regexp2"

	"github.com/coreseekdev/etherdraw-stresstest/pkg/attribute"
)

// Numbers in a changeset are base-36, so [0-9a-z] matches a digit.
// Prefix tokens are * for an attribute reference and | for a line count.
// Op tokens are + for insert, - for delete, = for keep. The changeset
// starts with the original length, then < or > and the total change in
// length. After the ops comes a $ sign followed by the charbank.
//
// Go's regexp (RE2) can't express a repeated capturing group the way
// Qt's QRegExp could for this OP_RE+ grammar, and repeated groups only
// ever report their *last* iteration's span even when they do match
// (true of QRegExp as well as .NET-style engines) - so, like the
// original, the grammar below is used only to validate overall shape;
// the ops themselves are extracted by a manual scan below, not from
// capture groups. regexp2 is used instead of regexp because it supports
// the same backtracking semantics QRegExp relied on for this pattern.
const (
	opPattern        = `(?:\*[0-9a-z]+)*(?:\|[0-9a-z]+)?[=+-][0-9a-z]+`
	changesetPattern = `^Z:[0-9a-z]+[<>][0-9a-z]+(?:` + opPattern + `)+(?:\$.*)?$`
)

var changesetMatcher = regexp2.MustCompile(changesetPattern, regexp2.Singleline)

// Parse decodes text into a new Changeset, resolving attribute references
// against pool. Parse never panics or returns an error value: it always
// produces a (possibly empty) Changeset, with any problems recorded in
// its error buffer. Framing errors (missing "Z:" prefix, grammar
// mismatch) are fatal and stop parsing immediately; per-op errors are
// collected and parsing continues so that callers see every diagnostic
// from a single bad changeset at once.
func Parse(text string, pool attribute.Pool) *Changeset {
	c := New()

	if !strings.HasPrefix(text, "Z:") {
		c.pushError(errNotAChangeset)
		return c
	}

	if ok, err := changesetMatcher.MatchString(text); err != nil || !ok {
		c.pushError(errSyntax)
		return c
	}

	pos := 2 // past "Z:"
	origLen, n := scanBase36(text, pos)
	pos += n

	if pos >= len(text) || (text[pos] != '<' && text[pos] != '>') {
		c.pushError(errSyntax)
		return c
	}
	sign := text[pos]
	pos++

	diff, n := scanBase36(text, pos)
	pos += n

	c.origLen = origLen
	if sign == '>' {
		c.newLen = origLen + diff
	} else {
		c.newLen = origLen - diff
	}

	// Ops run from here up to the first literal '$'; whatever follows
	// that '$' is the charbank verbatim (op syntax never contains '$').
	dollar := strings.IndexByte(text[pos:], '$')
	var opsRegion, charbank string
	if dollar < 0 {
		opsRegion = text[pos:]
	} else {
		opsRegion = text[pos : pos+dollar]
		charbank = text[pos+dollar+1:]
	}

	charbankUsed := 0
	i := 0
	for i < len(opsRegion) {
		var op Op

		for i < len(opsRegion) && opsRegion[i] == '*' {
			i++
			start := i
			for i < len(opsRegion) && isBase36Digit(opsRegion[i]) {
				i++
			}
			idx, _ := parseBase36(opsRegion[start:i])
			if idx >= pool.Len() {
				c.pushError(errAttrOutOfRange)
			} else {
				attr, _ := pool.At(idx)
				op.Attrs = append(op.Attrs, attr)
			}
		}

		if i < len(opsRegion) && opsRegion[i] == '|' {
			i++
			start := i
			for i < len(opsRegion) && isBase36Digit(opsRegion[i]) {
				i++
			}
			op.Lines, _ = parseBase36(opsRegion[start:i])
		}

		if i >= len(opsRegion) {
			break
		}
		switch opsRegion[i] {
		case '=':
			op.Kind = Keep
		case '+':
			op.Kind = Insert
		case '-':
			op.Kind = Delete
		}
		i++

		start := i
		for i < len(opsRegion) && isBase36Digit(opsRegion[i]) {
			i++
		}
		op.Chars, _ = parseBase36(opsRegion[start:i])

		if op.Kind == Insert {
			end := charbankUsed + op.Chars
			if end > len(charbank) {
				end = len(charbank)
			}
			op.Text = charbank[charbankUsed:end]
			charbankUsed += op.Chars
			if len(op.Text) != op.Chars {
				c.pushError(errCharbankTooShort)
			}
			if op.Lines > 0 && !strings.HasSuffix(op.Text, "\n") {
				c.pushError(errMultilineNoNewline)
			}
			for _, attr := range op.Attrs {
				if attr.Value == "" {
					c.pushError(errInsertEmptyAttr)
				}
			}
		}

		if op.Kind == Delete && len(op.Attrs) > 0 {
			c.pushError(errDeleteWithAttrs)
		}

		c.ops = append(c.ops, op)
	}

	c.tidy = false
	c.attrsValid = false

	if len(c.errs) == 0 && c.String() != text {
		c.pushError(errNotCanonical)
	}

	return c
}

func isBase36Digit(b byte) bool {
	return (b >= '0' && b <= '9') || (b >= 'a' && b <= 'z')
}

// scanBase36 reads consecutive base-36 digits starting at pos and
// returns their value and the number of bytes consumed.
func scanBase36(s string, pos int) (int, int) {
	start := pos
	for pos < len(s) && isBase36Digit(s[pos]) {
		pos++
	}
	n, _ := parseBase36(s[start:pos])
	return n, pos - start
}
