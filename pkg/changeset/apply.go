package changeset

// Apply rewrites c in place so that applying the result produces the same
// document state as first applying c, then other. other.OrigLen() is
// expected to equal c.NewLen(); on mismatch a diagnostic is pushed and
// the composition proceeds best-effort.
//
// Both changesets are tidied first. Two cursors walk c.ops and a private
// copy of other.ops in lockstep, splitting whichever op is longer so that
// every comparison is between ops of equal (lines, chars) before the two
// are combined. After Apply returns, c is left not-tidy; the next
// observation re-canonicalizes it. other may be tidied in place but is
// otherwise left unmodified.
func (c *Changeset) Apply(other *Changeset) {
	if other.origLen != c.newLen {
		c.pushError(errWrongOrigLen)
	}

	if !c.tidy {
		c.Tidy()
	}
	if !other.tidy {
		other.Tidy()
	}
	xops := make([]Op, len(other.ops))
	copy(xops, other.ops)

	a, b := 0, 0
	for a < len(c.ops) && b < len(xops) {
		if c.ops[a].Kind == Delete {
			// Already gone in other's worldview; no interaction.
			a++
			continue
		}

		if xops[b].Kind == Insert {
			c.ops = insertAt(c.ops, a, xops[b])
			c.newLen += xops[b].Chars
			a++
			b++
			continue
		}

		// Equalize op lengths before combining.
		if c.ops[a].Chars < xops[b].Chars {
			split := splitFrom(&xops[b], c.ops[a].Lines, c.ops[a].Chars)
			xops = insertAt(xops, b, split)
		} else if c.ops[a].Chars > xops[b].Chars {
			split := splitFrom(&c.ops[a], xops[b].Lines, xops[b].Chars)
			c.ops = insertAt(c.ops, a, split)
		}

		if xops[b].Kind == Keep {
			mergeAttributes(&c.ops[a], xops[b].Attrs)
			a++
			b++
			continue
		}

		// xops[b] must be Delete.
		c.newLen -= xops[b].Chars

		if c.ops[a].Kind == Insert {
			// Insertion and deletion cancel.
			c.ops = append(c.ops[:a], c.ops[a+1:]...)
			b++
		} else {
			// Keep replaced by the Delete.
			c.ops[a] = xops[b]
			a++
			b++
		}
	}

	// Leftover ops from other replace c's implicit trailing Keep.
	for b < len(xops) {
		c.ops = append(c.ops, xops[b])
		switch xops[b].Kind {
		case Delete:
			c.newLen -= xops[b].Chars
		case Insert:
			c.newLen += xops[b].Chars
		}
		b++
	}

	c.invalidate()
}

func insertAt(ops []Op, i int, op Op) []Op {
	ops = append(ops, Op{})
	copy(ops[i+1:], ops[i:])
	ops[i] = op
	return ops
}
