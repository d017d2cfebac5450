// Package corpus supplies the sample text a simulated client draws
// random edits from: a small multi-script word bank, sliced on
// grapheme-cluster boundaries so inserted text never splits a combining
// mark, emoji, or a CJK character mid-byte.
package corpus

import (
	"strings"

	"github.com/clipperhouse/uax29/graphemes"
	"golang.org/x/text/transform"
	"golang.org/x/text/width"
)

// Sample is a bank of words spanning several scripts and width classes,
// deliberately mixing Chinese, emoji, and full-width Latin with plain
// ASCII so a run of random edits exercises multi-byte and
// multi-code-point handling throughout the changeset pipeline.
var Sample = []string{
	"hello", "world", "changeset", "你好", "世界", "协同编辑", "📝", "✨", "⚡",
	"café", "naïve", "Ｆｕｌｌｗｉｄｔｈ", "①②③", "résumé", "日本語", "한국어",
}

// Graphemes splits text into its user-perceived characters, the unit
// random inserts and deletes should be measured and cut in rather than
// raw bytes or code points.
func Graphemes(text string) []string {
	return graphemes.SegmentAllString(text)
}

// Fold normalizes full-width and half-width variants in text to their
// canonical form, so that a corpus mixing "Ａ" and "A" style words
// doesn't produce changesets whose charbank looks subtly corrupted when
// printed to a narrow terminal. text is returned unchanged if it isn't
// valid UTF-8.
func Fold(text string) string {
	folded, _, err := transform.String(width.Fold, text)
	if err != nil {
		return text
	}
	return folded
}

// RandomWord returns one of the sample words, chosen by calling randIntN
// with the bank's length. Callers supply their own source of randomness
// so the same draw can be replayed deterministically in tests.
func RandomWord(randIntN func(int) int) string {
	return Sample[randIntN(len(Sample))]
}

// RandomText builds a string of n random sample words joined by single
// spaces, folding width variants so the result is a single canonical
// representation regardless of which width class each word came from.
func RandomText(n int, randIntN func(int) int) string {
	words := make([]string, n)
	for i := range words {
		words[i] = RandomWord(randIntN)
	}
	return Fold(strings.Join(words, " "))
}

// RandomGraphemeRun returns a run of n consecutive graphemes starting at
// a random offset into text, clamped to text's length. prefix is
// everything before the run, so len(prefix) is the byte offset the run
// starts at; this is used to carve a random deletion span that never
// lands inside a grapheme cluster, the way makeRandomEdit's C
// char-counted qrand() % len would.
func RandomGraphemeRun(text string, n int, randIntN func(int) int) (prefix, run string) {
	clusters := Graphemes(text)
	if len(clusters) == 0 {
		return "", ""
	}
	if n > len(clusters) {
		n = len(clusters)
	}
	start := 0
	if len(clusters) > n {
		start = randIntN(len(clusters) - n)
	}

	var prefixBuf, runBuf strings.Builder
	for i, c := range clusters {
		if i < start {
			prefixBuf.WriteString(c)
		} else if i < start+n {
			runBuf.WriteString(c)
		} else {
			break
		}
	}
	return prefixBuf.String(), runBuf.String()
}
