package keyword

import (
	"slices"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
)

// Byte offsets of a match within the original (un-folded) text. End is exclusive.
type Span struct {
	Start int
	End   int
}

// Case-folds a string, one rune at a time.
//
// This is the only normalization applied to either keywords or messages: no stemming, no accent stripping, no fuzzy matching. Folding per rune (instead of the whole string at once) keeps keyword and message folding identical to the span mapping done by FoldedText.
func Fold(s string) string {
	// casers are stateful, so a fresh one per call keeps this safe for concurrent use
	caser := cases.Fold()
	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); {
		r, w := utf8.DecodeRuneInString(s[i:])
		sb.WriteString(caser.String(string(r)))
		i += w
	}
	return sb.String()
}

// Case-folded view of a text which remembers, for every folded rune, the byte range of the original rune it came from.
//
// Some runes fold to more than one rune (eg, "ß" to "ss"); every one of those folded runes maps back to the full original rune.
type FoldedText struct {
	orig   string
	runes  []rune
	starts []int
	ends   []int
}

func NewFoldedText(s string) *FoldedText {
	caser := cases.Fold()
	ft := &FoldedText{
		orig:   s,
		runes:  make([]rune, 0, len(s)),
		starts: make([]int, 0, len(s)),
		ends:   make([]int, 0, len(s)),
	}
	for i := 0; i < len(s); {
		r, w := utf8.DecodeRuneInString(s[i:])
		for _, fr := range caser.String(string(r)) {
			ft.runes = append(ft.runes, fr)
			ft.starts = append(ft.starts, i)
			ft.ends = append(ft.ends, i+w)
		}
		i += w
	}
	return ft
}

func (ft *FoldedText) Original() string {
	return ft.orig
}

func (ft *FoldedText) String() string {
	return string(ft.runes)
}

func (ft *FoldedText) index(kw []rune, from int) int {
	m := len(kw)
	for i := from; i+m <= len(ft.runes); i++ {
		if slices.Equal(ft.runes[i:i+m], kw) {
			return i
		}
	}
	return -1
}

// Reports whether the already-folded keyword occurs anywhere in the text. An empty keyword never matches.
func (ft *FoldedText) Contains(folded string) bool {
	if folded == "" {
		return false
	}
	return ft.index([]rune(folded), 0) >= 0
}

// Returns the spans (in original byte offsets) of every occurrence of the already-folded keyword, including overlapping occurrences. An empty keyword never matches.
func (ft *FoldedText) FindAll(folded string) []Span {
	if folded == "" {
		return nil
	}
	kw := []rune(folded)
	var out []Span
	for i := ft.index(kw, 0); i >= 0; i = ft.index(kw, i+1) {
		out = append(out, Span{
			Start: ft.starts[i],
			End:   ft.ends[i+len(kw)-1],
		})
	}
	return out
}
