package keyword

import (
	"sort"
	"strings"
	"unicode/utf8"
)

const DefaultMask = '*'

// Replaces every rune covered by any of the spans with the mask rune. Overlapping and adjacent spans are merged first; spans are clamped to the string.
func Redact(s string, spans []Span, mask rune) string {
	if len(spans) == 0 {
		return s
	}
	merged := mergeSpans(spans, len(s))
	var sb strings.Builder
	sb.Grow(len(s))
	last := 0
	for _, sp := range merged {
		sb.WriteString(s[last:sp.Start])
		n := utf8.RuneCountInString(s[sp.Start:sp.End])
		for range n {
			sb.WriteRune(mask)
		}
		last = sp.End
	}
	sb.WriteString(s[last:])
	return sb.String()
}

func mergeSpans(spans []Span, limit int) []Span {
	sorted := make([]Span, 0, len(spans))
	for _, sp := range spans {
		if sp.Start < 0 {
			sp.Start = 0
		}
		if sp.End > limit {
			sp.End = limit
		}
		if sp.End <= sp.Start {
			continue
		}
		sorted = append(sorted, sp)
	}
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Start < sorted[j].Start
	})
	var out []Span
	for _, sp := range sorted {
		if n := len(out); n > 0 && sp.Start <= out[n-1].End {
			if sp.End > out[n-1].End {
				out[n-1].End = sp.End
			}
			continue
		}
		out = append(out, sp)
	}
	return out
}
