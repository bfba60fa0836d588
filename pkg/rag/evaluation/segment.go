package evaluation

import (
	"regexp"
	"strings"
)

var (
	bulletPrefix   = regexp.MustCompile(`^\s*(?:[-*•]|\d+[.)]|\(?[a-zA-Z]\))\s+`)
	sentenceEnd    = regexp.MustCompile(`[.!?]+(?:\s+|$)|;\s*`)
	clauseBoundary = regexp.MustCompile(`(?i),\s*|\s+\b(?:and|but|whereas|while)\b\s+`)
	whitespace     = regexp.MustCompile(`\s+`)
)

// splitWords are where a single long clause may be cut in two.
var splitWords = map[string]bool{
	"to": true, "from": true, "through": true, "by": true, "via": true,
	"using": true, "with": true, "for": true, "into": true,
}

const (
	minClauseWords    = 3
	longClauseWords   = 6
	minHalfClauseWord = 2
)

// Segment breaks text into semantic points: lines and bullets, then sentences, then
// clauses. Fragments shorter than three words are folded into their neighbour. When the
// whole text is a single long clause it is split at the function word nearest its middle.
func Segment(text string) []string {
	var points []string
	for _, line := range strings.Split(text, "\n") {
		line = bulletPrefix.ReplaceAllString(line, "")
		for _, sentence := range splitKeep(line, sentenceEnd) {
			points = append(points, clauses(sentence)...)
		}
	}

	if len(points) == 1 {
		if left, right, ok := splitLongClause(points[0]); ok {
			return []string{left, right}
		}
	}
	return points
}

// clauses splits one sentence and merges fragments that are too short to stand alone.
func clauses(sentence string) []string {
	var out []string
	pending := ""
	for _, piece := range splitKeepDelimiter(sentence, clauseBoundary) {
		pending += piece
		if wordCount(stripLeadingConjunction(pending)) >= minClauseWords {
			out = append(out, clean(pending))
			pending = ""
		}
	}
	if p := clean(pending); p != "" {
		if len(out) == 0 {
			out = append(out, p)
		} else {
			out[len(out)-1] = clean(out[len(out)-1] + " " + p)
		}
	}
	return out
}

func splitLongClause(clause string) (string, string, bool) {
	words := strings.Fields(clause)
	if len(words) < longClauseWords {
		return "", "", false
	}

	mid := len(words) / 2
	best := -1
	for i := minHalfClauseWord; i <= len(words)-minHalfClauseWord; i++ {
		if !splitWords[strings.ToLower(strings.Trim(words[i], ",;:"))] {
			continue
		}
		if best < 0 || abs(i-mid) < abs(best-mid) {
			best = i
		}
	}
	if best < 0 {
		return "", "", false
	}
	return clean(strings.Join(words[:best], " ")), clean(strings.Join(words[best:], " ")), true
}

// splitKeep splits on re and drops the delimiters.
func splitKeep(s string, re *regexp.Regexp) []string {
	var out []string
	for _, part := range re.Split(s, -1) {
		if p := clean(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// splitKeepDelimiter splits on re, attaching each delimiter to the following piece so the
// pieces can be joined back without loss.
func splitKeepDelimiter(s string, re *regexp.Regexp) []string {
	idx := re.FindAllStringIndex(s, -1)
	if len(idx) == 0 {
		return []string{s}
	}
	out := make([]string, 0, len(idx)+1)
	start := 0
	for _, loc := range idx {
		if loc[0] > start {
			out = append(out, s[start:loc[0]])
		}
		start = loc[0]
	}
	return append(out, s[start:])
}

func stripLeadingConjunction(s string) string {
	s = strings.TrimLeft(strings.TrimSpace(s), ", ")
	for _, c := range []string{"and ", "but ", "whereas ", "while "} {
		if len(s) >= len(c) && strings.EqualFold(s[:len(c)], c) {
			return s[len(c):]
		}
	}
	return s
}

func clean(s string) string {
	s = whitespace.ReplaceAllString(strings.TrimSpace(s), " ")
	s = strings.TrimLeft(s, ", ")
	s = stripLeadingConjunction(s)
	return strings.TrimRight(s, ".,;:!? ")
}

// normalize lowercases and drops punctuation so formatting differences do not count.
func normalize(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r > 127:
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func wordCount(s string) int { return len(strings.Fields(s)) }

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
