package utils

import "unicode"

// SplitText splits text into chunks of at most chunkSize runes, each starting
// overlap runes before the previous one ended. A cut is moved back to the last
// whitespace in the second half of the window, and the overlap start forward to
// the next word, so words stay whole when the text has spaces.
func SplitText(text string, chunkSize int, overlap int) []string {
	runes := []rune(text)
	if chunkSize <= 0 || len(runes) <= chunkSize {
		return []string{text}
	}
	if overlap < 0 || overlap >= chunkSize {
		overlap = 0
	}

	var chunks []string
	for start := 0; start < len(runes); {
		end := start + chunkSize
		if end >= len(runes) {
			chunks = append(chunks, string(runes[start:]))
			break
		}
		for i := end; i > start+chunkSize/2; i-- {
			if unicode.IsSpace(runes[i]) {
				end = i
				break
			}
		}
		chunks = append(chunks, string(runes[start:end]))

		next := end - overlap
		if next <= start {
			next = end
		}
		for i := next; i < end; i++ {
			if unicode.IsSpace(runes[i-1]) {
				next = i
				break
			}
		}
		start = next
	}
	return chunks
}
