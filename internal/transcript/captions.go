package transcript

import "strings"

// terminal marks end a caption. The mark stays with the caption it ends.
func isTerminal(r rune) bool {
	switch r {
	case '。', '！', '？', '；', '!', '?', ';', '.':
		return true
	}
	return false
}

// closers directly after a terminal mark belong to the same caption.
func isCloser(r rune) bool {
	switch r {
	case '」', '』', '）', ')', '"', '\'', '”', '’':
		return true
	}
	return false
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

// SplitIntoCaptions collapses whitespace and splits text after terminal
// punctuation. It never returns an empty slice: text without any boundary
// (including empty text) is a single caption.
func SplitIntoCaptions(text string) []string {
	collapsed := strings.Join(strings.Fields(text), " ")
	runes := []rune(collapsed)

	var (
		captions []string
		b        strings.Builder
	)
	flush := func() {
		if s := strings.TrimSpace(b.String()); s != "" {
			captions = append(captions, s)
		}
		b.Reset()
	}

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		b.WriteRune(r)
		if !isTerminal(r) {
			continue
		}
		// 3.14 is a number, not a sentence end.
		if r == '.' && i > 0 && i+1 < len(runes) && isDigit(runes[i-1]) && isDigit(runes[i+1]) {
			continue
		}
		for i+1 < len(runes) && (isTerminal(runes[i+1]) || isCloser(runes[i+1])) {
			i++
			b.WriteRune(runes[i])
		}
		flush()
	}
	flush()

	if len(captions) == 0 {
		return []string{collapsed}
	}
	return captions
}
