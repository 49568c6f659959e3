package parser

import "strings"

const tabSize = 8

// Wrap fills text into lines of at most width runes the way Python's
// textwrap.fill does with its defaults: tabs are expanded, every other
// whitespace character becomes one space, whitespace at line breaks is
// dropped and words longer than a line are split. Runs of inner spaces
// are kept. Hyphenated words are only broken when longer than a line.
func Wrap(text string, width int) string {
	if width < 1 {
		width = 1
	}
	chunks := splitChunks(normalizeSpace(text))

	var lines []string
	for len(chunks) > 0 {
		if len(lines) > 0 && isBlank(chunks[0]) {
			chunks = chunks[1:]
		}

		var cur [][]rune
		curLen := 0
		for len(chunks) > 0 && curLen+len(chunks[0]) <= width {
			cur = append(cur, chunks[0])
			curLen += len(chunks[0])
			chunks = chunks[1:]
		}

		if len(chunks) > 0 && len(chunks[0]) > width {
			if space := width - curLen; space > 0 {
				cur = append(cur, chunks[0][:space])
				chunks[0] = chunks[0][space:]
			} else if len(cur) == 0 {
				cur = append(cur, chunks[0])
				chunks = chunks[1:]
			}
		}

		if n := len(cur); n > 0 && isBlank(cur[n-1]) {
			cur = cur[:n-1]
		}
		if len(cur) > 0 {
			var b strings.Builder
			for _, c := range cur {
				b.WriteString(string(c))
			}
			lines = append(lines, b.String())
		}
	}
	return strings.Join(lines, "\n")
}

// normalizeSpace expands tabs to the next multiple of tabSize and turns the
// remaining ASCII whitespace into spaces.
func normalizeSpace(text string) []rune {
	out := make([]rune, 0, len(text))
	col := 0
	for _, r := range text {
		switch r {
		case '\t':
			pad := tabSize - col%tabSize
			for i := 0; i < pad; i++ {
				out = append(out, ' ')
			}
			col += pad
		case '\n', '\r':
			out = append(out, ' ')
			col = 0
		case '\v', '\f':
			out = append(out, ' ')
			col++
		default:
			out = append(out, r)
			col++
		}
	}
	return out
}

// splitChunks splits text into alternating runs of spaces and non-spaces.
func splitChunks(text []rune) [][]rune {
	var chunks [][]rune
	start := 0
	for i := 1; i <= len(text); i++ {
		if i == len(text) || (text[i] == ' ') != (text[start] == ' ') {
			chunks = append(chunks, text[start:i])
			start = i
		}
	}
	return chunks
}

func isBlank(chunk []rune) bool {
	for _, r := range chunk {
		if r != ' ' {
			return false
		}
	}
	return true
}
