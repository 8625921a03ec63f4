// Package snippet pulls runnable code out of free-form model output.
package snippet

import "strings"

const fence = "```"

// Extract returns the body of the first ```go (or ```golang) fence, trimmed.
// An unterminated fence yields everything after its opening line. Text with
// no such fence is returned whole, trimmed. Extract never fails.
func Extract(text string) string {
	start, ok := openingFence(text)
	if !ok {
		return strings.TrimSpace(text)
	}
	rest := text[start:]
	if end := strings.Index(rest, fence); end >= 0 {
		rest = rest[:end]
	}
	return strings.TrimSpace(rest)
}

// openingFence finds the first fence tagged go or golang and returns the
// offset just past its tag line.
func openingFence(text string) (int, bool) {
	off := 0
	for {
		i := strings.Index(text[off:], fence)
		if i < 0 {
			return 0, false
		}
		tagStart := off + i + len(fence)
		line := text[tagStart:]
		nl := strings.IndexByte(line, '\n')
		tag := line
		if nl >= 0 {
			tag = line[:nl]
		}
		switch strings.ToLower(strings.TrimSpace(tag)) {
		case "go", "golang":
			if nl < 0 {
				return len(text), true
			}
			return tagStart + nl + 1, true
		}
		off = tagStart
	}
}
