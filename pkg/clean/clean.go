// Package clean strips markup tags and collapses whitespace in text cells.
package clean

import "regexp"

var (
	// A tag never spans a line: '.' does not match '\n'.
	tagPattern   = regexp.MustCompile(`<.*?>`)
	// Every Unicode space, not only the ASCII ones \s covers.
	spacePattern = regexp.MustCompile(`[\s\v\x1c-\x1f\x{85}\p{Z}]+`)
)

// Clean removes every <...> tag from text, then collapses whitespace runs
// (including no-break and other Unicode spaces) to a single space and trims
// both ends.
func Clean(text string) string {
	if text == "" {
		return text
	}
	out := collapse(tagPattern.ReplaceAllString(text, ""))
	// Collapsing newlines can join the halves of a tag that used to span
	// lines; strip again until the result is stable.
	for tagPattern.MatchString(out) {
		out = collapse(tagPattern.ReplaceAllString(out, ""))
	}
	return out
}

func collapse(text string) string {
	return trimSpace(spacePattern.ReplaceAllString(text, " "))
}

// trimSpace trims the single spaces collapse may leave at either end.
func trimSpace(text string) string {
	start, end := 0, len(text)
	if start < end && text[start] == ' ' {
		start++
	}
	if start < end && text[end-1] == ' ' {
		end--
	}
	return text[start:end]
}

// Columns returns a copy of values with the cells at indexes cleaned.
// Indexes beyond the row are ignored.
func Columns(values []string, indexes []int) []string {
	out := make([]string, len(values))
	copy(out, values)
	for _, i := range indexes {
		if i >= 0 && i < len(out) {
			out[i] = Clean(out[i])
		}
	}
	return out
}
