package extract

import (
	"regexp"
	"strings"

	"github.com/dsadash/dsadash/internal/shape"
)

var fencedJSON = regexp.MustCompile("```json\\s*\\n([\\s\\S]*?)\\n```")

// candidates lists the substrings of raw that may hold the JSON object, in
// the order they are tried: a fenced json block, the span from the first
// "{" to the last "}", then the whole text.
func candidates(raw string) []string {
	var out []string
	if m := fencedJSON.FindStringSubmatch(raw); m != nil {
		out = append(out, m[1])
	}
	if start, end := strings.Index(raw, "{"), strings.LastIndex(raw, "}"); start >= 0 && end > start {
		out = append(out, raw[start:end+1])
	}
	return append(out, raw)
}

// decodeFirst returns the first candidate that decodes as a JSON object.
func decodeFirst(raw string) (map[string]any, bool) {
	for _, c := range candidates(raw) {
		if m, err := shape.Decode([]byte(strings.TrimSpace(c))); err == nil {
			return m, true
		}
	}
	return nil, false
}

// truncate returns the first n runes of s followed by "...".
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		r = r[:n]
	}
	return string(r) + "..."
}
