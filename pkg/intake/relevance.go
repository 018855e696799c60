package intake

import (
	"strings"
)

// skipWords are acknowledgements that never name a destination.
var skipWords = map[string]struct{}{
	"hi": {}, "hello": {}, "hey": {}, "yes": {}, "no": {}, "ok": {}, "okay": {},
}

// IsRelevantQuery reports whether an answer should be forwarded to the image search.
// Only the destination question (index 0) qualifies; numbers, amounts and greetings do not.
func IsRelevantQuery(query string, questionIndex int) bool {
	if questionIndex != 0 {
		return false
	}

	stripped := strings.TrimSpace(strings.NewReplacer("$", "", ",", "").Replace(query))
	if stripped != "" && isDigits(stripped) {
		return false
	}

	if _, skip := skipWords[strings.ToLower(query)]; skip {
		return false
	}
	return true
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
