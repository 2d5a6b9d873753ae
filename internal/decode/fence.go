package decode

import "strings"

const fence = "```"

// stripFences returns the contents of the first fenced block in s, without the
// language tag line. Text without a complete fence is returned trimmed.
func stripFences(s string) string {
	s = strings.TrimSpace(s)

	start := strings.Index(s, fence)
	if start < 0 {
		return s
	}
	body := s[start+len(fence):]

	end := strings.Index(body, fence)
	if end < 0 {
		// Unterminated fence: keep everything after the opener.
		return dropLanguageTag(body)
	}

	return dropLanguageTag(body[:end])
}

func dropLanguageTag(body string) string {
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		tag := strings.TrimSpace(body[:nl])
		if tag == "" || isLanguageTag(tag) {
			body = body[nl+1:]
		}
	}
	return strings.TrimSpace(body)
}

func isLanguageTag(tag string) bool {
	for _, r := range tag {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '-' || r == '_') {
			return false
		}
	}
	return true
}
