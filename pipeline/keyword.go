package pipeline

import "strings"

// KeywordMatch reports whether any keyword occurs in the text, case
// insensitive, substring semantics. It short-circuits on the first hit.
//
// An empty keyword list matches nothing. This fails closed on purpose: a
// subscription with no configured keywords must not push the whole unfiltered
// stream into paid classification.
func KeywordMatch(text string, keywords []string) bool {
	if len(keywords) == 0 {
		return false
	}
	lowered := strings.ToLower(text)
	for _, keyword := range keywords {
		if strings.Contains(lowered, strings.ToLower(keyword)) {
			return true
		}
	}
	return false
}

// ItemMatchesKeywords applies the keyword filter to the concatenation of a
// post's title and body.
func ItemMatchesKeywords(title string, body string, keywords []string) bool {
	return KeywordMatch(title+" "+body, keywords)
}
