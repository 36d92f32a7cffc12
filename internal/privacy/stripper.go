// Package privacy scrubs user utterances before they are persisted.
// Utterances describe a user's day and often carry contact details or
// content the user marked off-limits; none of that belongs in the
// reading log.
package privacy

import (
	"regexp"
	"strings"
)

var (
	// privateTagRegex matches <private>...</private> tags
	privateTagRegex = regexp.MustCompile(`(?s)<private>.*?</private>`)

	emailRegex = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

	// phoneRegex matches common phone formats, 7+ digits with separators
	phoneRegex = regexp.MustCompile(`\+?\d[\d\s().-]{6,}\d`)
)

// StripPrivateTags removes all <private>...</private> content from text.
func StripPrivateTags(text string) string {
	return privateTagRegex.ReplaceAllString(text, "")
}

// RedactContactDetails replaces email addresses and phone numbers with
// placeholders.
func RedactContactDetails(text string) string {
	text = emailRegex.ReplaceAllString(text, "[email]")
	text = phoneRegex.ReplaceAllString(text, "[phone]")
	return text
}

// IsEntirelyPrivate checks if the text is entirely within <private> tags.
func IsEntirelyPrivate(text string) bool {
	stripped := StripPrivateTags(text)
	return strings.TrimSpace(stripped) == ""
}

// Clean performs full privacy cleaning on text.
// This is the main function to use before storing any user content.
func Clean(text string) string {
	text = StripPrivateTags(text)
	text = RedactContactDetails(text)
	return strings.TrimSpace(text)
}
