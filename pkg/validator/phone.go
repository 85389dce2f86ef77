package validator

import (
	"regexp"
	"strings"
)

// trailingAnnotationRegex matches one parenthetical annotation at the end of
// a phone value, e.g. "(C)", "(H)", "(cell)", "(home)". Roster exports tack
// these onto the number to say which line it is.
var trailingAnnotationRegex = regexp.MustCompile(`\s*\([^()]*\)\s*$`)

// PhoneCleaner cleans phone values coming out of roster exports
type PhoneCleaner struct{}

// NewPhoneCleaner creates a new phone cleaner instance
func NewPhoneCleaner() *PhoneCleaner {
	return &PhoneCleaner{}
}

// Clean strips a single trailing parenthetical annotation from a phone
// value. The number itself is never reformatted: "(802) 555-1234 (C)"
// becomes "(802) 555-1234", and a bare "(802) 555-1234" is left alone
// because the parenthetical there is the area code, not a suffix.
func (c *PhoneCleaner) Clean(phone string) string {
	trimmed := strings.TrimSpace(phone)
	if trimmed == "" {
		return ""
	}

	stripped := trailingAnnotationRegex.ReplaceAllString(trimmed, "")
	stripped = strings.TrimSpace(stripped)

	// If stripping left nothing the whole value was one parenthetical
	// group; that is a number like "(802) 555-1234" split oddly, not an
	// annotation, so keep the original.
	if stripped == "" {
		return trimmed
	}

	return stripped
}

// HasAnnotation reports whether the value carries a trailing annotation
// that Clean would remove.
func (c *PhoneCleaner) HasAnnotation(phone string) bool {
	return c.Clean(phone) != strings.TrimSpace(phone)
}
