package catalog

import (
	"strings"
	"unicode"

	"github.com/google/uuid"
)

// Slugify lowers the name and collapses every non-alphanumeric run into a
// single hyphen. The result is URL-safe and never empty for a non-empty
// alphanumeric input.
func Slugify(name string) string {
	var b strings.Builder
	b.Grow(len(name))

	pendingHyphen := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		if unicode.IsLetter(r) && r < 128 || unicode.IsDigit(r) {
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
			continue
		}
		pendingHyphen = true
	}

	return b.String()
}

// uniqueSlug appends a short random suffix to a taken slug.
func uniqueSlug(base string) string {
	return base + "-" + uuid.NewString()[:8]
}
