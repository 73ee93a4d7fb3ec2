package utilities

import "strings"

// MaxSlugLength is the hard cap on generated and caller-supplied slugs.
const MaxSlugLength = 512

// Slugify derives a URL-safe slug from a title: lower-case, trim, internal
// whitespace runs become single hyphens, every other character outside
// [a-z0-9-] is dropped, and the result is truncated to MaxSlugLength.
// Slugify is idempotent: feeding a slug back in returns it unchanged.
func Slugify(title string) string {
	lower := strings.ToLower(strings.TrimSpace(title))

	var b strings.Builder
	b.Grow(len(lower))
	inSpace := false
	for _, r := range lower {
		switch {
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			inSpace = true
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-':
			if inSpace {
				b.WriteByte('-')
				inSpace = false
			}
			b.WriteRune(r)
		default:
			// dropped, and does not break a pending whitespace run
		}
	}

	slug := b.String()
	if len(slug) > MaxSlugLength {
		slug = slug[:MaxSlugLength]
	}
	return slug
}

// ValidSlug reports whether a caller-supplied slug is legal: non-empty, at
// most MaxSlugLength bytes, and containing only [a-z0-9-].
func ValidSlug(slug string) bool {
	if len(slug) < 1 || len(slug) > MaxSlugLength {
		return false
	}
	for _, r := range slug {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') && r != '-' {
			return false
		}
	}
	return true
}
