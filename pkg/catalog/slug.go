package catalog

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Field limits, matching the storage schema.
const (
	maxNameLen = 100
	maxSlugLen = 120
)

// Slugify lowercases s and joins runs of letters and digits with hyphens.
// Non-Latin letters are kept as they are.
func Slugify(s string) string {
	var b strings.Builder
	pendingHyphen := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
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

// normalize trims and validates the input, deriving the slug from the name
// when it is empty.
func (in CategoryInput) normalize() (CategoryInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return in, fmt.Errorf("%w: category name is required", ErrInvalid)
	}
	if utf8.RuneCountInString(in.Name) > maxNameLen {
		return in, fmt.Errorf("%w: category name exceeds %d characters", ErrInvalid, maxNameLen)
	}

	if in.Slug == "" {
		in.Slug = Slugify(in.Name)
	} else {
		in.Slug = Slugify(in.Slug)
	}
	if in.Slug == "" {
		return in, fmt.Errorf("%w: category slug is empty", ErrInvalid)
	}
	if utf8.RuneCountInString(in.Slug) > maxSlugLen {
		return in, fmt.Errorf("%w: category slug exceeds %d characters", ErrInvalid, maxSlugLen)
	}
	return in, nil
}

func (in HeroInput) normalize() (HeroInput, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Subtitle = strings.TrimSpace(in.Subtitle)
	in.ImageURL = strings.TrimSpace(in.ImageURL)
	in.CTAText = strings.TrimSpace(in.CTAText)
	in.CTALink = strings.TrimSpace(in.CTALink)

	if in.Title == "" {
		return in, fmt.Errorf("%w: hero title is required", ErrInvalid)
	}
	if (in.CTAText == "") != (in.CTALink == "") {
		return in, fmt.Errorf("%w: hero call to action needs both text and link", ErrInvalid)
	}
	return in, nil
}
