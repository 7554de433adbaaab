package store

import (
	"strings"
	"unicode/utf8"
)

const (
	maxTitleLen       = 255
	maxDescriptionLen = 1000
)

// ValidateTitle trims surrounding whitespace and enforces the title length
// bounds. It returns the trimmed title so callers persist the canonical form.
// Lengths are counted in characters, matching the varchar(255) column.
func ValidateTitle(title string) (string, error) {
	trimmed := strings.TrimSpace(title)
	if trimmed == "" {
		return "", ErrEmptyTitle
	}
	if utf8.RuneCountInString(trimmed) > maxTitleLen {
		return "", ErrTitleTooLong
	}
	return trimmed, nil
}

// ValidateDescription enforces the description length bound in characters.
// Descriptions are optional, so empty is fine.
func ValidateDescription(desc string) error {
	if utf8.RuneCountInString(desc) > maxDescriptionLen {
		return ErrDescriptionTooLong
	}
	return nil
}
