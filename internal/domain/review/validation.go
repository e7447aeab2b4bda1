package review

import "strings"

// ValidateNewItem checks fields required to create an item. Empty or
// whitespace-only content is rejected before it is ever replicated.
func ValidateNewItem(category Category, content string) error {
	if !category.Valid() {
		return ErrInvalidCategory
	}
	if strings.TrimSpace(content) == "" {
		return ErrEmptyContent
	}
	return nil
}
