package enums

import "fmt"

// SubscriptionCategory is the scope of a subscription: a single content
// category or the whole catalog.
type SubscriptionCategory string

const (
	SubscriptionCategoryAll    SubscriptionCategory = "all"
	SubscriptionCategoryMovie  SubscriptionCategory = "movie"
	SubscriptionCategorySeries SubscriptionCategory = "series"
	SubscriptionCategoryAnime  SubscriptionCategory = "anime"
	SubscriptionCategoryOther  SubscriptionCategory = "other"
)

var validSubscriptionCategories = []SubscriptionCategory{
	SubscriptionCategoryAll,
	SubscriptionCategoryMovie,
	SubscriptionCategorySeries,
	SubscriptionCategoryAnime,
	SubscriptionCategoryOther,
}

// IsValid reports whether the value matches the canonical scope enum.
func (s SubscriptionCategory) IsValid() bool {
	for _, candidate := range validSubscriptionCategories {
		if candidate == s {
			return true
		}
	}
	return false
}

// Covers reports whether a subscription with this scope entitles the holder
// to the given content category.
func (s SubscriptionCategory) Covers(category ContentCategory) bool {
	if s == SubscriptionCategoryAll {
		return true
	}
	return string(s) == string(category)
}

// ParseSubscriptionCategory converts the raw string to SubscriptionCategory.
func ParseSubscriptionCategory(value string) (SubscriptionCategory, error) {
	for _, candidate := range validSubscriptionCategories {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid subscription category %q", value)
}
