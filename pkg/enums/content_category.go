package enums

import "fmt"

// ContentCategory describes the allowed values for a content item's category.
type ContentCategory string

const (
	ContentCategoryMovie  ContentCategory = "movie"
	ContentCategorySeries ContentCategory = "series"
	ContentCategoryAnime  ContentCategory = "anime"
	ContentCategoryOther  ContentCategory = "other"
)

var validContentCategories = []ContentCategory{
	ContentCategoryMovie,
	ContentCategorySeries,
	ContentCategoryAnime,
	ContentCategoryOther,
}

// IsValid reports whether the value matches the canonical category enum.
func (c ContentCategory) IsValid() bool {
	for _, candidate := range validContentCategories {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseContentCategory converts the raw string to ContentCategory.
func ParseContentCategory(value string) (ContentCategory, error) {
	for _, candidate := range validContentCategories {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid content category %q", value)
}
