package domain

import "strings"

// MinSearchTextLength is the shortest search text the pipeline accepts
const MinSearchTextLength = 3

// ParsedQuery is raw user input split into search text and model instructions
type ParsedQuery struct {
	SearchText   string `json:"search_text"`
	Instructions string `json:"instructions,omitempty"` // Empty means none
}

// HasInstructions reports whether custom instructions were supplied
func (q ParsedQuery) HasInstructions() bool {
	return strings.TrimSpace(q.Instructions) != ""
}

// IsSearchable reports whether the search text meets the minimum length
func (q ParsedQuery) IsSearchable() bool {
	return len([]rune(strings.TrimSpace(q.SearchText))) >= MinSearchTextLength
}
