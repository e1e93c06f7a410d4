package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// UnknownCitation is used when no metadata key yields a citation identifier
const UnknownCitation = "Unknown"

// fileIDMarker prefixes the numeric external file id inside a filename
const fileIDMarker = "files__default:"

// citationKeys lists metadata keys in citation priority order
var citationKeys = []string{"title", "source", "filename", "file_name", "name", "document_id"}

// ResultChunk is one ranked unit returned by the retrieval service
type ResultChunk struct {
	ID            string   `json:"id,omitempty"`
	DocumentID    string   `json:"document_id,omitempty"`
	OwnerID       string   `json:"owner_id,omitempty"`
	CollectionIDs []string `json:"collection_ids,omitempty"`
	Text          string   `json:"text"`
	Score         *float64 `json:"score,omitempty"` // Absent when the backend does not score
	Metadata      Metadata `json:"metadata,omitempty"`
}

// ScoreOrZero returns the score, treating an absent score as 0.0
func (c *ResultChunk) ScoreOrZero() float64 {
	if c.Score == nil {
		return 0
	}
	return *c.Score
}

// Metadata is the free-form metadata attached to a chunk
type Metadata map[string]any

// Value returns the raw value for key
func (m Metadata) Value(key string) (any, bool) {
	if m == nil {
		return nil, false
	}
	v, ok := m[key]
	return v, ok
}

// String returns the trimmed string value for key.
// Non-string and blank values report false.
func (m Metadata) String(key string) (string, bool) {
	v, ok := m.Value(key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}

// Filename returns the untrimmed filename value, or "" when absent or not a string
func (m Metadata) Filename() string {
	v, _ := m.Value("filename")
	s, _ := v.(string)
	return s
}

// CitationID returns the stable label a model must cite this chunk by:
// the first non-empty of title, source, filename, file_name, name and
// document_id, else "Unknown".
func (m Metadata) CitationID() string {
	for _, key := range citationKeys {
		if s, ok := m.String(key); ok {
			return s
		}
	}
	return UnknownCitation
}

// FileID extracts the numeric external file id from a filename of the form
// "files__default:<digits>". Any other filename yields "".
func (m Metadata) FileID() string {
	filename := m.Filename()
	idx := strings.LastIndex(filename, fileIDMarker)
	if idx < 0 {
		return ""
	}
	id := strings.TrimSpace(filename[idx+len(fileIDMarker):])
	if id == "" {
		return ""
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return ""
		}
	}
	return id
}

// HasValue reports whether key is present and truthy: non-nil, non-empty
// string, non-zero number, true.
func (m Metadata) HasValue(key string) bool {
	v, ok := m.Value(key)
	if !ok || v == nil {
		return false
	}
	switch t := v.(type) {
	case string:
		return t != ""
	case float64:
		return t != 0
	case int:
		return t != 0
	case int64:
		return t != 0
	case bool:
		return t
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	}
	return true
}

// HasKey reports whether key is present with a non-nil value
func (m Metadata) HasKey(key string) bool {
	v, ok := m.Value(key)
	return ok && v != nil
}

// Format renders the value for key as "key: value"
func (m Metadata) Format(key string) string {
	v, _ := m.Value(key)
	return key + ": " + formatValue(v)
}

func formatValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return fmt.Sprintf("%v", t)
	case []any, map[string]any:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprintf("%v", t)
		}
		return string(b)
	default:
		return fmt.Sprintf("%v", t)
	}
}

// SearchRequest is a single scoped query against the retrieval service
type SearchRequest struct {
	Query           string
	ScopeID         string // Collection filter; empty means unscoped
	UseHybridSearch bool
	Limit           int
}

// Scoped reports whether the request carries a collection filter
func (r SearchRequest) Scoped() bool {
	return r.ScopeID != ""
}

// SearchResults holds the undecoded "results" member of a search response
type SearchResults struct {
	Raw json.RawMessage
}
