package domain

// Source is a display entry for a host UI, listed independently of the
// model-facing text
type Source struct {
	Name    string `json:"name"`
	URL     string `json:"url"`
	Content string `json:"content"`
}

// ContextPayload is the curated, citation-annotated context for one request
type ContextPayload struct {
	Query         string   `json:"query"`
	Text          string   `json:"text"`
	TotalRelevant int      `json:"total_relevant"`
	Shown         int      `json:"shown"`
	Sources       []Source `json:"sources,omitempty"`
}

// ContextRequest asks for a curated context without calling a model
type ContextRequest struct {
	Query    string
	Identity *Identity
}
