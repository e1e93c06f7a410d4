package services

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/custodia-labs/sercha-r2r/internal/core/domain"
)

const (
	ellipsis          = "..."
	blockSeparatorLen = 50
	maxAuxMetadata    = 5
	chunkEnvelopeKey  = "chunk_search_results"
)

// Auxiliary metadata keys, in render order. Truthy keys are skipped when the
// value is empty or zero; present keys are rendered whenever non-null.
var auxMetadataKeys = []struct {
	key    string
	truthy bool
}{
	{"document_type", true},
	{"file_name", true},
	{"chunk_index", false},
	{"page", false},
	{"page_number", false},
	{"section", false},
	{"chapter", false},
	{"created_at", true},
	{"updated_at", true},
	{"date", true},
	{"year", true},
	{"size_in_bytes", false},
	{"total_tokens", false},
}

// NormalizeResults decodes the results value of a search response. Both a
// {"chunk_search_results": [...]} wrapper and a bare list are accepted;
// anything else yields no chunks. Entries that are not chunk objects are
// skipped.
func NormalizeResults(raw json.RawMessage) []*domain.ResultChunk {
	if len(raw) == 0 {
		return nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		var envelope map[string]json.RawMessage
		if err := json.Unmarshal(raw, &envelope); err != nil {
			return nil
		}
		inner, ok := envelope[chunkEnvelopeKey]
		if !ok {
			return nil
		}
		if err := json.Unmarshal(inner, &items); err != nil {
			return nil
		}
	}

	chunks := make([]*domain.ResultChunk, 0, len(items))
	for _, item := range items {
		var chunk domain.ResultChunk
		if err := json.Unmarshal(item, &chunk); err != nil {
			continue
		}
		chunks = append(chunks, &chunk)
	}
	return chunks
}

// Curator turns ranked chunks into the model-facing context text and the
// host-facing sources list.
type Curator struct {
	settings domain.PipelineSettings
}

// NewCurator creates a curator for the given settings
func NewCurator(settings domain.PipelineSettings) *Curator {
	return &Curator{settings: settings.Normalize()}
}

// FilterRelevant drops chunks scoring below the relevance floor. Unscored
// chunks count as 0. Upstream order is preserved.
func (c *Curator) FilterRelevant(chunks []*domain.ResultChunk) []*domain.ResultChunk {
	kept := make([]*domain.ResultChunk, 0, len(chunks))
	for _, chunk := range chunks {
		if chunk == nil {
			continue
		}
		if chunk.ScoreOrZero() >= c.settings.MinRelevanceScore {
			kept = append(kept, chunk)
		}
	}
	return kept
}

// Curate builds the context payload for a query. It returns nil when no
// chunk passes the relevance floor.
func (c *Curator) Curate(query domain.ParsedQuery, chunks []*domain.ResultChunk) *domain.ContextPayload {
	relevant := c.FilterRelevant(chunks)
	if len(relevant) == 0 {
		return nil
	}

	top := relevant
	if len(top) > c.settings.MaxChunksInContext {
		top = top[:c.settings.MaxChunksInContext]
	}

	parts := []string{
		"=== SEARCH RESULTS ===",
		"Search Query: " + query.SearchText,
		fmt.Sprintf("Found %d relevant results (showing top %d):", len(relevant), len(top)),
		"",
	}
	for i, chunk := range top {
		parts = append(parts, c.renderChunk(i+1, chunk)...)
	}

	lines := []string{
		"CRITICAL: You must use the exact Citation ID from each result, NOT numbers like [1], [2], [3].",
		"Look at each result and find the line that says 'Citation ID: ...' - use that exact text in brackets.",
		"",
		c.systemPrompt(query),
		"",
		"Context: " + strings.Join(parts, "\n"),
		"",
		"REMINDER: Use [Citation_ID] format with the exact Citation ID from each result. Never use numbers.",
		"Instructions: Follow the rules above strictly. Output only the answer text with inline citations using Citation IDs.",
	}

	payload := &domain.ContextPayload{
		Query:         query.SearchText,
		Text:          strings.Join(lines, "\n"),
		TotalRelevant: len(relevant),
		Shown:         len(top),
	}
	if c.settings.EnableSourceEmission {
		payload.Sources = c.Sources(top)
	}
	return payload
}

// Sources lists name, link and a short excerpt for each chunk
func (c *Curator) Sources(chunks []*domain.ResultChunk) []domain.Source {
	sources := make([]domain.Source, 0, len(chunks))
	for _, chunk := range chunks {
		sources = append(sources, domain.Source{
			Name:    chunk.Metadata.CitationID(),
			URL:     c.fileLink(chunk.Metadata.FileID()),
			Content: Truncate(strings.TrimSpace(chunk.Text), domain.SourceContentMaxChars),
		})
	}
	return sources
}

func (c *Curator) renderChunk(idx int, chunk *domain.ResultChunk) []string {
	fileID := chunk.Metadata.FileID()

	header := fmt.Sprintf("[%d] Citation ID: %s", idx, chunk.Metadata.CitationID())
	if fileID != "" {
		header += " | Nextcloud File ID: " + fileID
		header += " | Link: " + c.fileLink(fileID)
	}
	if chunk.Score != nil {
		header += fmt.Sprintf(" | Relevance: %.3f", *chunk.Score)
	}

	lines := []string{header}
	if c.settings.IncludeMetadata {
		if meta := c.metadataLine(chunk); meta != "" {
			lines = append(lines, "Metadata: "+meta)
		}
	}
	return append(lines,
		"Content:",
		Truncate(strings.TrimSpace(chunk.Text), c.settings.MaxCharsPerChunk),
		strings.Repeat("-", blockSeparatorLen),
	)
}

func (c *Curator) metadataLine(chunk *domain.ResultChunk) string {
	var entries []string
	if filename := chunk.Metadata.Filename(); filename != "" {
		entries = append(entries, "filename: "+filename)
	}

	switch {
	case chunk.DocumentID != "":
		entries = append(entries, "document_id: "+chunk.DocumentID)
	case chunk.Metadata.HasValue("document_id"):
		entries = append(entries, chunk.Metadata.Format("document_id"))
	}

	aux := 0
	for _, k := range auxMetadataKeys {
		if aux == maxAuxMetadata {
			break
		}
		present := chunk.Metadata.HasKey(k.key)
		if k.truthy {
			present = chunk.Metadata.HasValue(k.key)
		}
		if present {
			entries = append(entries, chunk.Metadata.Format(k.key))
			aux++
		}
	}
	return strings.Join(entries, ", ")
}

func (c *Curator) fileLink(fileID string) string {
	if fileID == "" {
		return ""
	}
	return c.settings.BaseURL() + "/f/" + fileID
}

func (c *Curator) systemPrompt(query domain.ParsedQuery) string {
	prompt := c.settings.SystemPrompt
	if strings.TrimSpace(prompt) == "" {
		prompt = defaultSystemPrompt(c.settings.BaseURL())
	}
	if !query.HasInstructions() {
		return prompt
	}
	return prompt + "\n\n## ADDITIONAL USER INSTRUCTIONS:\n" + query.Instructions + "\n"
}

func defaultSystemPrompt(base string) string {
	return "## CRITICAL CITATION RULES - MUST FOLLOW EXACTLY:\n" +
		"You MUST cite using the exact Citation ID shown for each result, NOT numbers.\n" +
		"WRONG: [1], [2], [3], [4] - NEVER use numbers in citations\n" +
		"CORRECT: Use the exact Citation ID after 'Citation ID:' in each result\n\n" +
		"## HYPERLINK GENERATION:\n" +
		"After each citation, provide a hyperlink to the Nextcloud document:\n" +
		"1. Find the 'filename' field in the metadata (e.g., 'filename: files__default:8060008')\n" +
		"2. Extract the number after 'files__default:' (e.g., '8060008')\n" +
		"3. Create link as: [" + base + "/f/NUMBER]\n" +
		"Example: If metadata shows 'filename: files__default:8060008', create link [" + base + "/f/8060008]\n\n" +
		"## CITATION FORMAT:\n" +
		"Each citation should be: [Citation_ID][" + base + "/f/FILE_ID]\n" +
		"Example: [Document Title][" + base + "/f/8060008]\n\n" +
		"## Task: Answer the query strictly using the provided Context. If the Context does not support an answer, say you don't know.\n" +
		"## Grounding: Use only the provided Context. If the Context does not support an answer, reply exactly: I don't know.\n" +
		"## Citations: After every sentence that uses the Context, append citations with hyperlinks as shown above.\n" +
		"## Formatting: Begin directly with the answer text. No preface, no 'Response:', no lists unless the query demands it. Keep prose concise and factual."
}

// Truncate shortens s to at most n characters, replacing the tail with an
// ellipsis when anything is cut.
func Truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n <= len(ellipsis) {
		return string(runes[:max(n, 0)])
	}
	return string(runes[:n-len(ellipsis)]) + ellipsis
}
