package services

import (
	"regexp"
	"strings"

	"github.com/custodia-labs/sercha-r2r/internal/core/domain"
)

const (
	blockMarker       = "---"
	pipeDelimiter     = " | "
	searchKey         = "search:"
	instructionsKey   = "instructions:"
	queryMarker       = "Query:"
	instructionMarker = "Instructions:"
	valueQuotes       = "\"'"
)

// naturalPatterns are tried in order after the literal Query:/Instructions: form
var naturalPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?is)(?:Search for|Find|Look for)\s+(.+?)\.\s*(?:Please|Format|Present|Show)\s+(.+)`),
	regexp.MustCompile(`(?is)(.+?)\.\s*(?:Please|Format|Present|Show|Make sure to)\s+(.+)`),
}

// ParseInput splits raw user text into search text and optional model
// instructions. Recognised forms, in priority order:
//
//	---
//	search: "terms"
//	instructions: "how to answer"
//	---
//
//	terms | how to answer
//
//	Query: terms Instructions: how to answer
//	Find terms. Please answer briefly
//
// Anything else is taken whole as the search text.
func ParseInput(raw string) domain.ParsedQuery {
	input := strings.TrimSpace(raw)
	if input == "" {
		return domain.ParsedQuery{}
	}

	if q, ok := parseBlock(input); ok {
		return q
	}

	if before, after, found := strings.Cut(input, pipeDelimiter); found {
		return domain.ParsedQuery{
			SearchText:   strings.TrimSpace(before),
			Instructions: strings.TrimSpace(after),
		}
	}

	return parseNatural(input)
}

// parseBlock handles the --- delimited key/value form. A block without a
// non-empty search line is not a match.
func parseBlock(input string) (domain.ParsedQuery, bool) {
	if !strings.HasPrefix(input, blockMarker) {
		return domain.ParsedQuery{}, false
	}
	end := strings.Index(input[len(blockMarker):], blockMarker)
	if end < 0 {
		return domain.ParsedQuery{}, false
	}
	body := strings.TrimSpace(input[len(blockMarker) : len(blockMarker)+end])

	var q domain.ParsedQuery
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, searchKey):
			if q.SearchText == "" {
				q.SearchText = blockValue(line[len(searchKey):])
			}
		case strings.HasPrefix(line, instructionsKey):
			q.Instructions = blockValue(line[len(instructionsKey):])
		}
	}

	if q.SearchText == "" {
		return domain.ParsedQuery{}, false
	}
	return q, true
}

func blockValue(v string) string {
	return strings.Trim(strings.TrimSpace(v), valueQuotes)
}

func parseNatural(input string) domain.ParsedQuery {
	queryAt := strings.Index(input, queryMarker)
	instrAt := strings.Index(input, instructionMarker)
	if queryAt >= 0 && instrAt >= 0 && queryAt+len(queryMarker) <= instrAt {
		return domain.ParsedQuery{
			SearchText:   strings.TrimSpace(input[queryAt+len(queryMarker) : instrAt]),
			Instructions: strings.TrimSpace(input[instrAt+len(instructionMarker):]),
		}
	}

	for _, re := range naturalPatterns {
		if m := re.FindStringSubmatch(input); m != nil {
			return domain.ParsedQuery{
				SearchText:   strings.TrimSpace(m[1]),
				Instructions: strings.TrimSpace(m[2]),
			}
		}
	}

	return domain.ParsedQuery{SearchText: input}
}
