package services

import (
	"testing"

	"github.com/custodia-labs/sercha-r2r/internal/core/domain"
)

func TestParseInput(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  domain.ParsedQuery
	}{
		{
			name:  "empty",
			input: "",
			want:  domain.ParsedQuery{},
		},
		{
			name:  "whitespace only",
			input: "   \n\t ",
			want:  domain.ParsedQuery{},
		},
		{
			name:  "plain text",
			input: "  quarterly revenue report  ",
			want:  domain.ParsedQuery{SearchText: "quarterly revenue report"},
		},
		{
			name:  "pipe delimiter",
			input: "cats | be concise",
			want:  domain.ParsedQuery{SearchText: "cats", Instructions: "be concise"},
		},
		{
			name:  "pipe splits once",
			input: "cats | be concise | use bullets",
			want:  domain.ParsedQuery{SearchText: "cats", Instructions: "be concise | use bullets"},
		},
		{
			name:  "pipe without spaces is literal",
			input: "cats|dogs",
			want:  domain.ParsedQuery{SearchText: "cats|dogs"},
		},
		{
			name:  "block with search and instructions",
			input: "---\nsearch: \"vacation policy\"\ninstructions: 'answer in German'\n---",
			want:  domain.ParsedQuery{SearchText: "vacation policy", Instructions: "answer in German"},
		},
		{
			name:  "block with search only",
			input: "---\nsearch: travel expenses\n---",
			want:  domain.ParsedQuery{SearchText: "travel expenses"},
		},
		{
			name:  "block first non-empty search wins",
			input: "---\nsearch:\nsearch: first\nsearch: second\n---",
			want:  domain.ParsedQuery{SearchText: "first"},
		},
		{
			name:  "block instructions before search",
			input: "---\ninstructions: be brief\nsearch: onboarding\n---",
			want:  domain.ParsedQuery{SearchText: "onboarding", Instructions: "be brief"},
		},
		{
			name:  "unterminated block falls through",
			input: "---\nsearch: onboarding",
			want:  domain.ParsedQuery{SearchText: "---\nsearch: onboarding"},
		},
		{
			name:  "block without search falls through to pipe",
			input: "---\ninstructions: x\n--- cats | short",
			want:  domain.ParsedQuery{SearchText: "---\ninstructions: x\n--- cats", Instructions: "short"},
		},
		{
			name:  "query and instructions markers",
			input: "Query: security guidelines Instructions: list the top three",
			want:  domain.ParsedQuery{SearchText: "security guidelines", Instructions: "list the top three"},
		},
		{
			name:  "imperative sentence",
			input: "Search for the travel policy. Please summarize it in two sentences",
			want:  domain.ParsedQuery{SearchText: "the travel policy", Instructions: "summarize it in two sentences"},
		},
		{
			name:  "imperative sentence is case insensitive",
			input: "find budget 2024. format as a table",
			want:  domain.ParsedQuery{SearchText: "budget 2024", Instructions: "as a table"},
		},
		{
			name:  "statement with directive",
			input: "Remote work rules. Make sure to cite sources",
			want:  domain.ParsedQuery{SearchText: "Remote work rules", Instructions: "cite sources"},
		},
		{
			name:  "sentence without directive",
			input: "What is the budget. It matters",
			want:  domain.ParsedQuery{SearchText: "What is the budget. It matters"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseInput(tt.input)
			if got != tt.want {
				t.Errorf("ParseInput(%q) = %+v, expected %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseInput_Searchable(t *testing.T) {
	if ParseInput("ab").IsSearchable() {
		t.Error("expected two characters to be unsearchable")
	}
	if ParseInput("ab | explain").IsSearchable() {
		t.Error("expected two character search text to be unsearchable")
	}
	if !ParseInput("abc").IsSearchable() {
		t.Error("expected three characters to be searchable")
	}
}
