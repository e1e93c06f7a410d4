package domain

import "testing"

func TestMetadata_CitationID(t *testing.T) {
	tests := []struct {
		name string
		meta Metadata
		want string
	}{
		{"title wins", Metadata{"title": "Policy", "source": "HR"}, "Policy"},
		{"blank title skipped", Metadata{"title": "  ", "source": "HR"}, "HR"},
		{"non-string skipped", Metadata{"title": 42.0, "filename": "a.pdf"}, "a.pdf"},
		{"document id last", Metadata{"document_id": "doc-1"}, "doc-1"},
		{"nothing usable", Metadata{"page": 3.0}, UnknownCitation},
		{"nil metadata", nil, UnknownCitation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.meta.CitationID(); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestMetadata_FileID(t *testing.T) {
	tests := []struct {
		filename any
		want     string
	}{
		{"files__default:8060008", "8060008"},
		{"prefix/files__default:42", "42"},
		{"files__default:", ""},
		{"files__default:12a", ""},
		{"report.pdf", ""},
		{123.0, ""},
	}

	for _, tt := range tests {
		meta := Metadata{"filename": tt.filename}
		if got := meta.FileID(); got != tt.want {
			t.Errorf("FileID(%v): expected %q, got %q", tt.filename, tt.want, got)
		}
	}
}

func TestMetadata_HasValue(t *testing.T) {
	meta := Metadata{
		"empty":  "",
		"zero":   0.0,
		"false":  false,
		"nil":    nil,
		"list":   []any{},
		"text":   "x",
		"number": 2.0,
		"flag":   true,
	}

	for _, key := range []string{"empty", "zero", "false", "nil", "list", "missing"} {
		if meta.HasValue(key) {
			t.Errorf("expected %s to be falsy", key)
		}
	}
	for _, key := range []string{"text", "number", "flag"} {
		if !meta.HasValue(key) {
			t.Errorf("expected %s to be truthy", key)
		}
	}
	if !meta.HasKey("zero") || meta.HasKey("nil") {
		t.Error("HasKey should report non-nil presence")
	}
}

func TestResultChunk_ScoreOrZero(t *testing.T) {
	score := 0.75
	if got := (&ResultChunk{Score: &score}).ScoreOrZero(); got != 0.75 {
		t.Errorf("expected 0.75, got %v", got)
	}
	if got := (&ResultChunk{}).ScoreOrZero(); got != 0 {
		t.Errorf("expected 0 for absent score, got %v", got)
	}
}

func TestSearchRequest_Scoped(t *testing.T) {
	if (SearchRequest{}).Scoped() {
		t.Error("expected empty scope to be unscoped")
	}
	if !(SearchRequest{ScopeID: "col-1"}).Scoped() {
		t.Error("expected scope to be set")
	}
}
