package r2r

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/custodia-labs/sercha-r2r/internal/core/domain"
)

const testGUID = "6F9619FF-8B86-D011-B42D-00C04FC964FF"

func newTestCollections(t *testing.T, handler http.HandlerFunc) *Collections {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := DefaultConfig(server.URL+"/v3/retrieval/search", server.URL+"/v3/collections/", "token-123")
	cfg.DefaultOwnerID = "owner-1"
	return NewCollections(cfg)
}

func TestCollections_LookupCollection_Found(t *testing.T) {
	c := newTestCollections(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		if r.URL.Path != "/v3/collections/"+testGUID {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("owner_id") != "owner-1" {
			t.Errorf("expected owner_id owner-1, got %s", r.URL.Query().Get("owner_id"))
		}
		if r.Header.Get("Authorization") != "Bearer token-123" {
			t.Errorf("unexpected auth header %q", r.Header.Get("Authorization"))
		}
		_, _ = w.Write([]byte(`{"results":{"id":"col-42","name":"alice"}}`))
	})

	got := c.LookupCollection(context.Background(), testGUID)
	if !got.Found() {
		t.Fatalf("expected found, got %s (%v)", got.Status, got.Err)
	}
	if got.ScopeID != "col-42" {
		t.Errorf("expected col-42, got %s", got.ScopeID)
	}
}

func TestCollections_LookupCollection_Statuses(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   domain.LookupStatus
	}{
		{"not found", http.StatusNotFound, `{"detail":"missing"}`, domain.LookupNotFound},
		{"server error", http.StatusInternalServerError, `oops`, domain.LookupTransportError},
		{"unauthorized", http.StatusUnauthorized, ``, domain.LookupTransportError},
		{"missing id", http.StatusOK, `{"results":{}}`, domain.LookupNotFound},
		{"blank id", http.StatusOK, `{"results":{"id":"  "}}`, domain.LookupNotFound},
		{"invalid json", http.StatusOK, `{`, domain.LookupTransportError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestCollections(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			got := c.LookupCollection(context.Background(), testGUID)
			if got.Status != tt.want {
				t.Errorf("expected %s, got %s (%v)", tt.want, got.Status, got.Err)
			}
			if got.ScopeID != "" {
				t.Errorf("expected no scope, got %s", got.ScopeID)
			}
		})
	}
}

func TestCollections_LookupCollection_TransportFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	c := NewCollections(DefaultConfig("", url+"/v3/collections", "token"))
	got := c.LookupCollection(context.Background(), testGUID)
	if got.Status != domain.LookupTransportError {
		t.Errorf("expected transport_error, got %s", got.Status)
	}
	if got.Err == nil {
		t.Error("expected cause to be recorded")
	}
}

func TestCollections_LookupCollection_Misconfigured(t *testing.T) {
	if got := NewCollections(Config{BearerToken: "t"}).LookupCollection(context.Background(), testGUID); got.Status != domain.LookupConfigError {
		t.Errorf("expected config_error without URL, got %s", got.Status)
	}
	if got := NewCollections(Config{CollectionsURL: "http://r2r"}).LookupCollection(context.Background(), testGUID); got.Status != domain.LookupConfigError {
		t.Errorf("expected config_error without token, got %s", got.Status)
	}
	if got := NewCollections(Config{}).LookupCollection(context.Background(), ""); got.Status != domain.LookupNotFound {
		t.Errorf("expected not_found for empty GUID, got %s", got.Status)
	}
}

func TestCollections_DefaultOwner(t *testing.T) {
	c := NewCollections(Config{CollectionsURL: "http://r2r/v3/collections"})
	want := "http://r2r/v3/collections/" + testGUID + "?owner_id=" + DefaultOwnerID
	if got := c.lookupURL(testGUID); got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
}
