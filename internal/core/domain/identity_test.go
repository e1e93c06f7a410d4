package domain

import "testing"

func TestIdentity_HasUsableEmail(t *testing.T) {
	var nilIdentity *Identity
	if nilIdentity.HasUsableEmail() {
		t.Error("nil identity must not be usable")
	}
	if (&Identity{Email: "  "}).HasUsableEmail() {
		t.Error("blank email must not be usable")
	}
	if (&Identity{Email: "alice"}).HasUsableEmail() {
		t.Error("email without @ must not be usable")
	}
	if !(&Identity{Email: " alice@example.com "}).HasUsableEmail() {
		t.Error("expected padded email to be usable")
	}
	if got := (&Identity{Email: " alice@example.com "}).NormalizedEmail(); got != "alice@example.com" {
		t.Errorf("expected trimmed email, got %q", got)
	}
}

func TestScopeResolution_ScopeID(t *testing.T) {
	tests := []struct {
		name string
		res  *ScopeResolution
		want string
	}{
		{"nil", nil, ""},
		{"guid not found", &ScopeResolution{GUID: GUIDLookup{Status: LookupNotFound}}, ""},
		{
			"collection transport error",
			&ScopeResolution{
				GUID:       GUIDLookup{GUID: "G", Status: LookupFound},
				Collection: CollectionLookup{Status: LookupTransportError},
			},
			"",
		},
		{
			"found",
			&ScopeResolution{
				GUID:       GUIDLookup{GUID: "G", Status: LookupFound},
				Collection: CollectionLookup{ScopeID: "col-1", Status: LookupFound},
			},
			"col-1",
		},
		{
			"found with empty id",
			&ScopeResolution{
				GUID:       GUIDLookup{GUID: "G", Status: LookupFound},
				Collection: CollectionLookup{Status: LookupFound},
			},
			"",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.res.ScopeID(); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestParsedQuery(t *testing.T) {
	if (ParsedQuery{SearchText: " ab "}).IsSearchable() {
		t.Error("two characters must not be searchable")
	}
	if !(ParsedQuery{SearchText: "abc"}).IsSearchable() {
		t.Error("three characters must be searchable")
	}
	if (ParsedQuery{Instructions: "  "}).HasInstructions() {
		t.Error("blank instructions must count as none")
	}
}

func TestOutcomeKind_IsError(t *testing.T) {
	informational := []OutcomeKind{OutcomeSuccess, OutcomeEmptyResult, OutcomeNoRelevantResult}
	for _, k := range informational {
		if k.IsError() {
			t.Errorf("%s should not be an error", k)
		}
	}
	failures := []OutcomeKind{
		OutcomeInputError, OutcomeConfigError, OutcomeAccessDenied,
		OutcomePermissionCheckFailed, OutcomeSearchError, OutcomeSystemError,
	}
	for _, k := range failures {
		if !k.IsError() {
			t.Errorf("%s should be an error", k)
		}
	}
}

func TestHealthStatus_Summary(t *testing.T) {
	tests := []struct {
		status HealthStatus
		want   string
	}{
		{HealthStatus{}, "No bearer token configured"},
		{HealthStatus{TokenConfigured: true}, "No API URL configured"},
		{
			HealthStatus{Ready: true, TokenConfigured: true, SearchURLSet: true, RetrievalStatus: "connected"},
			"R2R context ready | API: connected | Token: ok",
		},
		{
			HealthStatus{TokenConfigured: true, SearchURLSet: true, RetrievalStatus: "unreachable"},
			"R2R context degraded | API: unreachable | Token: ok",
		},
	}

	for _, tt := range tests {
		if got := tt.status.Summary(); got != tt.want {
			t.Errorf("expected %q, got %q", tt.want, got)
		}
	}
}
