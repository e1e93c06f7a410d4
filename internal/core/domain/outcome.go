package domain

// OutcomeKind classifies how a pipeline run terminated
type OutcomeKind string

const (
	OutcomeSuccess               OutcomeKind = "success"
	OutcomeInputError            OutcomeKind = "input_error"
	OutcomeConfigError           OutcomeKind = "config_error"
	OutcomeAccessDenied          OutcomeKind = "access_denied"
	OutcomePermissionCheckFailed OutcomeKind = "permission_check_failed"
	OutcomeSearchError           OutcomeKind = "search_error"
	OutcomeEmptyResult           OutcomeKind = "empty_result"       // Informational
	OutcomeNoRelevantResult      OutcomeKind = "no_relevant_result" // Informational
	OutcomeSystemError           OutcomeKind = "system_error"
)

// IsError reports whether the kind is a failure rather than an
// informational or successful end state
func (k OutcomeKind) IsError() bool {
	switch k {
	case OutcomeSuccess, OutcomeEmptyResult, OutcomeNoRelevantResult:
		return false
	}
	return true
}

// DenialReason distinguishes the two access-denied outcomes
type DenialReason string

const (
	DenialNone       DenialReason = ""
	DenialNoIdentity DenialReason = "no_identity"
	DenialNoScope    DenialReason = "no_scope"
)

// Outcome is the user-visible result of one pipeline run
type Outcome struct {
	Kind    OutcomeKind  `json:"outcome"`
	Denial  DenialReason `json:"denial,omitempty"`
	Message string       `json:"message,omitempty"`

	// Payload is set once curation succeeded
	Payload *ContextPayload `json:"context,omitempty"`

	// Response and Stream carry the downstream model reply; at most one is set
	Response *ChatResponse `json:"-"`
	Stream   *ChatStream   `json:"-"`

	// Err is the internal cause, never shown to users
	Err error `json:"-"`
}

// Succeeded reports whether the run produced a payload
func (o *Outcome) Succeeded() bool {
	return o != nil && o.Kind == OutcomeSuccess
}

// HealthStatus summarises whether the pipeline can serve requests
type HealthStatus struct {
	Ready           bool   `json:"ready"`
	TokenConfigured bool   `json:"token_configured"`
	SearchURLSet    bool   `json:"search_url_set"`
	RetrievalStatus string `json:"retrieval_status"`
}

// Summary renders the status as a single line
func (h HealthStatus) Summary() string {
	if !h.TokenConfigured {
		return "No bearer token configured"
	}
	if !h.SearchURLSet {
		return "No API URL configured"
	}
	state := "ready"
	if !h.Ready {
		state = "degraded"
	}
	return "R2R context " + state + " | API: " + h.RetrievalStatus + " | Token: ok"
}
