package domain

import "strings"

// Identity is the caller on whose behalf a query runs.
// It is always passed explicitly at the entry boundary.
type Identity struct {
	Email  string `json:"email"`
	UserID string `json:"user_id,omitempty"`
	Name   string `json:"name,omitempty"`
}

// HasUsableEmail reports whether the identity carries an email that can be
// looked up in the directory
func (i *Identity) HasUsableEmail() bool {
	if i == nil {
		return false
	}
	return strings.Contains(strings.TrimSpace(i.Email), "@")
}

// NormalizedEmail returns the trimmed email
func (i *Identity) NormalizedEmail() string {
	if i == nil {
		return ""
	}
	return strings.TrimSpace(i.Email)
}

// LookupStatus tags the result of an identity or collection lookup.
// Every status other than LookupFound is shown to users as access denied;
// the distinction only exists for operators.
type LookupStatus string

const (
	LookupFound          LookupStatus = "found"
	LookupNotFound       LookupStatus = "not_found"
	LookupTransportError LookupStatus = "transport_error"
	LookupConfigError    LookupStatus = "config_error"
)

// GUIDLookup is the outcome of resolving an email to a directory GUID
type GUIDLookup struct {
	GUID   string       // Canonical uppercase UUID, set only when Status is LookupFound
	Status LookupStatus
	Err    error // Cause for transport and config errors
}

// Found reports whether a GUID was resolved
func (l GUIDLookup) Found() bool {
	return l.Status == LookupFound && l.GUID != ""
}

// CollectionLookup is the outcome of resolving a GUID to a collection scope
type CollectionLookup struct {
	ScopeID string
	Status  LookupStatus
	Err     error
}

// Found reports whether a scope was resolved
func (l CollectionLookup) Found() bool {
	return l.Status == LookupFound && l.ScopeID != ""
}

// ScopeResolution records both lookups made for one request
type ScopeResolution struct {
	Email      string
	GUID       GUIDLookup
	Collection CollectionLookup
}

// ScopeID returns the resolved collection scope, or "" when none was found
func (r *ScopeResolution) ScopeID() string {
	if r == nil || !r.GUID.Found() || !r.Collection.Found() {
		return ""
	}
	return r.Collection.ScopeID
}
