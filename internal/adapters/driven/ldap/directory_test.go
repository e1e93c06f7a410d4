package ldap

import (
	"context"
	"errors"
	"testing"
	"time"

	goldap "github.com/go-ldap/ldap/v3"

	"github.com/custodia-labs/sercha-r2r/internal/core/domain"
)

// fakeConn records calls and returns canned responses
type fakeConn struct {
	bindErr   error
	searchErr error
	entries   []*goldap.Entry

	bindUser string
	requests []*goldap.SearchRequest
	timeout  time.Duration
	unbinds  int
}

func (c *fakeConn) Bind(username, password string) error {
	c.bindUser = username
	return c.bindErr
}

func (c *fakeConn) Search(req *goldap.SearchRequest) (*goldap.SearchResult, error) {
	c.requests = append(c.requests, req)
	if c.searchErr != nil {
		return nil, c.searchErr
	}
	return &goldap.SearchResult{Entries: c.entries}, nil
}

func (c *fakeConn) Unbind() error {
	c.unbinds++
	return nil
}

func (c *fakeConn) SetTimeout(timeout time.Duration) {
	c.timeout = timeout
}

func newTestDirectory(conn *fakeConn, dialErr error) (*Directory, *int) {
	dials := 0
	d := NewDirectory(Config{
		ServerURI:    "ldap://dc.example.com:389",
		BindUser:     "cn=svc,dc=example,dc=com",
		BindPassword: "secret",
		SearchBase:   "dc=example,dc=com",
		Dial: func(ctx context.Context, uri string, timeout time.Duration) (Conn, error) {
			dials++
			if dialErr != nil {
				return nil, dialErr
			}
			return conn, nil
		},
	})
	return d, &dials
}

func userEntry(guid string) *goldap.Entry {
	return goldap.NewEntry("cn=Alice,dc=example,dc=com", map[string][]string{
		"objectGUID": {guid},
		"mail":       {"alice@example.com"},
	})
}

func TestDirectory_LookupGUID_Found(t *testing.T) {
	conn := &fakeConn{entries: []*goldap.Entry{
		userEntry("{6f9619ff-8b86-d011-b42d-00c04fc964ff}"),
		userEntry("11111111-2222-3333-4444-555555555555"),
	}}
	d, _ := newTestDirectory(conn, nil)

	got := d.LookupGUID(context.Background(), "alice@example.com")

	if !got.Found() {
		t.Fatalf("expected found, got %s (%v)", got.Status, got.Err)
	}
	if got.GUID != "6F9619FF-8B86-D011-B42D-00C04FC964FF" {
		t.Errorf("expected first entry GUID, got %s", got.GUID)
	}
	if conn.bindUser != "cn=svc,dc=example,dc=com" {
		t.Errorf("expected service bind, got %q", conn.bindUser)
	}
	if conn.timeout != DefaultTimeout {
		t.Errorf("expected default timeout, got %v", conn.timeout)
	}
	if conn.unbinds != 1 {
		t.Errorf("expected connection released once, got %d", conn.unbinds)
	}

	req := conn.requests[0]
	if req.BaseDN != "dc=example,dc=com" {
		t.Errorf("unexpected base DN %s", req.BaseDN)
	}
	if req.Scope != goldap.ScopeWholeSubtree {
		t.Errorf("expected subtree scope, got %d", req.Scope)
	}
	if req.Filter != "(mail=alice@example.com)" {
		t.Errorf("unexpected filter %s", req.Filter)
	}
	if req.Attributes[0] != "objectGUID" {
		t.Errorf("expected GUID attribute requested first, got %v", req.Attributes)
	}
}

func TestDirectory_LookupGUID_BinaryAttribute(t *testing.T) {
	raw := []byte{0x6f, 0x96, 0x19, 0xff, 0x8b, 0x86, 0xd0, 0x11, 0xb4, 0x2d, 0x00, 0xc0, 0x4f, 0xc9, 0x64, 0xff}
	entry := &goldap.Entry{
		DN: "cn=Alice,dc=example,dc=com",
		Attributes: []*goldap.EntryAttribute{
			{Name: "objectGUID", Values: []string{string(raw)}, ByteValues: [][]byte{raw}},
		},
	}
	d, _ := newTestDirectory(&fakeConn{entries: []*goldap.Entry{entry}}, nil)

	got := d.LookupGUID(context.Background(), "alice@example.com")
	if got.GUID != "6F9619FF-8B86-D011-B42D-00C04FC964FF" {
		t.Errorf("expected binary GUID decoded, got %q (%s)", got.GUID, got.Status)
	}
}

func TestDirectory_LookupGUID_Statuses(t *testing.T) {
	tests := []struct {
		name    string
		conn    *fakeConn
		dialErr error
		want    domain.LookupStatus
		unbinds int
	}{
		{
			name:    "no entries",
			conn:    &fakeConn{},
			want:    domain.LookupNotFound,
			unbinds: 1,
		},
		{
			name:    "unparseable GUID",
			conn:    &fakeConn{entries: []*goldap.Entry{userEntry("nope")}},
			want:    domain.LookupNotFound,
			unbinds: 1,
		},
		{
			name:    "dial failure",
			dialErr: errors.New("connection refused"),
			want:    domain.LookupTransportError,
		},
		{
			name:    "bad service credentials",
			conn:    &fakeConn{bindErr: goldap.NewError(goldap.LDAPResultInvalidCredentials, errors.New("invalid credentials"))},
			want:    domain.LookupConfigError,
			unbinds: 1,
		},
		{
			name:    "bind timeout",
			conn:    &fakeConn{bindErr: goldap.NewError(goldap.ErrorNetwork, errors.New("timeout"))},
			want:    domain.LookupTransportError,
			unbinds: 1,
		},
		{
			name:    "missing search base",
			conn:    &fakeConn{searchErr: goldap.NewError(goldap.LDAPResultNoSuchObject, errors.New("no such object"))},
			want:    domain.LookupConfigError,
			unbinds: 1,
		},
		{
			name:    "search failure",
			conn:    &fakeConn{searchErr: errors.New("connection reset")},
			want:    domain.LookupTransportError,
			unbinds: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, _ := newTestDirectory(tt.conn, tt.dialErr)
			got := d.LookupGUID(context.Background(), "alice@example.com")

			if got.Status != tt.want {
				t.Errorf("expected status %s, got %s (%v)", tt.want, got.Status, got.Err)
			}
			if got.GUID != "" {
				t.Errorf("expected no GUID, got %s", got.GUID)
			}
			if tt.conn != nil && tt.conn.unbinds != tt.unbinds {
				t.Errorf("expected %d unbinds, got %d", tt.unbinds, tt.conn.unbinds)
			}
		})
	}
}

func TestDirectory_LookupGUID_NoDialWithoutInput(t *testing.T) {
	d, dials := newTestDirectory(&fakeConn{}, nil)
	if got := d.LookupGUID(context.Background(), "  "); got.Status != domain.LookupNotFound {
		t.Errorf("expected not_found for empty email, got %s", got.Status)
	}

	unconfigured := NewDirectory(Config{ServerURI: "ldap://dc", Dial: d.dial})
	if got := unconfigured.LookupGUID(context.Background(), "alice@example.com"); got.Status != domain.LookupConfigError {
		t.Errorf("expected config_error without search base, got %s", got.Status)
	}

	if *dials != 0 {
		t.Errorf("expected no dials, got %d", *dials)
	}
}

func TestDirectory_LookupGUID_CancelledContext(t *testing.T) {
	d, dials := newTestDirectory(&fakeConn{}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if got := d.LookupGUID(ctx, "alice@example.com"); got.Status != domain.LookupTransportError {
		t.Errorf("expected transport_error, got %s", got.Status)
	}
	if *dials != 0 {
		t.Errorf("expected no dials, got %d", *dials)
	}
}

func TestDirectory_Filter_EscapesEmail(t *testing.T) {
	d := NewDirectory(Config{UserFilter: "(&(objectClass=user)(mail={email}))"})

	got := d.Filter("a*)(uid=*")
	want := `(&(objectClass=user)(mail=a\2a\29\28uid=\2a))`
	if got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
}

func TestNewDirectory_Defaults(t *testing.T) {
	d := NewDirectory(Config{})
	if d.cfg.UserFilter != DefaultUserFilter {
		t.Errorf("expected default filter, got %s", d.cfg.UserFilter)
	}
	if d.cfg.GUIDAttribute != DefaultGUIDAttribute {
		t.Errorf("expected default attribute, got %s", d.cfg.GUIDAttribute)
	}
	if d.cfg.Timeout != DefaultTimeout {
		t.Errorf("expected default timeout, got %v", d.cfg.Timeout)
	}
}
