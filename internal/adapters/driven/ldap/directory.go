package ldap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	goldap "github.com/go-ldap/ldap/v3"

	"github.com/custodia-labs/sercha-r2r/internal/core/domain"
	"github.com/custodia-labs/sercha-r2r/internal/core/ports/driven"
)

// Ensure Directory implements DirectoryLookup
var _ driven.DirectoryLookup = (*Directory)(nil)

const (
	// DefaultUserFilter matches a user entry by mail address
	DefaultUserFilter = "(mail={email})"
	// DefaultGUIDAttribute is the Active Directory object GUID
	DefaultGUIDAttribute = "objectGUID"
	// DefaultTimeout bounds dial, bind and search
	DefaultTimeout = 10 * time.Second

	emailPlaceholder = "{email}"
)

// Conn is the subset of *ldap.Conn used for a lookup
type Conn interface {
	Bind(username, password string) error
	Search(req *goldap.SearchRequest) (*goldap.SearchResult, error)
	Unbind() error
	SetTimeout(timeout time.Duration)
}

// DialFunc opens a directory connection
type DialFunc func(ctx context.Context, uri string, timeout time.Duration) (Conn, error)

// Config holds directory connection settings.
type Config struct {
	ServerURI     string
	BindUser      string
	BindPassword  string
	SearchBase    string
	UserFilter    string // Must contain {email}
	GUIDAttribute string
	Timeout       time.Duration
	Logger        *slog.Logger

	// Dial overrides how connections are opened. Nil uses ldap.DialURL.
	Dial DialFunc
}

// Directory resolves caller emails to directory GUIDs over LDAP.
// Every lookup opens its own connection and releases it before returning.
type Directory struct {
	cfg    Config
	dial   DialFunc
	logger *slog.Logger
}

// NewDirectory creates a new LDAP directory lookup
func NewDirectory(cfg Config) *Directory {
	if cfg.UserFilter == "" {
		cfg.UserFilter = DefaultUserFilter
	}
	if cfg.GUIDAttribute == "" {
		cfg.GUIDAttribute = DefaultGUIDAttribute
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	dial := cfg.Dial
	if dial == nil {
		dial = dialURL
	}

	return &Directory{cfg: cfg, dial: dial, logger: logger}
}

func dialURL(ctx context.Context, uri string, timeout time.Duration) (Conn, error) {
	conn, err := goldap.DialURL(uri, goldap.DialWithDialer(&net.Dialer{Timeout: timeout}))
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// LookupGUID finds the GUID of the directory entry whose filter matches email
func (d *Directory) LookupGUID(ctx context.Context, email string) domain.GUIDLookup {
	email = strings.TrimSpace(email)
	if email == "" {
		return domain.GUIDLookup{Status: domain.LookupNotFound}
	}
	if d.cfg.ServerURI == "" || d.cfg.SearchBase == "" {
		return configError(errors.New("directory server URI and search base are required"))
	}
	if err := ctx.Err(); err != nil {
		return transportError(err)
	}

	conn, err := d.dial(ctx, d.cfg.ServerURI, d.cfg.Timeout)
	if err != nil {
		d.logger.Warn("directory dial failed", "uri", d.cfg.ServerURI, "error", err)
		return transportError(fmt.Errorf("dial %s: %w", d.cfg.ServerURI, err))
	}
	defer func() {
		if err := conn.Unbind(); err != nil {
			d.logger.Debug("directory unbind failed", "error", err)
		}
	}()
	conn.SetTimeout(d.cfg.Timeout)

	if d.cfg.BindUser != "" {
		if err := conn.Bind(d.cfg.BindUser, d.cfg.BindPassword); err != nil {
			if goldap.IsErrorWithCode(err, goldap.LDAPResultInvalidCredentials) {
				d.logger.Warn("directory bind rejected service credentials", "bind_user", d.cfg.BindUser)
				return configError(fmt.Errorf("bind: %w", err))
			}
			d.logger.Warn("directory bind failed", "bind_user", d.cfg.BindUser, "error", err)
			return transportError(fmt.Errorf("bind: %w", err))
		}
	}

	req := goldap.NewSearchRequest(
		d.cfg.SearchBase,
		goldap.ScopeWholeSubtree,
		goldap.NeverDerefAliases,
		0, 0, false,
		d.Filter(email),
		[]string{d.cfg.GUIDAttribute, "mail", "userPrincipalName", "cn"},
		nil,
	)

	res, err := conn.Search(req)
	if err != nil {
		if goldap.IsErrorWithCode(err, goldap.LDAPResultNoSuchObject) {
			d.logger.Warn("directory search base does not exist", "search_base", d.cfg.SearchBase)
			return configError(fmt.Errorf("search: %w", err))
		}
		d.logger.Warn("directory search failed", "email", email, "error", err)
		return transportError(fmt.Errorf("search: %w", err))
	}
	if len(res.Entries) == 0 {
		return domain.GUIDLookup{Status: domain.LookupNotFound}
	}

	entry := res.Entries[0]
	guid, ok := NormalizeGUID(entry.GetRawAttributeValues(d.cfg.GUIDAttribute))
	if !ok {
		d.logger.Info("directory entry has no usable GUID", "dn", entry.DN, "attribute", d.cfg.GUIDAttribute)
		return domain.GUIDLookup{
			Status: domain.LookupNotFound,
			Err:    fmt.Errorf("%w: attribute %s on %s", domain.ErrNotFound, d.cfg.GUIDAttribute, entry.DN),
		}
	}

	return domain.GUIDLookup{GUID: guid, Status: domain.LookupFound}
}

// Filter renders the user filter for email with LDAP escaping applied
func (d *Directory) Filter(email string) string {
	return strings.ReplaceAll(d.cfg.UserFilter, emailPlaceholder, goldap.EscapeFilter(email))
}

func transportError(err error) domain.GUIDLookup {
	return domain.GUIDLookup{Status: domain.LookupTransportError, Err: err}
}

func configError(err error) domain.GUIDLookup {
	return domain.GUIDLookup{Status: domain.LookupConfigError, Err: err}
}
