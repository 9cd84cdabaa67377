// Package dsn parses postgres connection strings of the form
// postgres://[user[:pass]@][host[:port]][/dbname].
package dsn

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

const Scheme = "postgres"

const (
	ReasonMissing           = "missing DSN"
	ReasonMalformed         = "malformed DSN"
	ReasonUnsupportedScheme = "unsupported scheme"
)

// ConfigurationError reports a DSN that cannot be used to reach the database.
type ConfigurationError struct {
	Reason string
	Scheme string // set for ReasonUnsupportedScheme
}

func (e *ConfigurationError) Error() string {
	if e.Reason == ReasonUnsupportedScheme && e.Scheme != "" {
		return fmt.Sprintf("%s %q: only %s is supported", e.Reason, e.Scheme, Scheme)
	}
	return e.Reason
}

// Credentials is the structured form of a DSN. Empty fields were absent.
type Credentials struct {
	Scheme   string
	Username string
	Password string
	Host     string
	Port     string
	Database string
}

var pattern = regexp.MustCompile(`^(?P<scheme>[\w+]+)://` +
	`(?:(?P<username>[^:/]*)(?::(?P<password>[^/]*))?@)?` +
	`(?:(?P<host>[^/:]*)(?::(?P<port>[^/]*))?)?` +
	`(?:/(?P<database>.*))?`)

// Parse splits a DSN into its components. Only the password is
// percent-decoded; the other components are taken literally.
func Parse(s string) (Credentials, error) {
	if s == "" {
		return Credentials{}, &ConfigurationError{Reason: ReasonMissing}
	}

	m := pattern.FindStringSubmatch(s)
	if m == nil {
		return Credentials{}, &ConfigurationError{Reason: ReasonMalformed}
	}
	group := func(name string) string {
		return m[pattern.SubexpIndex(name)]
	}

	creds := Credentials{
		Scheme:   group("scheme"),
		Username: group("username"),
		Host:     group("host"),
		Port:     group("port"),
		Database: group("database"),
	}
	if creds.Scheme != Scheme {
		return Credentials{}, &ConfigurationError{Reason: ReasonUnsupportedScheme, Scheme: creds.Scheme}
	}

	creds.Password = unescape(group("password"))

	return creds, nil
}

// unescape decodes '+' and valid %XX escapes. Invalid escapes are kept
// literally.
func unescape(s string) string {
	if decoded, err := url.QueryUnescape(s); err == nil {
		return decoded
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '+':
			b.WriteByte(' ')
		case c == '%' && i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2]):
			b.WriteByte(unhex(s[i+1])<<4 | unhex(s[i+2]))
			i += 2
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func isHex(c byte) bool {
	return '0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F'
}

func unhex(c byte) byte {
	switch {
	case c <= '9':
		return c - '0'
	case c <= 'F':
		return c - 'A' + 10
	default:
		return c - 'a' + 10
	}
}

// URL renders the credentials back into a connection URL understood by
// pgx and golang-migrate. Query parameters are appended as given.
func (c Credentials) URL(query url.Values) *url.URL {
	u := &url.URL{
		Scheme: Scheme,
		Host:   c.Host,
	}
	if c.Port != "" {
		u.Host = c.Host + ":" + c.Port
	}
	if c.Username != "" || c.Password != "" {
		if c.Password != "" {
			u.User = url.UserPassword(c.Username, c.Password)
		} else {
			u.User = url.User(c.Username)
		}
	}
	if c.Database != "" {
		u.Path = "/" + c.Database
	} else if u.Host == "" && u.User == nil {
		// without the slash this renders as "postgres:", which is not read as a URL
		u.Path = "/"
	}
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u
}
