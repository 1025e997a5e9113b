package shared

import (
	"crypto/subtle"
	"encoding/base64"
	"strings"
)

// Credentials are the static username/password pair the API accepts.
type Credentials struct {
	Username string
	Password string
}

// Match reports whether user and pass equal the configured pair. Both halves
// are always compared so the result does not depend on which one differs.
func (c Credentials) Match(user, pass string) bool {
	u := subtle.ConstantTimeCompare([]byte(user), []byte(c.Username))
	p := subtle.ConstantTimeCompare([]byte(pass), []byte(c.Password))
	return u&p == 1
}

// MatchHeader checks a raw Authorization header value.
func (c Credentials) MatchHeader(header string) bool {
	user, pass, ok := ParseBasic(header)
	if !ok {
		return false
	}
	return c.Match(user, pass)
}

// BasicHeader encodes user:pass as an Authorization header value.
func BasicHeader(user, pass string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(user+":"+pass))
}

func ParseBasic(header string) (user, pass string, ok bool) {
	const prefix = "Basic "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", "", false
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(header[len(prefix):]))
	if err != nil {
		return "", "", false
	}
	user, pass, ok = strings.Cut(string(raw), ":")
	return user, pass, ok
}
