package session

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dunglas/httpsfv"
)

// HeaderName carries the session to the storefront server.
// Format: token="abc123", user="alice" (RFC 8941 Dictionary).
const HeaderName = "Storefront-Session"

// ParseHeader extracts a Session from a Storefront-Session header value.
//
// Examples:
//   - token="abc"               → Session{Token: "abc"}
//   - token="abc", user="alice" → Session{Token: "abc", Username: "alice"}
//   - token="abc";v=1           → Session{Token: "abc"} (params ignored)
//
// Returns error if header is empty, malformed, or missing the token key.
func ParseHeader(header string) (Session, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return Session{}, errors.New("empty session header")
	}

	dict, err := httpsfv.UnmarshalDictionary([]string{header})
	if err != nil {
		return Session{}, fmt.Errorf("invalid session header: %w", err)
	}

	token, err := stringMember(dict, "token")
	if err != nil {
		return Session{}, err
	}
	if token == "" {
		return Session{}, errors.New("token must not be empty")
	}

	s := Session{Token: token}
	if _, ok := dict.Get("user"); ok {
		if s.Username, err = stringMember(dict, "user"); err != nil {
			return Session{}, err
		}
	}
	return s, nil
}

// FormatHeader serializes s as a Storefront-Session header value.
func FormatHeader(s Session) (string, error) {
	dict := httpsfv.NewDictionary()
	dict.Add("token", httpsfv.NewItem(s.Token))
	if s.Username != "" {
		dict.Add("user", httpsfv.NewItem(s.Username))
	}
	return httpsfv.Marshal(dict)
}

func stringMember(dict *httpsfv.Dictionary, key string) (string, error) {
	member, ok := dict.Get(key)
	if !ok {
		return "", fmt.Errorf("%s key not found in session header", key)
	}

	item, ok := member.(httpsfv.Item)
	if !ok {
		return "", fmt.Errorf("%s value must be an item", key)
	}

	v, ok := item.Value.(string)
	if !ok {
		return "", fmt.Errorf("%s value must be a string", key)
	}
	return v, nil
}
