package probe

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

var (
	ErrEmptyToken     = errors.New("empty session token")
	ErrMalformedToken = errors.New("malformed session token")
)

// Cookie is one normalized session cookie. Empty Domain means the probe
// target host.
type Cookie struct {
	Name     string
	Value    string
	Domain   string
	Path     string
	Secure   bool
	HTTPOnly bool
}

// Normalize turns a stored session token into cookies. Accepted forms:
//
//	[{"name":"sid","value":"x","domain":".example.com"}]
//	{"cookies":[{"name":"sid","value":"x"}]}
//	sid=x; theme=dark
func Normalize(token string) ([]Cookie, error) {
	t := strings.TrimSpace(token)
	if t == "" {
		return nil, ErrEmptyToken
	}
	if gjson.Valid(t) {
		return fromJSON(gjson.Parse(t))
	}
	return fromHeader(t)
}

func fromJSON(doc gjson.Result) ([]Cookie, error) {
	list := doc
	if doc.IsObject() {
		list = doc.Get("cookies")
	}
	if !list.IsArray() {
		return nil, fmt.Errorf("%w: expected a cookie list", ErrMalformedToken)
	}

	var out []Cookie
	for i, c := range list.Array() {
		name := c.Get("name").String()
		if name == "" {
			return nil, fmt.Errorf("%w: cookie %d has no name", ErrMalformedToken, i)
		}
		path := c.Get("path").String()
		if path == "" {
			path = "/"
		}
		out = append(out, Cookie{
			Name:     name,
			Value:    c.Get("value").String(),
			Domain:   c.Get("domain").String(),
			Path:     path,
			Secure:   c.Get("secure").Bool(),
			HTTPOnly: c.Get("httpOnly").Bool(),
		})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no cookies", ErrMalformedToken)
	}
	return out, nil
}

func fromHeader(s string) ([]Cookie, error) {
	var out []Cookie
	for _, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, value, ok := strings.Cut(part, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("%w: %q is not name=value", ErrMalformedToken, part)
		}
		out = append(out, Cookie{Name: name, Value: strings.TrimSpace(value), Path: "/"})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no cookies", ErrMalformedToken)
	}
	return out, nil
}
