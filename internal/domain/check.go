package domain

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
)

// CheckScope declares which part of a response a check inspects. Body and
// checksum scoped checks are skipped on 304 responses, which carry no body.
type CheckScope int

const (
	ScopeHeader CheckScope = iota
	ScopeBody
	ScopeChecksum
)

// CheckFunc validates a response against the current session. A nil error
// means the check passed; the returned update, if any, records extracted
// values on the session.
type CheckFunc func(resp *Response, s Session) (SessionUpdate, error)

// Check is one declarative rule in a request's check list.
type Check struct {
	Name  string
	Scope CheckScope
	Fn    CheckFunc
}

// FilterChecks drops body- and checksum-scoped checks when the response is a
// not-modified result.
func FilterChecks(checks []Check, notModified bool) []Check {
	if !notModified {
		return checks
	}
	kept := make([]Check, 0, len(checks))
	for _, c := range checks {
		if c.Scope == ScopeHeader {
			kept = append(kept, c)
		}
	}
	return kept
}

// RunChecks evaluates checks in declared order. The composed update of every
// check up to and including the last passing one is returned; the first
// failure stops evaluation and its message is returned.
func RunChecks(checks []Check, resp *Response, s Session) (SessionUpdate, string) {
	update := SessionUpdate(Identity)
	for _, c := range checks {
		u, err := c.Fn(resp, s)
		if err != nil {
			return update, fmt.Sprintf("%s: %s", c.Name, err.Error())
		}
		if u != nil {
			update = Compose(update, u)
			s = u(s)
		}
	}
	return update, ""
}

// StatusIs asserts the response status code.
func StatusIs(want int) Check {
	return Check{
		Name:  fmt.Sprintf("status.is(%d)", want),
		Scope: ScopeHeader,
		Fn: func(resp *Response, _ Session) (SessionUpdate, error) {
			if resp.StatusCode != want {
				return nil, fmt.Errorf("found %d", resp.StatusCode)
			}
			return nil, nil
		},
	}
}

// HeaderEquals asserts an exact header value.
func HeaderEquals(name, want string) Check {
	return Check{
		Name:  fmt.Sprintf("header(%s).is(%s)", name, want),
		Scope: ScopeHeader,
		Fn: func(resp *Response, _ Session) (SessionUpdate, error) {
			got := resp.Header(name)
			if got != want {
				return nil, fmt.Errorf("found %q", got)
			}
			return nil, nil
		},
	}
}

// HeaderSave stores a header value under key without asserting anything.
func HeaderSave(name, key string) Check {
	return Check{
		Name:  fmt.Sprintf("header(%s).saveAs(%s)", name, key),
		Scope: ScopeHeader,
		Fn: func(resp *Response, _ Session) (SessionUpdate, error) {
			v := resp.Header(name)
			return func(s Session) Session { return s.Set(key, v) }, nil
		},
	}
}

// BodyContains asserts the body contains substr.
func BodyContains(substr string) Check {
	return Check{
		Name:  fmt.Sprintf("body.contains(%s)", substr),
		Scope: ScopeBody,
		Fn: func(resp *Response, _ Session) (SessionUpdate, error) {
			if !strings.Contains(resp.BodyString(), substr) {
				return nil, fmt.Errorf("not found")
			}
			return nil, nil
		},
	}
}

// BodyRegexSave extracts the first capture group of pattern from the body and
// stores it under key; no match is a failure.
func BodyRegexSave(pattern *regexp.Regexp, key string) Check {
	return Check{
		Name:  fmt.Sprintf("body.regex(%s).saveAs(%s)", pattern.String(), key),
		Scope: ScopeBody,
		Fn: func(resp *Response, _ Session) (SessionUpdate, error) {
			m := pattern.FindStringSubmatch(resp.BodyString())
			if len(m) < 2 {
				return nil, fmt.Errorf("no match")
			}
			v := m[1]
			return func(s Session) Session { return s.Set(key, v) }, nil
		},
	}
}

// Md5Is asserts the hex MD5 checksum of the body.
func Md5Is(want string) Check {
	return Check{
		Name:  "checksum.md5",
		Scope: ScopeChecksum,
		Fn: func(resp *Response, _ Session) (SessionUpdate, error) {
			sum := md5.Sum(resp.Body())
			got := hex.EncodeToString(sum[:])
			if !strings.EqualFold(got, want) {
				return nil, fmt.Errorf("found %s", got)
			}
			return nil, nil
		},
	}
}
