package cookiejar

import (
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"

	"loadpulse/internal/domain"
)

// sessionAttribute is the session key the jar lives under. The jar is a
// plain slice value: storing cookies builds a new slice and a new session,
// so redirect chains and concurrent transactions each see their own
// snapshot.
const sessionAttribute = "loadpulse.cookiejar"

type entry struct {
	Name     string
	Value    string
	Domain   string
	Path     string
	Secure   bool
	HostOnly bool
	// Expires is zero for session cookies.
	Expires time.Time
}

// Store implements the cookie lookup/store contract over session state.
type Store struct {
	now func() time.Time
}

func New() *Store {
	return &Store{now: time.Now}
}

func jarOf(s domain.Session) []entry {
	if v, ok := s.Get(sessionAttribute); ok {
		if jar, ok := v.([]entry); ok {
			return jar
		}
	}
	return nil
}

// Lookup returns the cookies to send to u, longest path first.
func (st *Store) Lookup(s domain.Session, u *url.URL) []*http.Cookie {
	jar := jarOf(s)
	if len(jar) == 0 {
		return nil
	}
	host := strings.ToLower(u.Hostname())
	path := requestPath(u)
	now := st.now()

	var matched []entry
	for _, e := range jar {
		if !e.Expires.IsZero() && !e.Expires.After(now) {
			continue
		}
		if e.Secure && u.Scheme != "https" {
			continue
		}
		if e.HostOnly {
			if host != e.Domain {
				continue
			}
		} else if !domainMatch(host, e.Domain) {
			continue
		}
		if !pathMatch(path, e.Path) {
			continue
		}
		matched = append(matched, e)
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return len(matched[i].Path) > len(matched[j].Path)
	})
	out := make([]*http.Cookie, 0, len(matched))
	for _, e := range matched {
		out = append(out, &http.Cookie{Name: e.Name, Value: e.Value})
	}
	return out
}

// Store merges cookies set by a response from u and returns the new session.
func (st *Store) Store(s domain.Session, u *url.URL, cookies []*http.Cookie) domain.Session {
	if len(cookies) == 0 {
		return s
	}
	host := strings.ToLower(u.Hostname())
	now := st.now()
	jar := append([]entry(nil), jarOf(s)...)

	for _, c := range cookies {
		if c.Name == "" {
			continue
		}
		e := entry{
			Name:   c.Name,
			Value:  c.Value,
			Secure: c.Secure,
		}
		if c.Domain == "" {
			e.HostOnly = true
			e.Domain = host
		} else {
			d := strings.ToLower(strings.TrimPrefix(c.Domain, "."))
			// A cookie scoped to a public suffix would leak across
			// unrelated sites; only an exact host match may keep it.
			if ps, _ := publicsuffix.PublicSuffix(d); ps == d && d != host {
				continue
			}
			if !domainMatch(host, d) {
				continue
			}
			e.Domain = d
		}
		if c.Path == "" || !strings.HasPrefix(c.Path, "/") {
			e.Path = defaultPath(u)
		} else {
			e.Path = c.Path
		}

		expired := false
		switch {
		case c.MaxAge < 0:
			expired = true
		case c.MaxAge > 0:
			e.Expires = now.Add(time.Duration(c.MaxAge) * time.Second)
		case !c.Expires.IsZero():
			e.Expires = c.Expires
			expired = !c.Expires.After(now)
		}

		jar = removeEntry(jar, e.Name, e.Domain, e.Path)
		if !expired {
			jar = append(jar, e)
		}
	}
	return s.Set(sessionAttribute, jar)
}

func removeEntry(jar []entry, name, domain, path string) []entry {
	out := jar[:0]
	for _, e := range jar {
		if e.Name == name && e.Domain == domain && e.Path == path {
			continue
		}
		out = append(out, e)
	}
	return out
}

func domainMatch(host, domain string) bool {
	return host == domain || strings.HasSuffix(host, "."+domain)
}

func pathMatch(reqPath, cookiePath string) bool {
	if reqPath == cookiePath {
		return true
	}
	if !strings.HasPrefix(reqPath, cookiePath) {
		return false
	}
	return strings.HasSuffix(cookiePath, "/") || reqPath[len(cookiePath)] == '/'
}

func requestPath(u *url.URL) string {
	if u.Path == "" {
		return "/"
	}
	return u.Path
}

func defaultPath(u *url.URL) string {
	p := u.Path
	i := strings.LastIndexByte(p, '/')
	if i <= 0 {
		return "/"
	}
	return p[:i]
}
