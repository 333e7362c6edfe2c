package usecase

import (
	"net/http"
	"net/url"
	"time"

	"loadpulse/internal/domain"
)

// CookieStore is the lookup/store contract over per-session cookie state.
// Store returns a new session; it never mutates the one passed in.
type CookieStore interface {
	Lookup(s domain.Session, u *url.URL) []*http.Cookie
	Store(s domain.Session, u *url.URL, cookies []*http.Cookie) domain.Session
}

// CachedContent is a response body remembered for protocol-level caching,
// along with the validators a conditional re-fetch would present.
type CachedContent struct {
	Body         []byte
	LastModified string
	ETag         string
}

// Cache is the shared permanent-redirect and response-content store. Writes
// are handed back as session updates so they apply in composition order with
// the rest of a transaction's updates rather than as immediate side effects.
type Cache interface {
	GetRedirect(signature string) (*url.URL, bool)
	StoreRedirectUpdate(signature string, target *url.URL) domain.SessionUpdate
	GetContent(signature string) (*CachedContent, bool)
	StoreContentUpdate(signature string, content *CachedContent) domain.SessionUpdate
}

// StatsEvent is one logged request outcome.
type StatsEvent struct {
	Session    domain.Session
	Name       string
	StartedAt  time.Time
	EndedAt    time.Time
	Status     domain.Status
	StatusCode string
	Message    string
}

// StatsReporter accepts events from arbitrarily many transactions and must
// not block callers for long.
type StatsReporter interface {
	Report(ev StatsEvent)
}

// ResourceSpawner inspects a completed primary response and, when it is an
// HTML page with fetchable embedded resources, takes over dispatching them.
// It reports whether it did.
type ResourceSpawner interface {
	Spawn(tx *domain.Tx, resp *domain.Response, session domain.Session) bool
}

// Settings is the protocol configuration snapshot a processor runs with.
type Settings struct {
	FollowRedirects bool
	MaxRedirects    int
	// Strict302 preserves method and body across 302 hops instead of the
	// legacy browser rewrite to GET.
	Strict302       bool
	CacheEnabled    bool
	Proxy           *url.URL
	ProxyExceptions []string
	SendReferer     bool
	// TraceDumps enables full request/response dumps on every request
	// instead of only on failure. Read once at startup.
	TraceDumps bool
}

// RefererAttribute is the session key the referer policy records under.
const RefererAttribute = "loadpulse.referer"
