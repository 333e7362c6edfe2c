package domain

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/google/uuid"
)

// Request describes one outgoing HTTP request as the scenario declared it,
// plus anything recomputed per redirect hop (target, cookies, proxy).
type Request struct {
	Name        string
	Method      string
	URL         *url.URL
	Headers     http.Header
	Body        []byte
	Cookies     []*http.Cookie
	VirtualHost string
	Proxy       *url.URL
	Silent      bool
	Checks      []Check
}

// Signature keys cache entries for this request.
func (r *Request) Signature() string {
	return r.Method + " " + r.URL.String()
}

// NextStep hands the fully updated session to the rest of the scenario.
type NextStep func(Session)

// ResourceDispatcher collects the outcomes of embedded-resource
// sub-requests on behalf of the page that spawned them. CSS outcomes carry
// the body so nested assets can be discovered.
type ResourceDispatcher interface {
	ResourceFetched(uri *url.URL, status Status, update SessionUpdate, silent bool)
	CSSResourceFetched(uri *url.URL, status Status, statusCode int, validator string, body string, update SessionUpdate, silent bool)
}

// ResourceContext marks a transaction as a page-resource sub-request and
// names where its outcome must be reported.
type ResourceContext struct {
	Dispatcher ResourceDispatcher
}

// Tx is the state bundle for one in-flight request attempt: the request, the
// session snapshot at dispatch time, redirect progress, and the session
// update accumulated across redirect hops but not yet applied.
type Tx struct {
	ID            string
	Request       *Request
	Session       Session
	RedirectCount int
	Resource      *ResourceContext
	Silent        bool
	Update        SessionUpdate
	Next          NextStep
}

func NewTx(req *Request, session Session, next NextStep) *Tx {
	return &Tx{
		ID:      uuid.New().String(),
		Request: req,
		Session: session,
		Silent:  req.Silent,
		Update:  Identity,
		Next:    next,
	}
}

// FullName is the request name reported to stats, suffixed for redirect
// hops so each hop is distinguishable in reports.
func (t *Tx) FullName() string {
	if t.RedirectCount > 0 {
		return fmt.Sprintf("%s Redirect %d", t.Request.Name, t.RedirectCount)
	}
	return t.Request.Name
}
