package domain

import (
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// Response is the immutable record of one completed HTTP exchange. A zero
// StatusCode means the transport never produced a protocol response.
type Response struct {
	StatusCode int
	Headers    http.Header
	Cookies    []*http.Cookie
	// URL is the resolved URI the exchange was served from.
	URL       *url.URL
	StartedAt time.Time
	EndedAt   time.Time

	bodyOnce sync.Once
	loadBody func() []byte
	body     []byte
}

// NewResponse builds a response; loadBody materializes the body on first use
// and may be nil for bodiless exchanges.
func NewResponse(status int, headers http.Header, cookies []*http.Cookie, u *url.URL, startedAt, endedAt time.Time, loadBody func() []byte) *Response {
	if headers == nil {
		headers = http.Header{}
	}
	return &Response{
		StatusCode: status,
		Headers:    headers,
		Cookies:    cookies,
		URL:        u,
		StartedAt:  startedAt,
		EndedAt:    endedAt,
		loadBody:   loadBody,
	}
}

func (r *Response) HasStatus() bool { return r.StatusCode != 0 }

func (r *Response) Body() []byte {
	r.bodyOnce.Do(func() {
		if r.loadBody != nil {
			r.body = r.loadBody()
		}
	})
	return r.body
}

func (r *Response) BodyString() string { return string(r.Body()) }

func (r *Response) Header(name string) string { return r.Headers.Get(name) }

func (r *Response) Duration() time.Duration { return r.EndedAt.Sub(r.StartedAt) }

func (r *Response) IsRedirect() bool {
	switch r.StatusCode {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	}
	return false
}

// IsPermanentRedirect reports the redirect classes eligible for caching.
func (r *Response) IsPermanentRedirect() bool {
	return r.StatusCode == http.StatusMovedPermanently ||
		r.StatusCode == http.StatusPermanentRedirect
}

func (r *Response) IsNotModified() bool { return r.StatusCode == http.StatusNotModified }

func (r *Response) contentType() string {
	ct := r.Headers.Get("Content-Type")
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return strings.TrimSpace(strings.ToLower(ct))
}

func (r *Response) IsCSS() bool { return r.contentType() == "text/css" }

func (r *Response) IsHTML() bool {
	ct := r.contentType()
	return ct == "text/html" || ct == "application/xhtml+xml"
}

// CacheValidator returns the value a conditional re-fetch would revalidate
// against, preferring Last-Modified over ETag.
func (r *Response) CacheValidator() string {
	if lm := r.Headers.Get("Last-Modified"); lm != "" {
		return lm
	}
	return r.Headers.Get("ETag")
}
