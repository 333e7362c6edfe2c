package usecase

import (
	"net/http"
	"net/url"
	"strings"

	"loadpulse/internal/domain"
)

// rebuildRedirect reconstructs the outgoing request for a redirect target.
// Method and body survive only for the status classes that mandate it;
// headers tied to the previous target are stripped so the transport
// recomputes them.
func rebuildRedirect(orig *domain.Request, status int, target *url.URL, cookies []*http.Cookie, cfg Settings) *domain.Request {
	method := orig.Method
	body := orig.Body
	headers := cloneHeader(orig.Headers)

	keepBody := status == http.StatusTemporaryRedirect ||
		status == http.StatusPermanentRedirect ||
		(status == http.StatusFound && cfg.Strict302)
	if !keepBody {
		if method != http.MethodGet {
			switch status {
			case http.StatusMovedPermanently, http.StatusSeeOther:
				method = http.MethodGet
			case http.StatusFound:
				if !cfg.Strict302 {
					method = http.MethodGet
				}
			}
		}
		body = nil
		headers.Del("Content-Type")
	}

	// Always recomputed for the new target.
	headers.Del("Host")
	headers.Del("Content-Length")
	headers.Del("Cookie")

	vhost := orig.VirtualHost
	if !sameAuthority(orig.URL, target) {
		vhost = ""
	}

	// A redirect hop always carries its recomputed cookies, even when there
	// are none: a nil slice would make the transport fall back to the stale
	// pre-chain session and resurrect cookies deleted earlier in the chain.
	if cookies == nil {
		cookies = []*http.Cookie{}
	}

	return &domain.Request{
		Name:        orig.Name,
		Method:      method,
		URL:         target,
		Headers:     headers,
		Body:        body,
		Cookies:     cookies,
		VirtualHost: vhost,
		Proxy:       redirectProxy(orig, target, cfg),
		Silent:      orig.Silent,
		Checks:      orig.Checks,
	}
}

// redirectProxy picks the proxy for a redirect target: none when the target
// host is excepted, the original request's proxy while the authority is
// unchanged, the protocol proxy otherwise.
func redirectProxy(orig *domain.Request, target *url.URL, cfg Settings) *url.URL {
	host := target.Hostname()
	for _, exc := range cfg.ProxyExceptions {
		if strings.EqualFold(host, exc) {
			return nil
		}
	}
	if sameAuthority(orig.URL, target) {
		return orig.Proxy
	}
	return cfg.Proxy
}

func sameAuthority(a, b *url.URL) bool {
	return a.Scheme == b.Scheme &&
		strings.EqualFold(a.Hostname(), b.Hostname()) &&
		effectivePort(a) == effectivePort(b)
}

func effectivePort(u *url.URL) string {
	if p := u.Port(); p != "" {
		return p
	}
	switch u.Scheme {
	case "https":
		return "443"
	default:
		return "80"
	}
}

func cloneHeader(h http.Header) http.Header {
	out := make(http.Header, len(h))
	for k, vs := range h {
		out[k] = append([]string(nil), vs...)
	}
	return out
}
