package redact

import (
	"net/http"
	"strings"
)

var sensitiveHeaders = []string{"authorization", "proxy-authorization", "cookie", "set-cookie", "x-api-key"}

// Headers returns a copy of h with sensitive header values masked.
func Headers(h http.Header) http.Header {
	out := make(http.Header, len(h))
	for k, vs := range h {
		if isSensitiveHeader(k) {
			out[k] = []string{"***"}
			continue
		}
		out[k] = append([]string(nil), vs...)
	}
	return out
}

func isSensitiveHeader(k string) bool {
	k = strings.ToLower(k)
	for _, s := range sensitiveHeaders {
		if k == s {
			return true
		}
	}
	return false
}
