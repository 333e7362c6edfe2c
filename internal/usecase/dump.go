package usecase

import (
	"fmt"
	"strings"

	"loadpulse/internal/domain"
	"loadpulse/pkg/shared/redact"
)

// dumpExchange renders a full request/response dump for trace logging and
// failure diagnostics. Sensitive headers are masked.
func dumpExchange(tx *domain.Tx, resp *domain.Response) string {
	var b strings.Builder
	b.WriteString(">>> ")
	b.WriteString(tx.Request.Method)
	b.WriteByte(' ')
	b.WriteString(tx.Request.URL.String())
	b.WriteByte('\n')
	for k, vs := range redact.Headers(tx.Request.Headers) {
		for _, v := range vs {
			fmt.Fprintf(&b, "%s: %s\n", k, v)
		}
	}
	if len(tx.Request.Body) > 0 {
		b.WriteByte('\n')
		b.Write(tx.Request.Body)
		b.WriteByte('\n')
	}
	if resp == nil {
		b.WriteString("<<< (no response)")
		return b.String()
	}
	fmt.Fprintf(&b, "<<< %d\n", resp.StatusCode)
	for k, vs := range redact.Headers(resp.Headers) {
		for _, v := range vs {
			fmt.Fprintf(&b, "%s: %s\n", k, v)
		}
	}
	if body := resp.Body(); len(body) > 0 {
		b.WriteByte('\n')
		b.Write(body)
	}
	return b.String()
}
