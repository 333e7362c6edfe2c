package cookiejar

import (
	"net/http"
	"net/url"
	"testing"
	"time"

	"loadpulse/internal/domain"
)

func mustParse(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse %q: %v", raw, err)
	}
	return u
}

func names(cookies []*http.Cookie) []string {
	out := make([]string, 0, len(cookies))
	for _, c := range cookies {
		out = append(out, c.Name)
	}
	return out
}

func TestStoreThenLookupSameHost(t *testing.T) {
	st := New()
	u := mustParse(t, "http://shop.example/cart")
	s := st.Store(domain.NewSession("scn"), u, []*http.Cookie{{Name: "sid", Value: "abc"}})
	got := st.Lookup(s, mustParse(t, "http://shop.example/checkout"))
	if len(got) != 1 || got[0].Name != "sid" || got[0].Value != "abc" {
		t.Fatalf("lookup = %v", got)
	}
}

func TestStoreReturnsNewSession(t *testing.T) {
	st := New()
	u := mustParse(t, "http://shop.example/")
	before := domain.NewSession("scn")
	after := st.Store(before, u, []*http.Cookie{{Name: "sid", Value: "abc"}})
	if got := st.Lookup(before, u); len(got) != 0 {
		t.Fatalf("original session gained cookies: %v", got)
	}
	if got := st.Lookup(after, u); len(got) != 1 {
		t.Fatalf("new session missing cookies: %v", got)
	}
}

func TestHostOnlyCookieNotSentToSubdomain(t *testing.T) {
	st := New()
	s := st.Store(domain.NewSession("scn"), mustParse(t, "http://example.com/"),
		[]*http.Cookie{{Name: "host-only", Value: "1"}})
	if got := st.Lookup(s, mustParse(t, "http://sub.example.com/")); len(got) != 0 {
		t.Fatalf("host-only cookie leaked to subdomain: %v", got)
	}
}

func TestDomainCookieSentToSubdomain(t *testing.T) {
	st := New()
	s := st.Store(domain.NewSession("scn"), mustParse(t, "http://example.com/"),
		[]*http.Cookie{{Name: "wide", Value: "1", Domain: ".example.com"}})
	if got := st.Lookup(s, mustParse(t, "http://sub.example.com/")); len(got) != 1 {
		t.Fatalf("domain cookie missing on subdomain: %v", got)
	}
}

func TestPublicSuffixDomainRejected(t *testing.T) {
	st := New()
	s := st.Store(domain.NewSession("scn"), mustParse(t, "http://victim.co.uk/"),
		[]*http.Cookie{{Name: "evil", Value: "1", Domain: "co.uk"}})
	if got := st.Lookup(s, mustParse(t, "http://other.co.uk/")); len(got) != 0 {
		t.Fatalf("public-suffix cookie accepted: %v", got)
	}
}

func TestForeignDomainRejected(t *testing.T) {
	st := New()
	s := st.Store(domain.NewSession("scn"), mustParse(t, "http://a.example/"),
		[]*http.Cookie{{Name: "foreign", Value: "1", Domain: "b.example"}})
	if got := st.Lookup(s, mustParse(t, "http://b.example/")); len(got) != 0 {
		t.Fatalf("cookie for unrelated domain accepted: %v", got)
	}
}

func TestPathScoping(t *testing.T) {
	st := New()
	s := st.Store(domain.NewSession("scn"), mustParse(t, "http://example.com/app/page"),
		[]*http.Cookie{{Name: "scoped", Value: "1", Path: "/app"}})
	if got := st.Lookup(s, mustParse(t, "http://example.com/app/other")); len(got) != 1 {
		t.Fatalf("cookie missing under its path: %v", got)
	}
	if got := st.Lookup(s, mustParse(t, "http://example.com/elsewhere")); len(got) != 0 {
		t.Fatalf("cookie leaked outside its path: %v", got)
	}
	if got := st.Lookup(s, mustParse(t, "http://example.com/application")); len(got) != 0 {
		t.Fatalf("prefix match must respect path boundaries: %v", got)
	}
}

func TestSecureCookieOnlyOnHTTPS(t *testing.T) {
	st := New()
	s := st.Store(domain.NewSession("scn"), mustParse(t, "https://example.com/"),
		[]*http.Cookie{{Name: "sec", Value: "1", Secure: true}})
	if got := st.Lookup(s, mustParse(t, "http://example.com/")); len(got) != 0 {
		t.Fatalf("secure cookie sent over http: %v", got)
	}
	if got := st.Lookup(s, mustParse(t, "https://example.com/")); len(got) != 1 {
		t.Fatalf("secure cookie missing over https: %v", got)
	}
}

func TestMaxAgeZeroKeepsMaxAgeNegativeDeletes(t *testing.T) {
	st := New()
	u := mustParse(t, "http://example.com/")
	s := st.Store(domain.NewSession("scn"), u, []*http.Cookie{{Name: "sid", Value: "1"}})
	s = st.Store(s, u, []*http.Cookie{{Name: "sid", Value: "2", MaxAge: -1}})
	if got := st.Lookup(s, u); len(got) != 0 {
		t.Fatalf("negative max-age must delete the cookie: %v", got)
	}
}

func TestExpiredCookieNotReturned(t *testing.T) {
	st := New()
	u := mustParse(t, "http://example.com/")
	s := st.Store(domain.NewSession("scn"), u,
		[]*http.Cookie{{Name: "old", Value: "1", Expires: time.Now().Add(-time.Hour)}})
	if got := st.Lookup(s, u); len(got) != 0 {
		t.Fatalf("expired cookie returned: %v", got)
	}
}

func TestReplacementKeepsSingleEntry(t *testing.T) {
	st := New()
	u := mustParse(t, "http://example.com/")
	s := st.Store(domain.NewSession("scn"), u, []*http.Cookie{{Name: "sid", Value: "1"}})
	s = st.Store(s, u, []*http.Cookie{{Name: "sid", Value: "2"}})
	got := st.Lookup(s, u)
	if len(got) != 1 || got[0].Value != "2" {
		t.Fatalf("replacement failed: %v", names(got))
	}
}

func TestLongestPathFirst(t *testing.T) {
	st := New()
	u := mustParse(t, "http://example.com/app/deep/page")
	s := st.Store(domain.NewSession("scn"), u, []*http.Cookie{
		{Name: "root", Value: "1", Path: "/"},
		{Name: "deep", Value: "1", Path: "/app/deep"},
	})
	got := st.Lookup(s, u)
	if len(got) != 2 || got[0].Name != "deep" {
		t.Fatalf("order = %v, want deep first", names(got))
	}
}
