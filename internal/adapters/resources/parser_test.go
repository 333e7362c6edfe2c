package resources

import (
	"net/url"
	"testing"
)

func base(t *testing.T) *url.URL {
	t.Helper()
	u, err := url.Parse("http://site.example/dir/page.html")
	if err != nil {
		t.Fatal(err)
	}
	return u
}

func asStrings(urls []*url.URL) []string {
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		out = append(out, u.String())
	}
	return out
}

func TestExtractHTMLResources(t *testing.T) {
	page := `<html><head>
<link rel="stylesheet" href="/css/main.css">
<link rel="canonical" href="/ignored">
<script src="app.js"></script>
</head><body background="bg.jpg">
<img src="/img/logo.png">
<img src="/img/logo.png">
<iframe src="https://other.example/frame"></iframe>
<input type="image" src="btn.png">
<object data="movie.swf"></object>
<img src="data:image/png;base64,AAAA">
<a href="/not-a-resource">link</a>
</body></html>`
	got := asStrings(ExtractHTMLResources([]byte(page), base(t)))
	want := []string{
		"http://site.example/css/main.css",
		"http://site.example/dir/app.js",
		"http://site.example/dir/bg.jpg",
		"http://site.example/img/logo.png",
		"https://other.example/frame",
		"http://site.example/dir/btn.png",
		"http://site.example/dir/movie.swf",
	}
	if len(got) != len(want) {
		t.Fatalf("got %v\nwant %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("resource %d: got %q want %q", i, got[i], want[i])
		}
	}
}

func TestExtractHTMLResourcesEmptyPage(t *testing.T) {
	if got := ExtractHTMLResources([]byte("<html><body>text only</body></html>"), base(t)); len(got) != 0 {
		t.Fatalf("got %v, want none", asStrings(got))
	}
}

func TestExtractCSSResources(t *testing.T) {
	css := `@import "reset.css";
body { background: url('/img/bg.png'); }
.icon { background-image: url( "sprite.png" ); }
.dup { background: url(/img/bg.png); }
.inline { background: url(data:image/gif;base64,R0); }`
	got := asStrings(ExtractCSSResources(css, base(t)))
	want := []string{
		"http://site.example/dir/reset.css",
		"http://site.example/img/bg.png",
		"http://site.example/dir/sprite.png",
	}
	if len(got) != len(want) {
		t.Fatalf("got %v\nwant %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("resource %d: got %q want %q", i, got[i], want[i])
		}
	}
}

func TestFragmentsStripped(t *testing.T) {
	page := `<img src="pic.png#frag">`
	got := ExtractHTMLResources([]byte(page), base(t))
	if len(got) != 1 || got[0].Fragment != "" {
		t.Fatalf("fragment not stripped: %v", asStrings(got))
	}
}
