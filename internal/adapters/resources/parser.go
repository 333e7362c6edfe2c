package resources

import (
	"bytes"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// ExtractHTMLResources walks an HTML document and returns the absolute URIs
// of the embedded assets a browser would fetch while rendering it. Only
// http(s) targets are kept; duplicates are dropped in document order.
func ExtractHTMLResources(body []byte, base *url.URL) []*url.URL {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil
	}
	var refs []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if ref := resourceRef(n); ref != "" {
				refs = append(refs, ref)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return resolveAll(refs, base)
}

func resourceRef(n *html.Node) string {
	switch n.Data {
	case "img", "script", "iframe", "embed", "source", "audio", "video":
		return attr(n, "src")
	case "input":
		if strings.EqualFold(attr(n, "type"), "image") {
			return attr(n, "src")
		}
	case "object":
		return attr(n, "data")
	case "link":
		rel := strings.ToLower(attr(n, "rel"))
		if rel == "stylesheet" || rel == "icon" || rel == "shortcut icon" {
			return attr(n, "href")
		}
	case "body", "table", "td":
		return attr(n, "background")
	}
	return ""
}

func attr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, name) {
			return strings.TrimSpace(a.Val)
		}
	}
	return ""
}

var (
	cssURLRe    = regexp.MustCompile(`url\(\s*['"]?([^'")\s]+)['"]?\s*\)`)
	cssImportRe = regexp.MustCompile(`@import\s+['"]([^'"]+)['"]`)
)

// ExtractCSSResources pulls url(...) and @import references out of a
// stylesheet body.
func ExtractCSSResources(css string, base *url.URL) []*url.URL {
	var refs []string
	for _, m := range cssImportRe.FindAllStringSubmatch(css, -1) {
		refs = append(refs, m[1])
	}
	for _, m := range cssURLRe.FindAllStringSubmatch(css, -1) {
		refs = append(refs, m[1])
	}
	return resolveAll(refs, base)
}

func resolveAll(refs []string, base *url.URL) []*url.URL {
	seen := make(map[string]bool, len(refs))
	out := make([]*url.URL, 0, len(refs))
	for _, ref := range refs {
		if ref == "" || strings.HasPrefix(ref, "data:") {
			continue
		}
		u, err := base.Parse(ref)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			continue
		}
		u.Fragment = ""
		key := u.String()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, u)
	}
	return out
}
