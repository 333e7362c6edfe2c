package transport

import (
	"bytes"
	"crypto/tls"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"loadpulse/internal/domain"
	"loadpulse/internal/infrastructure/observability"
	"loadpulse/internal/usecase"
)

// Completions receives transport outcomes; the response processor is the
// only implementation outside tests.
type Completions interface {
	OnCompleted(tx *domain.Tx, resp *domain.Response)
	OnThrowable(tx *domain.Tx, resp *domain.Response, message string)
}

type Options struct {
	Timeout      time.Duration
	InsecureTLS  bool
	CacheEnabled bool
}

// Client executes transactions over net/http. Protocol-level redirect
// following is disabled: the processor owns redirect policy, so every hop
// comes back through Completions.
type Client struct {
	completions Completions
	cookies     usecase.CookieStore
	cache       usecase.Cache
	metrics     *observability.Metrics
	logger      *zerolog.Logger
	opts        Options

	mu      sync.Mutex
	clients map[string]*http.Client
}

func NewClient(completions Completions, cookies usecase.CookieStore, cache usecase.Cache, metrics *observability.Metrics, logger *zerolog.Logger, opts Options) *Client {
	return &Client{
		completions: completions,
		cookies:     cookies,
		cache:       cache,
		metrics:     metrics,
		logger:      logger,
		opts:        opts,
		clients:     make(map[string]*http.Client),
	}
}

// Send executes one transaction attempt and reports the outcome. It runs in
// the caller's goroutine; redirect restarts re-enter here with the rebuilt
// request.
func (c *Client) Send(tx *domain.Tx) {
	if tx.RedirectCount > 0 {
		c.metrics.RedirectsTotal.Inc()
	}
	// A remembered permanent redirect short-circuits resolution: the
	// request is rewritten to the recorded target before it leaves.
	if c.opts.CacheEnabled {
		if target, ok := c.cache.GetRedirect(tx.Request.Signature()); ok {
			c.metrics.CacheHitsTotal.WithLabelValues("redirect").Inc()
			req := *tx.Request
			req.URL = target
			req.Cookies = nil
			tx.Request = &req
		}
	}

	start := time.Now()
	req, err := c.buildRequest(tx)
	if err != nil {
		c.completions.OnThrowable(tx, nil, err.Error())
		return
	}

	httpResp, err := c.clientFor(tx.Request.Proxy).Do(req)
	end := time.Now()
	if err != nil {
		partial := domain.NewResponse(0, nil, nil, tx.Request.URL, start, end, nil)
		c.completions.OnThrowable(tx, partial, err.Error())
		return
	}

	body, readErr := io.ReadAll(httpResp.Body)
	_ = httpResp.Body.Close()
	end = time.Now()
	if readErr != nil {
		partial := domain.NewResponse(httpResp.StatusCode, httpResp.Header,
			httpResp.Cookies(), httpResp.Request.URL, start, end, nil)
		c.completions.OnThrowable(tx, partial, readErr.Error())
		return
	}

	resp := domain.NewResponse(httpResp.StatusCode, httpResp.Header,
		httpResp.Cookies(), httpResp.Request.URL, start, end,
		func() []byte { return body })
	c.completions.OnCompleted(tx, resp)
}

func (c *Client) buildRequest(tx *domain.Tx) (*http.Request, error) {
	r := tx.Request
	var bodyReader io.Reader
	if len(r.Body) > 0 {
		bodyReader = bytes.NewReader(r.Body)
	}
	req, err := http.NewRequest(r.Method, r.URL.String(), bodyReader)
	if err != nil {
		return nil, err
	}
	for k, vs := range r.Headers {
		req.Header[k] = append([]string(nil), vs...)
	}
	if r.VirtualHost != "" {
		req.Host = r.VirtualHost
	}
	if ref := tx.Session.GetString(usecase.RefererAttribute); ref != "" && req.Header.Get("Referer") == "" {
		req.Header.Set("Referer", ref)
	}
	// Conditional re-fetch when we already hold cached content for this
	// request signature.
	if c.opts.CacheEnabled {
		if content, ok := c.cache.GetContent(r.Signature()); ok {
			c.metrics.CacheHitsTotal.WithLabelValues("content").Inc()
			if content.LastModified != "" {
				req.Header.Set("If-Modified-Since", content.LastModified)
			}
			if content.ETag != "" {
				req.Header.Set("If-None-Match", content.ETag)
			}
		}
	}
	// Redirect hops carry recomputed cookies; first attempts look them up
	// from the session snapshot.
	cookies := r.Cookies
	if cookies == nil {
		cookies = c.cookies.Lookup(tx.Session, r.URL)
	}
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	return req, nil
}

// clientFor returns an http.Client for the given proxy, reusing transports
// so connection pools are shared across virtual users.
func (c *Client) clientFor(proxy *url.URL) *http.Client {
	key := ""
	if proxy != nil {
		key = proxy.String()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if client, ok := c.clients[key]; ok {
		return client
	}
	tr := &http.Transport{
		MaxIdleConns:        1024,
		MaxIdleConnsPerHost: 256,
		IdleConnTimeout:     90 * time.Second,
	}
	if proxy != nil {
		tr.Proxy = http.ProxyURL(proxy)
	}
	if c.opts.InsecureTLS {
		tr.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	client := &http.Client{
		Transport: tr,
		Timeout:   c.opts.Timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	c.clients[key] = client
	return client
}
