package resources

import (
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/rs/zerolog"

	"loadpulse/internal/domain"
)

// Spawner turns a completed HTML page into a fan-out of embedded-resource
// sub-requests. Sub-requests run on a shared worker pool; the page's next
// step fires once after the whole fan-out (including assets discovered in
// fetched CSS) has resolved.
type Spawner struct {
	pool   pond.Pool
	send   func(*domain.Tx)
	logger *zerolog.Logger
	// Silent controls whether sub-requests report individually to stats.
	Silent bool
}

func NewSpawner(send func(*domain.Tx), logger *zerolog.Logger, workers int) *Spawner {
	return &Spawner{
		pool:   pond.NewPool(workers),
		send:   send,
		logger: logger,
		Silent: true,
	}
}

// Stop waits for in-flight sub-requests to finish.
func (sp *Spawner) Stop() {
	sp.pool.StopAndWait()
}

// Spawn inspects a page response and dispatches its embedded resources.
// It reports false when the page has nothing to fetch, in which case the
// caller still owns the handoff to the next step.
func (sp *Spawner) Spawn(tx *domain.Tx, resp *domain.Response, session domain.Session) bool {
	uris := ExtractHTMLResources(resp.Body(), resp.URL)
	if len(uris) == 0 {
		return false
	}
	f := &pageFetch{
		sp:        sp,
		root:      tx,
		session:   session,
		update:    domain.Identity,
		seen:      make(map[string]bool, len(uris)),
		startedAt: time.Now(),
	}
	sp.logger.Debug().
		Str("page", tx.Request.Name).
		Int("resources", len(uris)).
		Msg("fetching embedded resources")
	f.dispatch(uris)
	return true
}

// pageFetch aggregates the outcomes of one page's resource fan-out.
type pageFetch struct {
	sp        *Spawner
	root      *domain.Tx
	session   domain.Session
	startedAt time.Time

	mu      sync.Mutex
	update  domain.SessionUpdate
	pending int
	failed  bool
	done    bool
	seen    map[string]bool
}

// dispatch registers the given URIs and submits a sub-request for each one
// not already in flight.
func (f *pageFetch) dispatch(uris []*url.URL) {
	f.mu.Lock()
	var fresh []*url.URL
	for _, u := range uris {
		key := u.String()
		if f.seen[key] {
			continue
		}
		f.seen[key] = true
		fresh = append(fresh, u)
	}
	f.pending += len(fresh)
	f.mu.Unlock()

	for _, u := range fresh {
		req := &domain.Request{
			Name:    f.root.Request.Name + " resource",
			Method:  http.MethodGet,
			URL:     u,
			Headers: http.Header{},
			Silent:  f.sp.Silent,
		}
		rtx := domain.NewTx(req, f.session, nil)
		rtx.Resource = &domain.ResourceContext{Dispatcher: f}
		f.sp.pool.Submit(func() { f.sp.send(rtx) })
	}
}

func (f *pageFetch) ResourceFetched(uri *url.URL, status domain.Status, update domain.SessionUpdate, silent bool) {
	f.resolve(uri, status, update)
}

func (f *pageFetch) CSSResourceFetched(uri *url.URL, status domain.Status, statusCode int, validator string, body string, update domain.SessionUpdate, silent bool) {
	// CSS assets can reference further assets; register them before this
	// one resolves so the fan-out cannot complete early.
	if status == domain.OK {
		f.dispatch(ExtractCSSResources(body, uri))
	}
	f.resolve(uri, status, update)
}

func (f *pageFetch) resolve(uri *url.URL, status domain.Status, update domain.SessionUpdate) {
	f.mu.Lock()
	f.update = domain.Compose(f.update, update)
	if status == domain.KO {
		f.failed = true
		f.sp.logger.Debug().Str("uri", uri.String()).Msg("embedded resource failed")
	}
	f.pending--
	finished := f.pending == 0 && !f.done
	if finished {
		f.done = true
	}
	f.mu.Unlock()
	if finished {
		f.complete()
	}
}

// complete applies the aggregated updates once for the whole fan-out and
// hands the page's next step its final session.
func (f *pageFetch) complete() {
	session := f.update(f.session)
	if f.failed {
		session = domain.MarkFailed(session)
	}
	session = domain.AddResponseTime(time.Since(f.startedAt))(session)
	f.root.Next(session)
}

var _ domain.ResourceDispatcher = (*pageFetch)(nil)
