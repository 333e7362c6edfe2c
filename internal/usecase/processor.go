package usecase

import (
	"fmt"
	"net/http"
	"net/url"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"loadpulse/internal/domain"
)

// Fixed diagnostics for the failure taxonomy.
const (
	msgNoStatus   = "Request timed out or transport returned no status"
	msgNoLocation = "Redirect status, yet no Location header"
)

// Processor drives a completed or failed transaction to one of: restart on a
// redirect target, check-and-proceed, or fail-and-proceed. It is the only
// component allowed to decide a transaction's outcome, and it never lets a
// panic escape: a crash inside processing forces the transaction to fail so
// the virtual user keeps moving.
type Processor struct {
	cfg       Settings
	cookies   CookieStore
	cache     Cache
	stats     StatsReporter
	resources ResourceSpawner
	logger    *zerolog.Logger
	now       func() time.Time

	// Send restarts a transaction against the transport; wired after
	// construction because the transport needs the processor first.
	Send func(*domain.Tx)
}

func NewProcessor(cfg Settings, cookies CookieStore, cache Cache, stats StatsReporter, resources ResourceSpawner, logger *zerolog.Logger) *Processor {
	return &Processor{
		cfg:       cfg,
		cookies:   cookies,
		cache:     cache,
		stats:     stats,
		resources: resources,
		logger:    logger,
		now:       time.Now,
	}
}

// OnCompleted is the transport's success entry point.
func (p *Processor) OnCompleted(tx *domain.Tx, resp *domain.Response) {
	defer p.recoverAbort(tx)
	if !resp.HasStatus() {
		p.proceed(tx, resp, tx.Update, domain.KO, msgNoStatus)
		return
	}
	if resp.IsRedirect() && p.cfg.FollowRedirects {
		p.redirect(tx, resp)
		return
	}
	p.checkAndProceed(tx, resp)
}

// OnThrowable is the transport's failure entry point; message is reported
// verbatim.
func (p *Processor) OnThrowable(tx *domain.Tx, resp *domain.Response, message string) {
	defer p.recoverAbort(tx)
	p.proceed(tx, resp, tx.Update, domain.KO, message)
}

// recoverAbort converts a processor crash into a forced failure of the
// current transaction, so a bug can never leave a virtual user stuck.
func (p *Processor) recoverAbort(tx *domain.Tx) {
	r := recover()
	if r == nil {
		return
	}
	p.logger.Error().
		Str("request", tx.FullName()).
		Str("user", tx.Session.UserID).
		Interface("panic", r).
		Bytes("stack", debug.Stack()).
		Msg("response processing crashed, aborting transaction")
	if tx.Resource != nil {
		tx.Resource.Dispatcher.ResourceFetched(tx.Request.URL, domain.KO, tx.Update, tx.Silent)
		return
	}
	tx.Next(domain.MarkFailed(applyQuietly(tx.Update, tx.Session)))
}

// applyQuietly applies an update, falling back to the untouched session if
// the update itself panics.
func applyQuietly(update domain.SessionUpdate, s domain.Session) (out domain.Session) {
	out = s
	defer func() { _ = recover() }()
	if update != nil {
		out = update(s)
	}
	return out
}

func (p *Processor) redirect(tx *domain.Tx, resp *domain.Response) {
	if tx.RedirectCount >= p.cfg.MaxRedirects {
		p.proceed(tx, resp, tx.Update, domain.KO,
			fmt.Sprintf("Too many redirects, max is %d", p.cfg.MaxRedirects))
		return
	}
	location := resp.Header("Location")
	if location == "" {
		p.proceed(tx, resp, tx.Update, domain.KO, msgNoLocation)
		return
	}
	target, err := tx.Request.URL.Parse(location)
	if err != nil {
		p.proceed(tx, resp, tx.Update, domain.KO,
			fmt.Sprintf("Malformed Location header: %s", location))
		return
	}

	update := tx.Update
	if len(resp.Cookies) > 0 {
		update = domain.Compose(update, p.storeCookiesUpdate(resp.URL, resp.Cookies))
	}

	// Later hops must observe cookies set earlier in the chain, so the
	// lookup runs against the session as updated so far. The cache write is
	// composed afterwards: it must stay deferred until the chain resolves
	// and the carried update is finally applied.
	sessionSoFar := update(tx.Session)
	cookies := p.cookies.Lookup(sessionSoFar, target)

	if p.cfg.CacheEnabled && resp.IsPermanentRedirect() {
		update = domain.Compose(update, p.cache.StoreRedirectUpdate(tx.Request.Signature(), target))
	}

	if !tx.Silent {
		p.report(tx, resp, sessionSoFar, domain.OK, "")
	}

	next := &domain.Tx{
		ID:            tx.ID,
		Request:       rebuildRedirect(tx.Request, resp.StatusCode, target, cookies, p.cfg),
		Session:       tx.Session,
		RedirectCount: tx.RedirectCount + 1,
		Resource:      tx.Resource,
		Silent:        tx.Silent,
		Update:        update,
		Next:          tx.Next,
	}
	p.Send(next)
}

func (p *Processor) checkAndProceed(tx *domain.Tx, resp *domain.Response) {
	update := tx.Update
	if len(resp.Cookies) > 0 {
		update = domain.Compose(update, p.storeCookiesUpdate(resp.URL, resp.Cookies))
	}
	// The cache write composes before check updates so it never depends on
	// check outcome.
	if p.cfg.CacheEnabled && !resp.IsNotModified() {
		update = domain.Compose(update, p.cache.StoreContentUpdate(tx.Request.Signature(), &CachedContent{
			Body:         resp.Body(),
			LastModified: resp.Headers.Get("Last-Modified"),
			ETag:         resp.Headers.Get("ETag"),
		}))
	}
	if p.cfg.SendReferer && tx.Resource == nil && resp.URL != nil {
		ref := resp.URL.String()
		update = domain.Compose(update, func(s domain.Session) domain.Session {
			return s.Set(RefererAttribute, ref)
		})
	}

	checks := domain.FilterChecks(tx.Request.Checks, resp.IsNotModified())
	checkUpdate, failure := domain.RunChecks(checks, resp, update(tx.Session))
	update = domain.Compose(update, checkUpdate)

	status := domain.OK
	if failure != "" {
		status = domain.KO
	}
	p.proceed(tx, resp, update, status, failure)
}

// proceed is the single exit: apply updates, report, dispatch.
func (p *Processor) proceed(tx *domain.Tx, resp *domain.Response, update domain.SessionUpdate, status domain.Status, message string) {
	combined := update
	if status == domain.KO && !tx.Silent {
		combined = domain.Compose(combined, domain.MarkFailed)
	}
	if tx.Resource == nil && !tx.Silent && resp != nil {
		// Resource timings are aggregated by the resource dispatcher
		// instead.
		combined = domain.Compose(combined, domain.AddResponseTime(resp.Duration()))
	}
	session := combined(tx.Session)

	if !tx.Silent {
		p.report(tx, resp, session, status, message)
	}

	switch {
	case tx.Resource != nil:
		uri := tx.Request.URL
		if resp != nil && resp.URL != nil {
			uri = resp.URL
		}
		if resp != nil && resp.IsCSS() {
			tx.Resource.Dispatcher.CSSResourceFetched(uri, status, resp.StatusCode,
				resp.CacheValidator(), resp.BodyString(), update, tx.Silent)
		} else {
			tx.Resource.Dispatcher.ResourceFetched(uri, status, update, tx.Silent)
		}
	case status == domain.OK && p.resources != nil && resp != nil && resp.IsHTML() &&
		p.resources.Spawn(tx, resp, session):
		// The resource dispatcher owns the handoff to the next step now.
	default:
		if resp != nil && !resp.EndedAt.IsZero() {
			session = session.AddDrift(p.now().Sub(resp.EndedAt))
		}
		tx.Next(session)
	}
}

func (p *Processor) report(tx *domain.Tx, resp *domain.Response, session domain.Session, status domain.Status, message string) {
	ev := StatsEvent{
		Session: session,
		Name:    tx.FullName(),
		Status:  status,
		Message: message,
	}
	if resp != nil {
		ev.StartedAt = resp.StartedAt
		ev.EndedAt = resp.EndedAt
		if resp.HasStatus() {
			ev.StatusCode = strconv.Itoa(resp.StatusCode)
		}
	}
	p.stats.Report(ev)

	if status == domain.KO {
		p.logger.Warn().
			Str("request", ev.Name).
			Str("user", session.UserID).
			Str("status", ev.StatusCode).
			Str("message", message).
			Msg("request failed")
	}
	if p.cfg.TraceDumps {
		p.logger.Trace().Str("request", ev.Name).Msg(dumpExchange(tx, resp))
	} else if status == domain.KO {
		p.logger.Debug().Str("request", ev.Name).Msg(dumpExchange(tx, resp))
	}
}

func (p *Processor) storeCookiesUpdate(u *url.URL, cookies []*http.Cookie) domain.SessionUpdate {
	return func(s domain.Session) domain.Session {
		return p.cookies.Store(s, u, cookies)
	}
}
