package cache

import (
	"net/url"
	"time"

	"github.com/Velocidex/ttlcache/v2"

	"loadpulse/internal/domain"
	"loadpulse/internal/usecase"
)

// Store is the shared redirect/content cache. Both tiers are concurrency
// safe, size capped and TTL bound; entries are purely additive and
// last-writer-wins, which is acceptable because a key always maps to the
// same upstream answer.
type Store struct {
	redirects *ttlcache.Cache
	contents  *ttlcache.Cache
}

func New(maxEntries int, ttl time.Duration) *Store {
	s := &Store{
		redirects: ttlcache.NewCache(),
		contents:  ttlcache.NewCache(),
	}
	for _, c := range []*ttlcache.Cache{s.redirects, s.contents} {
		c.SetCacheSizeLimit(maxEntries)
		_ = c.SetTTL(ttl)
		c.SkipTTLExtensionOnHit(true)
	}
	return s
}

func (s *Store) GetRedirect(signature string) (*url.URL, bool) {
	v, err := s.redirects.Get(signature)
	if err != nil {
		return nil, false
	}
	target, ok := v.(*url.URL)
	return target, ok
}

// StoreRedirectUpdate defers the cache write into a session update so it
// participates in the transaction's update composition order.
func (s *Store) StoreRedirectUpdate(signature string, target *url.URL) domain.SessionUpdate {
	return func(sess domain.Session) domain.Session {
		_ = s.redirects.Set(signature, target)
		return sess
	}
}

func (s *Store) GetContent(signature string) (*usecase.CachedContent, bool) {
	v, err := s.contents.Get(signature)
	if err != nil {
		return nil, false
	}
	content, ok := v.(*usecase.CachedContent)
	return content, ok
}

func (s *Store) StoreContentUpdate(signature string, content *usecase.CachedContent) domain.SessionUpdate {
	return func(sess domain.Session) domain.Session {
		_ = s.contents.Set(signature, content)
		return sess
	}
}
