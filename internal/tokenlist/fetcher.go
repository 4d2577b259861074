package tokenlist

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/limitofzero/balances-watcher/internal/domain"
)

// DefaultTTL is the per-URL cache lifetime.
const DefaultTTL = 5 * time.Hour

// DefaultConcurrency bounds how many list URLs are fetched in parallel.
const DefaultConcurrency = 10

type cachedList struct {
	fetchedAt time.Time
	byChain   map[int64]map[domain.Address]struct{}
}

// HTTPDoer is the subset of *http.Client the fetcher needs, so tests can
// substitute a fake transport.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Fetcher loads token lists with a per-URL TTL cache, coalescing of
// concurrent fetches for the same URL, and bounded fan-out.
type Fetcher struct {
	mu         sync.RWMutex
	cache      map[string]cachedList
	inFlight   map[string]struct{}
	ttl        time.Duration
	concurrent int64
	client     HTTPDoer
	logger     *zap.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

func WithTTL(ttl time.Duration) Option {
	return func(f *Fetcher) { f.ttl = ttl }
}

func WithConcurrency(k int64) Option {
	return func(f *Fetcher) { f.concurrent = k }
}

func WithHTTPDoer(c HTTPDoer) Option {
	return func(f *Fetcher) { f.client = c }
}

func NewFetcher(logger *zap.Logger, opts ...Option) *Fetcher {
	f := &Fetcher{
		cache:      make(map[string]cachedList),
		inFlight:   make(map[string]struct{}),
		ttl:        DefaultTTL,
		concurrent: DefaultConcurrency,
		client:     http.DefaultClient,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// GetTokens implements get_tokens(urls, network): returns the union of token
// addresses active on network across every URL in urls, fetching whatever is
// stale or uncached first.
func (f *Fetcher) GetTokens(ctx context.Context, urls []string, network domain.Network) (map[domain.Address]struct{}, error) {
	uncached := f.uncachedURLs(urls)

	if len(uncached) > 0 {
		f.markInFlight(uncached)
		err := f.fetchAndCache(ctx, uncached)
		f.clearInFlight(uncached)
		if err != nil {
			return nil, err
		}
	}

	return f.collectFromCache(urls, network), nil
}

func (f *Fetcher) uncachedURLs(urls []string) []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	now := time.Now()
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if _, busy := f.inFlight[u]; busy {
			continue
		}
		cached, ok := f.cache[u]
		if !ok || now.Sub(cached.fetchedAt) >= f.ttl {
			out = append(out, u)
		}
	}
	return out
}

func (f *Fetcher) markInFlight(urls []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range urls {
		f.inFlight[u] = struct{}{}
	}
}

func (f *Fetcher) clearInFlight(urls []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range urls {
		delete(f.inFlight, u)
	}
}

type fetchedEntry struct {
	url     string
	byChain map[int64]map[domain.Address]struct{}
}

// fetchAndCache fans out with bounded concurrency; any single URL failure
// fails the whole call so the caller sees a clear error rather than a
// silently partial view.
func (f *Fetcher) fetchAndCache(ctx context.Context, urls []string) error {
	sem := semaphore.NewWeighted(f.concurrent)
	group, groupCtx := errgroup.WithContext(ctx)

	results := make([]fetchedEntry, len(urls))
	for i, url := range urls {
		i, url := i, url
		group.Go(func() error {
			if err := sem.Acquire(groupCtx, 1); err != nil {
				return err
			}
			defer sem.Release(1)

			doc, err := f.fetchList(groupCtx, url)
			if err != nil {
				return err
			}
			results[i] = fetchedEntry{url: url, byChain: doc.bucketByChain()}
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return err
	}

	loaded := make([]string, 0, len(results))
	f.mu.Lock()
	now := time.Now()
	for _, r := range results {
		if len(r.byChain) == 0 {
			continue
		}
		f.cache[r.url] = cachedList{fetchedAt: now, byChain: r.byChain}
		loaded = append(loaded, r.url)
	}
	f.mu.Unlock()

	if f.logger != nil {
		f.logger.Info("token lists loaded", zap.Strings("lists", loaded))
	}
	return nil
}

func (f *Fetcher) fetchList(ctx context.Context, url string) (listDocument, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return listDocument{}, &UnableToLoadListError{URL: url, Reason: err.Error()}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return listDocument{}, &UnableToLoadListError{URL: url, Reason: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return listDocument{}, &UnableToLoadListError{URL: url, Reason: fmt.Sprintf("status %d", resp.StatusCode)}
	}

	var doc listDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return listDocument{}, &UnableToLoadListError{URL: url, Reason: err.Error()}
	}
	return doc, nil
}

func (f *Fetcher) collectFromCache(urls []string, network domain.Network) map[domain.Address]struct{} {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make(map[domain.Address]struct{})
	for _, u := range urls {
		cached, ok := f.cache[u]
		if !ok {
			continue
		}
		bucket, ok := cached.byChain[network.ChainID()]
		if !ok {
			continue
		}
		for addr := range bucket {
			out[addr] = struct{}{}
		}
	}
	return out
}
