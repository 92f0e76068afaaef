package plancache

import (
	"context"
	"fmt"
	"net/http"

	"github.com/plancache/plancache/plan"

	"github.com/rs/zerolog"
)

// execute runs the strategy governing the request. It returns the
// response, whether it came from the cache, and an error only when
// the strategy has no applicable fallback left. The switch is
// exhaustive over routable strategies and fails fast otherwise.
func (w *Worker) execute(entry plan.Entry, r *http.Request, log zerolog.Logger) (*http.Response, bool, error) {
	key := requestKey(r)
	switch entry.Strategy {
	case plan.CacheFirst:
		return w.cacheFirst(key, r, log)
	case plan.NetworkFirst:
		return w.networkFirst(key, r, log)
	case plan.StaleWhileRevalidate:
		return w.staleWhileRevalidate(key, r, log)
	case plan.NetworkOnly:
		return w.networkOnly(r)
	case plan.StaticOfflineBackup:
		return w.staticOfflineBackup(entry.Backup, r, log)
	}
	return nil, false, fmt.Errorf("plancache: entry with strategy %q is not executable", entry.Strategy)
}

// requestKey identifies a request within the cache store.
// Routing only looks at the path, but the key keeps the query string
// so variants are cached separately.
func requestKey(r *http.Request) string {
	return r.URL.RequestURI()
}

// cacheFirst serves from the cache when possible and only touches the
// network on a miss, caching the fetched response for next time.
// Entries are never evicted individually, so this strategy is only
// correct for immutable resources. A miss combined with a network
// failure propagates the error: there is no fallback.
func (w *Worker) cacheFirst(key string, r *http.Request, log zerolog.Logger) (*http.Response, bool, error) {
	if res, ok := w.cachedResponse(key); ok {
		return res, true, nil
	}
	res, err := w.fetcher.Fetch(r)
	if err != nil {
		return nil, false, err
	}
	if err := w.storeResponse(key, res); err != nil {
		log.Error().Err(err).Msg("Could not write to cache")
	}
	return res, false, nil
}

// networkFirst fetches the network and refreshes the cache on
// success. On network failure it falls back to the cached response;
// only when that is absent too does the network error propagate.
func (w *Worker) networkFirst(key string, r *http.Request, log zerolog.Logger) (*http.Response, bool, error) {
	res, err := w.fetcher.Fetch(r)
	if err == nil {
		if err := w.storeResponse(key, res); err != nil {
			log.Error().Err(err).Msg("Could not write to cache")
		}
		return res, false, nil
	}
	if cached, ok := w.cachedResponse(key); ok {
		return cached, true, nil
	}
	return nil, false, err
}

// staleWhileRevalidate returns a cached response immediately and
// revalidates in the background for next time. Without a cached
// entry it blocks on the network like networkFirst's happy path.
func (w *Worker) staleWhileRevalidate(key string, r *http.Request, log zerolog.Logger) (*http.Response, bool, error) {
	if cached, ok := w.cachedResponse(key); ok {
		// fire and forget: the request context dies when the
		// response is sent, so the revalidation gets its own context
		go w.revalidate(key, r.Clone(context.Background()), log)
		return cached, true, nil
	}
	res, err := w.fetcher.Fetch(r)
	if err != nil {
		return nil, false, err
	}
	if err := w.storeResponse(key, res); err != nil {
		log.Error().Err(err).Msg("Could not write to cache")
	}
	return res, false, nil
}

// revalidate refreshes one cache entry from the network. It is
// best-effort: failures never affect the response already returned
// and are only logged.
func (w *Worker) revalidate(key string, r *http.Request, log zerolog.Logger) {
	res, err := w.fetcher.Fetch(r)
	if err != nil {
		log.Debug().Err(err).Msg("Background revalidation failed")
		return
	}
	defer res.Body.Close()
	if err := w.storeResponse(key, res); err != nil {
		log.Debug().Err(err).Msg("Could not write revalidated response to cache")
		return
	}
	log.Debug().Msg("Revalidated")
}

// networkOnly always fetches the network and returns the result or
// error verbatim. It never reads or writes the cache, for resources
// that must not be served stale (e.g. online-only API calls).
func (w *Worker) networkOnly(r *http.Request) (*http.Response, bool, error) {
	res, err := w.fetcher.Fetch(r)
	return res, false, err
}

// staticOfflineBackup behaves like a bare network fetch, but on
// network failure serves the precached backup resource instead. If
// the backup is absent from the store the original network error
// propagates: there is no further fallback.
func (w *Worker) staticOfflineBackup(backup string, r *http.Request, log zerolog.Logger) (*http.Response, bool, error) {
	res, err := w.fetcher.Fetch(r)
	if err == nil {
		return res, false, nil
	}
	if cached, ok := w.cachedResponse(backup); ok {
		log.Debug().Str("backup", backup).Msg("Serving offline backup")
		return cached, true, nil
	}
	return nil, false, err
}
