// Package plancache turns a declarative, ordered plan of caching
// strategies into deterministic runtime behavior: which strategy
// governs a request, how it resolves against network and cache, which
// resources are preloaded at install time, and when the versioned
// cache store is purged.
package plancache

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"

	"github.com/plancache/plancache/cache"
	"github.com/plancache/plancache/pkg/globber"
	"github.com/plancache/plancache/plan"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// statusHeader reports which strategy served a request and whether
// the response came from the cache.
const statusHeader = "X-Plan-Status"

// Options are the process-wide worker options.
// They are frozen for the lifetime of one worker.
type Options struct {
	// Version of the worker, semantic "major.minor.patch".
	// A major or minor change purges the cache store on install.
	Version string
	// SkipWaiting activates the worker immediately after a
	// successful install. It does not affect the purge decision.
	SkipWaiting bool
	// Debug enables per-request strategy logging.
	Debug bool
}

type Config struct {
	// Plan is the raw, ordered list of strategy entries.
	Plan plan.Plan
	// Options for version, activation and debug behavior.
	Options Options
	// Storage for cached responses.
	Cache cache.CacheProvider
	// Fetcher for reaching the origin.
	Fetcher Fetcher
	// Scope is the path prefix the worker controls, "/" if empty.
	Scope string
	// Logger to use. The global zerolog logger is used if nil.
	Logger *zerolog.Logger
	// Files resolves file specs in cache-on-install entries.
	// Defaults to resolving against the local file system.
	Files plan.FileResolver
}

// Worker is the runtime engine. It is built once from a plan and
// options, installed, and then serves each request as an independent
// fetch event. Concurrent requests run independent strategy
// executions; the only shared state is the cache store.
type Worker struct {
	plan      plan.Plan
	preload   []string
	opts      Options
	version   Version
	cacheName string
	cache     cache.CacheProvider
	fetcher   Fetcher
	scope     string
	log       zerolog.Logger
	active    atomic.Bool
}

// versionKey records the installed version in the provider, outside
// any versioned store prefix so purges never remove it.
const versionKey = "meta\tversion"

// New normalizes the plan and builds a worker. Configuration errors
// are fatal here: a malformed plan or version never reaches routing.
func New(config Config) (*Worker, error) {
	if config.Cache == nil {
		return nil, fmt.Errorf("plancache: no cache provider configured")
	}
	if config.Fetcher == nil {
		return nil, fmt.Errorf("plancache: no fetcher configured")
	}
	version, err := ParseVersion(config.Options.Version)
	if err != nil {
		return nil, fmt.Errorf("plancache: %w", err)
	}

	var logger zerolog.Logger
	if config.Logger == nil {
		logger = zerolog.New(zerolog.NewConsoleWriter())
	} else {
		logger = *config.Logger
	}
	logger = logger.With().
		Str("version", version.String()).
		Logger()

	files := config.Files
	if files == nil {
		files = func(spec plan.FileSpec) ([]string, error) {
			return globber.Resolve(globber.Spec{
				Dir:    spec.Dir,
				Glob:   spec.Glob,
				Prefix: spec.Prefix,
			})
		}
	}
	normalized, err := plan.Normalize(config.Plan, files)
	if err != nil {
		return nil, fmt.Errorf("plancache: %w", err)
	}

	scope := config.Scope
	if scope == "" {
		scope = "/"
	}

	return &Worker{
		plan:      normalized,
		preload:   plan.Preload(normalized),
		opts:      config.Options,
		version:   version,
		cacheName: version.CacheName(),
		cache:     config.Cache,
		fetcher:   config.Fetcher,
		scope:     scope,
		log:       logger,
	}, nil
}

// Install runs the install event: decide purge-vs-preserve against
// the previously installed version, fetch the whole preload set into
// the versioned store, and record the new version. Preloading is
// all-or-nothing: any failed fetch fails the install and the caller
// governs the retry. With SkipWaiting set, a successful install
// activates the worker immediately.
func (w *Worker) Install(ctx context.Context) error {
	prev, err := w.installedVersion()
	if err != nil {
		return fmt.Errorf("plancache: reading installed version: %w", err)
	}
	decision := InstallDecision(prev, w.version)
	w.log.Info().
		Str("decision", decision.String()).
		Str("cache", w.cacheName).
		Int("preload", len(w.preload)).
		Msg("Installing")
	if decision == Purge {
		if err := w.cache.PurgePrefix(prev.CacheName() + "\t"); err != nil {
			return fmt.Errorf("plancache: purging cache %s: %w", prev.CacheName(), err)
		}
	}
	for _, path := range w.preload {
		if err := w.preloadPath(ctx, path); err != nil {
			return fmt.Errorf("plancache: install failed: %w", err)
		}
	}
	if err := w.cache.Put(versionKey, []byte(w.version.String())); err != nil {
		return fmt.Errorf("plancache: recording version: %w", err)
	}
	if w.opts.SkipWaiting {
		w.Activate()
	}
	return nil
}

func (w *Worker) installedVersion() (*Version, error) {
	bts, ok, err := w.cache.Get(versionKey)
	if err != nil || !ok {
		return nil, err
	}
	version, err := ParseVersion(string(bts))
	if err != nil {
		// an unreadable record cannot drive a purge decision
		w.log.Warn().Err(err).Msg("Discarding invalid installed version record")
		return nil, nil
	}
	return &version, nil
}

func (w *Worker) preloadPath(ctx context.Context, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, path, nil)
	if err != nil {
		return fmt.Errorf("preload %s: %w", path, err)
	}
	res, err := w.fetcher.Fetch(req)
	if err != nil {
		return fmt.Errorf("preload %s: %w", path, err)
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return fmt.Errorf("preload %s: unexpected status %d", path, res.StatusCode)
	}
	if err := w.storeResponse(path, res); err != nil {
		return fmt.Errorf("preload %s: %w", path, err)
	}
	w.log.Debug().Str("path", path).Msg("Preloaded")
	return nil
}

// Activate marks the worker as controlling. Until activation,
// requests pass straight through to the origin.
func (w *Worker) Activate() {
	w.active.Store(true)
	w.log.Info().Msg("Activated")
}

// Active reports whether the worker controls requests.
func (w *Worker) Active() bool {
	return w.active.Load()
}

// Version returns the parsed worker version.
func (w *Worker) Version() Version {
	return w.version
}

// CacheName returns the identity of the worker's cache store.
func (w *Worker) CacheName() string {
	return w.cacheName
}

// PreloadSet returns the sorted, deduplicated paths fetched at
// install time.
func (w *Worker) PreloadSet() []string {
	return append([]string(nil), w.preload...)
}

// ServeHTTP implements the http.Handler interface. Each request is
// one fetch event: route it through the plan and run the matching
// strategy, or pass it through untouched when no entry matches.
func (w *Worker) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	if !w.active.Load() {
		w.passthrough(rw, r)
		return
	}
	entry, ok := plan.Route(w.plan, r.URL.Path, w.scope)
	if !ok {
		w.passthrough(rw, r)
		return
	}
	log := w.log
	if w.opts.Debug {
		log = w.log.With().
			Str("event", uuid.NewString()).
			Str("strategy", string(entry.Strategy)).
			Str("url", r.URL.String()).
			Logger()
	}
	res, fromCache, err := w.execute(entry, r, log)
	if err != nil {
		// a network failure without an applicable fallback becomes a
		// browser-visible failed request
		log.Debug().Err(err).Msg("Strategy failed without fallback")
		rw.Header().Set(statusHeader, string(entry.Strategy)+"; error")
		http.Error(rw, "network error", http.StatusBadGateway)
		return
	}
	w.send(rw, res, entry, fromCache, log)
}

func (w *Worker) send(rw http.ResponseWriter, res *http.Response, entry plan.Entry, fromCache bool, log zerolog.Logger) {
	if res.Body != nil {
		defer res.Body.Close()
	}
	copyHeader(rw.Header(), res.Header)
	status := string(entry.Strategy) + "; miss"
	if fromCache {
		status = string(entry.Strategy) + "; hit"
	}
	rw.Header().Set(statusHeader, status)
	rw.WriteHeader(res.StatusCode)
	if _, err := io.Copy(rw, res.Body); err != nil {
		log.Error().Err(err).Msg("Could not write response body to client")
	}
	log.Debug().Bool("hit", fromCache).Msg("Sent response")
}

// passthrough forwards the request to the origin with no cache
// interaction, for unrouted requests and for requests arriving
// before activation.
func (w *Worker) passthrough(rw http.ResponseWriter, r *http.Request) {
	res, err := w.fetcher.Fetch(r)
	if err != nil {
		w.log.Error().Err(err).Msg("Error connecting to origin")
		http.Error(rw, "could not connect to origin", http.StatusBadGateway)
		return
	}
	defer res.Body.Close()
	copyHeader(rw.Header(), res.Header)
	rw.Header().Set(statusHeader, "pass")
	rw.WriteHeader(res.StatusCode)
	if _, err := io.Copy(rw, res.Body); err != nil {
		w.log.Error().Err(err).Msg("Error writing to client")
	}
}

// storeKey scopes a path to the worker's versioned cache store.
func (w *Worker) storeKey(path string) string {
	return w.cacheName + "\t" + path
}

// cachedResponse looks the given path up in the versioned store.
func (w *Worker) cachedResponse(path string) (*http.Response, bool) {
	bts, ok, err := w.cache.Get(w.storeKey(path))
	if err != nil {
		w.log.Error().Err(err).Str("path", path).Msg("Could not read from cache")
		return nil, false
	}
	if !ok {
		return nil, false
	}
	res, err := bytesToResponse(bts)
	if err != nil {
		w.log.Error().Err(err).Str("path", path).Msg("Could not deserialize cached response")
		return nil, false
	}
	return res, true
}

// storeResponse writes a copy of the response into the versioned
// store. The response body remains readable by the caller.
func (w *Worker) storeResponse(path string, res *http.Response) error {
	bts, err := responseToBytes(res)
	if err != nil {
		return err
	}
	return w.cache.Put(w.storeKey(path), bts)
}

func copyHeader(dst, src http.Header) {
	for k, vv := range src {
		for _, v := range vv {
			dst.Add(k, v)
		}
	}
}
