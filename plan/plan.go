package plan

import (
	"fmt"
)

// Strategy identifies one caching algorithm.
type Strategy string

const (
	CacheFirst           Strategy = "cache-first"
	NetworkFirst         Strategy = "network-first"
	StaleWhileRevalidate Strategy = "stale-while-revalidate"
	NetworkOnly          Strategy = "network-only"
	StaticOfflineBackup  Strategy = "static-offline-backup"
	// CacheOnInstall entries are not routable, they only contribute
	// to the preload set fetched at install time.
	CacheOnInstall Strategy = "cache-on-install"
)

// FileSpec selects files on disk to be cached at install time.
// It is resolved to concrete paths during plan normalization.
type FileSpec struct {
	Dir    string
	Glob   string
	Prefix string
}

// Entry is one strategy declaration in a plan.
// Strategy is the discriminant; Backup is only valid for
// static-offline-backup, Files only for cache-on-install.
type Entry struct {
	Strategy Strategy
	Paths    PathExpr
	Backup   string
	Files    *FileSpec
}

// Routable reports whether the entry participates in request routing.
func (e Entry) Routable() bool {
	return e.Strategy != CacheOnInstall
}

func (e Entry) validate() error {
	switch e.Strategy {
	case CacheFirst, NetworkFirst, StaleWhileRevalidate, NetworkOnly:
		if e.Files != nil {
			return fmt.Errorf("%s: files not allowed", e.Strategy)
		}
		if e.Backup != "" {
			return fmt.Errorf("%s: backup not allowed", e.Strategy)
		}
	case StaticOfflineBackup:
		if e.Files != nil {
			return fmt.Errorf("%s: files not allowed", e.Strategy)
		}
		if e.Backup == "" {
			return fmt.Errorf("%s: backup is required", e.Strategy)
		}
	case CacheOnInstall:
		if e.Backup != "" {
			return fmt.Errorf("%s: backup not allowed", e.Strategy)
		}
		if (e.Files == nil) == (e.Paths == nil) {
			return fmt.Errorf("%s: exactly one of files or paths must be set", e.Strategy)
		}
	case "":
		return fmt.Errorf("entry is missing a strategy")
	default:
		return fmt.Errorf("unknown strategy %q", e.Strategy)
	}
	return nil
}

// Plan is an ordered sequence of strategy entries. Order is
// semantically load-bearing: routing is first-match in declaration
// order, so more specific entries must be declared before catch-alls.
type Plan []Entry

// FileResolver expands a file spec into concrete, sorted paths.
// It is the only place plan handling touches the file system.
type FileResolver func(FileSpec) ([]string, error)

// Normalize canonicalizes a raw plan: every cache-on-install entry
// declared via a file spec is replaced by an equivalent path-based
// entry, all other entries pass through unchanged in declaration
// order. The input plan is not mutated.
//
// Any validation or file resolution error is fatal: no partial plan
// is ever produced.
func Normalize(raw Plan, resolve FileResolver) (Plan, error) {
	normalized := make(Plan, 0, len(raw))
	for i, e := range raw {
		if err := e.validate(); err != nil {
			return nil, fmt.Errorf("plan entry %d: %w", i, err)
		}
		if e.Strategy == CacheOnInstall && e.Files != nil {
			if resolve == nil {
				return nil, fmt.Errorf("plan entry %d: no file resolver configured", i)
			}
			paths, err := resolve(*e.Files)
			if err != nil {
				return nil, fmt.Errorf("plan entry %d: resolving files: %w", i, err)
			}
			e = Entry{Strategy: CacheOnInstall, Paths: Paths(paths...)}
		}
		if e.Strategy == CacheOnInstall {
			// install-time entries must resolve to concrete paths,
			// there is nothing to fetch for a pattern or scope symbol
			for _, m := range Matchers(e.Paths) {
				if _, ok := m.Literal(); !ok {
					return nil, fmt.Errorf("plan entry %d: %s requires literal paths, got %s", i, CacheOnInstall, m)
				}
			}
		}
		normalized = append(normalized, e)
	}
	return normalized, nil
}
