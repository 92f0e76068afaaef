package plan

import "sort"

// Preload derives the set of resources that must be fetched and
// cached before the worker activates: every path of every
// cache-on-install entry plus the backup of every
// static-offline-backup entry. The result is sorted and deduplicated,
// so it is stable across entry reordering and repeated extraction.
//
// Note that a static-offline-backup entry contributes its backup even
// though its routing never writes the cache for its paths: the backup
// must already be cached when the network first fails.
func Preload(p Plan) []string {
	seen := make(map[string]bool)
	paths := make([]string, 0)
	add := func(path string) {
		if path != "" && !seen[path] {
			seen[path] = true
			paths = append(paths, path)
		}
	}
	for _, e := range p {
		switch e.Strategy {
		case CacheOnInstall:
			for _, m := range Matchers(e.Paths) {
				if literal, ok := m.Literal(); ok {
					add(literal)
				}
			}
		case StaticOfflineBackup:
			add(e.Backup)
		}
	}
	sort.Strings(paths)
	return paths
}
