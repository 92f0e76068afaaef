package plan

// Route selects the strategy entry governing the given request path.
// It scans the plan in declaration order, skipping install-only
// entries, and returns the first routable entry with a matching path
// expression. Entries after a match are never evaluated: first
// declared, first matched.
//
// The second return value is false when no entry matches, in which
// case the caller should not intervene and let the request pass
// through to the network untouched.
func Route(p Plan, path, scope string) (Entry, bool) {
	for _, e := range p {
		if !e.Routable() {
			continue
		}
		for _, m := range Matchers(e.Paths) {
			if m.Match(path, scope) {
				return e, true
			}
		}
	}
	return Entry{}, false
}
