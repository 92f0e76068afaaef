package plan

import "testing"

func TestRouteFirstMatchWins(t *testing.T) {
	p := Plan{
		{Strategy: NetworkOnly, Paths: Path("/api/login")},
		{Strategy: CacheFirst, Paths: MustPattern(`^/api/`)},
		{Strategy: NetworkFirst, Paths: OriginAndBelow},
	}

	entry, ok := Route(p, "/api/login", "/")
	if !ok || entry.Strategy != NetworkOnly {
		t.Fatalf("Got %v, %v", entry.Strategy, ok)
	}
	entry, ok = Route(p, "/api/items", "/")
	if !ok || entry.Strategy != CacheFirst {
		t.Fatalf("Got %v, %v", entry.Strategy, ok)
	}
	entry, ok = Route(p, "/index.html", "/")
	if !ok || entry.Strategy != NetworkFirst {
		t.Fatalf("Got %v, %v", entry.Strategy, ok)
	}
}

// Reordering overlapping entries changes the outcome for requests in
// the overlap; this ordering dependency is a documented contract.
func TestRouteDeclarationOrderIsLoadBearing(t *testing.T) {
	specific := Entry{Strategy: NetworkOnly, Paths: Path("/api/login")}
	catchAll := Entry{Strategy: CacheFirst, Paths: MustPattern(`^/api/`)}

	entry, _ := Route(Plan{specific, catchAll}, "/api/login", "/")
	if entry.Strategy != NetworkOnly {
		t.Fatalf("Got %v", entry.Strategy)
	}
	entry, _ = Route(Plan{catchAll, specific}, "/api/login", "/")
	if entry.Strategy != CacheFirst {
		t.Fatalf("Got %v", entry.Strategy)
	}
}

func TestRouteNonOverlappingOrderIrrelevant(t *testing.T) {
	a := Entry{Strategy: NetworkOnly, Paths: Path("/a")}
	b := Entry{Strategy: CacheFirst, Paths: Path("/b")}

	for _, p := range []Plan{{a, b}, {b, a}} {
		if entry, ok := Route(p, "/a", "/"); !ok || entry.Strategy != NetworkOnly {
			t.Fatalf("Got %v, %v", entry.Strategy, ok)
		}
		if entry, ok := Route(p, "/b", "/"); !ok || entry.Strategy != CacheFirst {
			t.Fatalf("Got %v, %v", entry.Strategy, ok)
		}
	}
}

func TestRouteSkipsInstallOnlyEntries(t *testing.T) {
	p := Plan{
		{Strategy: CacheOnInstall, Paths: Paths("/logo.png")},
		{Strategy: NetworkFirst, Paths: Path("/logo.png")},
	}
	entry, ok := Route(p, "/logo.png", "/")
	if !ok || entry.Strategy != NetworkFirst {
		t.Fatalf("Got %v, %v", entry.Strategy, ok)
	}
}

func TestRouteNoMatch(t *testing.T) {
	p := Plan{
		{Strategy: CacheFirst, Paths: MustPattern(`\.png$`)},
	}
	if _, ok := Route(p, "/index.html", "/"); ok {
		t.Fatal("Expected no match")
	}
	if _, ok := Route(Plan{}, "/index.html", "/"); ok {
		t.Fatal("Empty plan matched")
	}
}
