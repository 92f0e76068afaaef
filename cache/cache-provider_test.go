package cache

import (
	"reflect"
	"testing"
)

func testProvider(t *testing.T, provider CacheProvider) {
	t.Helper()

	if _, ok, err := provider.Get("v1.0\t/a"); err != nil || ok {
		t.Fatalf("Empty cache returned %v, %v", ok, err)
	}

	entries := map[string]string{
		"v1.0\t/a":      "alpha",
		"v1.0\t/b":      "beta",
		"v2.0\t/a":      "alpha-2",
		"meta\tversion": "1.0.0",
	}
	for key, value := range entries {
		if err := provider.Put(key, []byte(value)); err != nil {
			t.Fatal(err)
		}
	}

	if bytes, ok, err := provider.Get("v1.0\t/a"); err != nil || !ok || string(bytes) != "alpha" {
		t.Fatalf("Got %q, %v, %v", bytes, ok, err)
	}
	if ok, err := provider.Has("v2.0\t/a"); err != nil || !ok {
		t.Fatalf("Has returned %v, %v", ok, err)
	}
	if ok, _ := provider.Has("v3.0\t/a"); ok {
		t.Fatal("Has found a missing key")
	}

	// overwrite replaces the previous value
	if err := provider.Put("v1.0\t/a", []byte("alpha-updated")); err != nil {
		t.Fatal(err)
	}
	if bytes, _, _ := provider.Get("v1.0\t/a"); string(bytes) != "alpha-updated" {
		t.Fatalf("Got %q after overwrite", bytes)
	}

	keys, err := provider.Keys("v1.0\t")
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"v1.0\t/a", "v1.0\t/b"}; !reflect.DeepEqual(keys, want) {
		t.Fatalf("Keys are %v", keys)
	}

	// purging one store leaves the others and the meta record alone
	if err := provider.PurgePrefix("v1.0\t"); err != nil {
		t.Fatal(err)
	}
	if keys, _ := provider.Keys("v1.0\t"); len(keys) != 0 {
		t.Fatalf("Keys after purge are %v", keys)
	}
	if ok, _ := provider.Has("v2.0\t/a"); !ok {
		t.Fatal("Purge removed another store's key")
	}
	if ok, _ := provider.Has("meta\tversion"); !ok {
		t.Fatal("Purge removed the meta record")
	}
}

func TestMemCache(t *testing.T) {
	testProvider(t, NewMemCache())
}

func TestSQLiteCache(t *testing.T) {
	testProvider(t, NewSQLiteCache(""))
}

func TestLikePrefixEscapesWildcards(t *testing.T) {
	if got := likePrefix("v1.0\t/100%_done"); got != `v1.0`+"\t"+`/100\%\_done%` {
		t.Fatalf("Escaped prefix is %q", got)
	}
}
