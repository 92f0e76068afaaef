package globber

import (
	"reflect"
	"testing"
	"testing/fstest"
)

var testFS = fstest.MapFS{
	"a.css":          &fstest.MapFile{Data: []byte("a")},
	"z.css":          &fstest.MapFile{Data: []byte("z")},
	"readme.txt":     &fstest.MapFile{Data: []byte("t")},
	"sub/b.css":      &fstest.MapFile{Data: []byte("b")},
	"sub/deep/c.css": &fstest.MapFile{Data: []byte("c")},
}

func TestResolveFlatGlob(t *testing.T) {
	paths, err := ResolveFS(testFS, Spec{Dir: "static", Glob: "*.css", Prefix: "/assets"})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"/assets/a.css", "/assets/z.css"}
	if !reflect.DeepEqual(paths, want) {
		t.Fatalf("Paths are %v", paths)
	}
}

func TestResolveRecursiveGlob(t *testing.T) {
	paths, err := ResolveFS(testFS, Spec{Dir: "static", Glob: "**/*.css", Prefix: "/assets"})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"/assets/a.css", "/assets/sub/b.css", "/assets/sub/deep/c.css", "/assets/z.css"}
	if !reflect.DeepEqual(paths, want) {
		t.Fatalf("Paths are %v", paths)
	}
}

func TestResolveWithoutPrefix(t *testing.T) {
	paths, err := ResolveFS(testFS, Spec{Dir: "static", Glob: "*.txt"})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"/readme.txt"}
	if !reflect.DeepEqual(paths, want) {
		t.Fatalf("Paths are %v", paths)
	}
}

func TestResolveEmptyGlobFails(t *testing.T) {
	if _, err := ResolveFS(testFS, Spec{Dir: "static"}); err == nil {
		t.Fatal("Empty glob accepted")
	}
}

func TestResolveNoMatches(t *testing.T) {
	paths, err := ResolveFS(testFS, Spec{Dir: "static", Glob: "*.woff"})
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) != 0 {
		t.Fatalf("Paths are %v", paths)
	}
}
