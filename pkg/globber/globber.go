// Package globber expands directory+glob specifications into concrete
// serving paths at build time. It is the only component with file
// system access; everything downstream operates on its output.
package globber

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"
)

// Spec selects files under Dir matching Glob. Each match is turned
// into a serving path by joining Prefix with the match's path
// relative to Dir.
type Spec struct {
	Dir    string
	Glob   string
	Prefix string
}

// Resolve expands the spec into a sorted list of serving paths.
// A glob starting with "**/" matches in Dir and every directory
// below it, otherwise the glob is matched against paths relative to
// Dir directly. I/O errors abort resolution.
func Resolve(spec Spec) ([]string, error) {
	return ResolveFS(os.DirFS(spec.Dir), spec)
}

// ResolveFS is Resolve over an explicit file system, for callers and
// tests that do not want to touch the host disk.
func ResolveFS(fsys fs.FS, spec Spec) ([]string, error) {
	if spec.Glob == "" {
		return nil, fmt.Errorf("globber: empty glob for dir %q", spec.Dir)
	}
	var matches []string
	var err error
	if strings.HasPrefix(spec.Glob, "**/") {
		matches, err = globRecursive(fsys, strings.TrimPrefix(spec.Glob, "**/"))
	} else {
		matches, err = fs.Glob(fsys, spec.Glob)
	}
	if err != nil {
		return nil, fmt.Errorf("globber: %q in %q: %w", spec.Glob, spec.Dir, err)
	}
	paths := make([]string, 0, len(matches))
	for _, m := range matches {
		if info, err := fs.Stat(fsys, m); err != nil {
			return nil, fmt.Errorf("globber: stat %q: %w", m, err)
		} else if info.IsDir() {
			continue
		}
		paths = append(paths, joinPrefix(spec.Prefix, m))
	}
	sort.Strings(paths)
	return paths, nil
}

func globRecursive(fsys fs.FS, namePattern string) ([]string, error) {
	var matches []string
	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ok, err := path.Match(namePattern, path.Base(p))
		if err != nil {
			return err
		}
		if ok {
			matches = append(matches, p)
		}
		return nil
	})
	return matches, err
}

func joinPrefix(prefix, rel string) string {
	joined := path.Join("/", prefix, rel)
	return joined
}
