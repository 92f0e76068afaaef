package plancache

import (
	"fmt"
	"strconv"
	"strings"
)

// Version is a semantic "major.minor.patch" worker version.
// It drives the cache store identity and the purge decision.
type Version struct {
	Major int
	Minor int
	Patch int
}

// ParseVersion parses a strict three-part semantic version string.
func ParseVersion(s string) (Version, error) {
	parts := strings.Split(s, ".")
	if len(parts) != 3 {
		return Version{}, fmt.Errorf("version %q is not of the form major.minor.patch", s)
	}
	nums := make([]int, 3)
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return Version{}, fmt.Errorf("version %q has invalid component %q", s, part)
		}
		nums[i] = n
	}
	return Version{Major: nums[0], Minor: nums[1], Patch: nums[2]}, nil
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// CacheName derives the identity of the versioned cache store.
// The patch component is excluded: patch releases keep serving from
// the same store, only major and minor releases get a fresh one.
func (v Version) CacheName() string {
	return fmt.Sprintf("v%d.%d", v.Major, v.Minor)
}

// Decision is the install-time verdict on the existing cache store.
type Decision int

const (
	// Preserve reuses the existing store; preload writes collide
	// harmlessly with identical keys already present.
	Preserve Decision = iota
	// Purge deletes the superseded store entirely before preloading
	// into a fresh one.
	Purge
)

func (d Decision) String() string {
	if d == Purge {
		return "purge"
	}
	return "preserve"
}

// InstallDecision decides between purging and preserving the cache
// store when installing currVersion over prevVersion. A change in
// major or minor purges; a patch-only change (or no change at all)
// preserves. A nil prevVersion means this is the first install, so
// there is nothing to purge.
func InstallDecision(prev *Version, curr Version) Decision {
	if prev == nil {
		return Preserve
	}
	if prev.Major != curr.Major || prev.Minor != curr.Minor {
		return Purge
	}
	return Preserve
}
