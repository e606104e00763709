// Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
// See LICENSE for license information.

package registry

import (
	"fmt"
	"strconv"
	"strings"
)

// semver is a parsed MAJOR.MINOR.PATCH[-pre] version.
type semver struct {
	major int
	minor int
	patch int
	pre   string
}

// parseSemver parses a semantic version string. Build metadata and
// multi-identifier pre-release tags are accepted as an opaque suffix.
func parseSemver(s string) (semver, error) {
	var v semver
	core := s
	if idx := strings.IndexByte(s, '-'); idx >= 0 {
		core = s[:idx]
		v.pre = s[idx+1:]
		if v.pre == "" {
			return semver{}, fmt.Errorf("invalid semantic version %q: empty pre-release", s)
		}
	}

	parts := strings.Split(core, ".")
	if len(parts) != 3 {
		return semver{}, fmt.Errorf("invalid semantic version %q: want MAJOR.MINOR.PATCH", s)
	}
	fields := []*int{&v.major, &v.minor, &v.patch}
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 || (len(part) > 1 && part[0] == '0') {
			return semver{}, fmt.Errorf("invalid semantic version %q: bad numeric field %q", s, part)
		}
		*fields[i] = n
	}
	return v, nil
}

// compare orders two parsed versions: -1, 0, or 1. A pre-release sorts
// below the corresponding release.
func (v semver) compare(o semver) int {
	if c := compareInt(v.major, o.major); c != 0 {
		return c
	}
	if c := compareInt(v.minor, o.minor); c != 0 {
		return c
	}
	if c := compareInt(v.patch, o.patch); c != 0 {
		return c
	}
	switch {
	case v.pre == o.pre:
		return 0
	case v.pre == "":
		return 1
	case o.pre == "":
		return -1
	case v.pre < o.pre:
		return -1
	default:
		return 1
	}
}

func compareInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// compareVersions orders two version strings, treating unparseable
// versions as lowest. Registration guarantees stored versions parse.
func compareVersions(a, b string) int {
	va, errA := parseSemver(a)
	vb, errB := parseSemver(b)
	switch {
	case errA != nil && errB != nil:
		return strings.Compare(a, b)
	case errA != nil:
		return -1
	case errB != nil:
		return 1
	}
	return va.compare(vb)
}
