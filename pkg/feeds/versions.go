package feeds

import (
	"sort"
	"strconv"
	"strings"
)

// CompareVersions orders two package version strings using NuGet's natural
// ordering: dotted numeric segments compare numerically, a version with a
// prerelease suffix sorts before the same version without one, and
// prerelease labels compare segment-wise (numeric when both sides are
// numeric, case-insensitive lexical otherwise). Build metadata (after '+')
// is ignored. Returns -1, 0, or 1.
func CompareVersions(a, b string) int {
	aCore, aPre := splitPrerelease(a)
	bCore, bPre := splitPrerelease(b)

	if c := compareCore(aCore, bCore); c != 0 {
		return c
	}

	switch {
	case aPre == "" && bPre == "":
		return 0
	case aPre == "":
		return 1 // release sorts after its prereleases
	case bPre == "":
		return -1
	}
	return comparePrerelease(aPre, bPre)
}

// SortVersions sorts versions ascending by [CompareVersions] and removes
// duplicates, preserving the first occurrence's spelling.
func SortVersions(versions []string) []string {
	out := make([]string, 0, len(versions))
	seen := make(map[string]bool, len(versions))
	for _, v := range versions {
		key := strings.ToLower(v)
		if !seen[key] {
			seen[key] = true
			out = append(out, v)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return CompareVersions(out[i], out[j]) < 0
	})
	return out
}

func splitPrerelease(v string) (core, pre string) {
	if i := strings.IndexByte(v, '+'); i >= 0 {
		v = v[:i]
	}
	if i := strings.IndexByte(v, '-'); i >= 0 {
		return v[:i], v[i+1:]
	}
	return v, ""
}

func compareCore(a, b string) int {
	as := strings.Split(a, ".")
	bs := strings.Split(b, ".")
	for i := 0; i < max(len(as), len(bs)); i++ {
		av, bv := 0, 0
		if i < len(as) {
			av, _ = strconv.Atoi(as[i])
		}
		if i < len(bs) {
			bv, _ = strconv.Atoi(bs[i])
		}
		if av != bv {
			if av < bv {
				return -1
			}
			return 1
		}
	}
	return 0
}

func comparePrerelease(a, b string) int {
	as := strings.Split(a, ".")
	bs := strings.Split(b, ".")
	for i := 0; i < max(len(as), len(bs)); i++ {
		switch {
		case i >= len(as):
			return -1 // shorter prerelease sorts first
		case i >= len(bs):
			return 1
		}
		an, aNum := strconv.Atoi(as[i])
		bn, bNum := strconv.Atoi(bs[i])
		switch {
		case aNum == nil && bNum == nil:
			if an != bn {
				if an < bn {
					return -1
				}
				return 1
			}
		case aNum == nil:
			return -1 // numeric identifiers sort before alphanumeric
		case bNum == nil:
			return 1
		default:
			if c := strings.Compare(strings.ToLower(as[i]), strings.ToLower(bs[i])); c != 0 {
				return c
			}
		}
	}
	return 0
}
