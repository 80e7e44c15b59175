package depsolver

import (
	"strconv"
	"strings"
)

// EVR is an Epoch-Version-Release tuple, the unit of "highest wins"
// selection throughout the resolver (§4.5, what_provides/get_base_packages).
//
// No library in the retrieval pack implements RPM-style version ordering
// (tilde sorts lowest, caret sorts highest, numeric and alpha segments
// compare differently) — Masterminds/semver, the teacher's version library,
// enforces strict three-component semver and has no tilde/caret notion, so
// it cannot serve here. This is a deliberate standard-library-only leaf.
type EVR struct {
	Epoch   string
	Version string
	Release string
}

// Compare implements rpmvercmp-style EVR ordering: epoch first (numeric,
// defaulting to "0"), then version, then release, each split into
// alternating digit/non-digit segments and compared segment-by-segment.
func (e EVR) Compare(o EVR) int {
	if c := compareEpoch(e.Epoch, o.Epoch); c != 0 {
		return c
	}
	if c := rpmvercmp(e.Version, o.Version); c != 0 {
		return c
	}
	return rpmvercmp(e.Release, o.Release)
}

func compareEpoch(a, b string) int {
	if a == "" {
		a = "0"
	}
	if b == "" {
		b = "0"
	}
	na, erra := strconv.Atoi(a)
	nb, errb := strconv.Atoi(b)
	if erra == nil && errb == nil {
		switch {
		case na < nb:
			return -1
		case na > nb:
			return 1
		default:
			return 0
		}
	}
	return rpmvercmp(a, b)
}

// rpmvercmp compares two version/release strings using the algorithm RPM
// itself uses: segments alternate between digit runs and non-digit runs;
// digit segments compare numerically (after stripping leading zeros), alpha
// segments compare lexicographically, and a tilde ('~') segment always
// sorts lower than anything else (including an absent segment), while a
// caret ('^') segment always sorts higher than anything else (including an
// absent segment).
func rpmvercmp(a, b string) int {
	for len(a) > 0 || len(b) > 0 {
		for len(a) > 0 && !isVersionChar(a[0]) {
			if a[0] == '~' || a[0] == '^' {
				break
			}
			a = a[1:]
		}
		for len(b) > 0 && !isVersionChar(b[0]) {
			if b[0] == '~' || b[0] == '^' {
				break
			}
			b = b[1:]
		}

		if len(a) > 0 && a[0] == '~' || len(b) > 0 && b[0] == '~' {
			aTilde := len(a) > 0 && a[0] == '~'
			bTilde := len(b) > 0 && b[0] == '~'
			switch {
			case aTilde && !bTilde:
				return -1
			case !aTilde && bTilde:
				return 1
			default:
				a, b = a[1:], b[1:]
				continue
			}
		}

		aCaret := len(a) > 0 && a[0] == '^'
		bCaret := len(b) > 0 && b[0] == '^'
		if aCaret || bCaret {
			switch {
			case aCaret && !bCaret:
				return 1
			case !aCaret && bCaret:
				return -1
			default:
				a, b = a[1:], b[1:]
				continue
			}
		}

		if len(a) == 0 || len(b) == 0 {
			break
		}

		var segA, segB string
		var numeric bool
		if isDigit(a[0]) {
			segA, a = splitRun(a, isDigit)
			segB, b = splitRun(b, isDigit)
			numeric = true
			if segB == "" {
				// digits outrank a missing/alpha segment
				return 1
			}
		} else {
			segA, a = splitRun(a, isAlpha)
			segB, b = splitRun(b, isAlpha)
			numeric = false
			if segA != "" && segB == "" {
				return -1
			}
		}

		if numeric {
			segA = strings.TrimLeft(segA, "0")
			segB = strings.TrimLeft(segB, "0")
			if len(segA) != len(segB) {
				if len(segA) > len(segB) {
					return 1
				}
				return -1
			}
		}

		if segA != segB {
			if segA < segB {
				return -1
			}
			return 1
		}
	}

	switch {
	case len(a) == len(b):
		return 0
	case len(a) > len(b):
		return 1
	default:
		return -1
	}
}

func isVersionChar(c byte) bool {
	return isDigit(c) || isAlpha(c)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func splitRun(s string, pred func(byte) bool) (run, rest string) {
	i := 0
	for i < len(s) && pred(s[i]) {
		i++
	}
	return s[:i], s[i:]
}
