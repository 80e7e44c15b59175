package depsolver

import "github.com/bmatcuk/doublestar/v4"

// Matches implements the exclusion semantics from §3: a rule matches a unit
// when (a) Arch is unset or equals the unit's arch, AND (b) the pattern
// test passes against the unit's name.
//
// "globbing" in the source system means a prefix glob: "test-exc" with
// globbing=true must exclude "test-exclude". We express that as a
// doublestar match against pattern+"*", which also lets a caller embed real
// glob metacharacters (doublestar's "*"/"**"/"?"/character classes) in the
// pattern itself rather than being restricted to a literal prefix.
func (r ExclusionRule) Matches(u Unit) bool {
	if r.Arch != "" && r.Arch != u.Arch {
		return false
	}
	if !r.Globbing {
		return r.Pattern == u.Name
	}
	ok, err := doublestar.Match(r.Pattern+"*", u.Name)
	return err == nil && ok
}

// filterBlacklisted partitions units into survivors and the blacklisted
// ones that were removed, against any rule in the given set.
func filterBlacklisted(units []Unit, blacklist []ExclusionRule) (survivors, excluded []Unit) {
	for _, u := range units {
		blocked := false
		for _, rule := range blacklist {
			if rule.Matches(u) {
				blocked = true
				break
			}
		}
		if blocked {
			excluded = append(excluded, u)
		} else {
			survivors = append(survivors, u)
		}
	}
	return survivors, excluded
}
