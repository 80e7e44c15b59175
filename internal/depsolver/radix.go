package depsolver

import radix "github.com/armon/go-radix"

// atomIndex is a typed wrapper around a radix tree keyed by atom name,
// adapted from the teacher's deducerTrie (typed_radix.go): a thin type-safe
// shim that avoids interface{} assertions everywhere else in the resolver.
//
// The resolver's _provides/_requires/_unsolved bookkeeping is really just
// set membership by name, but diagnostics (§7) repeatedly need "does any
// selected unit provide a name with this prefix" style lookups when
// explaining dangling symbols for synthetic capabilities like
// "pkgX(abc)" against a requirer's raw atom text, so a prefix-searchable
// index pays for itself over a plain map.
type atomIndex struct {
	t *radix.Tree
}

func newAtomIndex() atomIndex {
	return atomIndex{t: radix.New()}
}

// Insert records that name is backed by at least one unit in origin; callers
// only care about presence, so repeated inserts of the same name just widen
// the recorded origin list.
func (idx atomIndex) Insert(name string, origin string) {
	if v, ok := idx.t.Get(name); ok {
		origins := v.([]string)
		for _, o := range origins {
			if o == origin {
				return
			}
		}
		idx.t.Insert(name, append(origins, origin))
		return
	}
	idx.t.Insert(name, []string{origin})
}

// LongestPrefix exposes the radix tree's namesake operation, used when a
// diagnostic needs to report the closest known capability family for an
// unresolved synthetic atom such as "pkgX(abc)".
func (idx atomIndex) LongestPrefix(name string) (string, bool) {
	p, _, has := idx.t.LongestPrefix(name)
	return p, has
}

func (idx atomIndex) Len() int {
	return idx.t.Len()
}
