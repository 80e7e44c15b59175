package depsolver

import (
	"bytes"
	"fmt"
)

// reason classifies why an atom went unresolved (§4.5 step 2d, §7).
type reason uint8

const (
	reasonNotFound reason = iota
	reasonBlacklisted
	reasonModularOnly
)

// Diagnostic is a non-fatal resolution problem surfaced alongside the
// (possibly incomplete) selection. All diagnostic kinds are aggregated, not
// returned as Go errors, mirroring the teacher's traceError split between a
// terse Error() and a verbose traceString() (errors.go).
type Diagnostic interface {
	error
	traceString() string
}

// whitelistMiss records a base-package name from a whitelist that no input
// repo could supply (§6, "whitelist miss").
type whitelistMiss struct {
	name    string
	repoIDs []string
}

func (e *whitelistMiss) Error() string {
	return fmt.Sprintf("'%s' not found in %s.", e.name, formatRepoIDs(e.repoIDs))
}

func (e *whitelistMiss) traceString() string { return e.Error() }

// unresolvedAtom records a required atom that no surviving candidate could
// satisfy, with the sub-reason and the requirer filenames attached (§6,
// §4.5 step 2d).
type unresolvedAtom struct {
	atom       string
	reason     reason
	repoIDs    []string
	requirers  []string
	suggestion string // closest known capability prefix, if any; trace-only
}

func (e *unresolvedAtom) Error() string {
	var buf bytes.Buffer
	switch e.reason {
	case reasonBlacklisted:
		fmt.Fprintf(&buf, "Failed depsolving: %s is blacklisted. These rpms depend on it %s", e.atom, formatFilenames(e.requirers))
	case reasonModularOnly:
		fmt.Fprintf(&buf, "Failed depsolving: %s is only satisfiable by a modular package that cannot be selected for a non-modular requirer. These rpms depend on it %s", e.atom, formatFilenames(e.requirers))
	default:
		fmt.Fprintf(&buf, "Failed depsolving: %s can not be found in these input repos: %s. These rpms depend on it %s", e.atom, formatRepoIDs(e.repoIDs), formatFilenames(e.requirers))
	}
	return buf.String()
}

func (e *unresolvedAtom) traceString() string {
	var base string
	switch e.reason {
	case reasonBlacklisted:
		base = fmt.Sprintf("%s: blacklisted, wanted by %s", e.atom, formatFilenames(e.requirers))
	case reasonModularOnly:
		base = fmt.Sprintf("%s: modular-only, wanted by %s", e.atom, formatFilenames(e.requirers))
	default:
		base = fmt.Sprintf("%s: not found in %s, wanted by %s", e.atom, formatRepoIDs(e.repoIDs), formatFilenames(e.requirers))
	}
	if e.suggestion != "" {
		base += fmt.Sprintf(" (closest known capability: %s)", e.suggestion)
	}
	return base
}

func formatRepoIDs(ids []string) string {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, id := range ids {
		if i > 0 {
			buf.WriteString(", ")
		}
		fmt.Fprintf(&buf, "'%s'", id)
	}
	buf.WriteByte(']')
	return buf.String()
}

func formatFilenames(names []string) string {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, n := range names {
		if i > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString(n)
	}
	buf.WriteByte(']')
	return buf.String()
}

// Diagnostics is the ordered collection the resolver accumulates over one
// run. Ordering follows emission order: whitelist misses come in item and
// whitelist order, while the order of unresolved-atom diagnostics is not
// defined, even against a deterministic content client.
type Diagnostics []Diagnostic

func (d *Diagnostics) add(diag Diagnostic) {
	*d = append(*d, diag)
}

func (d Diagnostics) HasUnresolved() bool {
	for _, diag := range d {
		if _, ok := diag.(*unresolvedAtom); ok {
			return true
		}
	}
	return false
}
