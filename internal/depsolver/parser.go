package depsolver

import "strings"

// reservedWords are the boolean-expression keywords that rich dependency
// strings use to connect leaf atoms. The parser discards them: it is
// deliberately an over-approximation, since the resolver tracks capabilities
// by name and never evaluates the boolean structure at selection time
// (§4.1).
var reservedWords = map[string]struct{}{
	"and":     {},
	"or":      {},
	"if":      {},
	"else":    {},
	"with":    {},
	"without": {},
	"unless":  {},
}

// ParseRichDependency tokenizes a raw dependency string and returns the flat
// set of atomic capability names that appear as leaves of the expression.
// Parentheses are structural only; reserved words are dropped; leaves that
// look like filesystem paths are dropped entirely, since the core never
// resolves file-path dependencies.
//
// Malformed input degrades to best-effort token extraction rather than an
// error — this component never fails the overall run (§4.1, "Errors").
func ParseRichDependency(expr string) []string {
	var leaves []string
	for _, tok := range tokenize(expr) {
		if _, reserved := reservedWords[tok]; reserved {
			continue
		}
		if strings.HasPrefix(tok, "/") {
			continue
		}
		leaves = append(leaves, tok)
	}
	return leaves
}

// tokenize splits on whitespace, then strips parens that are structural for
// a given word rather than part of it. A paren is structural only when it
// is unmatched within its own whitespace-delimited word: "(pkgX" loses its
// leading paren, but "pkgX(abc)" keeps both of its parens since they balance
// within the word (§4.1's embedded-capability grammar, e.g. "pkgX(abc)").
func tokenize(expr string) []string {
	var tokens []string
	for _, word := range strings.Fields(expr) {
		word = stripStructuralParens(word)
		if word != "" {
			tokens = append(tokens, word)
		}
	}
	return tokens
}

// stripStructuralParens removes leading '(' and trailing ')' runs that have
// no matching partner within word, leaving balanced embedded parens intact.
func stripStructuralParens(word string) string {
	open := strings.Count(word, "(")
	close := strings.Count(word, ")")
	for open > close && len(word) > 0 && word[0] == '(' {
		word = word[1:]
		open--
	}
	for close > open && len(word) > 0 && word[len(word)-1] == ')' {
		word = word[:len(word)-1]
		close--
	}
	return word
}
