package plan

import (
	"regexp"
	"strings"
)

// PathExpr is any accepted path specification for a plan entry:
// a literal path, a regular expression pattern, an ordered list of
// expressions, or a scope symbol.
type PathExpr interface {
	appendMatchers(dst []Matcher) []Matcher
}

// Path is a literal path, matched by exact comparison.
type Path string

// Pattern matches paths against a regular expression.
type Pattern struct {
	*regexp.Regexp
}

// MustPattern compiles the given expression into a Pattern.
// It panics on an invalid expression, so it is intended for
// programmatic plan construction; config loading compiles patterns
// with proper error reporting instead.
func MustPattern(expr string) Pattern {
	return Pattern{regexp.MustCompile(expr)}
}

// List is an ordered list of path expressions.
// Matching is set-like, the order only matters for display.
type List []PathExpr

// Scope is a symbolic matcher covering everything under the worker's
// origin or registration scope. Scope symbols are never enumerated
// into concrete paths.
type Scope int

const (
	// OriginAndBelow matches every same-origin path.
	OriginAndBelow Scope = iota
	// ScopeAndBelow matches every path under the worker's scope prefix.
	ScopeAndBelow
)

type matcherKind int

const (
	matchLiteral matcherKind = iota
	matchPattern
	matchScope
)

// Matcher is one concrete matcher produced by normalizing a PathExpr.
type Matcher struct {
	kind    matcherKind
	literal string
	re      *regexp.Regexp
	scope   Scope
}

// Match reports whether the given request path is covered by the matcher.
// The worker's scope prefix is needed for scope matchers only.
func (m Matcher) Match(path, scope string) bool {
	switch m.kind {
	case matchLiteral:
		return m.literal == path
	case matchPattern:
		return m.re.MatchString(path)
	case matchScope:
		if m.scope == OriginAndBelow {
			// the worker only ever sees same-origin requests
			return true
		}
		return strings.HasPrefix(path, scope)
	}
	return false
}

// Literal returns the literal path of a literal matcher,
// and false for pattern and scope matchers.
func (m Matcher) Literal() (string, bool) {
	return m.literal, m.kind == matchLiteral
}

func (m Matcher) String() string {
	switch m.kind {
	case matchLiteral:
		return m.literal
	case matchPattern:
		return "re:" + m.re.String()
	case matchScope:
		if m.scope == OriginAndBelow {
			return "origin-and-below"
		}
		return "scope-and-below"
	}
	return "invalid"
}

// Matchers normalizes a path expression into its ordered sequence of
// concrete matchers. Normalization is total: a nil expression or an
// empty list yields an empty sequence, which matches nothing.
func Matchers(expr PathExpr) []Matcher {
	if expr == nil {
		return nil
	}
	return expr.appendMatchers(nil)
}

func (p Path) appendMatchers(dst []Matcher) []Matcher {
	return append(dst, Matcher{kind: matchLiteral, literal: string(p)})
}

func (p Pattern) appendMatchers(dst []Matcher) []Matcher {
	return append(dst, Matcher{kind: matchPattern, re: p.Regexp})
}

func (l List) appendMatchers(dst []Matcher) []Matcher {
	for _, e := range l {
		if e != nil {
			dst = e.appendMatchers(dst)
		}
	}
	return dst
}

func (s Scope) appendMatchers(dst []Matcher) []Matcher {
	return append(dst, Matcher{kind: matchScope, scope: s})
}

// Paths builds a List of literal paths.
func Paths(paths ...string) List {
	l := make(List, 0, len(paths))
	for _, p := range paths {
		l = append(l, Path(p))
	}
	return l
}
