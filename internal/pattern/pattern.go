package pattern

import (
	"errors"
	"fmt"
	"regexp"
	"regexp/syntax"
	"strings"
)

// Error describes an expression that failed to compile.
type Error struct {
	Expr   string
	Offset int // -1 when unknown
	Msg    string
}

func (e *Error) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("bad regular expression %q at offset %d: %s", e.Expr, e.Offset, e.Msg)
	}
	return fmt.Sprintf("bad regular expression %q: %s", e.Expr, e.Msg)
}

// Diagnostic renders the multi-line report printed before aborting.
func (e *Error) Diagnostic() string {
	var sb strings.Builder
	sb.WriteString("Bad regular expression:\n")
	fmt.Fprintf(&sb, "  Error     : %s\n", e.Msg)
	fmt.Fprintf(&sb, "  Expression: %s\n", e.Expr)
	if e.Offset >= 0 {
		sb.WriteString("              ")
		sb.WriteString(strings.Repeat(" ", e.Offset))
		sb.WriteString("^\n")
	}
	return sb.String()
}

// Matcher is a compiled name filter. An empty expression matches nothing.
type Matcher struct {
	expr   string
	search *regexp.Regexp
	full   *regexp.Regexp
}

// Compile builds a matcher, failing with *Error on a malformed expression.
func Compile(expr string) (*Matcher, error) {
	m := &Matcher{expr: expr}
	if expr == "" {
		return m, nil
	}

	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, newError(expr, err)
	}
	m.search = re
	m.full = regexp.MustCompile(`^(?:` + expr + `)$`)
	return m, nil
}

// MustCompile is Compile for expressions known to be valid.
func MustCompile(expr string) *Matcher {
	m, err := Compile(expr)
	if err != nil {
		panic(err)
	}
	return m
}

func newError(expr string, err error) *Error {
	out := &Error{Expr: expr, Offset: -1, Msg: err.Error()}
	var serr *syntax.Error
	if errors.As(err, &serr) {
		out.Msg = serr.Code.String()
		if serr.Expr != "" {
			out.Offset = strings.Index(expr, serr.Expr)
		}
	}
	return out
}

// Active reports whether the matcher can match anything at all.
func (m *Matcher) Active() bool { return m != nil && m.search != nil }

// MatchFull reports whether the whole of name matches.
func (m *Matcher) MatchFull(name string) bool {
	return m.Active() && m.full.MatchString(name)
}

// Search reports whether any part of name matches.
func (m *Matcher) Search(name string) bool {
	return m.Active() && m.search.MatchString(name)
}

func (m *Matcher) String() string {
	if m == nil {
		return ""
	}
	return m.expr
}
