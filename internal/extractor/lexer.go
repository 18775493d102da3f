package extractor

import (
	"strings"
)

type tokenKind int

const (
	tokIdent tokenKind = iota
	tokNumber
	tokChar
	tokString
	tokPunct
	tokOther
)

// ppToken is a preprocessing token. Offset is the byte offset in the raw
// source the token came from; macro expansions inherit the offset of the
// invocation.
type ppToken struct {
	kind   tokenKind
	text   string
	offset int
	// space is set when whitespace or a comment precedes the token.
	space bool
	// bol is set on the first token of a logical line.
	bol  bool
	hide hideSet
}

func (t ppToken) is(kind tokenKind, text string) bool {
	return t.kind == kind && t.text == text
}

// hideSet holds the macros that must not expand a token again.
type hideSet []string

func (h hideSet) has(name string) bool {
	for _, n := range h {
		if n == name {
			return true
		}
	}
	return false
}

func (h hideSet) with(name string) hideSet {
	if h.has(name) {
		return h
	}
	out := make(hideSet, len(h), len(h)+1)
	copy(out, h)
	return append(out, name)
}

func (h hideSet) union(o hideSet) hideSet {
	out := h
	for _, n := range o {
		out = out.with(n)
	}
	return out
}

func (h hideSet) intersect(o hideSet) hideSet {
	var out hideSet
	for _, n := range h {
		if o.has(n) {
			out = append(out, n)
		}
	}
	return out
}

// Longest first. The bracket digraphs are left out so that `<::` stays
// two tokens.
var punctuators = []string{
	"%:%:", "...", "<=>", "<<=", ">>=", "->*",
	"::", "->", "++", "--", "<<", ">>", "<=", ">=", "==", "!=", "&&", "||",
	"+=", "-=", "*=", "/=", "%=", "&=", "|=", "^=", "##", ".*", "%:",
	"{", "}", "[", "]", "(", ")", ";", ":", "?", ".", "+", "-", "*", "/", "%",
	"^", "&", "|", "~", "!", "=", "<", ">", ",", "#",
}

func isIdentStart(c byte) bool {
	return c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c >= 0x80
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// lexer splits source into logical lines of preprocessing tokens. Line
// splices are removed and comments count as whitespace.
type lexer struct {
	src  string
	pos  int
	bol  bool
	line int
}

func newLexer(src string) *lexer {
	return &lexer{src: src, bol: true, line: 1}
}

func (l *lexer) skipSplices() {
	for strings.HasPrefix(l.src[l.pos:], "\\\n") || strings.HasPrefix(l.src[l.pos:], "\\\r\n") {
		if l.src[l.pos+1] == '\r' {
			l.pos += 3
		} else {
			l.pos += 2
		}
		l.line++
	}
}

// next returns the next token, or ok=false at the end of input. A token
// following a newline has bol set.
func (l *lexer) next() (ppToken, bool) {
	space := false
	for {
		l.skipSplices()
		if l.pos >= len(l.src) {
			return ppToken{}, false
		}
		c := l.src[l.pos]
		switch {
		case c == '\n':
			l.pos++
			l.line++
			l.bol = true
			space = false
			continue
		case c == ' ' || c == '\t' || c == '\r' || c == '\f' || c == '\v':
			l.pos++
			space = true
			continue
		case strings.HasPrefix(l.src[l.pos:], "//"):
			for l.pos < len(l.src) && l.src[l.pos] != '\n' {
				if strings.HasPrefix(l.src[l.pos:], "\\\n") {
					l.pos += 2
					l.line++
					continue
				}
				l.pos++
			}
			space = true
			continue
		case strings.HasPrefix(l.src[l.pos:], "/*"):
			end := strings.Index(l.src[l.pos+2:], "*/")
			if end < 0 {
				l.line += strings.Count(l.src[l.pos:], "\n")
				l.pos = len(l.src)
			} else {
				l.line += strings.Count(l.src[l.pos:l.pos+2+end], "\n")
				l.pos += end + 4
			}
			space = true
			continue
		}
		break
	}

	tok := ppToken{offset: l.pos, space: space, bol: l.bol}
	l.bol = false
	tok.kind, tok.text = l.scan()
	return tok, true
}

func (l *lexer) scan() (tokenKind, string) {
	start := l.pos
	c := l.src[l.pos]

	if isIdentStart(c) {
		for l.pos < len(l.src) && isIdentChar(l.src[l.pos]) {
			l.pos++
		}
		ident := l.src[start:l.pos]
		// Encoding prefixes of character and string literals.
		if l.pos < len(l.src) {
			switch q := l.src[l.pos]; {
			case q == '"' && (ident == "R" || ident == "LR" || ident == "uR" || ident == "UR" || ident == "u8R"):
				l.scanRawString()
				return tokString, l.src[start:l.pos]
			case (q == '"' || q == '\'') && (ident == "L" || ident == "u" || ident == "U" || ident == "u8"):
				kind := l.scanQuoted(q)
				return kind, l.src[start:l.pos]
			}
		}
		return tokIdent, ident
	}

	if isDigit(c) || (c == '.' && l.pos+1 < len(l.src) && isDigit(l.src[l.pos+1])) {
		l.pos++
		for l.pos < len(l.src) {
			d := l.src[l.pos]
			if (d == '+' || d == '-') && strings.ContainsRune("eEpP", rune(l.src[l.pos-1])) {
				l.pos++
				continue
			}
			if d == '\'' && l.pos+1 < len(l.src) && isIdentChar(l.src[l.pos+1]) {
				l.pos++
				continue
			}
			if !isIdentChar(d) && d != '.' {
				break
			}
			l.pos++
		}
		return tokNumber, l.src[start:l.pos]
	}

	if c == '"' || c == '\'' {
		kind := l.scanQuoted(c)
		return kind, l.src[start:l.pos]
	}

	for _, p := range punctuators {
		if strings.HasPrefix(l.src[l.pos:], p) {
			l.pos += len(p)
			return tokPunct, p
		}
	}
	l.pos++
	return tokOther, l.src[start:l.pos]
}

func (l *lexer) scanQuoted(q byte) tokenKind {
	l.pos++
scan:
	for l.pos < len(l.src) {
		switch l.src[l.pos] {
		case '\\':
			l.pos++
		case '\n':
			break scan
		case q:
			l.pos++
			break scan
		}
		l.pos++
	}
	if l.pos > len(l.src) {
		l.pos = len(l.src)
	}
	if q == '"' {
		return tokString
	}
	return tokChar
}

func (l *lexer) scanRawString() {
	// R"delim( ... )delim"
	l.pos++
	open := strings.IndexByte(l.src[l.pos:], '(')
	if open < 0 {
		l.pos = len(l.src)
		return
	}
	delim := l.src[l.pos : l.pos+open]
	l.pos += open + 1
	end := strings.Index(l.src[l.pos:], ")"+delim+"\"")
	if end < 0 {
		l.pos = len(l.src)
		return
	}
	l.line += strings.Count(l.src[l.pos:l.pos+end], "\n")
	l.pos += end + len(delim) + 2
}

// tokenize lexes a whole fragment, such as a macro body, into tokens.
func tokenize(src string) []ppToken {
	lx := newLexer(src)
	var out []ppToken
	for {
		t, ok := lx.next()
		if !ok {
			return out
		}
		out = append(out, t)
	}
}
