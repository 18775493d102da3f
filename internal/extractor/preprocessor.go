package extractor

import (
	"io"
	"log"
	"sort"
	"strconv"
	"strings"

	"bindgen/internal/frontend"
)

type macro struct {
	def    *frontend.MacroDefinition
	body   []ppToken
	params []string
	// variadic means the last parameter collects the remaining arguments.
	variadic bool
}

func (m *macro) param(t ppToken) int {
	if !m.def.IsFunctionLike || t.kind != tokIdent {
		return -1
	}
	for i, p := range m.params {
		if p == t.text {
			return i
		}
	}
	return -1
}

// Macros the preprocessor computes itself.
var dynamicMacros = []string{"__LINE__", "__FILE__", "__COUNTER__", "__DATE__", "__TIME__"}

// origin maps an output byte offset to the raw offset of the token that
// produced it.
type origin struct {
	out int
	raw int
}

type ppResult struct {
	text    string
	origins []origin
}

// rawOffset finds the raw source offset of the token starting at out.
func (r *ppResult) rawOffset(out int) (int, bool) {
	i := sort.Search(len(r.origins), func(i int) bool { return r.origins[i].out >= out })
	if i < len(r.origins) && r.origins[i].out == out {
		return r.origins[i].raw, true
	}
	return 0, false
}

type condFrame struct {
	active bool
	taken  bool
	parent bool
}

// preprocessor runs directives and expands macros ahead of parsing. Include
// directives are not followed: every header is handed over explicitly.
type preprocessor struct {
	macros  map[string]*macro
	defs    []*frontend.MacroDefinition
	logger  *log.Logger
	file    string
	src     string
	counter int
}

func newPreprocessor(logger *log.Logger) *preprocessor {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	p := &preprocessor{macros: make(map[string]*macro), logger: logger}
	for _, name := range dynamicMacros {
		def := &frontend.MacroDefinition{Name: name, IsBuiltin: true}
		p.defs = append(p.defs, def)
		p.macros[name] = &macro{def: def}
	}
	return p
}

// fork copies the macro table so that directives of a synthetic unit do
// not leak into the primary one.
func (p *preprocessor) fork() *preprocessor {
	cp := &preprocessor{macros: make(map[string]*macro, len(p.macros)), logger: p.logger, counter: p.counter}
	for k, v := range p.macros {
		cp.macros[k] = v
	}
	return cp
}

// predefine handles a command-line style definition, NAME or NAME(args),
// with an optional value. A user definition without a value is 1.
func (p *preprocessor) predefine(name, value string, builtin bool) {
	toks := tokenize(name + " " + value)
	if len(toks) == 0 {
		return
	}
	if len(toks) == 1 && value == "" && !builtin {
		toks = append(toks, ppToken{kind: tokNumber, text: "1", space: true})
	}
	if def := p.define(toks); def != nil {
		def.IsBuiltin = builtin
	}
}

func (p *preprocessor) defined(name string) bool {
	_, ok := p.macros[name]
	return ok
}

// run preprocesses one file.
func (p *preprocessor) run(file, src string) *ppResult {
	p.file, p.src = file, src

	var lines [][]ppToken
	lx := newLexer(src)
	for {
		t, ok := lx.next()
		if !ok {
			break
		}
		if t.bol || len(lines) == 0 {
			lines = append(lines, nil)
		}
		lines[len(lines)-1] = append(lines[len(lines)-1], t)
	}

	out := &ppResult{}
	var sb strings.Builder
	var block []ppToken
	var stack []condFrame
	active := func() bool { return len(stack) == 0 || stack[len(stack)-1].active }
	flush := func() {
		if len(block) > 0 {
			p.emit(&sb, out, p.expand(block))
			block = nil
		}
	}

	for _, line := range lines {
		if line[0].is(tokPunct, "#") || line[0].is(tokPunct, "%:") {
			flush()
			stack = p.directive(line[1:], stack, active())
			continue
		}
		if active() {
			block = append(block, line...)
		}
	}
	flush()
	if len(stack) > 0 {
		p.logger.Printf("%s: unterminated conditional directive", file)
	}
	out.text = sb.String()
	return out
}

func (p *preprocessor) emit(sb *strings.Builder, out *ppResult, toks []ppToken) {
	for i, t := range toks {
		switch {
		case sb.Len() == 0:
		case t.bol:
			sb.WriteByte('\n')
		case t.space:
			sb.WriteByte(' ')
		case i > 0 && needsSeparator(toks[i-1], t):
			sb.WriteByte(' ')
		case i == 0:
			sb.WriteByte('\n')
		}
		out.origins = append(out.origins, origin{out: sb.Len(), raw: t.offset})
		sb.WriteString(t.text)
	}
}

// needsSeparator keeps adjacent tokens from lexing as one.
func needsSeparator(a, b ppToken) bool {
	if a.text == "" || b.text == "" {
		return false
	}
	if isIdentChar(a.text[len(a.text)-1]) && isIdentChar(b.text[0]) {
		return true
	}
	return a.kind == tokPunct && b.kind == tokPunct
}

func (p *preprocessor) directive(toks []ppToken, stack []condFrame, active bool) []condFrame {
	if len(toks) == 0 {
		return stack
	}
	name, args := toks[0].text, toks[1:]

	switch name {
	case "if", "ifdef", "ifndef":
		cond := false
		if active {
			switch name {
			case "if":
				cond = p.condition(args)
			case "ifdef":
				cond = len(args) > 0 && p.defined(args[0].text)
			case "ifndef":
				cond = len(args) > 0 && !p.defined(args[0].text)
			}
		}
		return append(stack, condFrame{active: active && cond, taken: cond, parent: active})
	case "elif", "elifdef", "elifndef":
		if len(stack) == 0 {
			return stack
		}
		top := &stack[len(stack)-1]
		if top.taken || !top.parent {
			top.active = false
			return stack
		}
		var cond bool
		switch name {
		case "elif":
			cond = p.condition(args)
		case "elifdef":
			cond = len(args) > 0 && p.defined(args[0].text)
		default:
			cond = len(args) > 0 && !p.defined(args[0].text)
		}
		top.active, top.taken = cond, cond
		return stack
	case "else":
		if len(stack) == 0 {
			return stack
		}
		top := &stack[len(stack)-1]
		top.active = top.parent && !top.taken
		top.taken = true
		return stack
	case "endif":
		if len(stack) == 0 {
			return stack
		}
		return stack[:len(stack)-1]
	}

	if !active {
		return stack
	}
	switch name {
	case "define":
		p.define(args)
	case "undef":
		if len(args) > 0 {
			delete(p.macros, args[0].text)
		}
	case "error":
		p.logger.Printf("%s: #error %s", p.file, spell(args))
	}
	return stack
}

// define registers a #define and records it for macro collection.
func (p *preprocessor) define(toks []ppToken) *frontend.MacroDefinition {
	if len(toks) == 0 || toks[0].kind != tokIdent {
		return nil
	}
	def := &frontend.MacroDefinition{Name: toks[0].text}
	m := &macro{def: def}
	body := toks[1:]

	if len(body) > 0 && body[0].is(tokPunct, "(") && !body[0].space {
		def.IsFunctionLike = true
		i := 1
		for ; i < len(body); i++ {
			t := body[i]
			switch {
			case t.is(tokPunct, ")"):
			case t.is(tokPunct, ","):
				continue
			case t.is(tokPunct, "..."):
				def.IsC99Varargs = true
				m.variadic = true
				def.Params = append(def.Params, "__VA_ARGS__")
				continue
			case t.kind == tokIdent:
				def.Params = append(def.Params, t.text)
				if i+1 < len(body) && body[i+1].is(tokPunct, "...") {
					def.IsGNUVarargs = true
					m.variadic = true
					i++
				}
				continue
			default:
				p.logger.Printf("%s: malformed parameter list of macro %s", p.file, def.Name)
				return nil
			}
			break
		}
		if i >= len(body) {
			p.logger.Printf("%s: unterminated parameter list of macro %s", p.file, def.Name)
			return nil
		}
		body = body[i+1:]
	}

	m.params = def.Params
	m.body = make([]ppToken, len(body))
	for i, t := range body {
		t.bol = false
		m.body[i] = t
		def.Tokens = append(def.Tokens, frontend.Token{Spelling: t.text, LeadingSpace: t.space})
	}
	p.macros[def.Name] = m
	p.defs = append(p.defs, def)
	return def
}

// expand fully macro-expands toks.
func (p *preprocessor) expand(toks []ppToken) []ppToken {
	var out []ppToken
	ts := toks
	for len(ts) > 0 {
		t := ts[0]
		m, ok := p.macros[t.text]
		if t.kind != tokIdent || !ok || t.hide.has(t.text) {
			out = append(out, t)
			ts = ts[1:]
			continue
		}

		if body, ok := p.dynamic(t); ok {
			out = append(out, body)
			ts = ts[1:]
			continue
		}

		if !m.def.IsFunctionLike {
			body := p.subst(m, nil, t.hide.with(t.text), t)
			ts = append(body, ts[1:]...)
			continue
		}

		args, rest, rparen, ok := p.collectArgs(m, ts[1:])
		if !ok {
			out = append(out, t)
			ts = ts[1:]
			continue
		}
		hs := t.hide.intersect(rparen.hide).with(t.text)
		body := p.subst(m, args, hs, t)
		ts = append(body, rest...)
	}
	return out
}

func (p *preprocessor) dynamic(t ppToken) (ppToken, bool) {
	out := ppToken{offset: t.offset, space: t.space, bol: t.bol}
	switch t.text {
	case "__LINE__":
		out.kind, out.text = tokNumber, strconv.Itoa(1+strings.Count(p.src[:min(t.offset, len(p.src))], "\n"))
	case "__FILE__":
		out.kind, out.text = tokString, strconv.Quote(p.file)
	case "__COUNTER__":
		out.kind, out.text = tokNumber, strconv.Itoa(p.counter)
		p.counter++
	case "__DATE__":
		out.kind, out.text = tokString, `"Jan  1 1970"`
	case "__TIME__":
		out.kind, out.text = tokString, `"00:00:00"`
	default:
		return ppToken{}, false
	}
	return out, true
}

// collectArgs reads a parenthesized argument list. It reports false when
// the macro name is not followed by an invocation.
func (p *preprocessor) collectArgs(m *macro, ts []ppToken) ([][]ppToken, []ppToken, ppToken, bool) {
	if len(ts) == 0 || !ts[0].is(tokPunct, "(") {
		return nil, nil, ppToken{}, false
	}
	var args [][]ppToken
	cur := []ppToken{}
	depth := 0
	for i := 1; i < len(ts); i++ {
		t := ts[i]
		switch {
		case t.is(tokPunct, "("):
			depth++
		case t.is(tokPunct, ")") && depth > 0:
			depth--
		case t.is(tokPunct, ")"):
			args = append(args, cur)
			if len(m.params) == 0 && len(args) == 1 && len(args[0]) == 0 {
				args = nil
			}
			if m.variadic && len(args) == len(m.params)-1 {
				args = append(args, nil)
			}
			if len(args) != len(m.params) {
				p.logger.Printf("%s: macro %s expects %d arguments, got %d", p.file, m.def.Name, len(m.params), len(args))
				return nil, nil, ppToken{}, false
			}
			return args, ts[i+1:], t, true
		case t.is(tokPunct, ",") && depth == 0 && !(m.variadic && len(args) == len(m.params)-1):
			args = append(args, cur)
			cur = []ppToken{}
			continue
		}
		t.bol = false
		cur = append(cur, t)
	}
	p.logger.Printf("%s: unterminated invocation of macro %s", p.file, m.def.Name)
	return nil, nil, ppToken{}, false
}

// subst instantiates the body of m for one invocation at site.
func (p *preprocessor) subst(m *macro, args [][]ppToken, hs hideSet, site ppToken) []ppToken {
	var out []ppToken
	body := m.body
	for i := 0; i < len(body); i++ {
		t := body[i]

		if m.def.IsFunctionLike && t.is(tokPunct, "#") && i+1 < len(body) {
			if idx := m.param(body[i+1]); idx >= 0 {
				s := stringify(args[idx])
				s.space = t.space
				out = append(out, s)
				i++
				continue
			}
		}

		if t.is(tokPunct, "##") && i+1 < len(body) {
			i++
			rhs := []ppToken{body[i]}
			idx := m.param(body[i])
			if idx >= 0 {
				rhs = args[idx]
			}
			if len(rhs) == 0 {
				// GNU extension: `, ## __VA_ARGS__` drops the comma.
				if idx == len(m.params)-1 && m.variadic && len(out) > 0 && out[len(out)-1].is(tokPunct, ",") {
					out = out[:len(out)-1]
				}
				continue
			}
			if len(out) == 0 {
				out = append(out, rhs...)
				continue
			}
			last := out[len(out)-1]
			if pasted := tokenize(last.text + rhs[0].text); len(pasted) == 1 {
				last.kind, last.text = pasted[0].kind, pasted[0].text
				out[len(out)-1] = last
			} else {
				out = append(out, rhs[0])
			}
			out = append(out, rhs[1:]...)
			continue
		}

		if idx := m.param(t); idx >= 0 {
			arg := args[idx]
			if !(i+1 < len(body) && body[i+1].is(tokPunct, "##")) {
				arg = p.expand(append([]ppToken(nil), arg...))
			}
			for j, a := range arg {
				if j == 0 {
					a.space = t.space
				}
				out = append(out, a)
			}
			continue
		}
		out = append(out, t)
	}

	for i := range out {
		out[i].hide = out[i].hide.union(hs)
		out[i].offset = site.offset
		out[i].bol = false
	}
	if len(out) > 0 {
		out[0].space = site.space
		out[0].bol = site.bol
	} else if site.bol {
		// Keep the line break of an invocation that expands to nothing.
		out = append(out, ppToken{kind: tokOther, offset: site.offset, bol: true})
	}
	return out
}

func stringify(arg []ppToken) ppToken {
	var sb strings.Builder
	sb.WriteByte('"')
	for i, t := range arg {
		if i > 0 && t.space {
			sb.WriteByte(' ')
		}
		if t.kind == tokString || t.kind == tokChar {
			sb.WriteString(strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(t.text))
			continue
		}
		sb.WriteString(t.text)
	}
	sb.WriteByte('"')
	return ppToken{kind: tokString, text: sb.String()}
}

func spell(toks []ppToken) string {
	var sb strings.Builder
	for i, t := range toks {
		if i > 0 && t.space {
			sb.WriteByte(' ')
		}
		sb.WriteString(t.text)
	}
	return sb.String()
}

// condition evaluates the controlling expression of #if and #elif.
func (p *preprocessor) condition(toks []ppToken) bool {
	var ts []ppToken
	for i := 0; i < len(toks); i++ {
		t := toks[i]
		if !t.is(tokIdent, "defined") {
			ts = append(ts, t)
			continue
		}
		name := ""
		switch {
		case i+3 < len(toks) && toks[i+1].is(tokPunct, "(") && toks[i+3].is(tokPunct, ")"):
			name = toks[i+2].text
			i += 3
		case i+1 < len(toks):
			name = toks[i+1].text
			i++
		}
		v := "0"
		if p.defined(name) {
			v = "1"
		}
		ts = append(ts, ppToken{kind: tokNumber, text: v, space: t.space})
	}

	cp := &condParser{toks: p.expand(ts)}
	e := cp.parse()
	if e == nil || cp.pos != len(cp.toks) {
		p.logger.Printf("%s: cannot evaluate #if %s", p.file, spell(toks))
		return false
	}
	res, ok := frontend.ConstEvaluator{}.EvaluateAsRValue(e)
	return ok && res.Val.BoolValue()
}

// condParser builds an expression tree from the tokens of a #if. Remaining
// identifiers evaluate to 0; arithmetic is done in (unsigned) long long.
type condParser struct {
	toks []ppToken
	pos  int
}

var condPrecedence = map[string]int{
	"||": 1, "&&": 2, "|": 3, "^": 4, "&": 5,
	"==": 6, "!=": 6, "<": 7, ">": 7, "<=": 7, ">=": 7,
	"<<": 8, ">>": 8, "+": 9, "-": 9, "*": 10, "/": 10, "%": 10,
}

// condType is the result type of a binary operator in #if arithmetic.
func condType(op string, l, r frontend.QualType) frontend.QualType {
	switch op {
	case "||", "&&", "==", "!=", "<", ">", "<=", ">=":
		return frontend.Builtin(frontend.BuiltinLongLong)
	case "<<", ">>":
		return l
	}
	return frontend.CommonType(l, r)
}

func (c *condParser) peek() (ppToken, bool) {
	if c.pos >= len(c.toks) {
		return ppToken{}, false
	}
	return c.toks[c.pos], true
}

func (c *condParser) parse() *frontend.Expr {
	return c.conditional()
}

func (c *condParser) conditional() *frontend.Expr {
	cond := c.binary(1)
	if cond == nil {
		return nil
	}
	t, ok := c.peek()
	if !ok || !t.is(tokPunct, "?") {
		return cond
	}
	c.pos++
	then := c.conditional()
	if t, ok := c.peek(); !ok || !t.is(tokPunct, ":") || then == nil {
		return nil
	}
	c.pos++
	els := c.conditional()
	if els == nil {
		return nil
	}
	return &frontend.Expr{Kind: frontend.ExprConditional, Type: frontend.CommonType(then.Type, els.Type), Sub: []*frontend.Expr{cond, then, els}}
}

func (c *condParser) binary(minPrec int) *frontend.Expr {
	lhs := c.unary()
	if lhs == nil {
		return nil
	}
	for {
		t, ok := c.peek()
		if !ok || t.kind != tokPunct {
			return lhs
		}
		prec, isOp := condPrecedence[t.text]
		if !isOp || prec < minPrec {
			return lhs
		}
		c.pos++
		rhs := c.binary(prec + 1)
		if rhs == nil {
			return nil
		}
		lhs = frontend.Binary(t.text, lhs, rhs, condType(t.text, lhs.Type, rhs.Type))
	}
}

func (c *condParser) unary() *frontend.Expr {
	t, ok := c.peek()
	if !ok {
		return nil
	}
	c.pos++
	switch {
	case t.kind == tokPunct && (t.text == "!" || t.text == "~" || t.text == "-" || t.text == "+"):
		sub := c.unary()
		if sub == nil {
			return nil
		}
		typ := sub.Type
		if t.text == "!" {
			typ = frontend.Builtin(frontend.BuiltinLongLong)
		}
		return frontend.Unary(t.text, sub, typ)
	case t.is(tokPunct, "("):
		e := c.conditional()
		if next, ok := c.peek(); !ok || !next.is(tokPunct, ")") || e == nil {
			return nil
		}
		c.pos++
		return &frontend.Expr{Kind: frontend.ExprParen, Type: e.Type, Sub: []*frontend.Expr{e}}
	case t.kind == tokNumber:
		v, k, ok := parseIntLiteral(t.text)
		if !ok {
			return nil
		}
		typ := frontend.Builtin(frontend.BuiltinLongLong)
		if !frontend.Builtin(k).IsSignedInteger() {
			typ = frontend.Builtin(frontend.BuiltinULongLong)
		}
		return &frontend.Expr{Kind: frontend.ExprIntegerLiteral, Type: typ, Value: v}
	case t.kind == tokChar:
		v, _, ok := parseCharLiteral(t.text)
		if !ok {
			return nil
		}
		return frontend.IntLit(v, frontend.Builtin(frontend.BuiltinLongLong))
	case t.kind == tokIdent:
		v := int64(0)
		if t.text == "true" {
			v = 1
		}
		return frontend.IntLit(v, frontend.Builtin(frontend.BuiltinLongLong))
	}
	return nil
}
