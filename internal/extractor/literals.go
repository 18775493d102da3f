package extractor

import (
	"go/constant"
	"go/token"
	"strconv"
	"strings"
	"unicode/utf8"

	"bindgen/internal/frontend"
)

// integerCandidates lists, per suffix, the types an integer literal may take
// in order of preference.
func integerCandidates(decimal, unsigned bool, longs int, size bool) []frontend.BuiltinKind {
	switch {
	case size && unsigned:
		return []frontend.BuiltinKind{frontend.BuiltinULong}
	case size:
		return []frontend.BuiltinKind{frontend.BuiltinLong}
	case unsigned && longs == 2:
		return []frontend.BuiltinKind{frontend.BuiltinULongLong}
	case unsigned && longs == 1:
		return []frontend.BuiltinKind{frontend.BuiltinULong, frontend.BuiltinULongLong}
	case unsigned:
		return []frontend.BuiltinKind{frontend.BuiltinUInt, frontend.BuiltinULong, frontend.BuiltinULongLong}
	case longs == 2 && decimal:
		return []frontend.BuiltinKind{frontend.BuiltinLongLong}
	case longs == 2:
		return []frontend.BuiltinKind{frontend.BuiltinLongLong, frontend.BuiltinULongLong}
	case longs == 1 && decimal:
		return []frontend.BuiltinKind{frontend.BuiltinLong, frontend.BuiltinLongLong}
	case longs == 1:
		return []frontend.BuiltinKind{frontend.BuiltinLong, frontend.BuiltinULong, frontend.BuiltinLongLong, frontend.BuiltinULongLong}
	case decimal:
		return []frontend.BuiltinKind{frontend.BuiltinInt, frontend.BuiltinLong, frontend.BuiltinLongLong}
	}
	return []frontend.BuiltinKind{
		frontend.BuiltinInt, frontend.BuiltinUInt, frontend.BuiltinLong,
		frontend.BuiltinULong, frontend.BuiltinLongLong, frontend.BuiltinULongLong,
	}
}

func fits(v constant.Value, k frontend.BuiltinKind) bool {
	t := frontend.Builtin(k)
	bits := uint(t.Bits())
	one := constant.MakeInt64(1)
	var hi constant.Value
	if t.IsSignedInteger() {
		hi = constant.BinaryOp(constant.Shift(one, token.SHL, bits-1), token.SUB, one)
	} else {
		hi = constant.BinaryOp(constant.Shift(one, token.SHL, bits), token.SUB, one)
	}
	return constant.Compare(v, token.LEQ, hi)
}

// parseIntLiteral types an integer literal the way a C++ compiler does,
// including the fallback of oversized decimal literals to unsigned long long.
func parseIntLiteral(text string) (constant.Value, frontend.BuiltinKind, bool) {
	text = strings.ReplaceAll(text, "'", "")
	body := text
	for len(body) > 0 && strings.ContainsRune("uUlLzZ", rune(body[len(body)-1])) {
		body = body[:len(body)-1]
	}
	suffix := strings.ToLower(text[len(body):])
	if body == "" {
		return nil, 0, false
	}

	decimal := !(len(body) > 1 && body[0] == '0')
	lit := body
	if len(body) > 1 && body[0] == '0' && isDigit(body[1]) {
		lit = "0o" + body[1:]
	}
	v := constant.MakeFromLiteral(lit, token.INT, 0)
	if v.Kind() != constant.Int {
		return nil, 0, false
	}

	unsigned := strings.Contains(suffix, "u")
	longs := strings.Count(suffix, "l")
	size := strings.Contains(suffix, "z")
	for _, k := range integerCandidates(decimal, unsigned, longs, size) {
		if fits(v, k) {
			return v, k, true
		}
	}
	if fits(v, frontend.BuiltinULongLong) {
		return v, frontend.BuiltinULongLong, true
	}
	return nil, 0, false
}

// isFloatLiteral tells a floating pp-number from an integer one.
func isFloatLiteral(text string) bool {
	lower := strings.ToLower(text)
	if strings.HasPrefix(lower, "0x") {
		return strings.ContainsAny(lower, ".p")
	}
	return strings.ContainsAny(lower, ".e")
}

func parseFloatLiteral(text string) (float64, frontend.BuiltinKind, bool) {
	text = strings.ReplaceAll(text, "'", "")
	kind := frontend.BuiltinDouble
	hex := strings.HasPrefix(strings.ToLower(text), "0x")
	switch last := text[len(text)-1]; {
	case (last == 'f' || last == 'F') && !hex:
		kind = frontend.BuiltinFloat
		text = text[:len(text)-1]
	case last == 'l' || last == 'L':
		kind = frontend.BuiltinLongDouble
		text = text[:len(text)-1]
	case (last == 'f' || last == 'F') && hex && strings.ContainsAny(text, "pP"):
		kind = frontend.BuiltinFloat
		text = text[:len(text)-1]
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, 0, false
	}
	return f, kind, true
}

// splitPrefix separates the encoding prefix of a character or string literal.
func splitPrefix(text string) (string, string) {
	for _, p := range []string{"u8", "u", "U", "L"} {
		if strings.HasPrefix(text, p) && len(text) > len(p) && (text[len(p)] == '"' || text[len(p)] == '\'' || text[len(p)] == 'R') {
			return p, text[len(p):]
		}
	}
	return "", text
}

func charKind(prefix string) frontend.BuiltinKind {
	switch prefix {
	case "L":
		return frontend.BuiltinWChar
	case "u":
		return frontend.BuiltinChar16
	case "U":
		return frontend.BuiltinChar32
	case "u8":
		return frontend.BuiltinChar8
	}
	return frontend.BuiltinChar
}

// decodeEscapes interprets the body of a quoted literal. Narrow literals
// keep \x and octal escapes as raw bytes.
func decodeEscapes(s string, wide bool) (string, bool) {
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' {
			sb.WriteByte(c)
			continue
		}
		i++
		if i >= len(s) {
			return "", false
		}
		switch e := s[i]; e {
		case 'n':
			sb.WriteByte('\n')
		case 't':
			sb.WriteByte('\t')
		case 'r':
			sb.WriteByte('\r')
		case 'a':
			sb.WriteByte('\a')
		case 'b':
			sb.WriteByte('\b')
		case 'f':
			sb.WriteByte('\f')
		case 'v':
			sb.WriteByte('\v')
		case '\\', '\'', '"', '?':
			sb.WriteByte(e)
		case 'x':
			j := i + 1
			for j < len(s) && strings.ContainsRune("0123456789abcdefABCDEF", rune(s[j])) {
				j++
			}
			v, err := strconv.ParseUint(s[i+1:j], 16, 32)
			if err != nil {
				return "", false
			}
			writeCode(&sb, rune(v), wide)
			i = j - 1
		case 'u', 'U':
			n := 4
			if e == 'U' {
				n = 8
			}
			if i+n >= len(s) {
				return "", false
			}
			v, err := strconv.ParseUint(s[i+1:i+1+n], 16, 32)
			if err != nil {
				return "", false
			}
			sb.WriteRune(rune(v))
			i += n
		default:
			if e < '0' || e > '7' {
				return "", false
			}
			j := i
			for j < len(s) && j < i+3 && s[j] >= '0' && s[j] <= '7' {
				j++
			}
			v, _ := strconv.ParseUint(s[i:j], 8, 32)
			writeCode(&sb, rune(v), wide)
			i = j - 1
		}
	}
	return sb.String(), true
}

func writeCode(sb *strings.Builder, r rune, wide bool) {
	if wide || r >= 0x100 {
		sb.WriteRune(r)
		return
	}
	sb.WriteByte(byte(r))
}

// parseCharLiteral returns the value and type of a character literal.
// Multi-character literals are int.
func parseCharLiteral(text string) (int64, frontend.BuiltinKind, bool) {
	prefix, rest := splitPrefix(text)
	if len(rest) < 2 || rest[0] != '\'' || rest[len(rest)-1] != '\'' {
		return 0, 0, false
	}
	kind := charKind(prefix)
	body, ok := decodeEscapes(rest[1:len(rest)-1], kind != frontend.BuiltinChar)
	if !ok || body == "" {
		return 0, 0, false
	}

	if kind != frontend.BuiltinChar && kind != frontend.BuiltinChar8 {
		r, _ := utf8.DecodeRuneInString(body)
		return int64(r), kind, true
	}
	if len(body) == 1 {
		if kind == frontend.BuiltinChar {
			return int64(int8(body[0])), kind, true
		}
		return int64(body[0]), kind, true
	}
	var v int64
	for i := 0; i < len(body); i++ {
		v = v<<8 | int64(body[i])
	}
	return int64(int32(v)), frontend.BuiltinInt, true
}

// parseStringLiteral decodes one string literal token, raw or not.
func parseStringLiteral(text string) (string, frontend.BuiltinKind, bool) {
	prefix, rest := splitPrefix(text)
	kind := charKind(prefix)
	if strings.HasPrefix(rest, "R\"") {
		open := strings.IndexByte(rest, '(')
		if open < 0 {
			return "", 0, false
		}
		delim := rest[2:open]
		end := strings.LastIndex(rest, ")"+delim+"\"")
		if end < open {
			return "", 0, false
		}
		return rest[open+1 : end], kind, true
	}
	if len(rest) < 2 || rest[0] != '"' || rest[len(rest)-1] != '"' {
		return "", 0, false
	}
	s, ok := decodeEscapes(rest[1:len(rest)-1], kind != frontend.BuiltinChar && kind != frontend.BuiltinChar8)
	return s, kind, ok
}
