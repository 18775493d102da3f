package jsonout

import (
	"bufio"
	"io"
	"math"
	"strconv"
)

// Stream writes JSON with ", " and ": " separators, keys in the order they
// are written. Errors are sticky and reported by Flush.
type Stream struct {
	w     *bufio.Writer
	err   error
	comma []bool
	key   bool
}

func NewStream(w io.Writer) *Stream {
	return &Stream{w: bufio.NewWriter(w)}
}

func (s *Stream) raw(str string) {
	if s.err != nil {
		return
	}
	_, s.err = s.w.WriteString(str)
}

// element emits the separator owed before a new array element or member.
func (s *Stream) element() {
	if s.key {
		s.key = false
		return
	}
	if n := len(s.comma); n > 0 {
		if s.comma[n-1] {
			s.raw(", ")
		}
		s.comma[n-1] = true
	}
}

func (s *Stream) BeginObject() *Stream {
	s.element()
	s.raw("{")
	s.comma = append(s.comma, false)
	return s
}

func (s *Stream) EndObject() *Stream {
	s.comma = s.comma[:len(s.comma)-1]
	s.raw("}")
	return s
}

func (s *Stream) BeginArray() *Stream {
	s.element()
	s.raw("[")
	s.comma = append(s.comma, false)
	return s
}

func (s *Stream) EndArray() *Stream {
	s.comma = s.comma[:len(s.comma)-1]
	s.raw("]")
	return s
}

// Key starts an object member; the next value call completes it.
func (s *Stream) Key(k string) *Stream {
	s.element()
	s.quote(k)
	s.raw(": ")
	s.key = true
	return s
}

func (s *Stream) String(v string) *Stream {
	s.element()
	s.quote(v)
	return s
}

func (s *Stream) Bool(v bool) *Stream {
	s.element()
	s.raw(strconv.FormatBool(v))
	return s
}

func (s *Stream) Int(v int64) *Stream {
	s.element()
	s.raw(strconv.FormatInt(v, 10))
	return s
}

func (s *Stream) Uint(v uint64) *Stream {
	s.element()
	s.raw(strconv.FormatUint(v, 10))
	return s
}

// Float writes the shortest representation that round-trips. Non-finite
// values have no JSON form and are written as null.
func (s *Stream) Float(v float64) *Stream {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return s.Null()
	}
	s.element()
	s.raw(strconv.FormatFloat(v, 'g', -1, 64))
	return s
}

func (s *Stream) Null() *Stream {
	s.element()
	s.raw("null")
	return s
}

// Newline ends the document.
func (s *Stream) Newline() *Stream {
	s.raw("\n")
	return s
}

func (s *Stream) Flush() error {
	if s.err != nil {
		return s.err
	}
	return s.w.Flush()
}

const hexDigits = "0123456789abcdef"

func (s *Stream) quote(v string) {
	if s.err != nil {
		return
	}
	buf := make([]byte, 0, len(v)+2)
	buf = append(buf, '"')
	for i := 0; i < len(v); i++ {
		c := v[i]
		switch c {
		case '\\':
			buf = append(buf, '\\', '\\')
		case '"':
			buf = append(buf, '\\', '"')
		case '\n':
			buf = append(buf, '\\', 'n')
		case '\t':
			buf = append(buf, '\\', 't')
		case '\r':
			buf = append(buf, '\\', 'r')
		default:
			if c < 0x20 {
				buf = append(buf, '\\', 'u', '0', '0', hexDigits[c>>4], hexDigits[c&0xf])
			} else {
				buf = append(buf, c)
			}
		}
	}
	buf = append(buf, '"')
	_, s.err = s.w.Write(buf)
}
