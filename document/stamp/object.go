package stamp

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

// object is a PDF object that can be serialized back into a file body.
type object interface {
	writeTo(b *bytes.Buffer)
}

type (
	pdfName   string
	pdfNumber string
	pdfString []byte
	pdfBool   bool
	pdfNull   struct{}
	pdfArray  []object
	pdfRef    struct{ ID, Gen int }
)

type entry struct {
	key string
	val object
}

// pdfDict keeps keys in insertion order so rewritten dictionaries stay stable.
type pdfDict []entry

func (d pdfDict) get(key string) (object, bool) {
	for _, e := range d {
		if e.key == key {
			return e.val, true
		}
	}
	return nil, false
}

func (d *pdfDict) set(key string, val object) {
	for i, e := range *d {
		if e.key == key {
			(*d)[i].val = val
			return
		}
	}
	*d = append(*d, entry{key: key, val: val})
}

func (n pdfName) writeTo(b *bytes.Buffer) {
	b.WriteByte('/')
	for i := 0; i < len(n); i++ {
		c := n[i]
		if c < '!' || c > '~' || strings.IndexByte("()<>[]{}/%#", c) >= 0 {
			fmt.Fprintf(b, "#%02X", c)
			continue
		}
		b.WriteByte(c)
	}
}

func (n pdfNumber) writeTo(b *bytes.Buffer) { b.WriteString(string(n)) }
func (pdfNull) writeTo(b *bytes.Buffer)     { b.WriteString("null") }
func (r pdfRef) writeTo(b *bytes.Buffer)    { fmt.Fprintf(b, "%d %d R", r.ID, r.Gen) }

func (v pdfBool) writeTo(b *bytes.Buffer) {
	if v {
		b.WriteString("true")
		return
	}
	b.WriteString("false")
}

// writeTo emits ASCII strings as literals, other UTF-8 text as UTF-16BE with a
// byte order mark and anything else as a hex string.
func (s pdfString) writeTo(b *bytes.Buffer) {
	ascii := true
	for _, c := range s {
		if c >= 0x80 {
			ascii = false
			break
		}
	}
	switch {
	case ascii:
		b.WriteByte('(')
		b.Write(escapeLiteral(s))
		b.WriteByte(')')
	case utf8.Valid(s):
		u := utf16.Encode([]rune(string(s)))
		raw := make([]byte, 2, 2+2*len(u))
		raw[0], raw[1] = 0xFE, 0xFF
		for _, c := range u {
			raw = append(raw, byte(c>>8), byte(c))
		}
		b.WriteByte('<')
		b.WriteString(strings.ToUpper(hex.EncodeToString(raw)))
		b.WriteByte('>')
	default:
		b.WriteByte('<')
		b.WriteString(strings.ToUpper(hex.EncodeToString(s)))
		b.WriteByte('>')
	}
}

func (a pdfArray) writeTo(b *bytes.Buffer) {
	b.WriteByte('[')
	for i, v := range a {
		if i > 0 {
			b.WriteByte(' ')
		}
		v.writeTo(b)
	}
	b.WriteByte(']')
}

func (d pdfDict) writeTo(b *bytes.Buffer) {
	b.WriteString("<<")
	for _, e := range d {
		pdfName(e.key).writeTo(b)
		b.WriteByte(' ')
		e.val.writeTo(b)
		b.WriteByte(' ')
	}
	b.WriteString(">>")
}

func escapeLiteral(s []byte) []byte {
	out := make([]byte, 0, len(s))
	for _, c := range s {
		switch c {
		case '\\', '(', ')':
			out = append(out, '\\', c)
		case '\r':
			out = append(out, '\\', 'r')
		case '\n':
			out = append(out, '\\', 'n')
		default:
			out = append(out, c)
		}
	}
	return out
}

func serialize(o object) []byte {
	var b bytes.Buffer
	o.writeTo(&b)
	return b.Bytes()
}

// parseValue reads the textual form the pdf reader prints for a resolved value
// (Value.String) back into objects. Indirect references survive as pdfRef, which
// is what makes it usable for rewriting a dictionary in an incremental update.
func parseValue(s string) (object, error) {
	p := &valueParser{s: s}
	o, err := p.value()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.s) {
		return nil, fmt.Errorf("trailing data at offset %d", p.pos)
	}
	return o, nil
}

type valueParser struct {
	s   string
	pos int
}

func (p *valueParser) skipSpace() {
	for p.pos < len(p.s) && (p.s[p.pos] == ' ' || p.s[p.pos] == '\n' || p.s[p.pos] == '\t') {
		p.pos++
	}
}

func (p *valueParser) value() (object, error) {
	p.skipSpace()
	if p.pos >= len(p.s) {
		return nil, fmt.Errorf("unexpected end of value")
	}
	rest := p.s[p.pos:]
	switch {
	case strings.HasPrefix(rest, "<<"):
		p.pos += 2
		return p.dict()
	case rest[0] == '[':
		p.pos++
		return p.array()
	case rest[0] == '/':
		p.pos++
		start := p.pos
		for p.pos < len(p.s) && strings.IndexByte(" \t\n[]<>/\"", p.s[p.pos]) < 0 {
			p.pos++
		}
		return pdfName(p.s[start:p.pos]), nil
	case rest[0] == '"':
		return p.quoted()
	case strings.HasPrefix(rest, "<nil>"):
		p.pos += len("<nil>")
		return pdfNull{}, nil
	case strings.HasPrefix(rest, "true"):
		p.pos += 4
		return pdfBool(true), nil
	case strings.HasPrefix(rest, "false"):
		p.pos += 5
		return pdfBool(false), nil
	default:
		return p.number()
	}
}

func (p *valueParser) dict() (object, error) {
	var d pdfDict
	for {
		p.skipSpace()
		if strings.HasPrefix(p.s[p.pos:], ">>") {
			p.pos += 2
			if p.pos < len(p.s) && p.s[p.pos] == '@' {
				return nil, fmt.Errorf("unexpected inline stream")
			}
			return d, nil
		}
		k, err := p.value()
		if err != nil {
			return nil, err
		}
		key, ok := k.(pdfName)
		if !ok {
			return nil, fmt.Errorf("dictionary key is not a name at offset %d", p.pos)
		}
		v, err := p.value()
		if err != nil {
			return nil, err
		}
		d = append(d, entry{key: string(key), val: v})
	}
}

func (p *valueParser) array() (object, error) {
	a := pdfArray{}
	for {
		p.skipSpace()
		if p.pos >= len(p.s) {
			return nil, fmt.Errorf("unterminated array")
		}
		if p.s[p.pos] == ']' {
			p.pos++
			return a, nil
		}
		v, err := p.value()
		if err != nil {
			return nil, err
		}
		a = append(a, v)
	}
}

func (p *valueParser) quoted() (object, error) {
	end := p.pos + 1
	for end < len(p.s) {
		if p.s[end] == '\\' {
			end += 2
			continue
		}
		if p.s[end] == '"' {
			break
		}
		end++
	}
	if end >= len(p.s) {
		return nil, fmt.Errorf("unterminated string")
	}
	s, err := strconv.Unquote(p.s[p.pos : end+1])
	if err != nil {
		return nil, err
	}
	p.pos = end + 1
	return pdfString(s), nil
}

func (p *valueParser) number() (object, error) {
	start := p.pos
	for p.pos < len(p.s) && strings.IndexByte("+-.0123456789eE", p.s[p.pos]) >= 0 {
		p.pos++
	}
	tok := p.s[start:p.pos]
	if tok == "" {
		return nil, fmt.Errorf("unexpected %q at offset %d", p.s[start], start)
	}
	if id, err := strconv.Atoi(tok); err == nil {
		// "12 0 R" is an indirect reference.
		save := p.pos
		p.skipSpace()
		gstart := p.pos
		for p.pos < len(p.s) && p.s[p.pos] >= '0' && p.s[p.pos] <= '9' {
			p.pos++
		}
		if gen, err := strconv.Atoi(p.s[gstart:p.pos]); err == nil && p.pos < len(p.s) {
			p.skipSpace()
			if p.pos < len(p.s) && p.s[p.pos] == 'R' {
				p.pos++
				return pdfRef{ID: id, Gen: gen}, nil
			}
		}
		p.pos = save
		return pdfNumber(tok), nil
	}
	f, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return nil, fmt.Errorf("bad number %q", tok)
	}
	return pdfNumber(strconv.FormatFloat(f, 'f', -1, 64)), nil
}
