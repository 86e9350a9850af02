package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// errUnexpectedToken is returned when the decoder yields a token that cannot
// start a value.
var errUnexpectedToken = errors.New("unexpected JSON token")

// maxArrayIndex is the largest property name treated as an array index when
// ordering object keys.
const maxArrayIndex = math.MaxUint32 - 1

type valueKind int

const (
	kindNull valueKind = iota
	kindBool
	kindNumber
	kindString
	kindArray
	kindObject
)

// jsonValue is a decoded JSON value that keeps object key order.
type jsonValue struct {
	kind   valueKind
	flag   bool
	number float64
	text   string
	items  []*jsonValue
	keys   []string
	fields map[string]*jsonValue
}

// parseValue decodes a single JSON value.
// Duplicate object keys keep the position of the first occurrence and the
// value of the last one.
func parseValue(data []byte) (*jsonValue, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return readValue(dec)
}

func readValue(dec *json.Decoder) (*jsonValue, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	switch t := tok.(type) {
	case nil:
		return &jsonValue{kind: kindNull}, nil
	case bool:
		return &jsonValue{kind: kindBool, flag: t}, nil
	case string:
		return &jsonValue{kind: kindString, text: t}, nil
	case json.Number:
		f, err := strconv.ParseFloat(t.String(), 64)
		if err != nil && !errors.Is(err, strconv.ErrRange) {
			return nil, err
		}
		return &jsonValue{kind: kindNumber, number: f}, nil
	case json.Delim:
		switch t {
		case '[':
			return readArray(dec)
		case '{':
			return readObject(dec)
		}
	}
	return nil, fmt.Errorf("%w: %v", errUnexpectedToken, tok)
}

func readArray(dec *json.Decoder) (*jsonValue, error) {
	v := &jsonValue{kind: kindArray}
	for dec.More() {
		item, err := readValue(dec)
		if err != nil {
			return nil, err
		}
		v.items = append(v.items, item)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return v, nil
}

func readObject(dec *json.Decoder) (*jsonValue, error) {
	v := &jsonValue{kind: kindObject, fields: make(map[string]*jsonValue)}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("%w: %v", errUnexpectedToken, tok)
		}
		field, err := readValue(dec)
		if err != nil {
			return nil, err
		}
		if _, seen := v.fields[key]; !seen {
			v.keys = append(v.keys, key)
		}
		v.fields[key] = field
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return v, nil
}

// orderedKeys returns the keys in property enumeration order: array indices
// ascending, then the remaining keys in insertion order.
func (v *jsonValue) orderedKeys() []string {
	type index struct {
		key string
		n   uint64
	}
	var indices []index
	var names []string
	for _, k := range v.keys {
		if n, ok := arrayIndex(k); ok {
			indices = append(indices, index{key: k, n: n})
			continue
		}
		names = append(names, k)
	}
	sort.Slice(indices, func(i, j int) bool { return indices[i].n < indices[j].n })

	keys := make([]string, 0, len(v.keys))
	for _, idx := range indices {
		keys = append(keys, idx.key)
	}
	return append(keys, names...)
}

// arrayIndex reports whether key is the canonical decimal form of an array
// index.
func arrayIndex(key string) (uint64, bool) {
	if key == "" || len(key) > 10 || (len(key) > 1 && key[0] == '0') {
		return 0, false
	}
	for i := 0; i < len(key); i++ {
		if key[i] < '0' || key[i] > '9' {
			return 0, false
		}
	}
	n, err := strconv.ParseUint(key, 10, 64)
	if err != nil || n > maxArrayIndex {
		return 0, false
	}
	return n, true
}

// stringify renders v the way a browser's JSON.stringify(v, null, 2) does.
func (v *jsonValue) stringify() string {
	var b strings.Builder
	v.writeIndented(&b, "")
	return b.String()
}

func (v *jsonValue) writeIndented(b *strings.Builder, indent string) {
	const step = "  "
	switch v.kind {
	case kindNull:
		b.WriteString("null")
	case kindBool:
		b.WriteString(strconv.FormatBool(v.flag))
	case kindNumber:
		if math.IsInf(v.number, 0) || math.IsNaN(v.number) {
			b.WriteString("null")
			return
		}
		b.WriteString(formatNumber(v.number))
	case kindString:
		writeQuoted(b, v.text)
	case kindArray:
		if len(v.items) == 0 {
			b.WriteString("[]")
			return
		}
		inner := indent + step
		b.WriteString("[\n")
		for i, item := range v.items {
			if i > 0 {
				b.WriteString(",\n")
			}
			b.WriteString(inner)
			item.writeIndented(b, inner)
		}
		b.WriteString("\n" + indent + "]")
	case kindObject:
		if len(v.keys) == 0 {
			b.WriteString("{}")
			return
		}
		inner := indent + step
		b.WriteString("{\n")
		for i, k := range v.orderedKeys() {
			if i > 0 {
				b.WriteString(",\n")
			}
			b.WriteString(inner)
			writeQuoted(b, k)
			b.WriteString(": ")
			v.fields[k].writeIndented(b, inner)
		}
		b.WriteString("\n" + indent + "}")
	}
}

// writeQuoted writes s as a JSON string literal. Only quotes, backslashes and
// control characters are escaped.
func writeQuoted(b *strings.Builder, s string) {
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\b':
			b.WriteString(`\b`)
		case '\f':
			b.WriteString(`\f`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if r < 0x20 {
				fmt.Fprintf(b, `\u%04x`, r)
				continue
			}
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
}

// coerce converts v to a string the way string concatenation does in a
// browser: arrays join their elements with "," and objects become
// "[object Object]".
func (v *jsonValue) coerce() string {
	switch v.kind {
	case kindNull:
		return "null"
	case kindBool:
		return strconv.FormatBool(v.flag)
	case kindNumber:
		return numberString(v.number)
	case kindString:
		return v.text
	case kindArray:
		parts := make([]string, len(v.items))
		for i, item := range v.items {
			if item.kind != kindNull {
				parts[i] = item.coerce()
			}
		}
		return strings.Join(parts, ",")
	default:
		return "[object Object]"
	}
}

// numberString is formatNumber extended to non-finite values.
func numberString(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	return formatNumber(f)
}

// formatNumber formats a finite float64 using the shortest round-trip digits,
// switching to exponent notation below 1e-6 and from 1e21 upwards.
func formatNumber(f float64) string {
	if f == 0 {
		return "0"
	}
	sign := ""
	if f < 0 {
		sign = "-"
		f = -f
	}

	mantissa, exponent, _ := strings.Cut(strconv.FormatFloat(f, 'e', -1, 64), "e")
	digits := strings.Replace(mantissa, ".", "", 1)
	exp, _ := strconv.Atoi(exponent)
	k, n := len(digits), exp+1

	switch {
	case k <= n && n <= 21:
		return sign + digits + strings.Repeat("0", n-k)
	case 0 < n && n <= 21:
		return sign + digits[:n] + "." + digits[n:]
	case -6 < n && n <= 0:
		return sign + "0." + strings.Repeat("0", -n) + digits
	}

	e := n - 1
	expSign := "+"
	if e < 0 {
		expSign = "-"
		e = -e
	}
	if k == 1 {
		return sign + digits + "e" + expSign + strconv.Itoa(e)
	}
	return sign + digits[:1] + "." + digits[1:] + "e" + expSign + strconv.Itoa(e)
}
