// Package rut validates and normalises Chilean RUT identifiers.
//
// A RUT is a numeric body followed by a check character computed with the
// modulo-11 algorithm: digits are weighted 2,3,4,5,6,7 cyclically from the
// right, the weighted sum is taken mod 11, and 11-remainder maps to '0'-'9',
// with 10 mapping to 'K' and 11 to '0'.
package rut

import "strings"

const (
	minBodyDigits = 1
	maxBodyDigits = 9
)

// CheckDigit computes the verification character for a numeric RUT body.
func CheckDigit(body string) (byte, bool) {
	if len(body) < minBodyDigits || len(body) > maxBodyDigits {
		return 0, false
	}
	sum := 0
	weight := 2
	for i := len(body) - 1; i >= 0; i-- {
		ch := body[i]
		if ch < '0' || ch > '9' {
			return 0, false
		}
		sum += int(ch-'0') * weight
		weight++
		if weight > 7 {
			weight = 2
		}
	}
	switch r := 11 - sum%11; r {
	case 11:
		return '0', true
	case 10:
		return 'K', true
	default:
		return byte('0' + r), true
	}
}

// Split separates a RUT into body and check character after stripping
// dots, spaces and the hyphen. It does not validate the check character.
func Split(raw string) (body string, dv byte, ok bool) {
	clean := strings.ToUpper(strings.TrimSpace(raw))
	clean = strings.NewReplacer(".", "", " ", "", "-", "").Replace(clean)
	if len(clean) < minBodyDigits+1 {
		return "", 0, false
	}
	body = strings.TrimLeft(clean[:len(clean)-1], "0")
	dv = clean[len(clean)-1]
	if body == "" {
		return "", 0, false
	}
	for i := 0; i < len(body); i++ {
		if body[i] < '0' || body[i] > '9' {
			return "", 0, false
		}
	}
	return body, dv, true
}

// Valid reports whether raw is a well-formed RUT with a correct check digit.
// Accepted shapes: "12345678-5", "12.345.678-5", "123456785".
func Valid(raw string) bool {
	body, dv, ok := Split(raw)
	if !ok {
		return false
	}
	expected, ok := CheckDigit(body)
	if !ok {
		return false
	}
	return dv == expected
}

// Normalize returns the canonical "<body>-<dv>" form (no dots, uppercase K).
// Values that cannot be split are returned trimmed and uppercased so they
// still compare consistently.
func Normalize(raw string) string {
	body, dv, ok := Split(raw)
	if !ok {
		return strings.ToUpper(strings.TrimSpace(raw))
	}
	return body + "-" + string(dv)
}

// Format renders a canonical RUT with thousands separators, e.g. 12.345.678-5.
func Format(raw string) string {
	body, dv, ok := Split(raw)
	if !ok {
		return raw
	}
	var b strings.Builder
	lead := len(body) % 3
	if lead > 0 {
		b.WriteString(body[:lead])
	}
	for i := lead; i < len(body); i += 3 {
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(body[i : i+3])
	}
	b.WriteByte('-')
	b.WriteByte(dv)
	return b.String()
}
