package cgrammar

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// IsNull reports whether text is the null pointer placeholder.
func IsNull(text string) bool {
	return text == "NULL"
}

// IsQuoted reports whether text is a string literal.
func IsQuoted(text string) bool {
	return len(text) >= 2 && text[0] == '"' && text[len(text)-1] == '"'
}

// Unquote strips the surrounding quotes of a string literal and decodes its
// escape sequences. Text that is not quoted is returned unchanged.
func Unquote(text string) (string, error) {
	if !IsQuoted(text) {
		return text, nil
	}
	body := text[1 : len(text)-1]
	if !strings.Contains(body, `\`) {
		return body, nil
	}
	var b strings.Builder
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c != '\\' {
			b.WriteByte(c)
			continue
		}
		i++
		if i >= len(body) {
			return "", errors.New("dangling escape in string literal")
		}
		switch body[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case '0':
			b.WriteByte(0)
		case '\\', '"', '\'':
			b.WriteByte(body[i])
		case 'x':
			if i+3 > len(body) {
				return "", fmt.Errorf("short hex escape in %s", text)
			}
			v, err := strconv.ParseUint(body[i+1:i+3], 16, 8)
			if err != nil {
				return "", fmt.Errorf("bad hex escape in %s", text)
			}
			b.WriteByte(byte(v))
			i += 2
		default:
			return "", fmt.Errorf("unsupported escape \\%c", body[i])
		}
	}
	return b.String(), nil
}

// Quote renders s as a C string literal that Unquote decodes back to s.
func Quote(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '"' || c == '\\':
			b.WriteByte('\\')
			b.WriteByte(c)
		case c == '\n':
			b.WriteString(`\n`)
		case c == '\t':
			b.WriteString(`\t`)
		case c < 0x20 || c >= 0x7f:
			fmt.Fprintf(&b, `\x%02x`, c)
		default:
			b.WriteByte(c)
		}
	}
	b.WriteByte('"')
	return b.String()
}

func trimIntSuffix(text string) string {
	return strings.TrimRight(text, "uUlL")
}

// ParseInt parses an integer literal in decimal, hex or octal, with an
// optional sign and C suffixes. Character literals yield their byte value.
func ParseInt(text string) (int64, bool) {
	if len(text) >= 3 && text[0] == '\'' && text[len(text)-1] == '\'' {
		s, err := Unquote(`"` + text[1:len(text)-1] + `"`)
		if err != nil || len(s) != 1 {
			return 0, false
		}
		return int64(s[0]), true
	}
	t := trimIntSuffix(strings.TrimPrefix(text, "+"))
	if v, err := strconv.ParseInt(t, 0, 64); err == nil {
		return v, true
	}
	// Unsigned 64-bit hex patterns do not fit int64.
	if v, err := strconv.ParseUint(t, 0, 64); err == nil {
		return int64(v), true
	}
	return 0, false
}

// ParseFloat32 parses a floating literal. Integer literals written in hex are
// taken as the raw IEEE-754 bit pattern, which is how non-finite values are
// spelled.
func ParseFloat32(text string) (float32, bool) {
	t := strings.TrimPrefix(text, "+")
	if strings.HasPrefix(t, "0x") || strings.HasPrefix(t, "0X") {
		v, err := strconv.ParseUint(trimIntSuffix(t), 0, 32)
		if err != nil {
			return 0, false
		}
		return math.Float32frombits(uint32(v)), true
	}
	t = strings.TrimRight(t, "fF")
	v, err := strconv.ParseFloat(t, 32)
	if err != nil {
		return 0, false
	}
	return float32(v), true
}

// FormatFloat32 renders f so that ParseFloat32 returns the same bits.
func FormatFloat32(f float32) string {
	if math.IsNaN(float64(f)) || math.IsInf(float64(f), 0) {
		return fmt.Sprintf("0x%08X", math.Float32bits(f))
	}
	return strconv.FormatFloat(float64(f), 'g', -1, 32)
}

// AddressOf returns the symbol named by an "&name" expression.
func AddressOf(text string) (string, bool) {
	name, ok := strings.CutPrefix(text, "&")
	if !ok || name == "" {
		return "", false
	}
	return name, true
}

// IsIdentifier reports whether text is a bare C identifier.
func IsIdentifier(text string) bool {
	if text == "" || !isIdentStart(text[0]) {
		return false
	}
	for i := 1; i < len(text); i++ {
		if !isIdentStart(text[i]) && !isDigit(text[i]) {
			return false
		}
	}
	return true
}
