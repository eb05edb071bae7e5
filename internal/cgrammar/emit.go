package cgrammar

import "strings"

// Banner renders lines as the block comment placed at the top of generated
// declaration text.
func Banner(lines ...string) string {
	var b strings.Builder
	b.WriteString("/*\n")
	for _, l := range lines {
		if l == "" {
			b.WriteString(" *\n")
			continue
		}
		b.WriteString(" * ")
		b.WriteString(l)
		b.WriteByte('\n')
	}
	b.WriteString(" */\n")
	return b.String()
}

// IncludeLine turns a header file name into an include directive. Lines that
// already are directives are returned unchanged.
func IncludeLine(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "#") {
		return s
	}
	if strings.HasPrefix(s, "<") || strings.HasPrefix(s, `"`) {
		return "#include " + s
	}
	return `#include "` + s + `"`
}
