package setup

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/samcharles93/setupconv/internal/cgrammar"
)

// DefaultIncludes are written when neither the file nor the options carry
// include lines.
var DefaultIncludes = []string{`#include "ultra64.h"`, `#include "stagesetup.h"`}

// TextOptions controls declaration output.
type TextOptions struct {
	// Includes replaces the include lines carried by the file.
	Includes []string
	// Source names the input in the generated banner.
	Source string
}

const valuesPerLine = 12

// EmitText writes f as declaration text that Parse reads back to the same
// graph. Auxiliary data precedes the array that points at it and the header
// comes last.
func EmitText(w io.Writer, f *File, opts TextOptions) error {
	l := defaultLayout
	normalize(l, f)
	bw := bufio.NewWriter(w)

	banner := []string{"Stage setup data."}
	if opts.Source != "" {
		banner = append(banner, "Converted from "+opts.Source+" by setupconv.")
	}
	bw.WriteString(cgrammar.Banner(banner...))
	bw.WriteByte('\n')

	includes := opts.Includes
	if len(includes) == 0 {
		includes = f.Includes
	}
	if len(includes) == 0 {
		includes = DefaultIncludes
	}
	for _, inc := range includes {
		bw.WriteString(cgrammar.IncludeLine(inc))
		bw.WriteByte('\n')
	}
	bw.WriteByte('\n')

	for _, k := range l.emission {
		sec := &f.Sections[k]
		for _, a := range sec.Aux {
			writeAux(bw, a)
		}
		if len(sec.Records) > 0 {
			writeArray(bw, l.spec(k), sec)
		}
	}
	for _, a := range f.Trailer {
		writeAux(bw, a)
	}

	fmt.Fprintf(bw, "struct %s %s = {\n", HeaderType, f.Header.Name)
	for _, k := range l.header {
		ptr := f.Header.Sections[k]
		target := "NULL"
		if !ptr.IsAbsent() && ptr.Name != "" {
			target = ptr.Name
		}
		fmt.Fprintf(bw, "    %s,\n", target)
	}
	bw.WriteString("};\n")
	return bw.Flush()
}

func writeAux(w *bufio.Writer, a *Aux) {
	switch a.Kind {
	case IDList:
		vals := make([]string, 0, len(a.IDs)+1)
		for _, id := range a.IDs {
			vals = append(vals, fmt.Sprint(id))
		}
		vals = append(vals, "-1")
		writeList(w, "s32", a.Name, vals)
	case String:
		fmt.Fprintf(w, "char %s[] = %s;\n\n", a.Name, cgrammar.Quote(string(a.Data)))
	default:
		vals := make([]string, len(a.Data))
		for i, b := range a.Data {
			vals[i] = fmt.Sprintf("0x%02X", b)
		}
		writeList(w, "u8", a.Name, vals)
	}
}

func writeList(w *bufio.Writer, typ, name string, vals []string) {
	if len(vals) <= valuesPerLine {
		fmt.Fprintf(w, "%s %s[] = { %s };\n\n", typ, name, strings.Join(vals, ", "))
		return
	}
	fmt.Fprintf(w, "%s %s[] = {\n", typ, name)
	for i := 0; i < len(vals); i += valuesPerLine {
		end := min(i+valuesPerLine, len(vals))
		fmt.Fprintf(w, "    %s,\n", strings.Join(vals[i:end], ", "))
	}
	w.WriteString("};\n\n")
}

func writeArray(w *bufio.Writer, spec *sectionSpec, sec *Section) {
	fmt.Fprintf(w, "struct %s %s[] = {\n", spec.typeName, sec.Name)
	for _, e := range sec.Records {
		fmt.Fprintf(w, "    { %s },\n", entryText(e))
	}
	w.WriteString("};\n\n")
}

func entryText(e Entry) string {
	fs := e.fields()
	vals := make([]string, len(fs))
	for i, f := range fs {
		vals[i] = fieldText(f)
	}
	if _, ok := e.(*Pad); !ok {
		return strings.Join(vals, ", ")
	}
	group := func(v []string) string { return "{ " + strings.Join(v, ", ") + " }" }
	parts := []string{group(vals[0:3]), group(vals[3:6]), group(vals[6:9]), vals[9], vals[10]}
	if len(vals) > 11 {
		parts = append(parts, group(vals[11:]))
	}
	return strings.Join(parts, ", ")
}

func fieldText(f field) string {
	switch {
	case f.f32 != nil:
		return cgrammar.FormatFloat32(*f.f32)
	case f.u16 != nil:
		return fmt.Sprint(*f.u16)
	case f.u32 != nil:
		return fmt.Sprintf("0x%08X", *f.u32)
	case f.ref != nil && !f.ref.IsAbsent() && f.ref.Name != "":
		return f.ref.Name
	}
	return "NULL"
}
