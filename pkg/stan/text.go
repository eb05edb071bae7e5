package stan

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/samcharles93/setupconv/internal/cgrammar"
)

// DefaultIncludes are written when neither the file nor the options carry
// include lines.
var DefaultIncludes = []string{`#include "ultra64.h"`, `#include "stan.h"`}

// TextOptions controls declaration output.
type TextOptions struct {
	// Includes replaces the include lines carried by the file.
	Includes []string
	// Source names the input in the generated banner.
	Source string
}

// EmitText writes f as declaration text that Parse reads back to the same
// graph.
func EmitText(w io.Writer, f *File, opts TextOptions) error {
	Normalize(f)
	bw := bufio.NewWriter(w)

	banner := []string{"Stan tile data (" + f.Variant.String() + " layout)."}
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

	writeHeader(bw, &f.Header)
	for i := range f.Tiles {
		writeTile(bw, &f.Tiles[i], f.Variant)
	}
	writeFooter(bw, &f.Footer)
	return bw.Flush()
}

func writeHeader(w *bufio.Writer, h *Header) {
	first := "NULL"
	if !h.FirstTile.IsAbsent() {
		first = "&" + h.FirstTile.Name
	}
	fmt.Fprintf(w, "%s %s = {\n", HeaderType, h.Name)
	fmt.Fprintf(w, "    0x%08X,\n", h.Unknown00)
	fmt.Fprintf(w, "    %s,\n", first)
	fmt.Fprintf(w, "    { %s },\n", hexBytes(h.UnknownTail))
	w.WriteString("};\n\n")
}

func writeTile(w *bufio.Writer, t *Tile, v Variant) {
	typ := TileType
	var fields []string
	if v == Beta {
		typ = BetaTileType
		fields = append(fields, hexByte(t.BetaPrefix[0]), hexByte(t.BetaPrefix[1]), hexByte(t.BetaPrefix[2]))
	}
	fields = append(fields, fmt.Sprintf("0x%06X", t.InternalName))
	if v == Standard {
		fields = append(fields, hexByte(t.Room))
	}
	fields = append(fields,
		hexByte(t.Flags), hexByte(t.Brightness), fmt.Sprint(t.PointCount),
		hexByte(t.HeaderA), hexByte(t.HeaderB), hexByte(t.HeaderC),
	)
	fmt.Fprintf(w, "%s %s = {\n", typ, t.Name)
	fmt.Fprintf(w, "    %s,\n", strings.Join(fields, ", "))
	if len(t.Points) > 0 {
		w.WriteString("    {\n")
		for _, p := range t.Points {
			fmt.Fprintf(w, "        { %d, %d, %d, %d },\n", p.X, p.Y, p.Z, p.Link)
		}
		w.WriteString("    },\n")
	}
	w.WriteString("};\n\n")
}

func writeFooter(w *bufio.Writer, f *Footer) {
	tag := strings.TrimRight(string(f.Tag[:]), "\x00")
	fmt.Fprintf(w, "%s %s = {\n", FooterType, f.Name)
	fmt.Fprintf(w, "    0x%08X, 0x%08X, %s, 0x%08X, 0x%08X\n",
		f.Unknown1, f.Unknown2, cgrammar.Quote(tag), f.Unknown3, f.Unknown3)
	w.WriteString("};\n")
}

func hexByte(b uint8) string {
	return fmt.Sprintf("0x%02X", b)
}

func hexBytes(p []byte) string {
	parts := make([]string, len(p))
	for i, b := range p {
		parts[i] = hexByte(b)
	}
	return strings.Join(parts, ", ")
}
