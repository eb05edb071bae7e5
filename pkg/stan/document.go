package stan

import (
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-json"

	"github.com/samcharles93/setupconv/internal/cgrammar"
	"github.com/samcharles93/setupconv/pkg/record"
)

// DocumentFormat identifies Stan documents.
const DocumentFormat = "stan"

// Document is the structured (JSON) form of a Stan file. Pointers are written
// as target names, so documents can be edited by hand.
type Document struct {
	Format   string    `json:"format"`
	Variant  string    `json:"variant"`
	Includes []string  `json:"includes,omitempty"`
	Header   HeaderDoc `json:"header"`
	Tiles    []TileDoc `json:"tiles"`
	Footer   FooterDoc `json:"footer"`
}

type HeaderDoc struct {
	Name        string  `json:"name"`
	Unknown00   uint32  `json:"unknown00"`
	FirstTile   *string `json:"first_tile"`
	UnknownTail []int   `json:"unknown_tail"`
}

type TileDoc struct {
	Name         string     `json:"name"`
	BetaPrefix   []int      `json:"beta_prefix,omitempty"`
	InternalName uint32     `json:"internal_name"`
	Room         uint8      `json:"room"`
	Flags        uint8      `json:"flags"`
	Brightness   uint8      `json:"brightness"`
	PointCount   uint8      `json:"point_count"`
	HeaderA      uint8      `json:"header_a"`
	HeaderB      uint8      `json:"header_b"`
	HeaderC      uint8      `json:"header_c"`
	Points       [][4]int16 `json:"points"`
}

// FooterDoc carries the tag with C escapes for bytes that are not printable.
type FooterDoc struct {
	Name     string `json:"name"`
	Unknown1 uint32 `json:"unknown1"`
	Unknown2 uint32 `json:"unknown2"`
	Tag      string `json:"tag"`
	Unknown3 uint32 `json:"unknown3"`
}

// ToDocument normalises f and returns its document form.
func ToDocument(f *File) *Document {
	Normalize(f)
	doc := &Document{
		Format:   DocumentFormat,
		Variant:  f.Variant.String(),
		Includes: f.Includes,
		Header: HeaderDoc{
			Name:        f.Header.Name,
			Unknown00:   f.Header.Unknown00,
			UnknownTail: intsOf(f.Header.UnknownTail),
		},
		Footer: FooterDoc{
			Name:     f.Footer.Name,
			Unknown1: f.Footer.Unknown1,
			Unknown2: f.Footer.Unknown2,
			Tag:      escapeTag(f.Footer.Tag),
			Unknown3: f.Footer.Unknown3,
		},
		Tiles: make([]TileDoc, 0, len(f.Tiles)),
	}
	if !f.Header.FirstTile.IsAbsent() {
		name := f.Header.FirstTile.Name
		doc.Header.FirstTile = &name
	}
	for _, t := range f.Tiles {
		td := TileDoc{
			Name:         t.Name,
			InternalName: t.InternalName,
			Room:         t.Room,
			Flags:        t.Flags,
			Brightness:   t.Brightness,
			PointCount:   t.PointCount,
			HeaderA:      t.HeaderA,
			HeaderB:      t.HeaderB,
			HeaderC:      t.HeaderC,
			Points:       make([][4]int16, 0, len(t.Points)),
		}
		if f.Variant == Beta {
			td.BetaPrefix = intsOf(t.BetaPrefix[:])
		}
		for _, p := range t.Points {
			td.Points = append(td.Points, [4]int16{p.X, p.Y, p.Z, p.Link})
		}
		doc.Tiles = append(doc.Tiles, td)
	}
	return doc
}

// EncodeDocument writes f as an indented JSON document.
func EncodeDocument(w io.Writer, f *File) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(ToDocument(f))
}

// DecodeDocument reads a JSON document. The graph is returned unnormalised.
func DecodeDocument(r io.Reader) (*File, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, record.StructuralParse("document", "%v", err)
	}
	return FromDocument(&doc)
}

// FromDocument rebuilds a graph from its document form. Tiles keep the order
// of the document.
func FromDocument(doc *Document) (*File, error) {
	if doc.Format != DocumentFormat {
		return nil, record.SchemaViolation("document", DocumentFormat, "format is %q", doc.Format)
	}
	v, ok := ParseVariant(doc.Variant)
	if !ok {
		return nil, record.SchemaViolation("document", DocumentFormat, "unknown variant %q", doc.Variant)
	}
	f := New(v)
	f.Includes = doc.Includes

	tail, err := bytesOf(doc.Header.UnknownTail)
	if err != nil {
		return nil, record.SchemaViolation(doc.Header.Name, HeaderType, "unknown_tail: %v", err)
	}
	if len(tail) != TailSize {
		return nil, record.SchemaViolation(doc.Header.Name, HeaderType, "unknown_tail has %d bytes, want %d", len(tail), TailSize)
	}
	f.Header = Header{
		Name:        doc.Header.Name,
		Unknown00:   doc.Header.Unknown00,
		FirstTile:   record.Null(),
		UnknownTail: tail,
	}
	if doc.Header.FirstTile != nil {
		name := strings.TrimPrefix(*doc.Header.FirstTile, "&")
		f.Header.FirstTile = record.Named(name)
	}

	if len(doc.Tiles) == 0 {
		return nil, record.MissingSection(tileSchemaFor(v).name)
	}
	for i, td := range doc.Tiles {
		t := Tile{
			Name:         td.Name,
			Order:        i,
			InternalName: td.InternalName,
			Room:         td.Room,
			Flags:        td.Flags,
			Brightness:   td.Brightness,
			PointCount:   td.PointCount,
			HeaderA:      td.HeaderA,
			HeaderB:      td.HeaderB,
			HeaderC:      td.HeaderC,
		}
		if v == Beta {
			prefix, err := bytesOf(td.BetaPrefix)
			if err != nil || len(prefix) != len(t.BetaPrefix) {
				return nil, record.SchemaViolation(td.Name, BetaTileType, "beta_prefix must be %d bytes", len(t.BetaPrefix))
			}
			copy(t.BetaPrefix[:], prefix)
		}
		for _, p := range td.Points {
			t.Points = append(t.Points, Point{X: p[0], Y: p[1], Z: p[2], Link: p[3]})
		}
		f.Tiles = append(f.Tiles, t)
	}

	tag, err := cgrammar.Unquote(`"` + doc.Footer.Tag + `"`)
	if err != nil {
		return nil, record.SchemaViolation(doc.Footer.Name, FooterType, "tag: %v", err)
	}
	if len(tag) > TagSize {
		return nil, record.SchemaViolation(doc.Footer.Name, FooterType, "tag %q is longer than %d bytes", tag, TagSize)
	}
	f.Footer = Footer{
		Name:     doc.Footer.Name,
		Unknown1: doc.Footer.Unknown1,
		Unknown2: doc.Footer.Unknown2,
		Unknown3: doc.Footer.Unknown3,
	}
	copy(f.Footer.Tag[:], tag)
	return f, nil
}

func escapeTag(tag [TagSize]byte) string {
	q := cgrammar.Quote(strings.TrimRight(string(tag[:]), "\x00"))
	return q[1 : len(q)-1]
}

func intsOf(p []byte) []int {
	out := make([]int, len(p))
	for i, b := range p {
		out[i] = int(b)
	}
	return out
}

func bytesOf(v []int) ([]byte, error) {
	out := make([]byte, len(v))
	for i, n := range v {
		if n < 0 || n > 0xFF {
			return nil, fmt.Errorf("value %d at index %d is not a byte", n, i)
		}
		out[i] = byte(n)
	}
	return out, nil
}
