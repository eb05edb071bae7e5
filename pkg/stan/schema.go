package stan

import (
	"github.com/samcharles93/setupconv/internal/cgrammar"
	"github.com/samcharles93/setupconv/pkg/record"
)

// column binds one positional initializer value to a field of the record
// being built.
type column struct {
	name string
	set  func(p *parser, text string) error
}

// schema is the ordered column list of one record kind.
type schema struct {
	name       string
	columns    []column
	accumulate bool // cursor stays on the last column once reached
}

func (s *schema) column(cursor int) (column, bool) {
	if cursor < len(s.columns) {
		return s.columns[cursor], true
	}
	if s.accumulate {
		return s.columns[len(s.columns)-1], true
	}
	return column{}, false
}

var headerSchema = schema{
	name: HeaderType,
	columns: []column{
		{"unknown00", func(p *parser, v string) error { return p.u32(v, &p.header.Unknown00) }},
		{"first_tile", (*parser).setFirstTile},
		{"unknown_tail", (*parser).appendTail},
	},
	accumulate: true,
}

var tileSchema = schema{
	name: TileType,
	columns: []column{
		{"name", func(p *parser, v string) error { return p.u24(v, &p.tile.InternalName) }},
		{"room", func(p *parser, v string) error { return p.u8(v, &p.tile.Room) }},
		{"flags", func(p *parser, v string) error { return p.u8(v, &p.tile.Flags) }},
		{"brightness", func(p *parser, v string) error { return p.u8(v, &p.tile.Brightness) }},
		{"point_count", func(p *parser, v string) error { return p.u8(v, &p.tile.PointCount) }},
		{"header_a", func(p *parser, v string) error { return p.u8(v, &p.tile.HeaderA) }},
		{"header_b", func(p *parser, v string) error { return p.u8(v, &p.tile.HeaderB) }},
		{"header_c", func(p *parser, v string) error { return p.u8(v, &p.tile.HeaderC) }},
	},
}

var betaTileSchema = schema{
	name: BetaTileType,
	columns: []column{
		{"unknown0", func(p *parser, v string) error { return p.u8(v, &p.tile.BetaPrefix[0]) }},
		{"unknown1", func(p *parser, v string) error { return p.u8(v, &p.tile.BetaPrefix[1]) }},
		{"unknown2", func(p *parser, v string) error { return p.u8(v, &p.tile.BetaPrefix[2]) }},
		{"name", func(p *parser, v string) error { return p.u24(v, &p.tile.InternalName) }},
		{"flags", func(p *parser, v string) error { return p.u8(v, &p.tile.Flags) }},
		{"brightness", func(p *parser, v string) error { return p.u8(v, &p.tile.Brightness) }},
		{"point_count", func(p *parser, v string) error { return p.u8(v, &p.tile.PointCount) }},
		{"header_a", func(p *parser, v string) error { return p.u8(v, &p.tile.HeaderA) }},
		{"header_b", func(p *parser, v string) error { return p.u8(v, &p.tile.HeaderB) }},
		{"header_c", func(p *parser, v string) error { return p.u8(v, &p.tile.HeaderC) }},
	},
}

var pointSchema = schema{
	name: "StandTilePoint",
	columns: []column{
		{"x", func(p *parser, v string) error { return p.s16(v, &p.point.X) }},
		{"y", func(p *parser, v string) error { return p.s16(v, &p.point.Y) }},
		{"z", func(p *parser, v string) error { return p.s16(v, &p.point.Z) }},
		{"link", func(p *parser, v string) error { return p.s16(v, &p.point.Link) }},
	},
}

// The fifth footer column is a second slot for unknown3; the later value wins.
var footerSchema = schema{
	name: FooterType,
	columns: []column{
		{"unknown1", func(p *parser, v string) error { return p.u32(v, &p.footer.Unknown1) }},
		{"unknown2", func(p *parser, v string) error { return p.u32(v, &p.footer.Unknown2) }},
		{"name", (*parser).setTag},
		{"unknown3", func(p *parser, v string) error { return p.u32(v, &p.footer.Unknown3) }},
		{"unknown3_tail", func(p *parser, v string) error { return p.u32(v, &p.footer.Unknown3) }},
	},
}

func (p *parser) scalar(text string, bits uint) (uint64, error) {
	if cgrammar.IsNull(text) {
		return 0, p.violation("NULL where a number is required")
	}
	v, ok := cgrammar.ParseInt(text)
	if !ok {
		return 0, p.violation("expected a number, found %q", text)
	}
	if v < -(1<<(bits-1)) || (bits < 64 && v >= 1<<bits) {
		return 0, p.violation("%s does not fit in %d bits", text, bits)
	}
	return uint64(v) & (1<<bits - 1), nil
}

func (p *parser) u8(text string, dst *uint8) error {
	v, err := p.scalar(text, 8)
	*dst = uint8(v)
	return err
}

func (p *parser) u24(text string, dst *uint32) error {
	v, err := p.scalar(text, 24)
	*dst = uint32(v)
	return err
}

func (p *parser) u32(text string, dst *uint32) error {
	v, err := p.scalar(text, 32)
	*dst = uint32(v)
	return err
}

func (p *parser) s16(text string, dst *int16) error {
	v, err := p.scalar(text, 16)
	*dst = int16(uint16(v))
	return err
}

func (p *parser) setFirstTile(text string) error {
	if cgrammar.IsNull(text) {
		p.header.FirstTile = record.Null()
		return nil
	}
	name, ok := cgrammar.AddressOf(text)
	if !ok {
		name = text
	}
	if !cgrammar.IsIdentifier(name) {
		return p.violation("first_tile must be an address or NULL, found %q", text)
	}
	p.header.FirstTile = record.Named(name)
	return nil
}

// appendTail accumulates the trailing header bytes. NULL stands for one
// pointer-sized run of zeros.
func (p *parser) appendTail(text string) error {
	if cgrammar.IsNull(text) {
		p.header.UnknownTail = append(p.header.UnknownTail, 0, 0, 0, 0)
		return nil
	}
	var b uint8
	if err := p.u8(text, &b); err != nil {
		return err
	}
	p.header.UnknownTail = append(p.header.UnknownTail, b)
	return nil
}

func (p *parser) setTag(text string) error {
	if !cgrammar.IsQuoted(text) {
		return p.violation("name must be a string literal, found %q", text)
	}
	s, err := cgrammar.Unquote(text)
	if err != nil {
		return p.violation("%v", err)
	}
	if len(s) > TagSize {
		return p.violation("name %q is longer than %d bytes", s, TagSize)
	}
	p.footer.Tag = [TagSize]byte{}
	copy(p.footer.Tag[:], s)
	return nil
}
