package stan

import (
	"github.com/samcharles93/setupconv/internal/cgrammar"
	"github.com/samcharles93/setupconv/pkg/record"
)

type state uint8

const (
	stateUnset state = iota
	stateIgnore
	stateHeader
	stateTile
	statePoint
	stateFooter
)

// typeEntry maps a declared type name to the parser state it starts.
type typeEntry struct {
	name    string
	state   state
	variant Variant
}

// stanTypes is the ordered type table consulted for every declaration.
var stanTypes = []typeEntry{
	{HeaderType, stateHeader, Standard},
	{TileType, stateTile, Standard},
	{BetaTileType, stateTile, Beta},
	{FooterType, stateFooter, Standard},
}

func lookupType(table []typeEntry, name string) (typeEntry, bool) {
	for _, e := range table {
		if e.name == name {
			return e, true
		}
	}
	return typeEntry{}, false
}

// parser is the declaration state machine. It receives grammar events one
// at a time and builds the file graph.
type parser struct {
	cgrammar.BaseListener

	types []typeEntry
	file  *File

	state    state
	schema   *schema
	cursor   int
	typeSeen bool
	ignore   int
	declName string
	variant  Variant
	sawTile  bool

	header *Header
	tile   *Tile
	point  Point
	footer *Footer

	haveHeader bool
	haveFooter bool
}

// Parse builds a file graph from declaration text. The graph is returned
// unnormalised.
func Parse(src string) (*File, error) {
	p := &parser{types: stanTypes, file: New(Standard)}
	if err := cgrammar.Walk(src, p); err != nil {
		return nil, err
	}
	includes, err := cgrammar.ScanIncludes(src)
	if err != nil {
		return nil, err
	}
	p.file.Includes = includes
	return p.file, nil
}

func (p *parser) recordName() string {
	if p.declName != "" {
		return p.declName
	}
	if p.schema != nil {
		return p.schema.name
	}
	return "declaration"
}

func (p *parser) violation(format string, args ...any) error {
	name := ""
	if p.schema != nil {
		name = p.schema.name
	}
	return record.SchemaViolation(p.recordName(), name, format, args...)
}

func (p *parser) EnterCompilationUnit() error {
	p.state = stateUnset
	return nil
}

func (p *parser) EnterDeclaration() error {
	switch p.state {
	case stateUnset:
	case stateTile, statePoint:
		return p.violation("declaration ended before its points")
	default:
		return record.StructuralParse(p.recordName(), "declaration started inside another declaration")
	}
	p.schema = nil
	p.cursor = -1
	p.typeSeen = false
	p.ignore = 0
	p.declName = ""
	p.header, p.tile, p.footer = nil, nil, nil
	p.point = Point{}
	return nil
}

func (p *parser) StorageClassSpecifier(text string) error {
	if text == "extern" {
		p.state = stateIgnore
		p.schema = nil
		p.header, p.tile, p.footer = nil, nil, nil
	}
	return nil
}

func (p *parser) TypeSpecifier(text string) error {
	if p.typeSeen {
		return nil
	}
	p.typeSeen = true
	switch p.state {
	case stateIgnore:
		return nil
	case stateUnset:
	default:
		return record.StructuralParse(p.recordName(), "unexpected type specifier %q", text)
	}
	entry, ok := lookupType(p.types, text)
	if !ok {
		return nil
	}
	switch entry.state {
	case stateHeader:
		if p.haveHeader {
			return record.StructuralParse(HeaderType, "more than one file header")
		}
		p.header = &Header{}
		p.schema = &headerSchema
	case stateTile:
		if p.sawTile && entry.variant != p.variant {
			return record.StructuralParse(entry.name, "%s and %s tiles in one file", TileType, BetaTileType)
		}
		p.sawTile = true
		p.variant = entry.variant
		p.tile = &Tile{Order: record.NoOrder}
		p.schema = &tileSchema
		if entry.variant == Beta {
			p.schema = &betaTileSchema
		}
	case stateFooter:
		if p.haveFooter {
			return record.StructuralParse(FooterType, "more than one file footer")
		}
		p.footer = &Footer{}
		p.schema = &footerSchema
	}
	p.state = entry.state
	return nil
}

func (p *parser) Declarator(name string, sizedDims int) error {
	if p.state == stateUnset || p.state == stateIgnore {
		return nil
	}
	if p.declName != "" {
		return record.StructuralParse(p.declName, "second declarator %q in one declaration", name)
	}
	p.declName = name
	p.ignore = sizedDims
	return nil
}

func (p *parser) AssignmentExpression(text string) error {
	if p.state == stateUnset || p.state == stateIgnore {
		return nil
	}
	if p.ignore > 0 {
		p.ignore--
		return nil
	}
	p.cursor++
	col, ok := p.schema.column(p.cursor)
	if !ok {
		return p.violation("unexpected value %s after the last field", text)
	}
	if err := col.set(p, text); err != nil {
		return err
	}
	if p.cursor < len(p.schema.columns)-1 {
		return nil
	}
	switch p.state {
	case stateTile:
		if p.tile.PointCount > 0 {
			p.state = statePoint
			p.schema = &pointSchema
			p.cursor = -1
		}
	case statePoint:
		p.tile.Points = append(p.tile.Points, p.point)
		p.point = Point{}
		p.cursor = -1
		if len(p.tile.Points) > int(p.tile.PointCount) {
			return p.violation("more than the declared %d points", p.tile.PointCount)
		}
	}
	return nil
}

func (p *parser) ExitDeclaration() error {
	var err error
	switch p.state {
	case stateHeader:
		err = p.closeHeader()
	case stateTile:
		err = p.closeTile(tileSchemaFor(p.variant))
	case statePoint:
		err = p.closePoints()
	case stateFooter:
		err = p.closeFooter()
	}
	p.state = stateUnset
	p.schema = nil
	return err
}

func tileSchemaFor(v Variant) *schema {
	if v == Beta {
		return &betaTileSchema
	}
	return &tileSchema
}

func (p *parser) closeHeader() error {
	if p.cursor < 1 {
		return p.violation("header needs unknown00 and first_tile")
	}
	if len(p.header.UnknownTail) != TailSize {
		return p.violation("header tail is %d bytes, want %d", len(p.header.UnknownTail), TailSize)
	}
	h := *p.header
	h.Name = p.declName
	p.file.Header = h
	p.haveHeader = true
	return nil
}

func (p *parser) closeTile(s *schema) error {
	p.schema = s
	if p.cursor < len(s.columns)-1 {
		return p.violation("tile has %d of %d fields", p.cursor+1, len(s.columns))
	}
	if p.tile.PointCount > 0 {
		return p.violation("declared %d points, found 0", p.tile.PointCount)
	}
	p.appendTile()
	return nil
}

func (p *parser) closePoints() error {
	if p.cursor != -1 {
		return p.violation("point %d has %d of %d fields", len(p.tile.Points), p.cursor+1, len(pointSchema.columns))
	}
	p.schema = tileSchemaFor(p.variant)
	if len(p.tile.Points) != int(p.tile.PointCount) {
		return p.violation("declared %d points, found %d", p.tile.PointCount, len(p.tile.Points))
	}
	p.appendTile()
	return nil
}

func (p *parser) appendTile() {
	t := *p.tile
	t.Name = p.declName
	t.Order = record.SuffixOrder(p.declName)
	p.file.Tiles = append(p.file.Tiles, t)
}

func (p *parser) closeFooter() error {
	if p.cursor < 3 {
		return p.violation("footer has %d of %d fields", p.cursor+1, len(footerSchema.columns))
	}
	f := *p.footer
	f.Name = p.declName
	p.file.Footer = f
	p.haveFooter = true
	return nil
}

func (p *parser) ExitCompilationUnit() error {
	if p.state != stateUnset {
		return record.StructuralParse(p.recordName(), "input ended inside a declaration")
	}
	if !p.haveHeader {
		return record.MissingSection(HeaderType)
	}
	if len(p.file.Tiles) == 0 {
		return record.MissingSection(tileSchemaFor(p.variant).name)
	}
	if !p.haveFooter {
		return record.MissingSection(FooterType)
	}
	p.file.Variant = p.variant
	record.SortByOrder(p.file.Tiles, func(t Tile) int { return t.Order })
	return nil
}
