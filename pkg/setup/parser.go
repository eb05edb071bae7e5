package setup

import (
	"math"

	"github.com/samcharles93/setupconv/internal/cgrammar"
	"github.com/samcharles93/setupconv/pkg/record"
)

type state uint8

const (
	stateUnset state = iota
	stateIgnore
	stateHeader
	stateArray
	stateIDList
	stateString
	stateBytes
)

// typeEntry maps a declared type to the parser state it starts.
type typeEntry struct {
	name  string
	state state
	kind  Kind
}

func typeTable(l *layout) []typeEntry {
	table := []typeEntry{{name: "struct " + HeaderType, state: stateHeader}}
	for k := range NumSections {
		table = append(table, typeEntry{name: "struct " + l.spec(k).typeName, state: stateArray, kind: k})
	}
	return append(table,
		typeEntry{name: "s32", state: stateIDList},
		typeEntry{name: "char", state: stateString},
		typeEntry{name: "u8", state: stateBytes},
	)
}

var setupTypes = typeTable(defaultLayout)

func lookupType(table []typeEntry, name string) (typeEntry, bool) {
	for _, e := range table {
		if e.name == name {
			return e, true
		}
	}
	return typeEntry{}, false
}

// parser is the declaration state machine for Setup text.
type parser struct {
	cgrammar.BaseListener

	layout *layout
	types  []typeEntry
	file   *File

	state    state
	kind     Kind
	cursor   int
	typeSeen bool
	ignore   int
	declName string

	entry  Entry
	fields []field
	aux    *Aux
	owner  Kind
	str    bool

	seen       [NumSections]bool
	haveHeader bool
}

// Parse builds a file graph from declaration text. The graph is returned
// unnormalised.
func Parse(src string) (*File, error) {
	p := &parser{layout: defaultLayout, types: setupTypes, file: New()}
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

func (p *parser) schemaName() string {
	switch p.state {
	case stateHeader:
		return HeaderType
	case stateArray:
		return p.layout.spec(p.kind).typeName
	case stateIDList:
		return "s32[]"
	case stateString:
		return "char[]"
	case stateBytes:
		return "u8[]"
	}
	return ""
}

func (p *parser) recordName() string {
	if p.declName != "" {
		return p.declName
	}
	return p.schemaName()
}

func (p *parser) violation(format string, args ...any) error {
	return record.SchemaViolation(p.recordName(), p.schemaName(), format, args...)
}

func (p *parser) EnterDeclaration() error {
	if p.state != stateUnset {
		return record.StructuralParse(p.recordName(), "declaration started inside another declaration")
	}
	p.cursor = -1
	p.typeSeen = false
	p.ignore = 0
	p.declName = ""
	p.entry, p.fields, p.aux = nil, nil, nil
	p.str = false
	return nil
}

func (p *parser) StorageClassSpecifier(text string) error {
	if text == "extern" {
		p.state = stateIgnore
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
			return record.StructuralParse(HeaderType, "more than one setup header")
		}
	case stateArray:
		if p.seen[entry.kind] {
			return record.StructuralParse(p.layout.spec(entry.kind).typeName, "section %s declared twice", entry.kind)
		}
		p.kind = entry.kind
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
	switch p.state {
	case stateIDList, stateString, stateBytes:
		return p.startAux(name)
	}
	return nil
}

func (p *parser) startAux(name string) error {
	n, ok := parseAuxName(p.layout, name)
	if !ok {
		return p.violation("name does not follow the <section>_<role>_<n> convention")
	}
	var kind AuxKind
	switch {
	case p.state == stateBytes && n.role == RoleFiller:
		kind = Raw
	case n.role == RoleFiller:
		return p.violation("filler must be declared as u8")
	case n.owner == Trailer:
		return p.violation("trailer holds filler only")
	case !p.layout.spec(n.owner).hasRole(n.role):
		return p.violation("section %s has no %s data", n.owner, n.role)
	default:
		kind = p.layout.spec(n.owner).aux
	}
	if p.state != auxState(kind) {
		return p.violation("%s data declared with the wrong type", n.role)
	}
	p.aux = &Aux{Name: name, Order: n.order, Role: n.role, Kind: kind}
	p.owner = n.owner
	return nil
}

func auxState(k AuxKind) state {
	switch k {
	case IDList:
		return stateIDList
	case String:
		return stateString
	}
	return stateBytes
}

func (p *parser) AssignmentExpression(text string) error {
	if p.state == stateUnset || p.state == stateIgnore {
		return nil
	}
	if p.ignore > 0 {
		p.ignore--
		return nil
	}
	switch p.state {
	case stateHeader:
		return p.headerValue(text)
	case stateArray:
		return p.arrayValue(text)
	case stateIDList:
		v, err := p.integer(text, math.MinInt32, math.MaxInt32)
		if err != nil {
			return err
		}
		p.aux.IDs = append(p.aux.IDs, int32(v))
	case stateString:
		if cgrammar.IsQuoted(text) {
			if p.str || len(p.aux.Data) > 0 {
				return p.violation("string declared more than once")
			}
			s, err := cgrammar.Unquote(text)
			if err != nil {
				return p.violation("%v", err)
			}
			p.aux.Data = append(p.aux.Data, s...)
			p.str = true
			return nil
		}
		if p.str {
			return p.violation("string literal mixed with byte values")
		}
		v, err := p.integer(text, math.MinInt8, math.MaxUint8)
		if err != nil {
			return err
		}
		p.aux.Data = append(p.aux.Data, byte(v))
	case stateBytes:
		v, err := p.integer(text, math.MinInt8, math.MaxUint8)
		if err != nil {
			return err
		}
		p.aux.Data = append(p.aux.Data, byte(v))
	}
	return nil
}

func (p *parser) integer(text string, lo, hi int64) (int64, error) {
	if cgrammar.IsNull(text) {
		return 0, p.violation("NULL where a number is required")
	}
	v, ok := cgrammar.ParseInt(text)
	if !ok {
		return 0, p.violation("expected a number, found %q", text)
	}
	if v < lo || v > hi {
		return 0, p.violation("%s is out of range", text)
	}
	return v, nil
}

func (p *parser) pointer(text string) (record.Pointer, error) {
	if cgrammar.IsNull(text) {
		return record.Null(), nil
	}
	if v, ok := cgrammar.ParseInt(text); ok && v == 0 {
		return record.Null(), nil
	}
	name, ok := cgrammar.AddressOf(text)
	if !ok {
		name = text
	}
	if !cgrammar.IsIdentifier(name) {
		return record.Pointer{}, p.violation("expected a name or NULL, found %q", text)
	}
	return record.Named(name), nil
}

func (p *parser) headerValue(text string) error {
	p.cursor++
	if p.cursor >= len(p.layout.header) {
		return p.violation("more than %d section pointers", len(p.layout.header))
	}
	ptr, err := p.pointer(text)
	if err != nil {
		return err
	}
	p.file.Header.Sections[p.layout.header[p.cursor]] = ptr
	return nil
}

func (p *parser) arrayValue(text string) error {
	p.cursor++
	if p.cursor == 0 {
		p.entry = p.layout.spec(p.kind).newEntry()
		p.fields = p.entry.fields()
	}
	f := p.fields[p.cursor]
	switch {
	case f.f32 != nil:
		v, ok := cgrammar.ParseFloat32(text)
		if !ok || cgrammar.IsNull(text) {
			return p.violation("%s: expected a float, found %q", f.name, text)
		}
		*f.f32 = v
	case f.u16 != nil:
		v, err := p.integer(text, math.MinInt16, math.MaxUint16)
		if err != nil {
			return err
		}
		*f.u16 = uint16(v)
	case f.u32 != nil:
		v, err := p.integer(text, math.MinInt32, math.MaxUint32)
		if err != nil {
			return err
		}
		*f.u32 = uint32(v)
	case f.ref != nil:
		ptr, err := p.pointer(text)
		if err != nil {
			return err
		}
		*f.ref = ptr
	}
	if p.cursor == len(p.fields)-1 {
		if p.layout.spec(p.kind).terminated {
			markNull(p.entry)
		}
		sec := p.file.Section(p.kind)
		sec.Records = append(sec.Records, p.entry)
		p.entry, p.fields = nil, nil
		p.cursor = -1
	}
	return nil
}

func (p *parser) ExitDeclaration() error {
	var err error
	switch p.state {
	case stateHeader:
		if p.cursor != len(p.layout.header)-1 {
			err = p.violation("header has %d of %d section pointers", p.cursor+1, len(p.layout.header))
			break
		}
		p.file.Header.Name = p.declName
		p.haveHeader = true
	case stateArray:
		if p.cursor != -1 {
			err = p.violation("record %d has %d of %d fields",
				len(p.file.Section(p.kind).Records), p.cursor+1, len(p.fields))
			break
		}
		sec := p.file.Section(p.kind)
		sec.Name = p.declName
		p.seen[p.kind] = true
	case stateIDList, stateString, stateBytes:
		err = p.closeAux()
	}
	p.state = stateUnset
	return err
}

func (p *parser) closeAux() error {
	if p.aux == nil {
		return p.violation("auxiliary data without a name")
	}
	a := p.aux
	switch a.Kind {
	case IDList:
		n := len(a.IDs)
		if n == 0 || a.IDs[n-1] != -1 {
			return p.violation("id list is not closed by -1")
		}
		a.IDs = a.IDs[:n-1]
		for _, id := range a.IDs {
			if id == -1 {
				return p.violation("-1 before the end of an id list")
			}
		}
	case String:
		if !p.str {
			n := len(a.Data)
			if n == 0 || a.Data[n-1] != 0 {
				return p.violation("character array is not NUL-terminated")
			}
			a.Data = a.Data[:n-1]
		}
		for _, c := range a.Data {
			if c == 0 {
				return p.violation("NUL inside a string")
			}
		}
	}
	if p.owner == Trailer {
		p.file.Trailer = append(p.file.Trailer, a)
	} else {
		sec := p.file.Section(p.owner)
		sec.Aux = append(sec.Aux, a)
	}
	return nil
}

func (p *parser) ExitCompilationUnit() error {
	if p.state != stateUnset {
		return record.StructuralParse(p.recordName(), "input ended inside a declaration")
	}
	if !p.haveHeader {
		return record.MissingSection(HeaderType)
	}
	return nil
}
