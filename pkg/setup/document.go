package setup

import (
	"encoding/hex"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/samcharles93/setupconv/internal/cgrammar"
	"github.com/samcharles93/setupconv/pkg/record"
)

// DocumentFormat identifies Setup documents.
const DocumentFormat = "setup"

// Document is the structured (JSON) form of a Setup file. Pointers are
// written as target names.
type Document struct {
	Format   string       `json:"format"`
	Includes []string     `json:"includes,omitempty"`
	Header   HeaderDoc    `json:"header"`
	Sections []SectionDoc `json:"sections"`
	Trailer  []AuxDoc     `json:"trailer,omitempty"`
}

// HeaderDoc maps section kinds to the name of the array the header points
// at, or null.
type HeaderDoc struct {
	Name     string             `json:"name"`
	Sections map[string]*string `json:"sections"`
}

type SectionDoc struct {
	Kind    string      `json:"kind"`
	Name    string      `json:"name"`
	Aux     []AuxDoc    `json:"aux,omitempty"`
	Records []RecordDoc `json:"records"`
}

// AuxDoc holds exactly one of IDs, Text or Data, chosen by Kind.
type AuxDoc struct {
	Name string  `json:"name"`
	Role string  `json:"role"`
	Kind string  `json:"kind"`
	IDs  []int32 `json:"ids,omitempty"`
	Text *string `json:"text,omitempty"`
	Data string  `json:"data,omitempty"`
}

// RecordDoc maps field names to values. Empty records carry "null": true.
type RecordDoc map[string]json.RawMessage

// Float is a float32 that survives JSON: non-finite values are written as
// their bit pattern in a string.
type Float float32

func (f Float) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return strconv.AppendQuote(nil, cgrammar.FormatFloat32(float32(f))), nil
	}
	return strconv.AppendFloat(nil, v, 'g', -1, 32), nil
}

func (f *Float) UnmarshalJSON(b []byte) error {
	s := string(b)
	if len(s) > 0 && s[0] == '"' {
		q, err := strconv.Unquote(s)
		if err != nil {
			return err
		}
		v, ok := cgrammar.ParseFloat32(q)
		if !ok {
			return strconv.ErrSyntax
		}
		*f = Float(v)
		return nil
	}
	v, err := strconv.ParseFloat(s, 32)
	if err != nil {
		return err
	}
	*f = Float(v)
	return nil
}

// ToDocument normalises f and returns its document form.
func ToDocument(f *File) (*Document, error) {
	l := defaultLayout
	normalize(l, f)
	doc := &Document{
		Format:   DocumentFormat,
		Includes: f.Includes,
		Header:   HeaderDoc{Name: f.Header.Name, Sections: make(map[string]*string)},
	}
	for _, k := range l.header {
		ptr := f.Header.Sections[k]
		var target *string
		if !ptr.IsAbsent() {
			name := ptr.Name
			target = &name
		}
		doc.Header.Sections[k.String()] = target
	}
	for _, k := range l.emission {
		sec := &f.Sections[k]
		if len(sec.Records) == 0 && len(sec.Aux) == 0 {
			continue
		}
		sd := SectionDoc{Kind: k.String(), Name: sec.Name, Records: make([]RecordDoc, 0, len(sec.Records))}
		for _, a := range sec.Aux {
			sd.Aux = append(sd.Aux, auxDoc(a))
		}
		for _, e := range sec.Records {
			rd, err := recordDoc(e, l.spec(k).terminated)
			if err != nil {
				return nil, err
			}
			sd.Records = append(sd.Records, rd)
		}
		doc.Sections = append(doc.Sections, sd)
	}
	for _, a := range f.Trailer {
		doc.Trailer = append(doc.Trailer, auxDoc(a))
	}
	return doc, nil
}

func auxDoc(a *Aux) AuxDoc {
	d := AuxDoc{Name: a.Name, Role: a.Role.String(), Kind: a.Kind.String()}
	switch a.Kind {
	case IDList:
		d.IDs = append([]int32{}, a.IDs...)
	case String:
		q := cgrammar.Quote(string(a.Data))
		text := q[1 : len(q)-1]
		d.Text = &text
	default:
		d.Data = hex.EncodeToString(a.Data)
	}
	return d
}

func recordDoc(e Entry, terminated bool) (RecordDoc, error) {
	rd := make(RecordDoc)
	put := func(key string, v any) error {
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		rd[key] = b
		return nil
	}
	if terminated && IsNull(e) {
		if err := put("null", true); err != nil {
			return nil, err
		}
	}
	for _, f := range e.fields() {
		var err error
		switch {
		case f.f32 != nil:
			err = put(f.name, Float(*f.f32))
		case f.u16 != nil:
			err = put(f.name, *f.u16)
		case f.u32 != nil:
			err = put(f.name, *f.u32)
		case f.ref != nil:
			var target *string
			if !f.ref.IsAbsent() {
				name := f.ref.Name
				target = &name
			}
			err = put(f.name, target)
		}
		if err != nil {
			return nil, err
		}
	}
	return rd, nil
}

// EncodeDocument writes f as an indented JSON document.
func EncodeDocument(w io.Writer, f *File) error {
	doc, err := ToDocument(f)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
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

// FromDocument rebuilds a graph from its document form. Auxiliary objects
// keep the order of the document.
func FromDocument(doc *Document) (*File, error) {
	l := defaultLayout
	if doc.Format != DocumentFormat {
		return nil, record.SchemaViolation("document", DocumentFormat, "format is %q", doc.Format)
	}
	f := New()
	f.Includes = doc.Includes
	f.Header.Name = doc.Header.Name
	for k := range NumSections {
		f.Header.Sections[k] = record.Null()
	}
	for key, target := range doc.Header.Sections {
		k, ok := kindByName(l, key)
		if !ok {
			return nil, record.SchemaViolation(HeaderType, HeaderType, "unknown section %q", key)
		}
		if target != nil {
			f.Header.Sections[k] = record.Named(*target)
		}
	}

	seen := make(map[Kind]bool)
	for _, sd := range doc.Sections {
		k, ok := kindByName(l, sd.Kind)
		if !ok {
			return nil, record.SchemaViolation(sd.Name, "section", "unknown section kind %q", sd.Kind)
		}
		if seen[k] {
			return nil, record.StructuralParse(sd.Kind, "section listed twice")
		}
		seen[k] = true
		sec := f.Section(k)
		sec.Name = sd.Name
		spec := l.spec(k)
		for i, ad := range sd.Aux {
			a, err := fromAuxDoc(ad, i)
			if err != nil {
				return nil, err
			}
			if a.Kind != Raw && (a.Kind != spec.aux || !spec.hasRole(a.Role)) {
				return nil, record.SchemaViolation(ad.Name, spec.typeName, "%s %s data does not belong to %s", a.Kind, a.Role, k)
			}
			sec.Aux = append(sec.Aux, a)
		}
		for i, rd := range sd.Records {
			e, err := fromRecordDoc(rd, spec)
			if err != nil {
				return nil, record.SchemaViolation(fmt.Sprintf("%s[%d]", sd.Name, i), spec.typeName, "%v", err)
			}
			sec.Records = append(sec.Records, e)
		}
	}
	for i, ad := range doc.Trailer {
		a, err := fromAuxDoc(ad, i)
		if err != nil {
			return nil, err
		}
		if a.Kind != Raw {
			return nil, record.SchemaViolation(ad.Name, "trailer", "trailer holds raw filler only")
		}
		f.Trailer = append(f.Trailer, a)
	}
	return f, nil
}

func kindByName(l *layout, name string) (Kind, bool) {
	for k := range NumSections {
		if l.spec(k).name == name {
			return k, true
		}
	}
	return 0, false
}

func fromAuxDoc(d AuxDoc, order int) (*Aux, error) {
	role, ok := parseRole(d.Role)
	if !ok {
		return nil, record.SchemaViolation(d.Name, "aux", "unknown role %q", d.Role)
	}
	kind, ok := parseAuxKind(d.Kind)
	if !ok {
		return nil, record.SchemaViolation(d.Name, "aux", "unknown kind %q", d.Kind)
	}
	a := &Aux{Name: d.Name, Order: order, Role: role, Kind: kind}
	switch kind {
	case IDList:
		a.IDs = append([]int32(nil), d.IDs...)
	case String:
		if d.Text == nil {
			return nil, record.SchemaViolation(d.Name, "char[]", "string without text")
		}
		s, err := cgrammar.Unquote(`"` + *d.Text + `"`)
		if err != nil {
			return nil, record.SchemaViolation(d.Name, "char[]", "%v", err)
		}
		a.Data = []byte(s)
	default:
		b, err := hex.DecodeString(d.Data)
		if err != nil {
			return nil, record.SchemaViolation(d.Name, "u8[]", "data: %v", err)
		}
		a.Data = b
	}
	return a, nil
}

func fromRecordDoc(rd RecordDoc, spec *sectionSpec) (Entry, error) {
	e := spec.newEntry()
	known := map[string]bool{"null": true}
	for _, f := range e.fields() {
		known[f.name] = true
		raw, ok := rd[f.name]
		if !ok {
			if f.ref != nil {
				*f.ref = record.Null()
			}
			continue
		}
		var err error
		switch {
		case f.f32 != nil:
			var v Float
			err = json.Unmarshal(raw, &v)
			*f.f32 = float32(v)
		case f.u16 != nil:
			err = json.Unmarshal(raw, f.u16)
		case f.u32 != nil:
			err = json.Unmarshal(raw, f.u32)
		case f.ref != nil:
			var target *string
			err = json.Unmarshal(raw, &target)
			*f.ref = record.Null()
			if target != nil {
				*f.ref = record.Named(*target)
			}
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.name, err)
		}
	}
	for key := range rd {
		if !known[key] {
			return nil, fmt.Errorf("unknown field %q", key)
		}
	}
	if raw, ok := rd["null"]; ok && spec.terminated {
		if err := json.Unmarshal(raw, &e.meta().Null); err != nil {
			return nil, fmt.Errorf("null: %w", err)
		}
	}
	return e, nil
}
