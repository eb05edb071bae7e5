package setup

import (
	"bytes"
	"encoding/binary"
	"slices"

	"github.com/samcharles93/setupconv/pkg/record"
)

// Read decodes a binary image. Bytes that no pointer reaches are kept as
// filler of the section that follows them, or of the trailer. The graph is
// returned unnormalised.
func Read(data []byte) (*File, error) {
	return read(defaultLayout, data)
}

type pendingRef struct {
	ptr   *record.Pointer
	at    int
	role  Role
	owner Kind
}

type span struct {
	start, end int
	align      int
	owner      Kind
}

type reader struct {
	l    *layout
	data []byte
	f    *File

	starts  map[int]bool
	sorted  []int
	dirty   bool
	section [NumSections]int
	refs    []pendingRef
	auxAt   map[int]*Aux
}

func read(l *layout, data []byte) (*File, error) {
	if len(data) < HeaderSize {
		return nil, record.CorruptImage(HeaderType, "image is %d bytes, shorter than the header", len(data))
	}
	r := &reader{
		l:      l,
		data:   data,
		f:      New(),
		starts: make(map[int]bool),
		auxAt:  make(map[int]*Aux),
	}
	if err := r.header(); err != nil {
		return nil, err
	}
	for _, k := range l.emission {
		if r.section[k] != 0 && l.spec(k).terminated {
			if err := r.terminated(k); err != nil {
				return nil, err
			}
		}
	}
	if err := r.spanning(); err != nil {
		return nil, err
	}
	for _, k := range l.emission {
		if r.section[k] != 0 && l.spec(k).terminated {
			r.extend(k)
		}
	}
	if err := r.resolveAux(); err != nil {
		return nil, err
	}
	if err := r.fillers(); err != nil {
		return nil, err
	}
	return r.f, nil
}

func (r *reader) markStart(off int) {
	if !r.starts[off] {
		r.starts[off] = true
		r.dirty = true
	}
}

// next returns the first known object start after off, or the image size.
func (r *reader) next(off int) int {
	if r.dirty {
		r.sorted = r.sorted[:0]
		for s := range r.starts {
			r.sorted = append(r.sorted, s)
		}
		slices.Sort(r.sorted)
		r.dirty = false
	}
	i, _ := slices.BinarySearch(r.sorted, off+1)
	if i < len(r.sorted) {
		return r.sorted[i]
	}
	return len(r.data)
}

func (r *reader) header() error {
	owners := make(map[int]Kind)
	for i, k := range r.l.header {
		off := int(binary.BigEndian.Uint32(r.data[4*i:]))
		if off == 0 {
			r.f.Header.Sections[k] = record.Null()
			continue
		}
		if off < HeaderSize || off >= len(r.data) || off%4 != 0 {
			return record.CorruptImage(HeaderType, "%s offset %#x is outside the image or misaligned", k, off)
		}
		if other, dup := owners[off]; dup {
			return record.CorruptImage(HeaderType, "%s and %s share offset %#x", other, k, off)
		}
		owners[off] = k
		r.section[k] = off
		r.markStart(off)
	}
	return nil
}

func (r *reader) readEntry(k Kind, at int) (Entry, bool) {
	spec := r.l.spec(k)
	e := spec.newEntry()
	raw := decodeEntry(r.data[at:at+spec.size], e)
	allZero := true
	for i, ref := range Refs(e) {
		if raw[i] == 0 {
			*ref.Ptr = record.Null()
			continue
		}
		allZero = false
		r.refs = append(r.refs, pendingRef{ptr: ref.Ptr, at: int(raw[i]), role: ref.Role, owner: k})
	}
	if spec.terminated {
		e.meta().Null = allZero
	}
	return e, allZero
}

func (r *reader) addTargets(from int) error {
	for _, p := range r.refs[from:] {
		if p.at < HeaderSize || p.at >= len(r.data) {
			return record.CorruptImage(r.l.spec(p.owner).typeName, "%s pointer %#x is outside the image", p.role, p.at)
		}
		r.markStart(p.at)
	}
	return nil
}

// terminated reads a section up to and including its first null record.
func (r *reader) terminated(k Kind) error {
	spec := r.l.spec(k)
	sec := r.f.Section(k)
	off := r.section[k]
	bound := r.next(off)
	first := len(r.refs)
	for at := off; at+spec.size <= bound; at += spec.size {
		e, null := r.readEntry(k, at)
		sec.Records = append(sec.Records, e)
		if null {
			break
		}
	}
	return r.addTargets(first)
}

// spanning reads the sections without a terminator. Each spans to the next
// known object, so later sections go first and their targets bound the
// earlier ones.
func (r *reader) spanning() error {
	var kinds []Kind
	for k := range NumSections {
		if r.section[k] != 0 && !r.l.spec(k).terminated {
			kinds = append(kinds, k)
		}
	}
	slices.SortFunc(kinds, func(a, b Kind) int { return r.section[b] - r.section[a] })
	for _, k := range kinds {
		spec := r.l.spec(k)
		sec := r.f.Section(k)
		off := r.section[k]
		n := (r.next(off) - off) / spec.size
		first := len(r.refs)
		for i := range n {
			e, _ := r.readEntry(k, off+i*spec.size)
			sec.Records = append(sec.Records, e)
		}
		if err := r.addTargets(first); err != nil {
			return err
		}
	}
	return nil
}

// extend appends the all-zero records that follow a terminator.
func (r *reader) extend(k Kind) {
	spec := r.l.spec(k)
	sec := r.f.Section(k)
	if len(sec.Records) == 0 || !IsNull(sec.Records[len(sec.Records)-1]) {
		return
	}
	off := r.section[k]
	bound := r.next(off)
	for at := off + len(sec.Records)*spec.size; at+spec.size <= bound; at += spec.size {
		if !isZero(r.data[at : at+spec.size]) {
			return
		}
		e, _ := r.readEntry(k, at)
		sec.Records = append(sec.Records, e)
	}
}

func (r *reader) resolveAux() error {
	for k := range NumSections {
		if off := r.section[k]; off != 0 {
			r.auxAt[off] = nil
		}
	}
	for _, p := range r.refs {
		a, seen := r.auxAt[p.at]
		if seen && a == nil {
			return record.CorruptImage(r.l.spec(p.owner).typeName, "%s pointer %#x targets a main array", p.role, p.at)
		}
		if !seen {
			var err error
			a, err = r.parseAux(p.owner, p.role, p.at)
			if err != nil {
				return err
			}
			r.auxAt[p.at] = a
			sec := r.f.Section(p.owner)
			sec.Aux = append(sec.Aux, a)
		}
		*p.ptr = record.To(a.ID)
	}
	return nil
}

func (r *reader) parseAux(owner Kind, role Role, at int) (*Aux, error) {
	kind := r.l.spec(owner).aux
	a, n := parseAuxAt(kind, r.data[:r.next(at)], at)
	if n == 0 {
		return nil, record.CorruptImage(r.l.spec(owner).typeName, "%s data at %#x is not a well-formed %s", role, at, kind)
	}
	a.ID = r.f.alloc.Next()
	a.Role = role
	return a, nil
}

// parseAuxAt decodes one auxiliary object of the given kind starting at at
// and ending before len(b). It returns the object and its encoded size, or
// zero when the bytes are not well formed.
func parseAuxAt(kind AuxKind, b []byte, at int) (*Aux, int) {
	a := &Aux{Order: at, Kind: kind}
	switch kind {
	case IDList:
		for p := at; p+4 <= len(b); p += 4 {
			v := int32(binary.BigEndian.Uint32(b[p:]))
			if v == -1 {
				return a, p + 4 - at
			}
			a.IDs = append(a.IDs, v)
		}
	case String:
		if i := bytes.IndexByte(b[at:], 0); i >= 0 {
			a.Data = bytes.Clone(b[at : at+i])
			return a, i + 1
		}
	case Script:
		body := b[at:]
		trimmed := bytes.TrimRight(body, "\x00")
		if len(body)-len(trimmed) < 4 && len(trimmed) > 0 && trimmed[len(trimmed)-1] == ScriptEnd {
			body = trimmed
		}
		if len(body) > 0 {
			a.Data = bytes.Clone(body)
			return a, len(body)
		}
	}
	return nil, 0
}

func (r *reader) fillers() error {
	var spans []span
	for k := range NumSections {
		if off := r.section[k]; off != 0 {
			n := len(r.f.Sections[k].Records)
			spans = append(spans, span{start: off, end: off + n*r.l.spec(k).size, align: 4, owner: k})
		}
		for _, a := range r.f.Sections[k].Aux {
			spans = append(spans, span{start: a.Order, end: a.Order + a.Size(), align: a.Align(), owner: k})
		}
	}
	slices.SortFunc(spans, func(a, b span) int { return a.start - b.start })

	pos := HeaderSize
	for _, s := range spans {
		if s.start < pos {
			return record.CorruptImage(s.owner.String(), "object at %#x overlaps the previous object ending at %#x", s.start, pos)
		}
		if s.start > pos {
			r.gap(pos, s.start, s.align, s.owner)
		}
		pos = s.end
	}
	if pos < len(r.data) {
		r.f.Trailer = append(r.f.Trailer, r.raw(pos, len(r.data)))
	}
	return nil
}

// gap classifies the bytes in [start, end). Zeros that only align the next
// object are padding; anything else is filler of owner, decoded as owner's
// auxiliary kind where the whole gap is well formed.
func (r *reader) gap(start, end, align int, owner Kind) {
	b := r.data[start:end]
	if isZero(b) && alignUp(start, align) == end {
		return
	}
	sec := r.f.Section(owner)
	if start%4 == 0 {
		if objs := r.parseFillers(owner, start, end); objs != nil {
			sec.Aux = append(sec.Aux, objs...)
			return
		}
	}
	sec.Aux = append(sec.Aux, r.raw(start, end))
}

func (r *reader) parseFillers(owner Kind, start, end int) []*Aux {
	spec := r.l.spec(owner)
	var out []*Aux
	b := r.data[:end]
	pos := start
	for pos < end {
		a, n := parseAuxAt(spec.aux, b, pos)
		if n == 0 {
			return nil
		}
		pad := alignUp(pos+n, 4)
		if pad > end || !isZero(b[pos+n:pad]) {
			return nil
		}
		a.ID = r.f.alloc.Next()
		a.Role = spec.roles[0]
		out = append(out, a)
		pos = pad
	}
	return out
}

func (r *reader) raw(start, end int) *Aux {
	return &Aux{
		ID:    r.f.alloc.Next(),
		Order: start,
		Role:  RoleFiller,
		Kind:  Raw,
		Data:  bytes.Clone(r.data[start:end]),
	}
}

func alignUp(n, a int) int {
	if m := n % a; m != 0 {
		return n + a - m
	}
	return n
}

func isZero(b []byte) bool {
	for _, c := range b {
		if c != 0 {
			return false
		}
	}
	return true
}
