package setup

import (
	"fmt"

	"github.com/samcharles93/setupconv/pkg/linker"
	"github.com/samcharles93/setupconv/pkg/record"
)

type headerObject struct {
	h      *Header
	layout *layout
}

func (o headerObject) Handle() record.Handle { return o.h.ID }
func (o headerObject) Align() int { return 4 }
func (o headerObject) Size() int { return 4 * len(o.layout.header) }

func (o headerObject) Emit(s *linker.Slot) error {
	for i, k := range o.layout.header {
		if err := s.PutRef(4*i, o.h.Sections[k]); err != nil {
			return err
		}
	}
	return nil
}

type auxObject struct{ a *Aux }

func (o auxObject) Handle() record.Handle { return o.a.ID }
func (o auxObject) Align() int { return o.a.Align() }
func (o auxObject) Size() int { return o.a.Size() }

func (o auxObject) Emit(s *linker.Slot) error {
	switch o.a.Kind {
	case IDList:
		for i, id := range o.a.IDs {
			if err := s.PutU32(4*i, uint32(id)); err != nil {
				return err
			}
		}
		return s.PutU32(4*len(o.a.IDs), 0xFFFFFFFF)
	default:
		// The NUL of a string is already zero.
		return s.PutBytes(0, o.a.Data)
	}
}

type arrayObject struct {
	sec  *Section
	size int
}

func (o arrayObject) Handle() record.Handle { return o.sec.ID }
func (o arrayObject) Align() int { return 4 }
func (o arrayObject) Size() int { return o.size * len(o.sec.Records) }

func (o arrayObject) Emit(s *linker.Slot) error {
	for i, e := range o.sec.Records {
		if err := encodeEntry(s, i*o.size, e); err != nil {
			return err
		}
	}
	return nil
}

// Collect normalises f, checks every record and registers the graph with
// ctx in byte order: the header, then for each section its unreferenced
// data, its referenced data and its main array, then the trailer.
func Collect(ctx *linker.Context, f *File) error {
	return collect(defaultLayout, ctx, f)
}

func collect(l *layout, ctx *linker.Context, f *File) error {
	normalize(l, f)
	if err := check(l, f); err != nil {
		return err
	}
	if err := ctx.Register(headerObject{h: &f.Header, layout: l}); err != nil {
		return err
	}
	for _, k := range l.emission {
		sec := &f.Sections[k]
		for _, a := range sec.Aux {
			if err := ctx.Register(auxObject{a}); err != nil {
				return err
			}
		}
		if len(sec.Records) == 0 {
			continue
		}
		if err := ctx.Register(arrayObject{sec: sec, size: l.spec(k).size}); err != nil {
			return err
		}
	}
	for _, a := range f.Trailer {
		if err := ctx.Register(auxObject{a}); err != nil {
			return err
		}
	}
	return nil
}

// check validates record shapes and null flags before any byte is written.
func check(l *layout, f *File) error {
	for k := range NumSections {
		spec := l.spec(k)
		for i, e := range f.Sections[k].Records {
			size := 0
			for _, fd := range e.fields() {
				size += fd.size()
			}
			if size != spec.size {
				return record.SchemaViolation(entryName(f, k, i), spec.typeName, "record is %d bytes, want %d", size, spec.size)
			}
			if spec.terminated {
				if err := checkNull(f, k, i, e); err != nil {
					return err
				}
			}
		}
		for _, a := range f.Sections[k].Aux {
			if err := checkAux(a); err != nil {
				return err
			}
		}
	}
	for _, a := range f.Trailer {
		if err := checkAux(a); err != nil {
			return err
		}
	}
	return nil
}

// checkNull requires a null record to have no data attached and any other
// record to have at least one pointer set. Some of its pointers may be zero.
func checkNull(f *File, k Kind, i int, e Entry) error {
	attached := false
	for _, r := range Refs(e) {
		if r.Ptr.IsAbsent() {
			continue
		}
		if IsNull(e) {
			return record.InconsistentGraph(entryName(f, k, i), "null record has %s data attached", r.Role)
		}
		attached = true
	}
	if !IsNull(e) && !attached {
		return record.InconsistentGraph(entryName(f, k, i), "record is not null but has no data attached")
	}
	return nil
}

func checkAux(a *Aux) error {
	switch a.Kind {
	case IDList:
		for _, id := range a.IDs {
			if id == -1 {
				return record.SchemaViolation(a.Name, "s32[]", "-1 inside an id list")
			}
		}
	case String:
		for _, c := range a.Data {
			if c == 0 {
				return record.SchemaViolation(a.Name, "char[]", "NUL inside a string")
			}
		}
	}
	return nil
}

func entryName(f *File, k Kind, i int) string {
	name := f.Sections[k].Name
	if name == "" {
		name = k.String()
	}
	return fmt.Sprintf("%s[%d]", name, i)
}

// Assemble encodes f as a binary image.
func Assemble(f *File) ([]byte, error) {
	img, _, err := Link(f)
	return img, err
}

// Link encodes f and also returns the context, which reports offsets and
// unresolved pointers.
func Link(f *File) ([]byte, *linker.Context, error) {
	ctx := linker.NewContext()
	if err := Collect(ctx, f); err != nil {
		return nil, nil, err
	}
	img, err := ctx.Link()
	if err != nil {
		return nil, nil, err
	}
	return img, ctx, nil
}
