package stan

import (
	"github.com/samcharles93/setupconv/pkg/linker"
	"github.com/samcharles93/setupconv/pkg/record"
)

type headerObject struct{ h *Header }

func (o headerObject) Handle() record.Handle { return o.h.ID }
func (o headerObject) Align() int { return headerAlign }
func (o headerObject) Size() int { return HeaderSize }

func (o headerObject) Emit(s *linker.Slot) error {
	if err := s.PutU32(0, o.h.Unknown00); err != nil {
		return err
	}
	if err := s.PutRef(4, o.h.FirstTile); err != nil {
		return err
	}
	return s.PutBytes(8, o.h.UnknownTail)
}

type tileObject struct {
	t       *Tile
	variant Variant
}

func (o tileObject) Handle() record.Handle { return o.t.ID }
func (o tileObject) Align() int { return tileAlign }
func (o tileObject) Size() int { return o.t.Size(o.variant) }

func (o tileObject) Emit(s *linker.Slot) error {
	t := o.t
	var fixed []byte
	if o.variant == Beta {
		fixed = []byte{
			t.BetaPrefix[0], t.BetaPrefix[1], t.BetaPrefix[2],
			byte(t.InternalName >> 16), byte(t.InternalName >> 8), byte(t.InternalName),
			t.Flags, t.Brightness, t.PointCount, t.HeaderA, t.HeaderB, t.HeaderC,
		}
	} else {
		fixed = []byte{
			byte(t.InternalName >> 16), byte(t.InternalName >> 8), byte(t.InternalName),
			t.Room, t.Flags, t.Brightness, t.PointCount, t.HeaderA, t.HeaderB, t.HeaderC,
		}
	}
	if err := s.PutBytes(0, fixed); err != nil {
		return err
	}
	off := len(fixed)
	for _, p := range t.Points {
		for _, v := range [...]int16{p.X, p.Y, p.Z, p.Link} {
			if err := s.PutU16(off, uint16(v)); err != nil {
				return err
			}
			off += 2
		}
	}
	return nil
}

type footerObject struct{ f *Footer }

func (o footerObject) Handle() record.Handle { return o.f.ID }
func (o footerObject) Align() int { return footerAlign }
func (o footerObject) Size() int { return FooterSize }

func (o footerObject) Emit(s *linker.Slot) error {
	if err := s.PutU32(0, o.f.Unknown1); err != nil {
		return err
	}
	if err := s.PutU32(4, o.f.Unknown2); err != nil {
		return err
	}
	if err := s.PutBytes(8, o.f.Tag[:]); err != nil {
		return err
	}
	return s.PutU32(16, o.f.Unknown3)
}

// Collect normalises f, checks it and registers its records with ctx in
// byte order: header, tiles, footer.
func Collect(ctx *linker.Context, f *File) error {
	Normalize(f)
	if len(f.Header.UnknownTail) != TailSize {
		return record.SchemaViolation(f.Header.Name, HeaderType, "header tail is %d bytes, want %d", len(f.Header.UnknownTail), TailSize)
	}
	if len(f.Tiles) == 0 {
		return record.MissingSection(tileSchemaFor(f.Variant).name)
	}
	if err := ctx.Register(headerObject{&f.Header}); err != nil {
		return err
	}
	for i := range f.Tiles {
		t := &f.Tiles[i]
		if int(t.PointCount) != len(t.Points) {
			return record.InconsistentGraph(t.Name, "point_count is %d but the tile has %d points", t.PointCount, len(t.Points))
		}
		if t.InternalName > 0xFFFFFF {
			return record.SchemaViolation(t.Name, tileSchemaFor(f.Variant).name, "name %#x does not fit in 24 bits", t.InternalName)
		}
		if err := ctx.Register(tileObject{t: t, variant: f.Variant}); err != nil {
			return err
		}
	}
	return ctx.Register(footerObject{&f.Footer})
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
