package stan

import (
	"bytes"
	"encoding/binary"

	"github.com/samcharles93/setupconv/pkg/record"
)

// Read decodes a binary image. The variant cannot be detected from the bytes
// and must be supplied by the caller. The graph is returned unnormalised.
func Read(data []byte, v Variant) (*File, error) {
	if len(data) < HeaderSize+FooterSize {
		return nil, record.CorruptImage("stan", "image is %d bytes, shorter than header and footer", len(data))
	}
	if len(data)%footerAlign != 0 {
		return nil, record.CorruptImage("stan", "image size %d is not a multiple of %d", len(data), footerAlign)
	}
	be := binary.BigEndian
	f := New(v)
	f.Header.Unknown00 = be.Uint32(data[0:])
	firstTile := be.Uint32(data[4:])
	f.Header.UnknownTail = bytes.Clone(data[8:HeaderSize])

	footerAt := len(data) - FooterSize
	fixed := v.TileFixedSize()
	starts := make(map[uint32]record.Handle)
	off := HeaderSize
	for footerAt-off >= fixed {
		t := Tile{ID: f.alloc.Next(), Order: off}
		b := data[off : off+fixed]
		if v == Beta {
			copy(t.BetaPrefix[:], b[:3])
			b = b[3:]
		}
		t.InternalName = uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2])
		b = b[3:]
		if v == Standard {
			t.Room = b[0]
			b = b[1:]
		}
		t.Flags, t.Brightness, t.PointCount = b[0], b[1], b[2]
		t.HeaderA, t.HeaderB, t.HeaderC = b[3], b[4], b[5]

		end := off + fixed + PointSize*int(t.PointCount)
		if end > footerAt {
			return nil, record.CorruptImage(tileSchemaFor(v).name, "tile at %#x with %d points overruns the footer", off, t.PointCount)
		}
		for p := off + fixed; p < end; p += PointSize {
			t.Points = append(t.Points, Point{
				X:    int16(be.Uint16(data[p:])),
				Y:    int16(be.Uint16(data[p+2:])),
				Z:    int16(be.Uint16(data[p+4:])),
				Link: int16(be.Uint16(data[p+6:])),
			})
		}
		starts[uint32(off)] = t.ID
		f.Tiles = append(f.Tiles, t)
		off = end
	}
	if pad := data[off:footerAt]; len(pad) >= footerAlign || !allZero(pad) {
		return nil, record.CorruptImage(FooterType, "%d unexplained bytes before the footer", len(pad))
	}
	if len(f.Tiles) == 0 {
		return nil, record.MissingSection(tileSchemaFor(v).name)
	}

	switch h, ok := starts[firstTile]; {
	case firstTile == 0:
		f.Header.FirstTile = record.Null()
	case ok:
		f.Header.FirstTile = record.To(h)
	default:
		return nil, record.CorruptImage(HeaderType, "first_tile %#x does not start a tile", firstTile)
	}

	ft := data[footerAt:]
	f.Footer.Unknown1 = be.Uint32(ft[0:])
	f.Footer.Unknown2 = be.Uint32(ft[4:])
	copy(f.Footer.Tag[:], ft[8:16])
	f.Footer.Unknown3 = be.Uint32(ft[16:])
	return f, nil
}

func allZero(b []byte) bool {
	for _, c := range b {
		if c != 0 {
			return false
		}
	}
	return true
}
