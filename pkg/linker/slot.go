package linker

import (
	"encoding/binary"
	"fmt"

	"github.com/samcharles93/setupconv/pkg/record"
)

// Slot is the byte range assigned to one object during assembly. Field
// offsets passed to its methods are relative to the start of the range.
type Slot struct {
	ctx   *Context
	start int
	size  int
}

// Start returns the absolute offset of the slot in the image.
func (s *Slot) Start() int { return s.start }

func (s *Slot) span(off, n int) ([]byte, error) {
	if off < 0 || n < 0 || off+n > s.size {
		return nil, fmt.Errorf("linker: write [%d,%d) outside %d-byte slot", off, off+n, s.size)
	}
	at := s.start + off
	return s.ctx.buf[at : at+n], nil
}

func (s *Slot) PutU8(off int, v uint8) error {
	b, err := s.span(off, 1)
	if err != nil {
		return err
	}
	b[0] = v
	return nil
}

func (s *Slot) PutU16(off int, v uint16) error {
	b, err := s.span(off, 2)
	if err != nil {
		return err
	}
	binary.BigEndian.PutUint16(b, v)
	return nil
}

// PutU24 writes the low 24 bits of v.
func (s *Slot) PutU24(off int, v uint32) error {
	b, err := s.span(off, 3)
	if err != nil {
		return err
	}
	b[0] = byte(v >> 16)
	b[1] = byte(v >> 8)
	b[2] = byte(v)
	return nil
}

func (s *Slot) PutU32(off int, v uint32) error {
	b, err := s.span(off, 4)
	if err != nil {
		return err
	}
	binary.BigEndian.PutUint32(b, v)
	return nil
}

func (s *Slot) PutBytes(off int, p []byte) error {
	b, err := s.span(off, len(p))
	if err != nil {
		return err
	}
	copy(b, p)
	return nil
}

// PutPointer writes a zero placeholder and defers the real value until every
// object has an offset. An invalid target leaves the field at zero.
func (s *Slot) PutPointer(off int, target record.Handle) error {
	if _, err := s.span(off, PointerSize); err != nil {
		return err
	}
	if !target.Valid() {
		return nil
	}
	s.ctx.patches = append(s.ctx.patches, patch{at: s.start + off, target: target})
	return nil
}

// PutRef writes a pointer field. Absent pointers stay zero without a patch;
// bound pointers whose target never gets registered count as unresolved.
func (s *Slot) PutRef(off int, p record.Pointer) error {
	if _, err := s.span(off, PointerSize); err != nil {
		return err
	}
	if p.IsAbsent() {
		return nil
	}
	s.ctx.patches = append(s.ctx.patches, patch{at: s.start + off, target: p.Target})
	return nil
}
