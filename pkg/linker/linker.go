// Package linker lays out a graph of records as one contiguous big-endian
// image and resolves the pointers between them.
//
// A Context is used in three phases that must run in order and exactly once:
//
//  1. Collect: Register every object. Registration order is byte order.
//  2. Assemble: every object gets an aligned start offset and writes its fields.
//     Pointer fields are written as zero and remembered as deferred patches.
//  3. Resolve: every patch is overwritten with its target's start offset, or
//     left at zero when the target was never registered.
//
// Pointer targets are frequently placed after the record that references
// them, so no single-pass writer can know their final offsets.
package linker

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/samcharles93/setupconv/pkg/record"
)

// PointerSize is the width of a pointer field in the target memory model.
const PointerSize = 4

// Object is anything that occupies a byte range in the image.
type Object interface {
	Handle() record.Handle
	Align() int
	Size() int
	Emit(s *Slot) error
}

type phase uint8

const (
	phaseCollect phase = iota
	phaseAssembled
	phaseResolved
)

type patch struct {
	at     int
	target record.Handle
}

// Context owns the registered objects, their offsets and the deferred patches
// of one conversion. Contexts are never shared between conversions.
type Context struct {
	phase   phase
	objects []Object
	seen    map[record.Handle]struct{}
	offsets map[record.Handle]uint32
	patches []patch
	buf     []byte

	unresolved int
}

// NewContext returns an empty context in the collection phase.
func NewContext() *Context {
	return &Context{
		seen:    make(map[record.Handle]struct{}),
		offsets: make(map[record.Handle]uint32),
	}
}

// Register appends obj to the emission order.
func (c *Context) Register(obj Object) error {
	if c.phase != phaseCollect {
		return errors.New("linker: register after assembly")
	}
	if obj == nil {
		return errors.New("linker: nil object")
	}
	h := obj.Handle()
	if h.Valid() {
		if _, dup := c.seen[h]; dup {
			return fmt.Errorf("linker: handle %d registered twice", h)
		}
		c.seen[h] = struct{}{}
	}
	if a := obj.Align(); a < 1 || a&(a-1) != 0 {
		return fmt.Errorf("linker: invalid alignment %d", a)
	}
	c.objects = append(c.objects, obj)
	return nil
}

// Len returns the number of registered objects.
func (c *Context) Len() int { return len(c.objects) }

// Assemble lays out and writes every registered object.
func (c *Context) Assemble() error {
	if c.phase != phaseCollect {
		return errors.New("linker: already assembled")
	}
	for _, obj := range c.objects {
		start := c.reserve(obj.Align(), obj.Size())
		if h := obj.Handle(); h.Valid() {
			c.offsets[h] = uint32(start)
		}
		s := &Slot{ctx: c, start: start, size: obj.Size()}
		if err := obj.Emit(s); err != nil {
			c.buf = nil
			return err
		}
	}
	c.phase = phaseAssembled
	return nil
}

// Resolve patches every pointer and returns the finished image.
func (c *Context) Resolve() ([]byte, error) {
	if c.phase != phaseAssembled {
		return nil, errors.New("linker: resolve before assembly")
	}
	for _, p := range c.patches {
		off, ok := c.offsets[p.target]
		if !ok {
			c.unresolved++
			continue
		}
		binary.BigEndian.PutUint32(c.buf[p.at:], off)
	}
	c.phase = phaseResolved
	return c.buf, nil
}

// Link runs Assemble and Resolve.
func (c *Context) Link() ([]byte, error) {
	if err := c.Assemble(); err != nil {
		return nil, err
	}
	return c.Resolve()
}

// Offset returns the start offset assigned to h during assembly.
func (c *Context) Offset(h record.Handle) (uint32, bool) {
	off, ok := c.offsets[h]
	return off, ok
}

// Unresolved returns the number of pointer fields left at zero because their
// target was never registered. Absent pointers are not counted.
func (c *Context) Unresolved() int { return c.unresolved }

func (c *Context) reserve(align, size int) int {
	old := len(c.buf)
	pos := old
	if mod := pos % align; mod != 0 {
		pos += align - mod
	}
	end := pos + size
	if end > cap(c.buf) {
		grown := make([]byte, len(c.buf), max(end, 2*cap(c.buf)))
		copy(grown, c.buf)
		c.buf = grown
	}
	// Padding and the new range start zeroed.
	c.buf = c.buf[:end]
	clear(c.buf[old:end])
	return pos
}
