package setup

import (
	"encoding/binary"
	"math"

	"github.com/samcharles93/setupconv/pkg/linker"
	"github.com/samcharles93/setupconv/pkg/record"
)

// Meta is embedded in every main-array record.
type Meta struct {
	ID record.Handle
	// Null marks an empty record. Its pointer fields are all zero and it
	// closes a terminated section.
	Null bool
}

func (m *Meta) meta() *Meta { return m }

// Entry is one record of a main array.
type Entry interface {
	meta() *Meta
	fields() []field
}

// field is a pointer to one column of an entry. Exactly one of the value
// pointers is set.
type field struct {
	name string
	f32  *float32
	u16  *uint16
	u32  *uint32
	ref  *record.Pointer
	role Role
}

func (f field) size() int {
	if f.u16 != nil {
		return 2
	}
	return 4
}

// Ref is a pointer field of an entry and the role of its target.
type Ref struct {
	Role Role
	Ptr  *record.Pointer
}

// Refs returns the pointer fields of e in field order.
func Refs(e Entry) []Ref {
	var refs []Ref
	for _, f := range e.fields() {
		if f.ref != nil {
			refs = append(refs, Ref{Role: f.role, Ptr: f.ref})
		}
	}
	return refs
}

// IsNull reports whether e is an empty record.
func IsNull(e Entry) bool { return e.meta().Null }

// BBox is the bounding box extension of a 3D pad.
type BBox [6]float32

// Pad is a point of interest in the stage. Pads of the pad3ds section carry
// a bounding box.
type Pad struct {
	Meta
	Pos       [3]float32
	Up        [3]float32
	Look      [3]float32
	Name      record.Pointer
	Unknown28 uint32
	BBox      *BBox
}

func (p *Pad) fields() []field {
	fs := []field{
		{name: "pos.x", f32: &p.Pos[0]}, {name: "pos.y", f32: &p.Pos[1]}, {name: "pos.z", f32: &p.Pos[2]},
		{name: "up.x", f32: &p.Up[0]}, {name: "up.y", f32: &p.Up[1]}, {name: "up.z", f32: &p.Up[2]},
		{name: "look.x", f32: &p.Look[0]}, {name: "look.y", f32: &p.Look[1]}, {name: "look.z", f32: &p.Look[2]},
		{name: "name", ref: &p.Name, role: RoleName},
		{name: "unknown28", u32: &p.Unknown28},
	}
	if p.BBox != nil {
		for i, n := range [...]string{"xmin", "xmax", "ymin", "ymax", "zmin", "zmax"} {
			fs = append(fs, field{name: "bbox." + n, f32: &p.BBox[i]})
		}
	}
	return fs
}

// PathTableEntry is one waypoint of the path graph.
type PathTableEntry struct {
	Meta
	Pad       uint16
	Unknown02 uint16
	Neighbors record.Pointer
	Groups    record.Pointer
	Unknown0C uint32
}

func (e *PathTableEntry) fields() []field {
	return []field{
		{name: "pad", u16: &e.Pad},
		{name: "unknown02", u16: &e.Unknown02},
		{name: "neighbors", ref: &e.Neighbors, role: RoleNeighbors},
		{name: "groups", ref: &e.Groups, role: RoleGroups},
		{name: "unknown0c", u32: &e.Unknown0C},
	}
}

// PathLinkEntry links a waypoint group to its neighbours.
type PathLinkEntry struct {
	Meta
	Neighbors record.Pointer
	Indices   record.Pointer
	Unknown08 uint32
}

func (e *PathLinkEntry) fields() []field {
	return []field{
		{name: "neighbors", ref: &e.Neighbors, role: RoleNeighbors},
		{name: "indices", ref: &e.Indices, role: RoleIndices},
		{name: "unknown08", u32: &e.Unknown08},
	}
}

// PathSetEntry is a patrol route.
type PathSetEntry struct {
	Meta
	IDs       record.Pointer
	Unknown04 uint32
}

func (e *PathSetEntry) fields() []field {
	return []field{
		{name: "ids", ref: &e.IDs, role: RoleIDs},
		{name: "unknown04", u32: &e.Unknown04},
	}
}

// AIListEntry binds an AI script to its id.
type AIListEntry struct {
	Meta
	Script record.Pointer
	ID     uint32
}

func (e *AIListEntry) fields() []field {
	return []field{
		{name: "script", ref: &e.Script, role: RoleScript},
		{name: "id", u32: &e.ID},
	}
}

// NameEntry points at a pad name string.
type NameEntry struct {
	Meta
	Name record.Pointer
}

func (e *NameEntry) fields() []field {
	return []field{{name: "name", ref: &e.Name, role: RoleName}}
}

func encodeEntry(s *linker.Slot, base int, e Entry) error {
	off := base
	for _, f := range e.fields() {
		var err error
		switch {
		case f.f32 != nil:
			err = s.PutU32(off, math.Float32bits(*f.f32))
		case f.u16 != nil:
			err = s.PutU16(off, *f.u16)
		case f.u32 != nil:
			err = s.PutU32(off, *f.u32)
		case f.ref != nil:
			err = s.PutRef(off, *f.ref)
		}
		if err != nil {
			return err
		}
		off += f.size()
	}
	return nil
}

// decodeEntry fills e from b and returns its raw pointer values in field
// order.
func decodeEntry(b []byte, e Entry) []uint32 {
	be := binary.BigEndian
	var ptrs []uint32
	off := 0
	for _, f := range e.fields() {
		switch {
		case f.f32 != nil:
			*f.f32 = math.Float32frombits(be.Uint32(b[off:]))
		case f.u16 != nil:
			*f.u16 = be.Uint16(b[off:])
		case f.u32 != nil:
			*f.u32 = be.Uint32(b[off:])
		case f.ref != nil:
			ptrs = append(ptrs, be.Uint32(b[off:]))
		}
		off += f.size()
	}
	return ptrs
}

// markNull sets the null flag of e from its pointer fields.
func markNull(e Entry) {
	null := true
	for _, r := range Refs(e) {
		if !r.Ptr.IsAbsent() {
			null = false
		}
	}
	e.meta().Null = null
}
