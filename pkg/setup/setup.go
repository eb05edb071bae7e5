// Package setup reads, writes and converts stage Setup files: pads, path
// graphs, AI script lists and pad name tables.
//
// A Setup image starts with a header of section pointers. Every section is a
// fixed-size main array preceded by the variable-length auxiliary data its
// records point at (id lists, strings, scripts). Bytes nothing points at are
// kept as filler so that images survive a round trip unchanged.
package setup

import "github.com/samcharles93/setupconv/pkg/record"

// Kind identifies a main section. The numeric order is the byte order in
// which sections are laid out.
type Kind uint8

const (
	Pads Kind = iota
	Pad3ds
	PathTables
	PathLinks
	PathSets
	AILists
	PadNames
	Pad3dNames
	NumSections
)

func (k Kind) String() string {
	if k < NumSections {
		return specs[k].name
	}
	return "trailer"
}

// Role is the job an auxiliary object does for the record pointing at it.
type Role uint8

const (
	RoleNeighbors Role = iota
	RoleGroups
	RoleIndices
	RoleIDs
	RoleScript
	RoleName
	RoleFiller
)

var roleNames = [...]string{"neighbors", "groups", "indices", "ids", "script", "name", "filler"}

func (r Role) String() string {
	if int(r) < len(roleNames) {
		return roleNames[r]
	}
	return "unknown"
}

func parseRole(s string) (Role, bool) {
	for i, n := range roleNames {
		if n == s {
			return Role(i), true
		}
	}
	return 0, false
}

// AuxKind is the encoding of an auxiliary object.
type AuxKind uint8

const (
	// IDList is a run of s32 values closed by -1.
	IDList AuxKind = iota
	// String is NUL-terminated text.
	String
	// Script is AI command bytes ending with the end command.
	Script
	// Raw is opaque filler.
	Raw
)

var auxKindNames = [...]string{"ids", "string", "script", "raw"}

func (k AuxKind) String() string {
	if int(k) < len(auxKindNames) {
		return auxKindNames[k]
	}
	return "unknown"
}

func parseAuxKind(s string) (AuxKind, bool) {
	for i, n := range auxKindNames {
		if n == s {
			return AuxKind(i), true
		}
	}
	return 0, false
}

// ScriptEnd is the AI command that closes a script.
const ScriptEnd = 0x04

// HeaderSize is the size of the section pointer table.
const HeaderSize = int(NumSections) * 4

// HeaderType names the header record kind in text.
const HeaderType = "setup_header"

// HeaderName is the default header declaration name.
const HeaderName = "setup"

// File is the decoded object graph of one Setup file.
type File struct {
	Includes []string
	Header   Header
	Sections [NumSections]Section
	// Trailer holds filler found after the last section.
	Trailer []*Aux

	alloc record.Allocator
}

// Header holds one pointer per section, indexed by Kind.
type Header struct {
	ID       record.Handle
	Name     string
	Sections [NumSections]record.Pointer
}

// Section is one main array and the auxiliary data it owns.
type Section struct {
	Kind    Kind
	ID      record.Handle
	Name    string
	Records []Entry
	Aux     []*Aux
}

// Aux is an auxiliary object: pointed-at data, or filler.
type Aux struct {
	ID    record.Handle
	Name  string
	Order int
	Role  Role
	Kind  AuxKind
	// IDs holds id-list values without the terminator.
	IDs []int32
	// Data holds string bytes without the NUL, script bytes, or raw bytes.
	Data []byte
	// Referenced is maintained by Normalize.
	Referenced bool
}

// Size returns the encoded size of a.
func (a *Aux) Size() int {
	switch a.Kind {
	case IDList:
		return 4 * (len(a.IDs) + 1)
	case String:
		return len(a.Data) + 1
	default:
		return len(a.Data)
	}
}

// Align returns the required alignment of a.
func (a *Aux) Align() int {
	if a.Kind == Raw {
		return 1
	}
	return 4
}

// New returns an empty file.
func New() *File {
	f := &File{}
	for k := range NumSections {
		f.Sections[k].Kind = k
	}
	return f
}

// Section returns the section of kind k.
func (f *File) Section(k Kind) *Section {
	return &f.Sections[k]
}
