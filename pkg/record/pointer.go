package record

// PointerState describes how much is known about a pointer field.
type PointerState uint8

const (
	// PointerUnset means no wrapper exists yet; normalisation may synthesise one.
	PointerUnset PointerState = iota
	// PointerAbsent is an explicit NULL.
	PointerAbsent
	// PointerBound references a target by name, by handle, or both.
	PointerBound
)

func (s PointerState) String() string {
	switch s {
	case PointerUnset:
		return "unset"
	case PointerAbsent:
		return "absent"
	case PointerBound:
		return "bound"
	default:
		return "unknown"
	}
}

// Pointer is a reference from one record to another record. Before assembly
// it carries no numeric offset, only the identity of its target.
type Pointer struct {
	State  PointerState
	Name   string // symbolic target, as written in text or documents
	Target Handle // resolved target identity
}

// Null returns an explicit NULL pointer.
func Null() Pointer { return Pointer{State: PointerAbsent} }

// To returns a pointer bound to a known handle.
func To(h Handle) Pointer {
	if !h.Valid() {
		return Null()
	}
	return Pointer{State: PointerBound, Target: h}
}

// Named returns a pointer bound to a symbolic name only.
func Named(name string) Pointer {
	if name == "" {
		return Null()
	}
	return Pointer{State: PointerBound, Name: name}
}

// IsAbsent reports whether p encodes "no target". Unset pointers count as
// absent for encoding purposes.
func (p Pointer) IsAbsent() bool {
	return p.State != PointerBound
}

// Bind resolves a name-only pointer through lookup. Pointers that already
// carry a handle, and names lookup does not know, are left unchanged.
func (p *Pointer) Bind(lookup func(name string) (Handle, bool)) {
	if p.State != PointerBound || p.Target.Valid() || p.Name == "" {
		return
	}
	if h, ok := lookup(p.Name); ok {
		p.Target = h
	}
}

// Label fills in the symbolic name of a handle-only pointer.
func (p *Pointer) Label(name func(h Handle) (string, bool)) {
	if p.State != PointerBound || p.Name != "" || !p.Target.Valid() {
		return
	}
	if n, ok := name(p.Target); ok {
		p.Name = n
	}
}
