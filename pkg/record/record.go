// Package record holds the data model shared by the Stan and Setup file
// packages: opaque record handles, pointer fields, ordering keys and the
// conversion error taxonomy.
package record

// Handle identifies one record or auxiliary object inside a graph.
// Two structurally identical records always carry different handles.
// The zero Handle never names a record.
type Handle uint32

// None is the zero handle.
const None Handle = 0

// Valid reports whether h names a record.
func (h Handle) Valid() bool { return h != None }

// Allocator hands out handles for a single graph. It is not safe for
// concurrent use; graphs are private to one conversion.
type Allocator struct {
	next Handle
}

// Next returns a fresh handle.
func (a *Allocator) Next() Handle {
	a.next++
	return a.next
}

// Observe makes sure future handles never collide with h. Decoders that
// rebuild a graph with explicit handles call it for every handle they reuse.
func (a *Allocator) Observe(h Handle) {
	if h > a.next {
		a.next = h
	}
}

// NoOrder marks a record whose ordering key has not been assigned yet.
const NoOrder = -1
