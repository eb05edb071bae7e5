package setup

import (
	"cmp"
	"slices"

	"github.com/samcharles93/setupconv/pkg/record"
)

// Normalize completes a loaded graph: every record and auxiliary object gets
// a handle, every auxiliary object an order and a name, and every pointer
// both a target name and a target handle. Auxiliary objects are sorted into
// emission order: unreferenced data first, then referenced data, each by
// order. Existing names, orders and handles are kept, so a second call
// changes nothing.
func Normalize(f *File) {
	normalize(defaultLayout, f)
}

func normalize(l *layout, f *File) {
	assignHandles(f)
	if f.Header.Name == "" {
		f.Header.Name = HeaderName
	}
	for k := range NumSections {
		sec := &f.Sections[k]
		sec.Kind = k
		if sec.Name == "" {
			sec.Name = l.spec(k).name
		}
		assignOrders(sec.Aux)
	}
	assignOrders(f.Trailer)

	byName := make(map[string]record.Handle)
	byHandle := make(map[record.Handle]string)
	f.eachAux(func(_ Kind, a *Aux) {
		if a.Name != "" {
			byName[a.Name] = a.ID
		}
	})
	lookup := func(name string) (record.Handle, bool) {
		h, ok := byName[name]
		return h, ok
	}
	referenced := make(map[record.Handle]bool)
	f.eachRef(func(_ Kind, _ Entry, r Ref) {
		r.Ptr.Bind(lookup)
		if r.Ptr.State == record.PointerBound && r.Ptr.Target.Valid() {
			referenced[r.Ptr.Target] = true
		}
	})

	taken := make(map[string]bool, len(byName))
	for name := range byName {
		taken[name] = true
	}
	for k := range NumSections {
		sec := &f.Sections[k]
		for _, a := range sec.Aux {
			a.Referenced = referenced[a.ID]
		}
		sortAux(sec.Aux)
		nameAux(l, k, sec.Aux, taken)
	}
	for _, a := range f.Trailer {
		a.Referenced = referenced[a.ID]
	}
	sortAux(f.Trailer)
	nameAux(l, Trailer, f.Trailer, taken)

	f.eachAux(func(_ Kind, a *Aux) {
		byHandle[a.ID] = a.Name
	})
	label := func(h record.Handle) (string, bool) {
		name, ok := byHandle[h]
		return name, ok
	}
	f.eachRef(func(_ Kind, _ Entry, r Ref) {
		r.Ptr.Label(label)
	})

	sections := make(map[string]record.Handle, NumSections)
	for k := range NumSections {
		sec := &f.Sections[k]
		sections[sec.Name] = sec.ID
		byHandle[sec.ID] = sec.Name
		ptr := &f.Header.Sections[k]
		if ptr.State == record.PointerUnset {
			if len(sec.Records) > 0 {
				*ptr = record.To(sec.ID)
			} else {
				*ptr = record.Null()
			}
		}
	}
	for k := range NumSections {
		ptr := &f.Header.Sections[k]
		ptr.Bind(func(name string) (record.Handle, bool) {
			h, ok := sections[name]
			return h, ok
		})
		ptr.Label(label)
	}
}

func assignHandles(f *File) {
	var ids []*record.Handle
	ids = append(ids, &f.Header.ID)
	for k := range NumSections {
		sec := &f.Sections[k]
		ids = append(ids, &sec.ID)
		for _, e := range sec.Records {
			ids = append(ids, &e.meta().ID)
		}
	}
	f.eachAux(func(_ Kind, a *Aux) {
		ids = append(ids, &a.ID)
	})
	for _, h := range ids {
		f.alloc.Observe(*h)
	}
	for _, h := range ids {
		if !h.Valid() {
			*h = f.alloc.Next()
		}
	}
}

func assignOrders(aux []*Aux) {
	next := 0
	for _, a := range aux {
		next = max(next, a.Order+1)
	}
	for _, a := range aux {
		if a.Order == record.NoOrder {
			a.Order = next
			next++
		}
	}
}

// sortAux puts unreferenced objects before referenced ones, each group by
// ascending order.
func sortAux(aux []*Aux) {
	slices.SortStableFunc(aux, func(a, b *Aux) int {
		if a.Referenced != b.Referenced {
			if a.Referenced {
				return 1
			}
			return -1
		}
		return cmp.Compare(a.Order, b.Order)
	})
}

// nameAux names unnamed objects by their rank within their group.
func nameAux(l *layout, owner Kind, aux []*Aux, taken map[string]bool) {
	rank := 0
	for i, a := range aux {
		if i > 0 && a.Referenced != aux[i-1].Referenced {
			rank = 0
		}
		if a.Name == "" {
			n := rank
			name := formatAuxName(l, owner, a.Role, !a.Referenced, n)
			for taken[name] {
				n += len(aux)
				name = formatAuxName(l, owner, a.Role, !a.Referenced, n)
			}
			a.Name = name
			taken[name] = true
		}
		rank++
	}
}

func (f *File) eachAux(fn func(owner Kind, a *Aux)) {
	for k := range NumSections {
		for _, a := range f.Sections[k].Aux {
			fn(k, a)
		}
	}
	for _, a := range f.Trailer {
		fn(Trailer, a)
	}
}

func (f *File) eachRef(fn func(k Kind, e Entry, r Ref)) {
	for k := range NumSections {
		for _, e := range f.Sections[k].Records {
			for _, r := range Refs(e) {
				fn(k, e, r)
			}
		}
	}
}
