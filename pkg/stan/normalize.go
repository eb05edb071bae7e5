package stan

import (
	"fmt"

	"github.com/samcharles93/setupconv/pkg/record"
)

// Normalize completes a loaded graph so that every emitter sees the same
// shape: handles and names on every record, ordered tiles, and pointers that
// carry both a target name and a target handle. Records that already have a
// name, order or handle keep it, so running Normalize twice is a no-op.
func Normalize(f *File) {
	assignHandles(f)

	if f.Header.Name == "" {
		f.Header.Name = HeaderName
	}
	if f.Footer.Name == "" {
		f.Footer.Name = FooterName
	}
	if f.Header.UnknownTail == nil {
		f.Header.UnknownTail = make([]byte, TailSize)
	}

	next := 0
	for _, t := range f.Tiles {
		next = max(next, t.Order+1)
	}
	for i := range f.Tiles {
		if f.Tiles[i].Order == record.NoOrder {
			f.Tiles[i].Order = next
			next++
		}
	}
	record.SortByOrder(f.Tiles, func(t Tile) int { return t.Order })

	taken := make(map[string]bool, len(f.Tiles))
	for _, t := range f.Tiles {
		if t.Name != "" {
			taken[t.Name] = true
		}
	}
	n := 0
	for i := range f.Tiles {
		if f.Tiles[i].Name != "" {
			continue
		}
		name := fmt.Sprintf("%s%d", tilePrefix, i)
		for taken[name] {
			n++
			name = fmt.Sprintf("%s%d", tilePrefix, len(f.Tiles)+n)
		}
		taken[name] = true
		f.Tiles[i].Name = name
	}

	if f.Header.FirstTile.State == record.PointerUnset {
		if len(f.Tiles) > 0 {
			f.Header.FirstTile = record.To(f.Tiles[0].ID)
		} else {
			f.Header.FirstTile = record.Null()
		}
	}
	byName := make(map[string]record.Handle, len(f.Tiles))
	byHandle := make(map[record.Handle]string, len(f.Tiles))
	for _, t := range f.Tiles {
		byName[t.Name] = t.ID
		byHandle[t.ID] = t.Name
	}
	f.Header.FirstTile.Bind(func(name string) (record.Handle, bool) {
		h, ok := byName[name]
		return h, ok
	})
	f.Header.FirstTile.Label(func(h record.Handle) (string, bool) {
		name, ok := byHandle[h]
		return name, ok
	})
}

func assignHandles(f *File) {
	ids := []*record.Handle{&f.Header.ID, &f.Footer.ID}
	for i := range f.Tiles {
		ids = append(ids, &f.Tiles[i].ID)
	}
	for _, h := range ids {
		f.alloc.Observe(*h)
	}
	for _, h := range ids {
		if !h.Valid() {
			*h = f.alloc.Next()
		}
	}
}
