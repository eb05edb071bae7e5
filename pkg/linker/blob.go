package linker

import "github.com/samcharles93/setupconv/pkg/record"

// Blob is an object made of opaque bytes with no pointer fields.
type Blob struct {
	ID        record.Handle
	Alignment int
	Data      []byte
}

func (b Blob) Handle() record.Handle { return b.ID }

func (b Blob) Align() int {
	if b.Alignment < 1 {
		return 1
	}
	return b.Alignment
}

func (b Blob) Size() int { return len(b.Data) }

func (b Blob) Emit(s *Slot) error { return s.PutBytes(0, b.Data) }
