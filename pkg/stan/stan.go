// Package stan reads, writes and converts Stan files: the walkable-surface
// tile data of a stage.
//
// A Stan file is a header, a run of variable-length tiles and a footer. Tiles
// come in two layouts: the shipped (standard) one and an earlier beta one that
// has three extra leading bytes and no room id.
package stan

import "github.com/samcharles93/setupconv/pkg/record"

// Variant selects the tile layout of a file.
type Variant uint8

const (
	Standard Variant = iota
	Beta
)

func (v Variant) String() string {
	if v == Beta {
		return "beta"
	}
	return "standard"
}

// ParseVariant converts "standard" or "beta".
func ParseVariant(s string) (Variant, bool) {
	switch s {
	case "", "standard":
		return Standard, true
	case "beta":
		return Beta, true
	}
	return Standard, false
}

// Binary layout constants. All integers are big-endian.
const (
	HeaderSize   = 20
	FooterSize   = 20
	TailSize     = 12
	PointSize    = 8
	TagSize      = 8
	headerAlign  = 4
	tileAlign    = 2
	footerAlign  = 4
	standardSize = 10
	betaSize     = 12
)

// TileFixedSize returns the size of a tile before its points.
func (v Variant) TileFixedSize() int {
	if v == Beta {
		return betaSize
	}
	return standardSize
}

// Record kind names, as they appear in declaration text.
const (
	HeaderType   = "StandFileHeader"
	TileType     = "StandTile"
	BetaTileType = "BetaStandTile"
	FooterType   = "StandFileFooter"
)

// Default declaration names.
const (
	HeaderName = "stan_header"
	FooterName = "stan_footer"
	tilePrefix = "stan_tile_"
)

// File is the decoded object graph of one Stan file.
type File struct {
	Variant  Variant
	Includes []string
	Header   Header
	Tiles    []Tile
	Footer   Footer

	alloc record.Allocator
}

// Header is the fixed-size record at offset zero.
type Header struct {
	ID          record.Handle
	Name        string
	Unknown00   uint32
	FirstTile   record.Pointer
	UnknownTail []byte
}

// Tile is one walkable polygon.
type Tile struct {
	ID    record.Handle
	Name  string
	Order int

	// BetaPrefix holds the three leading bytes of the beta layout.
	BetaPrefix [3]uint8
	// InternalName is a 24-bit identifier.
	InternalName uint32
	// Room is absent from the beta layout.
	Room       uint8
	Flags      uint8
	Brightness uint8
	PointCount uint8
	HeaderA    uint8
	HeaderB    uint8
	HeaderC    uint8
	Points     []Point
}

// Point is one corner of a tile.
type Point struct {
	X, Y, Z int16
	Link    int16
}

// Footer is the fixed-size record at the end of the file.
type Footer struct {
	ID       record.Handle
	Name     string
	Unknown1 uint32
	Unknown2 uint32
	Tag      [TagSize]byte
	Unknown3 uint32
}

// New returns an empty file of the given variant.
func New(v Variant) *File {
	return &File{
		Variant: v,
		Header:  Header{UnknownTail: make([]byte, TailSize)},
	}
}

// Size returns the encoded size of t.
func (t *Tile) Size(v Variant) int {
	return v.TileFixedSize() + PointSize*len(t.Points)
}
