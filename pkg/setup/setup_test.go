package setup

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/samcharles93/setupconv/pkg/record"
)

const scenarioText = `#include "ultra64.h"

char pad3d_name_0[] = "door";

struct pad3d pad3ds[] = {
    { { 1, 2, 3 }, { 0, 1, 0 }, { 0, 0, 1 }, pad3d_name_0, 0x00000000, { -1, 1, -2, 2, -3, 3 } },
    { { 4, 5, 6 }, { 0, 1, 0 }, { 1, 0, 0 }, NULL, 0x00000001, { 0, 0, 0, 0, 0, 0 } },
};

s32 path_link_neighbors_not_used_0[] = { -1 };
s32 path_link_indices_not_used_1[] = { -1 };

struct path_link_entry path_links[] = {
    { NULL, NULL, 0x00000000 },
    { NULL, NULL, 0x00000000 },
};

struct setup_header setup = { NULL, path_links, NULL, NULL, NULL, pad3ds, NULL, NULL };
`

var ignoreAlloc = cmpopts.IgnoreUnexported(File{})

type imageBuilder struct{ b []byte }

func (w *imageBuilder) u32(vs ...uint32) {
	for _, v := range vs {
		w.b = binary.BigEndian.AppendUint32(w.b, v)
	}
}

func (w *imageBuilder) u16(vs ...uint16) {
	for _, v := range vs {
		w.b = binary.BigEndian.AppendUint16(w.b, v)
	}
}

func (w *imageBuilder) f32(vs ...float32) {
	for _, v := range vs {
		w.u32(math.Float32bits(v))
	}
}

func (w *imageBuilder) raw(p ...byte) { w.b = append(w.b, p...) }

func (w *imageBuilder) pad4() {
	for len(w.b)%4 != 0 {
		w.b = append(w.b, 0)
	}
}

func scenarioImage() []byte {
	w := &imageBuilder{}
	// path_tables, path_links, path_sets, ai_lists, pads, pad3ds, pad_names, pad3d_names
	w.u32(0, 184, 0, 0, 0, 40, 0, 0)
	w.raw([]byte("door\x00")...)
	w.pad4()
	w.f32(1, 2, 3, 0, 1, 0, 0, 0, 1)
	w.u32(32, 0)
	w.f32(-1, 1, -2, 2, -3, 3)
	w.f32(4, 5, 6, 0, 1, 0, 1, 0, 0)
	w.u32(0, 1)
	w.f32(0, 0, 0, 0, 0, 0)
	w.u32(0xFFFFFFFF, 0xFFFFFFFF)
	w.u32(0, 0, 0, 0, 0, 0)
	return w.b
}

const fullText = `#include "ultra64.h"
#include "stagesetup.h"

char pad_name_0[] = "start";
char pad_name_1[] = "exit";
struct pad pads[] = {
    { { 0, 0, 0 }, { 0, 1, 0 }, { 0, 0, 1 }, pad_name_0, 0x00000000 },
    { { 10.5, 0, -20.25 }, { 0, 1, 0 }, { 1, 0, 0 }, pad_name_1, 0x00000002 },
};

char pad3d_name_0[] = "vent";
struct pad3d pad3ds[] = {
    { { 1, 2, 3 }, { 0, 1, 0 }, { 0, 0, 1 }, pad3d_name_0, 0x00000000, { -5, 5, -5, 5, 0, 10 } },
};

u8 path_table_filler_0[] = { 0xDE, 0xAD };
s32 path_table_neighbors_0[] = { 1, -1 };
s32 path_table_groups_1[] = { 0, -1 };
s32 path_table_neighbors_2[] = { 0, -1 };
s32 path_table_groups_3[] = { 0, -1 };
struct path_table_entry path_tables[] = {
    { 0, 0, path_table_neighbors_0, path_table_groups_1, 0x00000000 },
    { 1, 0, path_table_neighbors_2, path_table_groups_3, 0x00000000 },
    { 0, 0, NULL, NULL, 0x00000000 },
};

s32 path_link_neighbors_0[] = { -1 };
s32 path_link_indices_1[] = { 0, 1, -1 };
struct path_link_entry path_links[] = {
    { path_link_neighbors_0, path_link_indices_1, 0x00000000 },
    { NULL, NULL, 0x00000000 },
};

s32 path_set_ids_0[] = { 0, 1, 0, -1 };
struct path_set_entry path_sets[] = {
    { path_set_ids_0, 0x00000000 },
    { NULL, 0x00000000 },
};

u8 ai_list_script_0[] = { 0xFD, 0x00, 0x04 };
struct ai_list_entry ai_lists[] = {
    { ai_list_script_0, 0x00000401 },
    { NULL, 0x00000000 },
};

char pad_names_name_0[] = "start";
struct pad_name_entry pad_names[] = {
    { pad_names_name_0 },
    { NULL },
};

u8 trailer_filler_0[] = { 0x01, 0x02, 0x03 };

struct setup_header setup = { path_tables, path_links, path_sets, ai_lists, pads, pad3ds, pad_names, NULL };
`

// fullImage assembles fullText. Its layout is:
//
//	0x000 header          0x0d4 raw filler DE AD
//	0x020 pad names       0x0d8 path table id lists
//	0x030 pads            0x0f8 path_tables
//	0x088 pad3d name      0x128 path link id lists, path_links
//	0x090 pad3ds          0x150 path set ids, path_sets
//	                      0x170 script, ai_lists, pad_names, trailer
func fullImage(t *testing.T) []byte {
	t.Helper()
	img := mustAssemble(t, mustParse(t, fullText))
	if len(img) != 407 {
		t.Fatalf("full image: got %d bytes want 407", len(img))
	}
	return img
}

func TestReadClassifiesFillerAndTrailer(t *testing.T) {
	t.Parallel()

	f, err := Read(fullImage(t))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	tables := f.Section(PathTables)
	if len(tables.Records) != 3 || !IsNull(tables.Records[2]) {
		t.Fatalf("path_tables: got %d records", len(tables.Records))
	}
	var raw *Aux
	for _, a := range tables.Aux {
		if a.Kind == Raw {
			raw = a
		}
	}
	if raw == nil || !bytes.Equal(raw.Data, []byte{0xDE, 0xAD, 0, 0}) {
		t.Fatalf("path table filler: %+v", raw)
	}
	if len(f.Trailer) != 1 || !bytes.Equal(f.Trailer[0].Data, []byte{1, 2, 3}) {
		t.Fatalf("trailer: %+v", f.Trailer)
	}
	script := f.Section(AILists).Aux[0]
	if script.Kind != Script || !bytes.Equal(script.Data, []byte{0xFD, 0x00, ScriptEnd}) {
		t.Fatalf("script: %+v", script)
	}
	Normalize(f)
	if got := f.Section(Pads).Aux[1].Name; got != "pad_name_1" {
		t.Fatalf("second pad name: got %q", got)
	}
}

func TestReadRejectsCorruptHeader(t *testing.T) {
	t.Parallel()

	img := fullImage(t)
	bad := bytes.Clone(img)
	binary.BigEndian.PutUint32(bad[0:], 0x10000)
	if _, err := Read(bad); !errors.Is(err, record.ErrCorruptImage) {
		t.Fatalf("out-of-range section: got %v", err)
	}
	if _, err := Read(img[:10]); !errors.Is(err, record.ErrCorruptImage) {
		t.Fatalf("short image: got %v", err)
	}
	misaligned := bytes.Clone(img)
	binary.BigEndian.PutUint32(misaligned[4:], 0x129)
	if _, err := Read(misaligned); !errors.Is(err, record.ErrCorruptImage) {
		t.Fatalf("misaligned section: got %v", err)
	}
}

func mustParse(t *testing.T, src string) *File {
	t.Helper()
	f, err := Parse(src)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return f
}

func mustAssemble(t *testing.T, f *File) []byte {
	t.Helper()
	out, err := Assemble(f)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	return out
}

func TestScenarioParse(t *testing.T) {
	t.Parallel()

	f := mustParse(t, scenarioText)
	if n := len(f.Section(Pad3ds).Records); n != 2 {
		t.Fatalf("pad3ds: got %d records want 2", n)
	}
	links := f.Section(PathLinks)
	if len(links.Records) != 2 {
		t.Fatalf("path_links: got %d records want 2", len(links.Records))
	}
	for i, e := range links.Records {
		if !IsNull(e) {
			t.Fatalf("path_links[%d] not null", i)
		}
		for _, r := range Refs(e) {
			if !r.Ptr.IsAbsent() {
				t.Fatalf("path_links[%d].%s: got %+v want absent", i, r.Role, *r.Ptr)
			}
		}
	}
	Normalize(f)
	if links.Records[0].meta().ID == links.Records[1].meta().ID {
		t.Fatalf("identical null records share a handle")
	}
	if len(links.Aux) != 2 {
		t.Fatalf("path_links aux: got %d want 2", len(links.Aux))
	}
}

func TestScenarioAssemble(t *testing.T) {
	t.Parallel()

	f := mustParse(t, scenarioText)
	got := mustAssemble(t, f)
	want := scenarioImage()
	if !bytes.Equal(got, want) {
		t.Fatalf("image mismatch:\n got %x\nwant %x", got, want)
	}
	for i, a := range f.Section(PathLinks).Aux {
		if a.Referenced {
			t.Fatalf("aux %d (%s) marked referenced", i, a.Name)
		}
	}
	if f.Section(Pad3ds).Aux[0].Name != "pad3d_name_0" || !f.Section(Pad3ds).Aux[0].Referenced {
		t.Fatalf("pad3d name string: %+v", f.Section(Pad3ds).Aux[0])
	}
}

func TestBinaryRoundTrip(t *testing.T) {
	t.Parallel()

	in := scenarioImage()
	f, err := Read(in)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if n := len(f.Section(PathLinks).Records); n != 2 {
		t.Fatalf("path_links: got %d records want 2 (terminator plus zero record)", n)
	}
	if out := mustAssemble(t, f); !bytes.Equal(out, in) {
		t.Fatalf("round trip mismatch:\n got %x\nwant %x", out, in)
	}
	names := []string{}
	for _, a := range f.Section(PathLinks).Aux {
		names = append(names, a.Name)
	}
	want := []string{"path_link_neighbors_not_used_0", "path_link_neighbors_not_used_1"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Fatalf("filler names (-want +got):\n%s", diff)
	}
}

func TestBinaryThroughTextRoundTrip(t *testing.T) {
	t.Parallel()

	in := fullImage(t)
	f, err := Read(in)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var text bytes.Buffer
	if err := EmitText(&text, f, TextOptions{Source: "setup.bin"}); err != nil {
		t.Fatalf("emit: %v", err)
	}
	back := mustParse(t, text.String())
	if out := mustAssemble(t, back); !bytes.Equal(out, in) {
		t.Fatalf("round trip mismatch:\n got %x\nwant %x\ntext:\n%s", out, in, text.String())
	}
}

func TestBinaryThroughDocumentRoundTrip(t *testing.T) {
	t.Parallel()

	in := fullImage(t)
	f, err := Read(in)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var doc bytes.Buffer
	if err := EncodeDocument(&doc, f); err != nil {
		t.Fatalf("encode: %v", err)
	}
	back, err := DecodeDocument(&doc)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out := mustAssemble(t, back); !bytes.Equal(out, in) {
		t.Fatalf("round trip mismatch:\n got %x\nwant %x", out, in)
	}
}

func TestTextRoundTripPreservesGraph(t *testing.T) {
	t.Parallel()

	first := mustParse(t, scenarioText)
	Normalize(first)
	var text bytes.Buffer
	if err := EmitText(&text, first, TextOptions{}); err != nil {
		t.Fatalf("emit: %v", err)
	}
	second := mustParse(t, text.String())
	Normalize(second)
	if diff := cmp.Diff(first, second, ignoreAlloc); diff != "" {
		t.Fatalf("graph mismatch (-first +second):\n%s", diff)
	}
}

// stripBanner drops the generated comment at the top of emitted text.
func stripBanner(s string) string {
	if _, rest, ok := strings.Cut(s, "*/\n"); ok {
		return rest
	}
	return s
}

func TestTextRoundTripIsExact(t *testing.T) {
	t.Parallel()

	var first bytes.Buffer
	if err := EmitText(&first, mustParse(t, fullText), TextOptions{Source: "setup.c"}); err != nil {
		t.Fatalf("emit: %v", err)
	}
	var second bytes.Buffer
	if err := EmitText(&second, mustParse(t, first.String()), TextOptions{}); err != nil {
		t.Fatalf("emit again: %v", err)
	}
	if diff := cmp.Diff(stripBanner(first.String()), stripBanner(second.String())); diff != "" {
		t.Fatalf("text changed on second pass (-first +second):\n%s", diff)
	}
}

func TestPartialRecordSurvivesBinaryRoundTrip(t *testing.T) {
	t.Parallel()

	w := &imageBuilder{}
	w.u32(0, 40, 0, 0, 0, 0, 0, 0)
	w.u32(1, 0xFFFFFFFF)
	w.u32(32, 0, 0)
	w.u32(0, 0, 0)
	in := w.b

	f, err := Read(in)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if out := mustAssemble(t, f); !bytes.Equal(out, in) {
		t.Fatalf("round trip mismatch:\n got %x\nwant %x", out, in)
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	t.Parallel()

	f, err := Read(fullImage(t))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	Normalize(f)
	var once bytes.Buffer
	if err := EncodeDocument(&once, f); err != nil {
		t.Fatalf("encode: %v", err)
	}
	Normalize(f)
	var twice bytes.Buffer
	if err := EncodeDocument(&twice, f); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if diff := cmp.Diff(once.String(), twice.String()); diff != "" {
		t.Fatalf("second normalisation changed the graph (-once +twice):\n%s", diff)
	}
}

func TestReferencedAuxEmittedByOriginalOffset(t *testing.T) {
	t.Parallel()

	f := New()
	sets := f.Section(PathSets)
	byOrder := make(map[int]record.Handle)
	for i, order := range []int{30, 10, 20} {
		a := &Aux{ID: record.Handle(100 + i), Order: order, Role: RoleIDs, Kind: IDList, IDs: []int32{int32(order)}}
		byOrder[order] = a.ID
		sets.Aux = append(sets.Aux, a)
		sets.Records = append(sets.Records, &PathSetEntry{IDs: record.To(a.ID)})
	}
	sets.Records = append(sets.Records, &PathSetEntry{Meta: Meta{Null: true}, IDs: record.Null()})

	_, ctx, err := Link(f)
	if err != nil {
		t.Fatalf("link: %v", err)
	}
	var prev uint32
	for _, order := range []int{10, 20, 30} {
		off, ok := ctx.Offset(byOrder[order])
		if !ok {
			t.Fatalf("aux with order %d not placed", order)
		}
		if off <= prev {
			t.Fatalf("aux with order %d at %#x, not after %#x", order, off, prev)
		}
		prev = off
	}
}

func TestCollectRejectsInconsistentNullFlags(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		entry *PathLinkEntry
	}{
		{"null with data", &PathLinkEntry{Meta: Meta{Null: true}, Neighbors: record.Named("path_link_neighbors_0"), Indices: record.Null()}},
		{"data missing", &PathLinkEntry{Neighbors: record.Null(), Indices: record.Null()}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()
			f := New()
			links := f.Section(PathLinks)
			links.Aux = []*Aux{{Name: "path_link_neighbors_0", Role: RoleNeighbors, Kind: IDList}}
			links.Records = []Entry{c.entry}
			_, err := Assemble(f)
			if !errors.Is(err, record.ErrInconsistentGraph) {
				t.Fatalf("got %v, want inconsistent graph", err)
			}
		})
	}
}

func TestEmptySectionIsAbsent(t *testing.T) {
	t.Parallel()

	f := mustParse(t, "struct path_set_entry path_sets[];\nstruct setup_header setup = { NULL, NULL, NULL, NULL, NULL, NULL, NULL, NULL };\n")
	out := mustAssemble(t, f)
	if len(out) != HeaderSize || !bytes.Equal(out, make([]byte, HeaderSize)) {
		t.Fatalf("image: got %x want %d zero bytes", out, HeaderSize)
	}
}

func TestParseErrors(t *testing.T) {
	t.Parallel()

	header := "struct setup_header setup = { NULL, NULL, NULL, NULL, NULL, NULL, NULL, NULL };\n"
	cases := []struct {
		name string
		src  string
		want error
	}{
		{"missing header", "s32 path_set_ids_0[] = { -1 };\n", record.ErrMissingSection},
		{"partial record", "struct path_set_entry path_sets[] = { { NULL, 1 }, { NULL } };\n" + header, record.ErrSchemaViolation},
		{"short header", "struct setup_header setup = { NULL, NULL };\n", record.ErrSchemaViolation},
		{"unterminated ids", "s32 path_set_ids_0[] = { 1, 2 };\n" + header, record.ErrSchemaViolation},
		{"inner terminator", "s32 path_set_ids_0[] = { 1, -1, 2, -1 };\n" + header, record.ErrSchemaViolation},
		{"bad aux name", "s32 some_list[] = { -1 };\n" + header, record.ErrSchemaViolation},
		{"role of another section", "s32 path_set_neighbors_0[] = { -1 };\n" + header, record.ErrSchemaViolation},
		{"wrong aux type", "char path_set_ids_0[] = \"x\";\n" + header, record.ErrSchemaViolation},
		{"duplicate section", "struct path_set_entry path_sets[];\nstruct path_set_entry more_sets[];\n" + header, record.ErrStructuralParse},
		{"two declarators", "struct path_set_entry path_sets[], more_sets[];\n" + header, record.ErrStructuralParse},
		{"null scalar", "struct path_set_entry path_sets[] = { { NULL, NULL } };\n" + header, record.ErrSchemaViolation},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()
			_, err := Parse(c.src)
			if !errors.Is(err, c.want) {
				t.Fatalf("got %v, want %v", err, c.want)
			}
		})
	}
}

func TestMissingHeaderNamesSchema(t *testing.T) {
	t.Parallel()

	_, err := Parse("struct path_set_entry path_sets[];\n")
	var rerr *record.Error
	if !errors.As(err, &rerr) || rerr.Schema != HeaderType {
		t.Fatalf("expected missing %s, got %v", HeaderType, err)
	}
}

func TestParserSkipsForeignDeclarations(t *testing.T) {
	t.Parallel()

	src := `
extern struct pad pads[];
static const int count = 4;
char pad_name_0[8] = "lift";
struct pad pads[] = {
    { { 0.5, -0, 1e+06 }, { 0, 1, 0 }, { 0, 0, 1 }, &pad_name_0, 0x00000000 },
};
struct setup_header setup = { NULL, NULL, NULL, NULL, pads, NULL, NULL, NULL };
`
	f := mustParse(t, src)
	pads := f.Section(Pads)
	if len(pads.Records) != 1 {
		t.Fatalf("pads: got %d records want 1", len(pads.Records))
	}
	p := pads.Records[0].(*Pad)
	if p.Pos[0] != 0.5 || !math.Signbit(float64(p.Pos[1])) || p.Pos[2] != 1e6 {
		t.Fatalf("pos: got %v", p.Pos)
	}
	if string(pads.Aux[0].Data) != "lift" {
		t.Fatalf("name string: got %q", pads.Aux[0].Data)
	}
	out := mustAssemble(t, f)
	// header(32) + "lift\0" padded to 8, then the pad array.
	if got := binary.BigEndian.Uint32(out[4*4:]); got != 40 {
		t.Fatalf("pads offset: got %d want 40", got)
	}
	if got := binary.BigEndian.Uint32(out[40+36:]); got != 32 {
		t.Fatalf("pad name pointer: got %d want 32", got)
	}
}

func TestNonFiniteFloatsSurviveText(t *testing.T) {
	t.Parallel()

	f := New()
	nan := math.Float32frombits(0x7FC00001)
	f.Section(Pads).Records = []Entry{&Pad{Pos: [3]float32{nan, float32(math.Inf(-1)), 0}, Name: record.Null()}}
	var text bytes.Buffer
	if err := EmitText(&text, f, TextOptions{}); err != nil {
		t.Fatalf("emit: %v", err)
	}
	if !strings.Contains(text.String(), "0x7FC00001") {
		t.Fatalf("NaN bits not preserved:\n%s", text.String())
	}
	back := mustParse(t, text.String())
	p := back.Section(Pads).Records[0].(*Pad)
	if math.Float32bits(p.Pos[0]) != 0x7FC00001 || !math.IsInf(float64(p.Pos[1]), -1) {
		t.Fatalf("pos after round trip: %v", p.Pos)
	}
}
