package convert

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/samcharles93/setupconv/internal/logger"
	"github.com/samcharles93/setupconv/pkg/record"
)

const stanText = `#include "ultra64.h"
#include "stan.h"

StandFileHeader stan_header = {
    0x00000001,
    &stan_tile_0,
    { NULL, 0x00, 0x00, 0x00, 0x00, NULL },
};

StandTile stan_tile_0 = {
    0x000001, 0x01, 0x00, 0x7F, 1, 0x01, 0x02, 0x03,
    {
        { 1, 2, 3, 0 },
    },
};

StandFileFooter stan_footer = {
    0x00000000, 0x00000000, "unstric", 0x00000007, 0x00000009
};
`

const setupText = `#include "ultra64.h"

char pad_name_0[] = "start";
struct pad pads[] = {
    { { 1, 2, 3 }, { 0, 1, 0 }, { 0, 0, 1 }, pad_name_0, 0x00000000 },
};

s32 path_set_ids_0[] = { 0, 1, -1 };
struct path_set_entry path_sets[] = {
    { path_set_ids_0, 0x00000000 },
    { NULL, 0x00000000 },
};

struct setup_header setup = { NULL, NULL, path_sets, NULL, pads, NULL, NULL, NULL };
`

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestDetect(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path   string
		kind   Kind
		format Format
	}{
		{"levels/Tbg_dam_all_p_stan.bin", KindStan, FormatBinary},
		{"UsetupdamZ.c", KindSetup, FormatText},
		{"out/setup_dam.json", KindSetup, FormatDocument},
		{"misc.C", KindUnknown, FormatText},
	}
	for _, tc := range tests {
		if got := DetectKind(tc.path); got != tc.kind {
			t.Errorf("DetectKind(%q): got %s want %s", tc.path, got, tc.kind)
		}
		got, err := DetectFormat(tc.path)
		if err != nil {
			t.Errorf("DetectFormat(%q): %v", tc.path, err)
			continue
		}
		if got != tc.format {
			t.Errorf("DetectFormat(%q): got %s want %s", tc.path, got, tc.format)
		}
	}
	if _, err := DetectFormat("stan"); !errors.Is(err, ErrUsage) {
		t.Fatalf("no extension: got %v", err)
	}
	if _, err := ParseFormat("xml"); !errors.Is(err, ErrUsage) {
		t.Fatalf("unknown format: got %v", err)
	}
	if got := OutputPath("a/b/stan.c", FormatBinary); got != "a/b/stan.bin" {
		t.Fatalf("OutputPath: got %q", got)
	}
}

func TestConvertRoundTripsThroughEveryFormat(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	for _, tc := range []struct {
		kind Kind
		text string
	}{
		{KindStan, stanText},
		{KindSetup, setupText},
	} {
		bin, err := Convert(ctx, []byte(tc.text), Options{Kind: tc.kind, From: FormatText, To: FormatBinary})
		if err != nil {
			t.Fatalf("%s text to binary: %v", tc.kind, err)
		}
		if bin.Unresolved != 0 {
			t.Fatalf("%s: %d unresolved pointers", tc.kind, bin.Unresolved)
		}
		for _, via := range []Format{FormatText, FormatDocument} {
			mid, err := Convert(ctx, bin.Data, Options{Kind: tc.kind, From: FormatBinary, To: via})
			if err != nil {
				t.Fatalf("%s binary to %s: %v", tc.kind, via, err)
			}
			back, err := Convert(ctx, mid.Data, Options{Kind: tc.kind, From: via, To: FormatBinary})
			if err != nil {
				t.Fatalf("%s %s to binary: %v", tc.kind, via, err)
			}
			if !bytes.Equal(back.Data, bin.Data) {
				t.Fatalf("%s via %s: image changed\n%s", tc.kind, via, cmp.Diff(bin.Data, back.Data))
			}
		}
	}
}

func TestConvertRejectsIncompleteOptions(t *testing.T) {
	t.Parallel()

	_, err := Convert(context.Background(), []byte(stanText), Options{From: FormatText, To: FormatBinary})
	if !errors.Is(err, ErrUsage) {
		t.Fatalf("missing kind: got %v", err)
	}
	_, err = Convert(context.Background(), []byte(stanText), Options{Kind: KindStan, To: FormatBinary})
	if !errors.Is(err, ErrUsage) {
		t.Fatalf("missing format: got %v", err)
	}
}

func TestConvertLogsRun(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	ctx := logger.WithContext(context.Background(), logger.JSON(&buf, slog.LevelDebug))
	res, err := Convert(ctx, []byte(stanText), Options{Kind: KindStan, From: FormatText, To: FormatBinary})
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	out := buf.String()
	for _, want := range []string{`"run_id":"` + res.RunID + `"`, `"unresolved":0`, `"kind":"stan"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("log missing %s: %s", want, out)
		}
	}
}

func TestConvertReportsDanglingPointers(t *testing.T) {
	t.Parallel()

	src := strings.Replace(setupText, "{ path_set_ids_0, 0x00000000 }", "{ path_set_ids_9, 0x00000000 }", 1)
	res, err := Convert(context.Background(), []byte(src), Options{Kind: KindSetup, From: FormatText, To: FormatBinary})
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if res.Unresolved != 1 {
		t.Fatalf("unresolved: got %d want 1", res.Unresolved)
	}
}

func TestConvertFileInfersFormats(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	in := writeFile(t, dir, "stan_dam.c", stanText)
	res, err := ConvertFile(context.Background(), Job{In: in, Opts: Options{To: FormatBinary}})
	if err != nil {
		t.Fatalf("convert file: %v", err)
	}
	got, err := os.ReadFile(filepath.Join(dir, "stan_dam.bin"))
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !bytes.Equal(got, res.Data) {
		t.Fatalf("output file differs from result")
	}
}

func TestConvertFileLeavesNoOutputOnError(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	in := writeFile(t, dir, "setup_bad.c", "struct path_set_entry path_sets[] = { { NULL, 0 } };\n")
	_, err := ConvertFile(context.Background(), Job{In: in, Opts: Options{To: FormatBinary}})
	if !errors.Is(err, record.ErrMissingSection) {
		t.Fatalf("got %v", err)
	}
	if _, statErr := os.Stat(filepath.Join(dir, "setup_bad.bin")); !os.IsNotExist(statErr) {
		t.Fatalf("output written despite error: %v", statErr)
	}
}

func TestBatchIsolatesFailures(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	jobs := []Job{
		{In: writeFile(t, dir, "stan_a.c", stanText), Opts: Options{To: FormatDocument}},
		{In: writeFile(t, dir, "setup_b.c", "garbage {"), Opts: Options{To: FormatBinary}},
		{In: writeFile(t, dir, "setup_c.c", setupText), Opts: Options{To: FormatBinary}},
		{In: writeFile(t, dir, "stan_d.c", stanText), Opts: Options{To: FormatBinary}},
	}
	outcomes := Batch(context.Background(), jobs, 2)
	if len(outcomes) != len(jobs) {
		t.Fatalf("got %d outcomes", len(outcomes))
	}
	for i, o := range outcomes {
		if o.Job.In != jobs[i].In {
			t.Fatalf("outcome %d is for %s", i, o.Job.In)
		}
		if failed := o.Err != nil; failed != (i == 1) {
			t.Fatalf("outcome %d: err=%v", i, o.Err)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "stan_a.json")); err != nil {
		t.Fatalf("stan_a.json: %v", err)
	}
}

func TestVerify(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	for _, tc := range []struct {
		kind Kind
		text string
	}{
		{KindStan, stanText},
		{KindSetup, setupText},
	} {
		bin, err := Convert(ctx, []byte(tc.text), Options{Kind: tc.kind, From: FormatText, To: FormatBinary})
		if err != nil {
			t.Fatalf("%s: %v", tc.kind, err)
		}
		rep, err := Verify(ctx, bin.Data, tc.kind, false)
		if err != nil {
			t.Fatalf("%s verify: %v", tc.kind, err)
		}
		if !rep.OK() || len(rep.Checks) != 3 {
			t.Fatalf("%s verify: %+v", tc.kind, rep)
		}
	}
}

func TestInspectSetup(t *testing.T) {
	t.Parallel()

	g, err := Load(KindSetup, FormatText, []byte(setupText), false)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	s, err := Inspect(g)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	byName := make(map[string]PartSummary)
	for _, p := range s.Parts {
		byName[p.Name] = p
	}
	sets := byName["path_sets"]
	if sets.Records != 2 || sets.Null != 1 || sets.Referenced != 1 || sets.Offset < 0 {
		t.Fatalf("path_sets: %+v", sets)
	}
	if links := byName["path_links"]; links.Offset != -1 || links.Records != 0 {
		t.Fatalf("path_links: %+v", links)
	}
	if byName["setup"].Offset != 0 {
		t.Fatalf("header: %+v", byName["setup"])
	}

	var buf bytes.Buffer
	if err := WriteSummary(&buf, s); err != nil {
		t.Fatalf("write summary: %v", err)
	}
	if !strings.Contains(buf.String(), "path_sets") {
		t.Fatalf("summary: %s", buf.String())
	}
}
