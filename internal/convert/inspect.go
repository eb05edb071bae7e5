package convert

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/samcharles93/setupconv/pkg/record"
	"github.com/samcharles93/setupconv/pkg/setup"
	"github.com/samcharles93/setupconv/pkg/stan"
)

// Summary describes a loaded file and where its parts land when assembled.
type Summary struct {
	Kind       string        `json:"kind"`
	Variant    string        `json:"variant,omitempty"`
	Size       int           `json:"size"`
	Unresolved int           `json:"unresolved"`
	Parts      []PartSummary `json:"parts"`
}

// PartSummary is one header, section or trailer line of a Summary.
type PartSummary struct {
	Name       string `json:"name"`
	Offset     int64  `json:"offset"` // -1 when absent
	Records    int    `json:"records"`
	Null       int    `json:"null,omitempty"`
	Aux        int    `json:"aux,omitempty"`
	Referenced int    `json:"referenced,omitempty"`
	Filler     int    `json:"filler,omitempty"`
}

// Inspect normalises and assembles g and summarises the result.
func Inspect(g *Graph) (*Summary, error) {
	switch g.Kind {
	case KindStan:
		return inspectStan(g.Stan)
	case KindSetup:
		return inspectSetup(g.Setup)
	}
	return nil, fmt.Errorf("%w: kind not set", ErrUsage)
}

type offsetter interface {
	Offset(h record.Handle) (uint32, bool)
}

func offsetOf(ctx offsetter, h record.Handle) int64 {
	off, ok := ctx.Offset(h)
	if !ok {
		return -1
	}
	return int64(off)
}

func inspectStan(f *stan.File) (*Summary, error) {
	out, ctx, err := stan.Link(f)
	if err != nil {
		return nil, err
	}
	s := &Summary{Kind: KindStan.String(), Variant: f.Variant.String(), Size: len(out), Unresolved: ctx.Unresolved()}
	s.Parts = append(s.Parts, PartSummary{Name: f.Header.Name, Offset: offsetOf(ctx, f.Header.ID), Records: 1})
	points := 0
	for _, t := range f.Tiles {
		points += len(t.Points)
	}
	tiles := PartSummary{Name: fmt.Sprintf("tiles (%d points)", points), Offset: -1, Records: len(f.Tiles)}
	if len(f.Tiles) > 0 {
		tiles.Offset = offsetOf(ctx, f.Tiles[0].ID)
	}
	s.Parts = append(s.Parts, tiles)
	s.Parts = append(s.Parts, PartSummary{Name: f.Footer.Name, Offset: offsetOf(ctx, f.Footer.ID), Records: 1})
	return s, nil
}

func inspectSetup(f *setup.File) (*Summary, error) {
	out, ctx, err := setup.Link(f)
	if err != nil {
		return nil, err
	}
	s := &Summary{Kind: KindSetup.String(), Size: len(out), Unresolved: ctx.Unresolved()}
	s.Parts = append(s.Parts, PartSummary{Name: f.Header.Name, Offset: offsetOf(ctx, f.Header.ID), Records: 1})
	for k := setup.Kind(0); k < setup.NumSections; k++ {
		sec := f.Section(k)
		p := PartSummary{Name: sec.Name, Offset: -1, Records: len(sec.Records)}
		if len(sec.Records) > 0 {
			p.Offset = offsetOf(ctx, sec.ID)
		}
		for _, e := range sec.Records {
			if setup.IsNull(e) {
				p.Null++
			}
		}
		countAux(&p, sec.Aux)
		s.Parts = append(s.Parts, p)
	}
	if len(f.Trailer) > 0 {
		p := PartSummary{Name: "trailer", Offset: offsetOf(ctx, f.Trailer[0].ID)}
		countAux(&p, f.Trailer)
		s.Parts = append(s.Parts, p)
	}
	return s, nil
}

func countAux(p *PartSummary, aux []*setup.Aux) {
	for _, a := range aux {
		p.Aux++
		if a.Referenced {
			p.Referenced++
		}
		if a.Kind == setup.Raw {
			p.Filler++
		}
	}
}

// WriteSummary prints s as an aligned table.
func WriteSummary(w io.Writer, s *Summary) error {
	head := s.Kind
	if s.Variant != "" {
		head += " (" + s.Variant + ")"
	}
	if _, err := fmt.Fprintf(w, "%s: %d bytes, %d unresolved pointers\n", head, s.Size, s.Unresolved); err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PART\tOFFSET\tRECORDS\tNULL\tAUX\tREFERENCED\tFILLER")
	for _, p := range s.Parts {
		off := "-"
		if p.Offset >= 0 {
			off = fmt.Sprintf("0x%06X", p.Offset)
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%d\t%d\n", p.Name, off, p.Records, p.Null, p.Aux, p.Referenced, p.Filler)
	}
	return tw.Flush()
}
