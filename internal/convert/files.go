package convert

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/samcharles93/setupconv/internal/binfile"
	"github.com/samcharles93/setupconv/internal/logger"
	"golang.org/x/sync/errgroup"
)

// Job is one file conversion.
type Job struct {
	In   string
	Out  string
	Opts Options
}

// Outcome reports a finished job.
type Outcome struct {
	Job    Job
	Result *Result
	Err    error
}

// Resolve fills unset kind and formats from the job's paths.
func (j *Job) Resolve() error {
	if j.Opts.Kind == KindUnknown {
		j.Opts.Kind = DetectKind(j.In)
		if j.Opts.Kind == KindUnknown {
			return fmt.Errorf("%w: cannot infer kind of %q", ErrUsage, j.In)
		}
	}
	if j.Opts.From == FormatUnknown {
		from, err := DetectFormat(j.In)
		if err != nil {
			return err
		}
		j.Opts.From = from
	}
	if j.Opts.To == FormatUnknown {
		if j.Out == "" {
			return fmt.Errorf("%w: no output format for %q", ErrUsage, j.In)
		}
		to, err := DetectFormat(j.Out)
		if err != nil {
			return err
		}
		j.Opts.To = to
	}
	if j.Out == "" {
		j.Out = OutputPath(j.In, j.Opts.To)
	}
	if j.Out == j.In {
		return fmt.Errorf("%w: output would overwrite %q", ErrUsage, j.In)
	}
	if j.Opts.Source == "" {
		j.Opts.Source = j.In
	}
	return nil
}

// ConvertFile runs one job. The output is only written when the whole
// conversion succeeds.
func ConvertFile(ctx context.Context, job Job) (*Result, error) {
	if err := job.Resolve(); err != nil {
		return nil, err
	}
	data, err := binfile.Load(job.In)
	if err != nil {
		return nil, err
	}
	res, err := Convert(ctx, data, job.Opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", job.In, err)
	}
	if err := binfile.WriteFile(job.Out, res.Data); err != nil {
		return nil, err
	}
	return res, nil
}

// Batch runs jobs with at most workers conversions in flight. A failed job
// does not stop the others. Outcomes keep the job order.
func Batch(ctx context.Context, jobs []Job, workers int) []Outcome {
	if workers < 1 {
		workers = 1
	}
	log := logger.FromContext(ctx)
	out := make([]Outcome, len(jobs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, job := range jobs {
		g.Go(func() error {
			res, err := ConvertFile(gctx, job)
			out[i] = Outcome{Job: job, Result: res, Err: err}
			if err != nil {
				log.Error("conversion failed", "input", job.In, "error", err)
			} else {
				log.Info("converted", "input", job.In, "run_id", res.RunID)
			}
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// Check is one leg of a round trip verification.
type Check struct {
	Via  Format
	Hash string
	OK   bool
}

// Report is the result of Verify.
type Report struct {
	Hash   string
	Checks []Check
}

// OK reports whether every leg reproduced the input.
func (r *Report) OK() bool {
	for _, c := range r.Checks {
		if !c.OK {
			return false
		}
	}
	return len(r.Checks) > 0
}

// Verify converts a binary image directly and through each intermediate
// representation back to binary and compares SHA-256 digests with the input.
func Verify(ctx context.Context, data []byte, kind Kind, beta bool) (*Report, error) {
	want := digest(data)
	rep := &Report{Hash: want}
	for _, via := range []Format{FormatBinary, FormatText, FormatDocument} {
		out := data
		if via != FormatBinary {
			mid, err := Convert(ctx, data, Options{Kind: kind, From: FormatBinary, To: via, Beta: beta})
			if err != nil {
				return nil, fmt.Errorf("to %s: %w", via, err)
			}
			out = mid.Data
		}
		back, err := Convert(ctx, out, Options{Kind: kind, From: via, To: FormatBinary, Beta: beta})
		if err != nil {
			return nil, fmt.Errorf("from %s: %w", via, err)
		}
		got := digest(back.Data)
		rep.Checks = append(rep.Checks, Check{Via: via, Hash: got, OK: got == want})
	}
	return rep, nil
}

func digest(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
