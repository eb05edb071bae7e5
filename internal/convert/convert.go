// Package convert selects loaders and emitters for a file kind and runs
// conversions between the binary, text and document representations.
package convert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/samcharles93/setupconv/internal/logger"
	"github.com/samcharles93/setupconv/pkg/setup"
	"github.com/samcharles93/setupconv/pkg/stan"
)

// ErrUsage marks errors in the request rather than in the data.
var ErrUsage = errors.New("invalid conversion request")

// Options describes one conversion.
type Options struct {
	Kind Kind
	From Format
	To   Format
	// Beta selects the beta Stan tile layout for binary input.
	Beta bool
	// Includes overrides the include lines written to text output.
	Includes []string
	// Source names the input in generated text.
	Source string
}

func (o Options) validate() error {
	if o.Kind == KindUnknown {
		return fmt.Errorf("%w: kind not set", ErrUsage)
	}
	if o.From == FormatUnknown || o.To == FormatUnknown {
		return fmt.Errorf("%w: format not set", ErrUsage)
	}
	return nil
}

// Graph is a loaded file of either kind.
type Graph struct {
	Kind  Kind
	Stan  *stan.File
	Setup *setup.File
}

// Result is the output of one conversion.
type Result struct {
	RunID string
	Data  []byte
	// Unresolved counts pointer fields written as zero because their target
	// was never emitted. Only binary output sets it.
	Unresolved int
}

// Load decodes data in the given representation. The graph is not
// normalised.
func Load(kind Kind, from Format, data []byte, beta bool) (*Graph, error) {
	g := &Graph{Kind: kind}
	var err error
	switch kind {
	case KindStan:
		v := stan.Standard
		if beta {
			v = stan.Beta
		}
		switch from {
		case FormatBinary:
			g.Stan, err = stan.Read(data, v)
		case FormatText:
			g.Stan, err = stan.Parse(string(data))
		case FormatDocument:
			g.Stan, err = stan.DecodeDocument(bytes.NewReader(data))
		default:
			return nil, fmt.Errorf("%w: cannot read format %s", ErrUsage, from)
		}
	case KindSetup:
		switch from {
		case FormatBinary:
			g.Setup, err = setup.Read(data)
		case FormatText:
			g.Setup, err = setup.Parse(string(data))
		case FormatDocument:
			g.Setup, err = setup.DecodeDocument(bytes.NewReader(data))
		default:
			return nil, fmt.Errorf("%w: cannot read format %s", ErrUsage, from)
		}
	default:
		return nil, fmt.Errorf("%w: kind not set", ErrUsage)
	}
	if err != nil {
		return nil, err
	}
	return g, nil
}

// Emit writes g in the given representation. It returns the unresolved
// pointer count for binary output.
func (g *Graph) Emit(to Format, opts Options) ([]byte, int, error) {
	var buf bytes.Buffer
	switch g.Kind {
	case KindStan:
		switch to {
		case FormatBinary:
			out, ctx, err := stan.Link(g.Stan)
			if err != nil {
				return nil, 0, err
			}
			return out, ctx.Unresolved(), nil
		case FormatText:
			if err := stan.EmitText(&buf, g.Stan, stan.TextOptions{Includes: opts.Includes, Source: opts.Source}); err != nil {
				return nil, 0, err
			}
		case FormatDocument:
			if err := stan.EncodeDocument(&buf, g.Stan); err != nil {
				return nil, 0, err
			}
		default:
			return nil, 0, fmt.Errorf("%w: cannot write format %s", ErrUsage, to)
		}
	case KindSetup:
		switch to {
		case FormatBinary:
			out, ctx, err := setup.Link(g.Setup)
			if err != nil {
				return nil, 0, err
			}
			return out, ctx.Unresolved(), nil
		case FormatText:
			if err := setup.EmitText(&buf, g.Setup, setup.TextOptions{Includes: opts.Includes, Source: opts.Source}); err != nil {
				return nil, 0, err
			}
		case FormatDocument:
			if err := setup.EncodeDocument(&buf, g.Setup); err != nil {
				return nil, 0, err
			}
		default:
			return nil, 0, fmt.Errorf("%w: cannot write format %s", ErrUsage, to)
		}
	default:
		return nil, 0, fmt.Errorf("%w: kind not set", ErrUsage)
	}
	return buf.Bytes(), 0, nil
}

// Convert loads data and emits it in the target representation. Each call
// owns its graph and assembly context.
func Convert(ctx context.Context, data []byte, opts Options) (*Result, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	res := &Result{RunID: uuid.NewString()}
	log := logger.FromContext(ctx).With("run_id", res.RunID, "kind", opts.Kind.String())
	start := time.Now()

	g, err := Load(opts.Kind, opts.From, data, opts.Beta)
	if err != nil {
		return nil, err
	}
	out, unresolved, err := g.Emit(opts.To, opts)
	if err != nil {
		return nil, err
	}
	res.Data = out
	res.Unresolved = unresolved

	log.Debug("converted",
		"from", opts.From.String(),
		"to", opts.To.String(),
		"in_bytes", len(data),
		"out_bytes", len(out),
		"unresolved", unresolved,
		"elapsed", time.Since(start),
	)
	if unresolved > 0 {
		log.Warn("pointer fields left unresolved", "count", unresolved)
	}
	return res, nil
}
