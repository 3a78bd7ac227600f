package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/oy3o/dxf"
	"github.com/oy3o/dxf/internal/log"
)

var (
	decodeJobs      int
	decodeNormalize bool
	decodeKinds     []string
	decodeDetect    bool
)

// record is one line of decode output.
type record struct {
	Input string `json:"input,omitempty"`
	*dxf.Entity
}

// summary describes one decoded input.
type summary struct {
	Input       string
	Records     int
	Skipped     int
	Diagnostics int
	Version     dxf.Version
	Err         error
}

var decodeCmd = &cobra.Command{
	Use:   "decode [input...]",
	Short: "Decode DXF records to JSON lines",
	Long: `Decode reads each input (a path, "-" for stdin, or s3://bucket/key) and
writes one JSON object per record to stdout. Inputs are decoded concurrently
but printed in argument order.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			args = []string{"-"}
		}
		opts := decodeOptions{normalize: decodeNormalize, detect: decodeDetect || current.cfg.DetectVersion}
		if len(decodeKinds) > 0 {
			opts.kinds = make(map[string]bool, len(decodeKinds))
			for _, k := range decodeKinds {
				opts.kinds[k] = true
			}
		}
		sums, err := decodeAll(cmd.Context(), current, args, os.Stdout, opts)
		printSummaries(os.Stderr, sums)
		return err
	},
}

type decodeOptions struct {
	normalize bool
	detect    bool
	kinds     map[string]bool
}

// decodeAll decodes inputs concurrently and writes their records to w in
// input order.
func decodeAll(ctx context.Context, e *env, inputs []string, w io.Writer, opts decodeOptions) ([]summary, error) {
	sums := make([]summary, len(inputs))
	out := make([][]record, len(inputs))

	g, ctx := errgroup.WithContext(ctx)
	if decodeJobs > 0 {
		g.SetLimit(decodeJobs)
	}
	for i, in := range inputs {
		g.Go(func() error {
			recs, sum, err := decodeOne(ctx, e, in, len(inputs) > 1, opts)
			sum.Err = err
			sums[i], out[i] = sum, recs
			return err
		})
	}
	err := g.Wait()

	enc := json.NewEncoder(w)
	for _, recs := range out {
		for _, r := range recs {
			if werr := enc.Encode(r); werr != nil {
				return sums, werr
			}
		}
	}
	return sums, err
}

func decodeOne(ctx context.Context, e *env, input string, tag bool, opts decodeOptions) ([]record, summary, error) {
	ctx = log.AddTags(ctx, "input", input)
	sum := summary{Input: input}

	rc, err := e.opener.Open(ctx, input)
	if err != nil {
		return nil, sum, err
	}
	defer rc.Close()

	var dopts []dxf.DecoderOption
	if opts.detect {
		dopts = append(dopts, dxf.WithVersionDetection())
	}
	dec, err := e.codec.NewDecoder(rc, dopts...)
	if err != nil {
		return nil, sum, err
	}

	var recs []record
	for {
		ent, diags, err := dec.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		var uk *dxf.UnknownKindError
		if errors.As(err, &uk) {
			log.Debugw(ctx, "skipped record", "kind", uk.Kind, "line", uk.Line)
			continue
		}
		if err != nil {
			return recs, sum, fmt.Errorf("%s: %w", input, err)
		}

		sum.Diagnostics += len(diags)
		log.Diagnostics(ctx, diags)
		// Shared codes resolved by position are not damage.
		if n := len(diags) - diags.Count(dxf.AmbiguousCode); e.cfg.Strict && n > 0 {
			return recs, sum, fmt.Errorf("%s: %s record has %d diagnostics", input, ent.Kind, n)
		}
		if opts.kinds != nil && !opts.kinds[ent.Kind] {
			continue
		}
		if opts.normalize {
			s, err := e.codec.Registry.Resolve(ent.Kind)
			if err != nil {
				return recs, sum, err
			}
			if ent, err = dxf.Normalize(ent, s); err != nil {
				return recs, sum, fmt.Errorf("%s: %w", input, err)
			}
		}
		r := record{Entity: ent}
		if tag {
			r.Input = input
		}
		recs = append(recs, r)
		sum.Records++
	}
	sum.Skipped = dec.Skipped()
	sum.Version = dec.Version()
	log.Infow(ctx, "decoded", "records", sum.Records, "skipped", sum.Skipped, "version", sum.Version.String())
	return recs, sum, nil
}

var (
	okColor   = color.New(color.FgGreen)
	warnColor = color.New(color.FgYellow)
	failColor = color.New(color.FgRed, color.Bold)
)

func printSummaries(w io.Writer, sums []summary) {
	for _, s := range sums {
		switch {
		case s.Err != nil:
			failColor.Fprintf(w, "%s: %v\n", s.Input, s.Err)
		case s.Diagnostics > 0:
			warnColor.Fprintf(w, "%s: %d records, %d skipped, %d diagnostics (%v)\n",
				s.Input, s.Records, s.Skipped, s.Diagnostics, s.Version)
		default:
			okColor.Fprintf(w, "%s: %d records, %d skipped (%v)\n", s.Input, s.Records, s.Skipped, s.Version)
		}
	}
}

func init() {
	rootCmd.AddCommand(decodeCmd)

	decodeCmd.Flags().IntVarP(&decodeJobs, "jobs", "j", 4, "inputs decoded in parallel")
	decodeCmd.Flags().BoolVarP(&decodeNormalize, "normalize", "n", false, "fill defaults before printing")
	decodeCmd.Flags().StringSliceVarP(&decodeKinds, "kind", "k", nil, "only print records of these kinds")
	decodeCmd.Flags().BoolVarP(&decodeDetect, "detect-version", "", false, "take the version from $ACADVER")
}
