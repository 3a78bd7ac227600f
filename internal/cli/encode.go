package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/oy3o/dxf"
	"github.com/oy3o/dxf/internal/log"
	"github.com/oy3o/dxf/internal/source"
)

var encodeOutput string

var encodeCmd = &cobra.Command{
	Use:   "encode [input]",
	Short: "Encode JSON lines produced by decode back to DXF",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		input := "-"
		if len(args) == 1 {
			input = args[0]
		}
		n, err := encode(cmd.Context(), current, input, encodeOutput)
		if err != nil {
			return err
		}
		okColor.Fprintf(os.Stderr, "%s: %d records (%v)\n", encodeOutput, n, current.codec.Version)
		return nil
	},
}

// encode reads entities as JSON from input and writes them as one DXF
// stream to output. Values are normalized first so that JSON numbers take
// their field kinds. On failure the output is discarded.
func encode(ctx context.Context, e *env, input, output string) (int, error) {
	ctx = log.AddTags(ctx, "input", input, "output", output)
	rc, err := e.opener.Open(ctx, input)
	if err != nil {
		return 0, err
	}
	defer rc.Close()

	wc, err := e.opener.Create(ctx, output)
	if err != nil {
		return 0, err
	}
	n, err := encodeStream(ctx, e.codec, rc, wc)
	if err != nil {
		if aerr := source.Abort(wc, err); aerr != nil {
			log.Warnw(ctx, "failed to discard output", "err", aerr)
		}
		return n, err
	}
	return n, wc.Close()
}

func encodeStream(ctx context.Context, codec *dxf.Codec, r io.Reader, w io.Writer) (int, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	enc, err := codec.NewEncoder(w)
	if err != nil {
		return 0, err
	}
	for i := 1; ; i++ {
		if err := ctx.Err(); err != nil {
			return enc.Records(), err
		}
		var ent dxf.Entity
		if err := dec.Decode(&ent); errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return enc.Records(), fmt.Errorf("record %d: %w", i, err)
		}
		s, err := codec.Registry.Resolve(ent.Kind)
		if err != nil {
			return enc.Records(), fmt.Errorf("record %d: %w", i, err)
		}
		norm, err := dxf.Normalize(&ent, s)
		if err != nil {
			return enc.Records(), fmt.Errorf("record %d: %w", i, err)
		}
		if err := enc.Encode(norm); err != nil {
			return enc.Records(), fmt.Errorf("record %d: %w", i, err)
		}
	}
	if err := enc.Close(); err != nil {
		return enc.Records(), err
	}
	log.Debugw(ctx, "encoded", "records", enc.Records())
	return enc.Records(), nil
}

func init() {
	rootCmd.AddCommand(encodeCmd)
	encodeCmd.Flags().StringVarP(&encodeOutput, "output", "o", "-", "output path, - or s3://bucket/key")
}
