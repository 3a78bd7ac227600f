package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/oy3o/dxf"
	"github.com/oy3o/dxf/internal/log"
)

var checkCmd = &cobra.Command{
	Use:   "check [input...]",
	Short: "Validate every record of the inputs",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			args = []string{"-"}
		}
		var failed int
		for _, in := range args {
			n, err := check(cmd.Context(), current, in, os.Stdout)
			if err != nil {
				return err
			}
			failed += n
		}
		if failed > 0 {
			bailf("%d invalid records", failed)
		}
		return nil
	},
}

// check decodes input, normalizes each record and validates it at the
// codec version, printing one line per failed check. It returns the number of invalid
// records.
func check(ctx context.Context, e *env, input string, w io.Writer) (int, error) {
	ctx = log.AddTags(ctx, "input", input)
	rc, err := e.opener.Open(ctx, input)
	if err != nil {
		return 0, err
	}
	defer rc.Close()
	dec, err := e.codec.NewDecoder(rc)
	if err != nil {
		return 0, err
	}

	var invalid, total int
	for {
		ent, diags, err := dec.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if errors.Is(err, dxf.ErrUnknownKind) {
			continue
		}
		if err != nil {
			return invalid, fmt.Errorf("%s: %w", input, err)
		}
		total++
		log.Diagnostics(ctx, diags)

		s, err := e.codec.Registry.Resolve(ent.Kind)
		if err != nil {
			return invalid, err
		}
		norm, err := dxf.Normalize(ent, s)
		if err != nil {
			invalid++
			failColor.Fprintf(w, "%s: record %d: ", input, total)
			fmt.Fprintf(w, "%s: %v\n", ent.Kind, err)
			continue
		}
		_, err = dxf.Validate(norm, s, dec.Version())
		var verrs dxf.ValidationErrors
		switch {
		case errors.As(err, &verrs):
			invalid++
			for _, ve := range verrs {
				failColor.Fprintf(w, "%s: record %d: ", input, total)
				fmt.Fprintf(w, "%s: %s\n", ve.Path, ve.Message)
			}
		case err != nil:
			return invalid, err
		}
	}
	log.Infow(ctx, "checked", "records", total, "invalid", invalid)
	return invalid, nil
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
