package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/oy3o/dxf"
	"github.com/oy3o/dxf/schemafile"
)

var kindsSchema bool

var kindsCmd = &cobra.Command{
	Use:   "kinds [kind...]",
	Short: "List registered entity kinds, or print their schemas",
	RunE: func(cmd *cobra.Command, args []string) error {
		return listKinds(os.Stdout, current.codec.Registry, args, kindsSchema)
	},
}

func listKinds(w io.Writer, reg *dxf.Registry, kinds []string, asSchema bool) error {
	if len(kinds) == 0 {
		kinds = reg.Kinds()
	}
	if !asSchema {
		for _, k := range kinds {
			if _, err := reg.Resolve(k); err != nil {
				return err
			}
			fmt.Fprintln(w, k)
		}
		return nil
	}
	schemas := make([]*dxf.Schema, 0, len(kinds))
	for _, k := range kinds {
		s, err := reg.Resolve(k)
		if err != nil {
			return err
		}
		schemas = append(schemas, s)
	}
	return schemafile.Format(w, schemas...)
}

func init() {
	rootCmd.AddCommand(kindsCmd)
	kindsCmd.Flags().BoolVarP(&kindsSchema, "schema", "", false, "print schemas in schema file syntax")
}
