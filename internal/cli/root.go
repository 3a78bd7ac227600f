// Package cli implements the dxfcat commands.
package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/oy3o/dxf"
	"github.com/oy3o/dxf/entities"
	"github.com/oy3o/dxf/internal/config"
	"github.com/oy3o/dxf/internal/log"
	"github.com/oy3o/dxf/internal/source"
	"github.com/oy3o/dxf/schemafile"
)

var (
	configPath   string
	flagVersion  string
	flagCodePage string
	flagSchemas  []string
	flagStrict   bool
	flagLevel    string
)

// env is what every command needs, set up once before it runs.
type env struct {
	cfg    *config.Config
	codec  *dxf.Codec
	opener *source.Opener
}

var current *env

var rootCmd = &cobra.Command{
	Use:   "dxfcat",
	Short: "Decode, encode and check DXF entity streams",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		current = e
		return nil
	},
	SilenceUsage: true,
}

// Execute runs the command line and exits non-zero on failure.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func bailf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func setup(ctx context.Context) (*env, error) {
	cfg, err := config.Load(ctx, configPath)
	if err != nil {
		return nil, err
	}
	if flagVersion != "" {
		if cfg.Version, err = dxf.ParseVersion(flagVersion); err != nil {
			return nil, err
		}
	}
	if flagCodePage != "" {
		cfg.CodePage = flagCodePage
	}
	if flagLevel != "" {
		cfg.Log.Level = flagLevel
	}
	cfg.SchemaDirs = append(cfg.SchemaDirs, flagSchemas...)
	cfg.Strict = cfg.Strict || flagStrict
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := log.Setup(os.Stderr, cfg.Log.Format, cfg.Log.Level); err != nil {
		return nil, err
	}

	reg, err := registry(ctx, cfg.SchemaDirs)
	if err != nil {
		return nil, err
	}
	codec, err := cfg.Codec(reg)
	if err != nil {
		return nil, err
	}
	opener, err := source.New(cfg.S3)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, codec: codec, opener: opener}, nil
}

// registry extends the built-in schemas with the *.dxfs files of dirs.
// Schema files may refer to the built-in grammars by kind.
func registry(ctx context.Context, dirs []string) (*dxf.Registry, error) {
	reg := entities.Registry()
	if len(dirs) == 0 {
		return reg, nil
	}
	extern := append(entities.All(), entities.Reactors, entities.XDictionary)
	var extra []*dxf.Schema
	for _, dir := range dirs {
		schemas, err := schemafile.LoadFS(os.DirFS(dir), "*.dxfs", extern...)
		if err != nil {
			return nil, fmt.Errorf("loading schemas from %s: %w", filepath.Clean(dir), err)
		}
		log.Debugw(ctx, "loaded schemas", "dir", dir, "count", len(schemas))
		extra = append(extra, schemas...)
	}
	return reg.With(extra...)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file")
	rootCmd.PersistentFlags().StringVarP(&flagVersion, "dxf-version", "V", "", "DXF version to read and write (e.g. R2000, AC1015)")
	rootCmd.PersistentFlags().StringVarP(&flagCodePage, "codepage", "", "", "legacy code page of text values (e.g. ANSI_1252)")
	rootCmd.PersistentFlags().StringArrayVarP(&flagSchemas, "schemas", "s", nil, "directory of *.dxfs schema files")
	rootCmd.PersistentFlags().BoolVarP(&flagStrict, "strict", "", false, "fail on decode diagnostics other than ambiguous codes")
	rootCmd.PersistentFlags().StringVarP(&flagLevel, "log-level", "", "", "log level (debug, info, warn, error)")
}
