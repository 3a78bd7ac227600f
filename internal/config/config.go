// Package config resolves dxfcat settings from an optional YAML file and
// DXF_* environment variables. The environment wins over the file.
package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
	"gopkg.in/yaml.v3"

	"github.com/oy3o/dxf"
	"github.com/oy3o/dxf/internal/log"
)

// Config holds everything dxfcat needs besides its arguments.
type Config struct {
	// Version records are decoded and encoded at.
	Version dxf.Version `yaml:"version"`
	// DetectVersion takes the version from $ACADVER when the input has a
	// header.
	DetectVersion bool `yaml:"detect_version"`
	// Precision is the number of decimals written for reals.
	Precision int `yaml:"precision"`
	// CodePage names the legacy encoding of text values, e.g. "ANSI_1252"
	// or "windows-1252". Empty means UTF-8.
	CodePage string `yaml:"code_page"`
	// SchemaDirs are searched for *.dxfs schema files.
	SchemaDirs []string `yaml:"schema_dirs"`
	// Strict turns decode diagnostics into failures. Ambiguous codes are exempt.
	Strict bool `yaml:"strict"`
	// MaxInputBytes rejects larger inputs. Zero means no limit.
	MaxInputBytes int64 `yaml:"max_input_bytes"`

	Log LogConfig `yaml:"log"`
	S3  S3Config  `yaml:"s3"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type S3Config struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Secure    bool   `yaml:"secure"`
}

// Default returns the settings used when nothing is configured.
func Default() *Config {
	return &Config{
		Version:   dxf.Latest,
		Precision: dxf.DefaultPrecision,
		Log:       LogConfig{Level: "info", Format: "text"},
		S3:        S3Config{Secure: true},
	}
}

// Load reads the YAML file at path, if path is not empty, over the defaults
// and then applies environment overrides.
func Load(ctx context.Context, path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: %s: %w", path, err)
		}
	}
	if err := applyEnv(ctx, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports settings that cannot work.
func (c *Config) Validate() error {
	if !c.Version.Known() {
		return fmt.Errorf("config: unsupported version %v", c.Version)
	}
	if c.MaxInputBytes < 0 {
		return fmt.Errorf("config: negative max_input_bytes")
	}
	if c.Precision < 0 || c.Precision > 16 {
		return fmt.Errorf("config: precision %d out of range 0..16", c.Precision)
	}
	if _, err := c.Encoding(); err != nil {
		return err
	}
	return nil
}

// Encoding resolves CodePage. A nil encoding means UTF-8.
func (c *Config) Encoding() (encoding.Encoding, error) {
	name := strings.TrimSpace(c.CodePage)
	if name == "" || strings.EqualFold(name, "utf-8") || strings.EqualFold(name, "utf8") {
		return nil, nil
	}
	// $DWGCODEPAGE spells Windows code pages as ANSI_nnnn.
	if n, ok := strings.CutPrefix(strings.ToUpper(name), "ANSI_"); ok {
		name = "windows-" + n
	}
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil || enc == nil {
		return nil, fmt.Errorf("config: unknown code page %q", c.CodePage)
	}
	return enc, nil
}

// Codec returns a codec over reg configured from c.
func (c *Config) Codec(reg *dxf.Registry) (*dxf.Codec, error) {
	enc, err := c.Encoding()
	if err != nil {
		return nil, err
	}
	codec := dxf.NewCodec(reg)
	codec.Version = c.Version
	codec.Precision = c.Precision
	codec.CodePage = enc
	codec.MaxBytes = c.MaxInputBytes
	return codec, nil
}

func applyEnv(ctx context.Context, cfg *Config) error {
	if s, ok := os.LookupEnv("DXF_VERSION"); ok {
		v, err := dxf.ParseVersion(s)
		if err != nil {
			return fmt.Errorf("config: DXF_VERSION: %w", err)
		}
		override(ctx, "version", &cfg.Version, v)
	}
	if s, ok := os.LookupEnv("DXF_PRECISION"); ok {
		n, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("config: bad value %q for DXF_PRECISION: %w", s, err)
		}
		override(ctx, "precision", &cfg.Precision, n)
	}
	if s, ok := os.LookupEnv("DXF_MAX_INPUT_BYTES"); ok {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return fmt.Errorf("config: bad value %q for DXF_MAX_INPUT_BYTES: %w", s, err)
		}
		override(ctx, "max_input_bytes", &cfg.MaxInputBytes, n)
	}
	for key, b := range map[string]*bool{
		"DXF_DETECT_VERSION": &cfg.DetectVersion,
		"DXF_STRICT":         &cfg.Strict,
		"DXF_S3_SECURE":      &cfg.S3.Secure,
	} {
		if s, ok := os.LookupEnv(key); ok {
			v, err := strconv.ParseBool(s)
			if err != nil {
				return fmt.Errorf("config: bad value %q for %s: %w", s, key, err)
			}
			*b = v
		}
	}
	override(ctx, "code_page", &cfg.CodePage, os.Getenv("DXF_CODEPAGE"))
	override(ctx, "log.level", &cfg.Log.Level, os.Getenv("DXF_LOG_LEVEL"))
	override(ctx, "log.format", &cfg.Log.Format, os.Getenv("DXF_LOG_FORMAT"))
	override(ctx, "s3.endpoint", &cfg.S3.Endpoint, os.Getenv("DXF_S3_ENDPOINT"))
	override(ctx, "s3.access_key", &cfg.S3.AccessKey, os.Getenv("DXF_S3_ACCESS_KEY"))
	override(ctx, "s3.secret_key", &cfg.S3.SecretKey, os.Getenv("DXF_S3_SECRET_KEY"))
	if dirs := parseCommaList(os.Getenv("DXF_SCHEMA_DIRS")); len(dirs) > 0 {
		cfg.SchemaDirs = dirs
	}
	return nil
}

func override[T comparable](ctx context.Context, name string, field *T, val T) {
	var zero T
	if val != zero {
		*field = val
		log.Debugf(ctx, "config: overriding %s from environment", name)
	}
}

func parseCommaList(s string) []string {
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
