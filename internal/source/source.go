// Package source opens DXF inputs and outputs named by URI: a local path,
// "-" for stdin or stdout, or s3://bucket/key on an S3-compatible store.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/oy3o/dxf/internal/config"
)

const (
	minioErrObjectNotExist = "The specified key does not exist."

	// partSize is the multipart chunk used for uploads of unknown length.
	partSize = 16 << 20
)

var (
	ErrNotFound = errors.New("source: object not found")
	ErrNoS3     = errors.New("source: s3 uri given but no s3 endpoint is configured")
)

// Opener resolves URIs. S3 may be nil when no endpoint is configured.
type Opener struct {
	S3 *minio.Client

	stdin  io.Reader
	stdout io.Writer
}

// New returns an Opener for cfg, with an S3 client when cfg names an
// endpoint.
func New(cfg config.S3Config) (*Opener, error) {
	o := &Opener{}
	if cfg.Endpoint == "" {
		return o, nil
	}
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create s3 client: %w", err)
	}
	o.S3 = mc
	return o, nil
}

func (o *Opener) in() io.Reader {
	if o.stdin != nil {
		return o.stdin
	}
	return os.Stdin
}

func (o *Opener) out() io.Writer {
	if o.stdout != nil {
		return o.stdout
	}
	return os.Stdout
}

// Open returns a reader over uri. The caller closes it.
func (o *Opener) Open(ctx context.Context, uri string) (io.ReadCloser, error) {
	if uri == "-" {
		return io.NopCloser(o.in()), nil
	}
	bucket, key, ok, err := parseS3(uri)
	if err != nil {
		return nil, err
	}
	if !ok {
		return os.Open(uri)
	}
	if o.S3 == nil {
		return nil, ErrNoS3
	}
	obj, err := o.S3.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get object: %w", err)
	}
	// GetObject is lazy; Stat surfaces a missing key before decoding starts.
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		if err.Error() == minioErrObjectNotExist {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, uri)
		}
		return nil, fmt.Errorf("failed to stat object: %w", err)
	}
	return obj, nil
}

// Create returns a writer to uri. For S3 the upload completes when the
// writer is closed, and Close reports its error.
func (o *Opener) Create(ctx context.Context, uri string) (io.WriteCloser, error) {
	if uri == "-" {
		return nopWriteCloser{o.out()}, nil
	}
	bucket, key, ok, err := parseS3(uri)
	if err != nil {
		return nil, err
	}
	if !ok {
		f, err := os.Create(uri)
		if err != nil {
			return nil, err
		}
		return localFile{f}, nil
	}
	if o.S3 == nil {
		return nil, ErrNoS3
	}
	return newUpload(func(r io.Reader) error {
		_, err := o.S3.PutObject(ctx, bucket, key, r, -1, minio.PutObjectOptions{
			PartSize:    partSize,
			ContentType: "image/vnd.dxf",
		})
		if err != nil {
			return fmt.Errorf("failed to write object: %w", err)
		}
		return nil
	}), nil
}

// Abort discards a writer returned by Create instead of committing it. An
// S3 upload is cancelled with cause and a local file is removed. Other
// writers are closed.
func Abort(w io.WriteCloser, cause error) error {
	if a, ok := w.(interface{ abort(error) error }); ok {
		return a.abort(cause)
	}
	return w.Close()
}

// parseS3 splits s3://bucket/key. ok is false for anything else.
func parseS3(uri string) (bucket, key string, ok bool, err error) {
	if !strings.HasPrefix(uri, "s3://") {
		return "", "", false, nil
	}
	u, err := url.Parse(uri)
	if err != nil {
		return "", "", false, fmt.Errorf("source: %w", err)
	}
	key = strings.TrimPrefix(u.Path, "/")
	if u.Host == "" || key == "" {
		return "", "", false, fmt.Errorf("source: %q needs both bucket and key", uri)
	}
	return u.Host, key, true, nil
}

// upload streams writes into put, which runs until the writer is closed
// or aborted.
type upload struct {
	pw   *io.PipeWriter
	done chan error
}

func newUpload(put func(io.Reader) error) *upload {
	pr, pw := io.Pipe()
	u := &upload{pw: pw, done: make(chan error, 1)}
	go func() {
		err := put(pr)
		pr.CloseWithError(err)
		u.done <- err
	}()
	return u
}

func (u *upload) Write(p []byte) (int, error) { return u.pw.Write(p) }

func (u *upload) Close() error {
	if err := u.pw.Close(); err != nil {
		return err
	}
	return <-u.done
}

// abort fails the reader side, so put never sees a clean end of data.
func (u *upload) abort(cause error) error {
	if cause == nil {
		cause = errAborted
	}
	u.pw.CloseWithError(cause)
	<-u.done
	return nil
}

var errAborted = errors.New("source: write aborted")

type localFile struct{ *os.File }

func (f localFile) abort(error) error {
	f.File.Close()
	return os.Remove(f.Name())
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }
