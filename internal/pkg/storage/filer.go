package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog/log"
)

// FilerOptions is minio connection config
type FilerOptions struct {
	URL    string
	User   string
	Key    string
	Bucket string
	Secure bool
}

// Filer stores and loads audio objects in minio
type Filer struct {
	mc     *minio.Client
	bucket string
}

// NewFiler connects to minio and makes sure the bucket exists
func NewFiler(ctx context.Context, opts FilerOptions) (*Filer, error) {
	if opts.URL == "" {
		return nil, fmt.Errorf("no filer URL")
	}
	if opts.Bucket == "" {
		return nil, fmt.Errorf("no bucket")
	}
	mc, err := minio.New(opts.URL, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.User, opts.Key, ""),
		Secure: opts.Secure,
	})
	if err != nil {
		return nil, fmt.Errorf("can't init minio client: %w", err)
	}
	exists, err := mc.BucketExists(ctx, opts.Bucket)
	if err != nil {
		return nil, fmt.Errorf("can't check bucket: %w", err)
	}
	if !exists {
		if err := mc.MakeBucket(ctx, opts.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("can't make bucket: %w", err)
		}
		log.Info().Str("bucket", opts.Bucket).Msg("created bucket")
	}
	return &Filer{mc: mc, bucket: opts.Bucket}, nil
}

// SaveFile stores an object
func (f *Filer) SaveFile(ctx context.Context, name string, r io.Reader, size int64) error {
	_, err := f.mc.PutObject(ctx, f.bucket, name, r, size, minio.PutObjectOptions{})
	if err != nil {
		return fmt.Errorf("can't save '%s': %w", name, err)
	}
	return nil
}

// LoadFile reads the full object content
func (f *Filer) LoadFile(ctx context.Context, name string) ([]byte, error) {
	obj, err := f.mc.GetObject(ctx, f.bucket, name, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("can't get '%s': %w", name, err)
	}
	defer obj.Close()
	res, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("can't read '%s': %w", name, err)
	}
	return res, nil
}
