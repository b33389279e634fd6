// Package sparse stores cached bytes in sparse files: one file per key, with
// every fetched range written at its real offset and everything else left as
// holes.
package sparse

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/adammck/rangecache/pkg/api"
	"github.com/sirupsen/logrus"
)

const (
	defaultDirPerm  = 0o700
	defaultFilePerm = 0o600
)

type BlobStore struct {
	dir      string
	dirPerm  os.FileMode
	filePerm os.FileMode
	log      logrus.FieldLogger
}

var _ api.BlobStore = (*BlobStore)(nil)

type Option func(*BlobStore)

func WithDirPerm(mode os.FileMode) Option {
	return func(bs *BlobStore) {
		bs.dirPerm = mode
	}
}

func WithFilePerm(mode os.FileMode) Option {
	return func(bs *BlobStore) {
		bs.filePerm = mode
	}
}

func WithLogger(log logrus.FieldLogger) Option {
	return func(bs *BlobStore) {
		bs.log = log
	}
}

func New(dir string, opts ...Option) *BlobStore {
	bs := &BlobStore{
		dir:      dir,
		dirPerm:  defaultDirPerm,
		filePerm: defaultFilePerm,
		log:      logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(bs)
	}
	return bs
}

func (bs *BlobStore) Path(key string) string {
	return filepath.Join(bs.dir, key)
}

func (bs *BlobStore) Exists(ctx context.Context, key string) (bool, error) {
	if err := api.ValidateKey(key); err != nil {
		return false, err
	}

	fi, err := os.Stat(bs.Path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("Stat: %w", err)
	}

	return fi.Mode().IsRegular(), nil
}

func (bs *BlobStore) Write(ctx context.Context, key string, data []byte, offset uint64) error {
	if err := api.ValidateKey(key); err != nil {
		return err
	}

	if offset > math.MaxInt64-uint64(len(data)) {
		return fmt.Errorf("%w: offset %d overflows", api.ErrInvalidRange, offset)
	}

	path := bs.Path(key)
	if err := bs.create(path); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("OpenFile: %w", err)
	}

	_, err = f.WriteAt(data, int64(offset))
	if err != nil {
		f.Close()
		return fmt.Errorf("WriteAt: %w", err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("Close: %w", err)
	}

	return nil
}

// create makes an empty file at path and flags it as sparse, unless it
// already exists. Failing to set the flag only costs disk space, so it's
// logged rather than returned.
func (bs *BlobStore) create(path string) error {
	if err := os.MkdirAll(bs.dir, bs.dirPerm); err != nil {
		return fmt.Errorf("MkdirAll: %w", err)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, bs.filePerm)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil
		}
		return fmt.Errorf("OpenFile: %w", err)
	}

	if err := markSparse(f); err != nil {
		bs.log.WithError(err).WithField("path", path).Warn("failed to mark file as sparse")
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("Close: %w", err)
	}

	return nil
}

func (bs *BlobStore) Delete(ctx context.Context, key string) error {
	if err := api.ValidateKey(key); err != nil {
		return err
	}

	err := os.Remove(bs.Path(key))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("Remove: %w", err)
	}

	return nil
}
