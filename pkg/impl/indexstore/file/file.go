// Package file stores range indexes as JSON sidecar files next to the cached
// data files.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/adammck/rangecache/pkg/api"
	"github.com/adammck/rangecache/pkg/types"
)

const (
	defaultDirPerm  = 0o700
	defaultFilePerm = 0o600
)

type IndexStore struct {
	dir      string
	dirPerm  os.FileMode
	filePerm os.FileMode
}

var _ api.RangeIndexStore = (*IndexStore)(nil)

// Option configures an IndexStore.
type Option func(*IndexStore)

// WithDirPerm sets the permissions used when creating the directory.
func WithDirPerm(mode os.FileMode) Option {
	return func(s *IndexStore) {
		s.dirPerm = mode
	}
}

// WithFilePerm sets the permissions of the sidecar files.
func WithFilePerm(mode os.FileMode) Option {
	return func(s *IndexStore) {
		s.filePerm = mode
	}
}

func New(dir string, opts ...Option) *IndexStore {
	s := &IndexStore{
		dir:      dir,
		dirPerm:  defaultDirPerm,
		filePerm: defaultFilePerm,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the location of the sidecar file for the given key.
func (s *IndexStore) Path(key string) string {
	return filepath.Join(s.dir, key+api.IndexSuffix)
}

func (s *IndexStore) Get(ctx context.Context, key string) (types.RangeSet, error) {
	if err := api.ValidateKey(key); err != nil {
		return types.RangeSet{}, err
	}

	b, err := os.ReadFile(s.Path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return types.RangeSet{}, nil
		}
		return types.RangeSet{}, fmt.Errorf("ReadFile: %w", err)
	}

	var rs types.RangeSet
	if err := json.Unmarshal(b, &rs); err != nil {
		return types.RangeSet{}, &api.IndexCorrupt{Key: key, Err: err}
	}

	for _, r := range rs.Ranges {
		if !r.Valid() {
			return types.RangeSet{}, &api.IndexCorrupt{
				Key: key,
				Err: fmt.Errorf("%w: %s", api.ErrInvalidRange, r),
			}
		}
	}

	return rs.Normalize(), nil
}

// Set rewrites the whole sidecar. The new contents are written to a temp file
// and renamed into place, so readers never see a partial write.
func (s *IndexStore) Set(ctx context.Context, key string, ranges types.RangeSet) error {
	if err := api.ValidateKey(key); err != nil {
		return err
	}

	ranges = ranges.Normalize()
	b, err := json.Marshal(ranges)
	if err != nil {
		return fmt.Errorf("json.Marshal: %w", err)
	}

	if err := os.MkdirAll(s.dir, s.dirPerm); err != nil {
		return fmt.Errorf("MkdirAll: %w", err)
	}

	// dot prefix keeps the temp file out of directory scans.
	tmp, err := os.CreateTemp(s.dir, "."+key+".tmp-*")
	if err != nil {
		return fmt.Errorf("CreateTemp: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("Write: %w", err)
	}
	if err := tmp.Chmod(s.filePerm); err != nil {
		tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("Chmod: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("Close: %w", err)
	}

	if err := os.Rename(tmpPath, s.Path(key)); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("Rename: %w", err)
	}

	return nil
}

func (s *IndexStore) Delete(ctx context.Context, key string) error {
	if err := api.ValidateKey(key); err != nil {
		return err
	}

	err := os.Remove(s.Path(key))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("Remove: %w", err)
	}

	return nil
}
