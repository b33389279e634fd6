package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/adammck/rangecache/pkg/api"
	"github.com/adammck/rangecache/pkg/config"
	"github.com/adammck/rangecache/pkg/httprange"
	"github.com/adammck/rangecache/pkg/impl/blobstore/sparse"
	s3fetcher "github.com/adammck/rangecache/pkg/impl/fetcher/s3"
	fileidx "github.com/adammck/rangecache/pkg/impl/indexstore/file"
	mongoidx "github.com/adammck/rangecache/pkg/impl/indexstore/mongo"
	"github.com/adammck/rangecache/pkg/rangecache"
	shmongo "github.com/adammck/rangecache/pkg/shared/mongo"
	"github.com/sirupsen/logrus"
)

// stack is everything built from the config which commands need.
type stack struct {
	cache  *rangecache.Cache
	source *s3fetcher.Fetcher
	sizer  api.ObjectSizer
	loader *rangecache.Loader

	mongo *shmongo.Client
}

// newStack builds the cache and its stores from cfg, and loads the state
// left on disk, cleaning up whatever is broken. The source is only set up if
// the config names a bucket.
func newStack(ctx context.Context, cfg *config.Config, opts ...rangecache.Option) (*stack, error) {
	return buildStack(ctx, cfg, (*rangecache.Cache).InitFromDir, opts...)
}

// inspectStack is newStack for commands which only look: the cache dir is
// scanned but not changed.
func inspectStack(ctx context.Context, cfg *config.Config) (*stack, error) {
	return buildStack(ctx, cfg, (*rangecache.Cache).ScanDir)
}

type loadFunc func(c *rangecache.Cache, ctx context.Context, dir string) error

func buildStack(ctx context.Context, cfg *config.Config, load loadFunc, opts ...rangecache.Option) (*stack, error) {
	s := &stack{}

	idx, err := s.indexStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	log := logrus.StandardLogger()
	blobs := sparse.New(cfg.CacheDir, sparse.WithLogger(log))

	opts = append([]rangecache.Option{rangecache.WithLogger(log)}, opts...)
	s.cache = rangecache.New(uint64(cfg.MaxSize), idx, blobs, opts...)

	if err := load(s.cache, ctx, cfg.CacheDir); err != nil {
		s.Close(ctx)
		return nil, fmt.Errorf("load: %w", err)
	}

	if cfg.S3.Bucket == "" {
		return s, nil
	}

	s.source = s3fetcher.New(cfg.S3.Bucket)
	s.loader = rangecache.NewLoader(s.cache, s.source)
	s.sizer = s.source

	if cfg.SizeCache > 0 {
		sc, err := httprange.NewSizeCache(s.source, cfg.SizeCache)
		if err != nil {
			s.Close(ctx)
			return nil, err
		}
		s.sizer = sc
	}

	return s, nil
}

func (s *stack) indexStore(ctx context.Context, cfg *config.Config) (api.RangeIndexStore, error) {
	switch cfg.Index {
	case config.IndexMongo:
		s.mongo = shmongo.NewClient(cfg.Mongo.URL)
		db, err := s.mongo.GetDB(ctx)
		if err != nil {
			return nil, fmt.Errorf("GetDB: %w", err)
		}

		idx := mongoidx.New(db)
		if err := idx.Init(ctx); err != nil {
			return nil, fmt.Errorf("Init: %w", err)
		}
		return idx, nil

	default:
		return fileidx.New(cfg.CacheDir), nil
	}
}

// requireSource returns an error if no bucket was configured.
func (s *stack) requireSource() error {
	if s.source == nil {
		return errors.New("s3.bucket is required (RANGECACHE_S3_BUCKET)")
	}
	return nil
}

func (s *stack) Close(ctx context.Context) {
	if s.mongo != nil {
		if err := s.mongo.Close(ctx); err != nil {
			logrus.WithError(err).Warn("failed to close mongo")
		}
	}
}
