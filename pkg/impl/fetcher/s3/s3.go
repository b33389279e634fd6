// Package s3 fetches ranges of objects from an S3 bucket.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/adammck/rangecache/pkg/api"
	"github.com/adammck/rangecache/pkg/types"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// API is the subset of the S3 client which the fetcher uses.
type API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

type Fetcher struct {
	bucket string

	mu sync.Mutex
	s3 API
}

var _ api.Source = (*Fetcher)(nil)

// New returns a fetcher which connects to S3 on first use, configured from the
// environment in the usual AWS way.
func New(bucket string) *Fetcher {
	return &Fetcher{
		bucket: bucket,
	}
}

// NewWithClient returns a fetcher which uses the given client.
func NewWithClient(bucket string, client API) *Fetcher {
	return &Fetcher{
		bucket: bucket,
		s3:     client,
	}
}

func (f *Fetcher) Fetch(ctx context.Context, key string, r types.Range) ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("%w: %s", api.ErrInvalidRange, r)
	}
	if r.Size() == 0 {
		return []byte{}, nil
	}

	s3c, err := f.getS3(ctx)
	if err != nil {
		return nil, err
	}

	// http ranges are inclusive.
	output, err := s3c.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &f.bucket,
		Key:    &key,
		Range:  aws.String(fmt.Sprintf("bytes=%d-%d", r.From, r.To-1)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, &api.NotFound{Key: key}
		}
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "InvalidRange" {
			return nil, fmt.Errorf("%w: %s of %s", api.ErrInvalidRange, r, key)
		}
		return nil, fmt.Errorf("GetObject: %w", err)
	}
	defer output.Body.Close()

	data, err := io.ReadAll(output.Body)
	if err != nil {
		return nil, fmt.Errorf("ReadAll: %w", err)
	}

	// s3 truncates ranges which run past the end of the object.
	if uint64(len(data)) != r.Size() {
		return nil, fmt.Errorf("%w: wanted %s of %s, got %d bytes", api.ErrInvalidRange, r, key, len(data))
	}

	return data, nil
}

func (f *Fetcher) Size(ctx context.Context, key string) (uint64, error) {
	s3c, err := f.getS3(ctx)
	if err != nil {
		return 0, err
	}

	output, err := s3c.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: &f.bucket,
		Key:    &key,
	})
	if err != nil {
		if isNotFound(err) {
			return 0, &api.NotFound{Key: key}
		}
		return 0, fmt.Errorf("HeadObject: %w", err)
	}

	n := aws.ToInt64(output.ContentLength)
	if n < 0 {
		return 0, fmt.Errorf("HeadObject: negative content length %d", n)
	}

	return uint64(n), nil
}

func (f *Fetcher) Ping(ctx context.Context) error {
	_, err := f.getS3(ctx)
	return err
}

func (f *Fetcher) getS3(ctx context.Context) (API, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.s3 != nil {
		return f.s3, nil
	}

	s, err := connectToS3(ctx)
	if err != nil {
		return nil, fmt.Errorf("connectToS3: %w", err)
	}

	f.s3 = s
	return s, nil
}

func connectToS3(ctx context.Context) (*s3.Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, err
	}

	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = true
	}), nil
}

func isNotFound(err error) bool {
	var nsk *s3types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}

	var nf *s3types.NotFound
	if errors.As(err, &nf) {
		return true
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		return code == "NotFound" || code == "NoSuchKey"
	}

	return false
}
