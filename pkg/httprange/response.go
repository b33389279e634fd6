package httprange

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/adammck/rangecache/pkg/api"
	"github.com/adammck/rangecache/pkg/rangecache"
	"github.com/adammck/rangecache/pkg/types"
)

// Loader returns a lease on a cached range, fetching it first if needed.
// *rangecache.Loader is one.
type Loader interface {
	Load(ctx context.Context, key string, r types.Range) (*rangecache.Lease, error)
}

// Response is the outcome of Resolve. It's one of OK, NotFound,
// RangeNotSatisfiable, or InternalError.
type Response interface {
	isResponse()
}

// OK is a successful response. Partial is true if the request asked for a
// range, in which case Range says which. Body is nil for metadata-only
// requests, and must be closed otherwise.
type OK struct {
	Size    uint64
	Range   FileRange
	Partial bool
	Body    io.ReadCloser
}

// ContentLength returns the number of bytes in the body.
func (ok OK) ContentLength() uint64 {
	if ok.Size == 0 {
		return 0
	}
	return ok.Range.Size()
}

type NotFound struct {
	Key string
}

type RangeNotSatisfiable struct {
	Size uint64
}

type InternalError struct {
	Err error
}

func (OK) isResponse()                  {}
func (NotFound) isResponse()            {}
func (RangeNotSatisfiable) isResponse() {}
func (InternalError) isResponse()       {}

// Resolve looks up the size of key, translates req against it, and, unless
// metadataOnly is set, loads the resulting range through the cache.
func Resolve(ctx context.Context, sizer api.ObjectSizer, loader Loader, key string, req Request, metadataOnly bool) Response {
	if api.ValidateKey(key) != nil {
		return NotFound{Key: key}
	}

	size, err := sizer.Size(ctx, key)
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			return NotFound{Key: key}
		}
		return InternalError{Err: fmt.Errorf("Size: %w", err)}
	}

	fr, ok := Translate(size, req)
	if !ok {
		// an empty object has no ranges, but can still be served whole.
		if size == 0 && req == nil {
			return emptyOK(metadataOnly)
		}
		return RangeNotSatisfiable{Size: size}
	}

	resp := OK{
		Size:    size,
		Range:   fr,
		Partial: req != nil,
	}

	if metadataOnly {
		return resp
	}

	lease, err := loader.Load(ctx, key, fr.Range())
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			return NotFound{Key: key}
		}
		return InternalError{Err: fmt.Errorf("Load: %w", err)}
	}

	body, err := openSection(lease, fr)
	if err != nil {
		lease.Close()
		return InternalError{Err: err}
	}

	resp.Body = body
	return resp
}

func emptyOK(metadataOnly bool) OK {
	ok := OK{}
	if !metadataOnly {
		ok.Body = io.NopCloser(bytes.NewReader(nil))
	}
	return ok
}

// section reads one range of a leased file, and releases both the file and
// the lease when closed.
type section struct {
	*io.SectionReader
	f     *os.File
	lease *rangecache.Lease
}

func openSection(lease *rangecache.Lease, fr FileRange) (*section, error) {
	f, err := lease.Open()
	if err != nil {
		return nil, err
	}

	return &section{
		SectionReader: io.NewSectionReader(f, int64(fr.Start), int64(fr.Size())),
		f:             f,
		lease:         lease,
	}, nil
}

func (s *section) Close() error {
	err := s.f.Close()
	s.lease.Close()
	return err
}
