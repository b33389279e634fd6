// Package httprange serves HTTP range requests for remote objects out of the
// cache. It turns Range headers into concrete byte ranges, and byte ranges
// into responses.
package httprange

import (
	"fmt"

	"github.com/adammck/rangecache/pkg/types"
)

// Request is one parsed byte range from a Range header. It's one of Bounded,
// Offset, or Suffix. A nil Request means the whole object.
type Request interface {
	isRequest()
}

// Bounded is "bytes=Start-End". End is inclusive.
type Bounded struct {
	Start uint64
	End   uint64
}

// Offset is "bytes=Offset-", i.e. everything from Offset to the end.
type Offset struct {
	Offset uint64
}

// Suffix is "bytes=-Suffix", i.e. the last Suffix bytes.
type Suffix struct {
	Suffix uint64
}

func (Bounded) isRequest() {}
func (Offset) isRequest()  {}
func (Suffix) isRequest()  {}

// FileRange is a non-empty range of bytes within an object. Unlike
// types.Range, End is inclusive, as in HTTP.
type FileRange struct {
	Start uint64
	End   uint64
}

func (fr FileRange) Size() uint64 {
	return fr.End - fr.Start + 1
}

// Range returns the equivalent half-open range.
func (fr FileRange) Range() types.Range {
	return types.Range{From: fr.Start, To: fr.End + 1}
}

// ContentRange returns the value of the Content-Range header for a partial
// response with this range.
func (fr FileRange) ContentRange(totalSize uint64) string {
	return fmt.Sprintf("bytes %d-%d/%d", fr.Start, fr.End, totalSize)
}

// Translate resolves req against an object of totalSize bytes. It returns false
// if the request can't be satisfied. A Bounded request must fit entirely
// within the object; it isn't clamped.
func Translate(totalSize uint64, req Request) (FileRange, bool) {
	switch req := req.(type) {
	case nil:
		if totalSize == 0 {
			return FileRange{}, false
		}
		return FileRange{Start: 0, End: totalSize - 1}, true

	case Bounded:
		if req.Start > req.End || req.End >= totalSize {
			return FileRange{}, false
		}
		return FileRange{Start: req.Start, End: req.End}, true

	case Offset:
		if req.Offset >= totalSize {
			return FileRange{}, false
		}
		return FileRange{Start: req.Offset, End: totalSize - 1}, true

	case Suffix:
		if req.Suffix == 0 || req.Suffix > totalSize {
			return FileRange{}, false
		}
		return FileRange{Start: totalSize - req.Suffix, End: totalSize - 1}, true
	}

	panic(fmt.Sprintf("httprange: unknown request type %T", req))
}
