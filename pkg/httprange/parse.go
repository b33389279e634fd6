package httprange

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrMalformed is returned when a Range header can't be parsed.
	ErrMalformed = errors.New("malformed range")

	// ErrUnsupported is returned for valid Range headers which ask for
	// something other than one byte range, like multiple ranges.
	ErrUnsupported = errors.New("unsupported range")
)

// ParseRange parses the value of a Range header. An empty header is a nil
// Request, meaning the whole object. So is a header in any unit other than
// bytes, which HTTP says to ignore.
func ParseRange(header string) (Request, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return nil, nil
	}

	unit, spec, ok := strings.Cut(header, "=")
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrMalformed, header)
	}
	if !strings.EqualFold(strings.TrimSpace(unit), "bytes") {
		return nil, nil
	}

	spec = strings.TrimSpace(spec)
	if strings.Contains(spec, ",") {
		return nil, fmt.Errorf("%w: multiple ranges: %q", ErrUnsupported, header)
	}

	first, last, ok := strings.Cut(spec, "-")
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrMalformed, header)
	}

	first = strings.TrimSpace(first)
	last = strings.TrimSpace(last)

	switch {
	case first == "" && last == "":
		return nil, fmt.Errorf("%w: %q", ErrMalformed, header)

	case first == "":
		n, err := parseUint(last)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrMalformed, header)
		}
		return Suffix{Suffix: n}, nil

	case last == "":
		n, err := parseUint(first)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrMalformed, header)
		}
		return Offset{Offset: n}, nil
	}

	start, err := parseUint(first)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrMalformed, header)
	}

	end, err := parseUint(last)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrMalformed, header)
	}

	return Bounded{Start: start, End: end}, nil
}

// parseUint is strict: digits only, no sign.
func parseUint(s string) (uint64, error) {
	if s == "" || strings.TrimLeft(s, "0123456789") != "" {
		return 0, strconv.ErrSyntax
	}
	return strconv.ParseUint(s, 10, 64)
}
