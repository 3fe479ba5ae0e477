package streaming

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrUnsatisfiableRange means the requested range lies outside the file.
// Callers respond 416 with a `Content-Range: bytes */<size>` header.
var ErrUnsatisfiableRange = errors.New("requested range not satisfiable")

// ByteRange is a resolved inclusive byte range within a file of known size.
type ByteRange struct {
	Start int64
	End   int64
}

// Length returns the number of bytes covered by the range.
func (r ByteRange) Length() int64 {
	return r.End - r.Start + 1
}

// ContentRange formats the Content-Range response header value.
func (r ByteRange) ContentRange(size int64) string {
	return fmt.Sprintf("bytes %d-%d/%d", r.Start, r.End, size)
}

// ParseRange resolves a Range request header against a file of the given
// size. It handles the single-range forms `bytes=start-`, `bytes=start-end`,
// and the suffix form `bytes=-n`. A nil result with nil error means no (or
// an ignorable multi-part) range was requested and the whole file should be
// served with 200. Malformed values are also ignored per RFC 7233 rather
// than rejected.
func ParseRange(header string, size int64) (*ByteRange, error) {
	if header == "" {
		return nil, nil
	}

	spec, ok := strings.CutPrefix(header, "bytes=")
	if !ok {
		return nil, nil
	}
	// Multiple ranges are legal but rarely sent by players; serve the
	// whole file rather than producing a multipart response.
	if strings.Contains(spec, ",") {
		return nil, nil
	}

	startStr, endStr, ok := strings.Cut(spec, "-")
	if !ok {
		return nil, nil
	}

	// Suffix form: last n bytes.
	if startStr == "" {
		n, err := strconv.ParseInt(endStr, 10, 64)
		if err != nil || n <= 0 {
			return nil, nil
		}
		if size == 0 {
			return nil, ErrUnsatisfiableRange
		}
		if n > size {
			n = size
		}
		return &ByteRange{Start: size - n, End: size - 1}, nil
	}

	start, err := strconv.ParseInt(startStr, 10, 64)
	if err != nil || start < 0 {
		return nil, nil
	}
	if start >= size {
		return nil, ErrUnsatisfiableRange
	}

	end := size - 1
	if endStr != "" {
		end, err = strconv.ParseInt(endStr, 10, 64)
		if err != nil || end < start {
			return nil, nil
		}
		if end > size-1 {
			end = size - 1
		}
	}

	return &ByteRange{Start: start, End: end}, nil
}
