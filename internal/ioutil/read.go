package ioutil

import (
	"errors"
	"fmt"
	"io"
)

// ErrTooLarge is returned by ReadAll when the reader holds more than the limit
var ErrTooLarge = errors.New("body exceeds size limit")

// ReadAll reads r to EOF. A positive limit caps the number of bytes accepted;
// anything beyond it yields ErrTooLarge. A limit of zero or less means no cap.
func ReadAll(r io.Reader, limit int64) ([]byte, error) {
	if limit <= 0 {
		return io.ReadAll(r)
	}

	body, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > limit {
		return nil, fmt.Errorf("%w (%d bytes)", ErrTooLarge, limit)
	}
	return body, nil
}

// Truncate shortens b to at most n bytes for logging, marking the cut
func Truncate(b []byte, n int) string {
	if n <= 0 || len(b) <= n {
		return string(b)
	}
	return fmt.Sprintf("%s...(%d more bytes)", b[:n], len(b)-n)
}
