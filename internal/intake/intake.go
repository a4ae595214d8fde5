// Package intake turns a file on disk into analyzable text.
package intake

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"unicode/utf8"
)

// MaxSize caps how much of a file is read for analysis.
const MaxSize = 8 << 20

var (
	// ErrNotText means the file is binary or not UTF-8.
	ErrNotText = errors.New("file is not plain text")
	// ErrTooLarge means the file exceeds MaxSize.
	ErrTooLarge = errors.New("file is too large")
)

// ReadText returns the whole file as a string. A leading UTF-8 BOM is
// stripped and CRLF line endings are normalized to LF.
func ReadText(path string) (string, error) {
	f, err := Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxSize+1))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	if len(data) > MaxSize {
		return "", fmt.Errorf("%s: %w", path, ErrTooLarge)
	}
	if err := checkText(data); err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}

	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	data = bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n"))
	return string(data), nil
}

// Open opens path for upload after checking it is a regular file within
// MaxSize. The caller closes it.
func Open(path string) (*os.File, error) {
	if path == "" {
		return nil, errors.New("no file path given")
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	if info.Size() > MaxSize {
		return nil, fmt.Errorf("%s: %w", path, ErrTooLarge)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return f, nil
}

func checkText(data []byte) error {
	if bytes.IndexByte(data, 0) >= 0 || !utf8.Valid(data) {
		return ErrNotText
	}
	return nil
}
