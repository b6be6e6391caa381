// Package validation checks input paths and sniffs dump contents before
// they reach the decoder.
package validation

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"
)

const (
	// MaxPathLength is the maximum allowed path length.
	MaxPathLength = 4096

	// SniffSize is how many leading bytes ValidateFileType inspects.
	SniffSize = 512
)

// Common validation errors.
var (
	ErrPathTooLong      = errors.New("path too long")
	ErrInvalidCharacter = errors.New("invalid character in path")
	ErrEmptyPath        = errors.New("path cannot be empty")
	ErrTypeMismatch     = errors.New("file type mismatch")
	ErrNotText          = errors.New("not a text model dump")
)

// ValidatePath rejects empty, over-long and control-character paths.
func ValidatePath(path string) error {
	if path == "" {
		return ErrEmptyPath
	}

	if len(path) > MaxPathLength {
		return ErrPathTooLong
	}

	if strings.Contains(path, "\x00") {
		return fmt.Errorf("%w: null byte not allowed", ErrInvalidCharacter)
	}

	for _, r := range path {
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: control character not allowed", ErrInvalidCharacter)
		}
	}

	return nil
}

// FileType is the storage format of a dump as seen on disk.
type FileType string

const (
	FileTypeXZ      FileType = "xz"
	FileTypeGzip    FileType = "gzip"
	FileTypeSQLite  FileType = "sqlite"
	FileTypeText    FileType = "text"
	FileTypeUnknown FileType = "unknown"
)

// IsCompressed reports whether the type wraps a dump in a compressor.
func (t FileType) IsCompressed() bool {
	return t == FileTypeXZ || t == FileTypeGzip
}

var magicBytes = []struct {
	fileType FileType
	magic    []byte
}{
	{FileTypeGzip, []byte{0x1f, 0x8b}},
	{FileTypeXZ, []byte{0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00}},
	{FileTypeSQLite, []byte("SQLite format 3")},
}

// ValidateFileType reads the head of a dump and returns its storage format.
//
// A .xz or .gz suffix must match the content. Files without a compression
// suffix are accepted when they are text or carry an xz or gzip signature;
// anything else is not a model dump.
func ValidateFileType(reader io.Reader, filename string) (FileType, error) {
	buf := make([]byte, SniffSize)
	n, err := io.ReadFull(reader, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return FileTypeUnknown, fmt.Errorf("failed to read file header: %w", err)
	}
	return Sniff(buf[:n], filename)
}

// Sniff is ValidateFileType for a buffer already in memory.
func Sniff(head []byte, filename string) (FileType, error) {
	detected := DetectFileType(head)
	expected := detectFileTypeFromExtension(filename)

	if expected.IsCompressed() {
		if detected != expected {
			return FileTypeUnknown, fmt.Errorf("%w: extension suggests %s but content is %s", ErrTypeMismatch, expected, detected)
		}
		return detected, nil
	}

	switch {
	case detected.IsCompressed(), detected == FileTypeText:
		return detected, nil
	case len(head) == 0:
		return FileTypeText, nil
	default:
		return detected, fmt.Errorf("%w: content is %s", ErrNotText, detected)
	}
}

// DetectFileType identifies a buffer by magic bytes, falling back to a
// printable-text check.
func DetectFileType(buf []byte) FileType {
	for _, sig := range magicBytes {
		if bytes.HasPrefix(buf, sig.magic) {
			return sig.fileType
		}
	}
	if isLikelyText(buf) {
		return FileTypeText
	}
	return FileTypeUnknown
}

func detectFileTypeFromExtension(filename string) FileType {
	lower := strings.ToLower(filename)
	switch {
	case strings.HasSuffix(lower, ".xz"):
		return FileTypeXZ
	case strings.HasSuffix(lower, ".gz"):
		return FileTypeGzip
	default:
		return FileTypeUnknown
	}
}

// isLikelyText checks if the buffer contains likely text content.
// Dumps are ASCII, so bytes above 0x7e count against the buffer.
func isLikelyText(buf []byte) bool {
	if len(buf) == 0 {
		return false
	}

	// Null bytes mean binary content.
	if bytes.IndexByte(buf, 0) != -1 {
		return false
	}

	printable := 0
	other := 0
	for _, b := range buf {
		if b >= 0x20 && b <= 0x7e || b == '\t' || b == '\n' || b == '\r' {
			printable++
		} else {
			other++
		}
	}

	return printable > 0 && float64(printable)/float64(printable+other) > 0.95
}
