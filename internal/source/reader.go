// Package source reads TYCHO model dumps into memory.
// Dumps are read whole; xz and gzip compressed files are decompressed
// transparently. The compressor is chosen by content, and a .xz or .gz
// suffix must agree with it.
package source

import (
	"bufio"
	"compress/gzip"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/ulikunitz/xz"
	"github.com/zeebo/blake3"

	tyerrors "github.com/FocuswithJustin/tychomodel/core/errors"
	"github.com/FocuswithJustin/tychomodel/internal/validation"
)

// MaxFileSize is the maximum decompressed size accepted for a single dump (512 MB).
const MaxFileSize = 512 << 20

// Compression identifies how a dump is stored on disk.
type Compression string

const (
	// CompressionNone is a plain text dump.
	CompressionNone Compression = "none"
	// CompressionXZ is an xz-compressed dump (".xz").
	CompressionXZ Compression = "xz"
	// CompressionGzip is a gzip-compressed dump (".gz").
	CompressionGzip Compression = "gzip"
)

// File holds the decompressed contents of a dump.
type File struct {
	Path        string
	Data        []byte
	Hash        string // BLAKE3 of Data, hex encoded
	Compression Compression
}

// DetectCompression maps a sniffed file type to its decompressor.
func DetectCompression(ft validation.FileType) Compression {
	switch ft {
	case validation.FileTypeXZ:
		return CompressionXZ
	case validation.FileTypeGzip:
		return CompressionGzip
	default:
		return CompressionNone
	}
}

// Reader wraps an open dump with automatic decompression handling.
type Reader struct {
	io.Reader
	file         *os.File
	decompressor io.Closer
	compression  Compression
}

// Open opens the dump at path for reading.
func Open(path string) (*Reader, error) {
	if err := validation.ValidatePath(path); err != nil {
		return nil, tyerrors.NewIO("open", path, err)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, tyerrors.NewIO("open", path, err)
	}

	br := bufio.NewReaderSize(f, validation.SniffSize)
	head, err := br.Peek(validation.SniffSize)
	if err != nil && err != io.EOF {
		f.Close()
		return nil, tyerrors.NewIO("read", path, err)
	}
	ft, err := validation.Sniff(head, path)
	if err != nil {
		f.Close()
		return nil, tyerrors.NewIO("validate", path, err)
	}

	var reader io.Reader = br
	var decompressor io.Closer

	compression := DetectCompression(ft)
	switch compression {
	case CompressionXZ:
		xzr, err := xz.NewReader(br)
		if err != nil {
			f.Close()
			return nil, tyerrors.NewIO("decompress", path, fmt.Errorf("xz reader: %w", err))
		}
		reader = xzr
		decompressor = nil // xz reader doesn't need closing
	case CompressionGzip:
		gzr, err := gzip.NewReader(br)
		if err != nil {
			f.Close()
			return nil, tyerrors.NewIO("decompress", path, fmt.Errorf("gzip reader: %w", err))
		}
		reader = gzr
		decompressor = gzr
	}

	return &Reader{
		Reader:       reader,
		file:         f,
		decompressor: decompressor,
		compression:  compression,
	}, nil
}

// Compression reports how the underlying file is compressed.
func (r *Reader) Compression() Compression {
	return r.compression
}

// Close closes the reader and any underlying decompressor.
func (r *Reader) Close() error {
	var errs []error
	if r.decompressor != nil {
		if err := r.decompressor.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := r.file.Close(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

// ReadFile reads and decompresses the whole dump at path.
func ReadFile(path string) (*File, error) {
	r, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	data, err := io.ReadAll(io.LimitReader(r, MaxFileSize+1))
	if err != nil {
		return nil, tyerrors.NewIO("read", path, err)
	}
	if len(data) > MaxFileSize {
		return nil, tyerrors.NewIO("read", path, fmt.Errorf("file exceeds %d bytes", MaxFileSize))
	}

	return &File{
		Path:        path,
		Data:        data,
		Hash:        Hash(data),
		Compression: r.Compression(),
	}, nil
}

// Hash computes the BLAKE3 hash of data, hex encoded.
func Hash(data []byte) string {
	h := blake3.Sum256(data)
	return hex.EncodeToString(h[:])
}
