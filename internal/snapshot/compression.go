package snapshot

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	apperrors "stockbook-backup/internal/errors"
)

// Algorithm identifies a snapshot payload compression scheme
type Algorithm string

const (
	AlgorithmNone Algorithm = "none"
	AlgorithmGzip Algorithm = "gzip"
	AlgorithmZstd Algorithm = "zstd"
	AlgorithmLZ4  Algorithm = "lz4"
)

// Compressor compresses and decompresses snapshot payloads
type Compressor interface {
	Compress(data []byte) ([]byte, error)
	Decompress(data []byte) ([]byte, error)
	Algorithm() Algorithm
	// Extension is appended to the snapshot file name, e.g. ".gz"
	Extension() string
}

// ParseAlgorithm maps a user-supplied name to an Algorithm
func ParseAlgorithm(name string) (Algorithm, error) {
	switch Algorithm(name) {
	case AlgorithmNone, "":
		return AlgorithmNone, nil
	case AlgorithmGzip:
		return AlgorithmGzip, nil
	case AlgorithmZstd:
		return AlgorithmZstd, nil
	case AlgorithmLZ4:
		return AlgorithmLZ4, nil
	default:
		return "", apperrors.NewValidationError(fmt.Sprintf("unsupported compression algorithm: %s", name), nil)
	}
}

// NewCompressor returns the compressor for an algorithm
func NewCompressor(algorithm Algorithm) (Compressor, error) {
	switch algorithm {
	case AlgorithmNone:
		return noneCompressor{}, nil
	case AlgorithmGzip:
		return gzipCompressor{}, nil
	case AlgorithmZstd:
		return zstdCompressor{}, nil
	case AlgorithmLZ4:
		return lz4Compressor{}, nil
	default:
		return nil, apperrors.NewValidationError(fmt.Sprintf("unsupported compression algorithm: %s", algorithm), nil)
	}
}

// Magic byte prefixes of the supported frame formats.
var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
	lz4Magic  = []byte{0x04, 0x22, 0x4d, 0x18}
)

// Detect sniffs the payload's compression algorithm from its leading bytes.
// Uncompressed JSON yields AlgorithmNone.
func Detect(data []byte) Algorithm {
	switch {
	case bytes.HasPrefix(data, gzipMagic):
		return AlgorithmGzip
	case bytes.HasPrefix(data, zstdMagic):
		return AlgorithmZstd
	case bytes.HasPrefix(data, lz4Magic):
		return AlgorithmLZ4
	default:
		return AlgorithmNone
	}
}

// Decode transparently decompresses a snapshot payload based on its magic
// bytes. Plain JSON passes through untouched.
func Decode(data []byte) ([]byte, error) {
	algorithm := Detect(data)
	if algorithm == AlgorithmNone {
		return data, nil
	}

	compressor, err := NewCompressor(algorithm)
	if err != nil {
		return nil, err
	}
	return compressor.Decompress(data)
}

type noneCompressor struct{}

func (noneCompressor) Compress(data []byte) ([]byte, error)   { return data, nil }
func (noneCompressor) Decompress(data []byte) ([]byte, error) { return data, nil }
func (noneCompressor) Algorithm() Algorithm                   { return AlgorithmNone }
func (noneCompressor) Extension() string                      { return "" }

type gzipCompressor struct{}

func (gzipCompressor) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, apperrors.NewValidationError("gzip compression failed", err)
	}
	if err := w.Close(); err != nil {
		return nil, apperrors.NewValidationError("gzip compression failed", err)
	}
	return buf.Bytes(), nil
}

func (gzipCompressor) Decompress(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, apperrors.NewInvalidFormatError("gzip decompression failed", err)
	}
	defer r.Close()

	out, err := io.ReadAll(r)
	if err != nil {
		return nil, apperrors.NewInvalidFormatError("gzip decompression failed", err)
	}
	return out, nil
}

func (gzipCompressor) Algorithm() Algorithm { return AlgorithmGzip }
func (gzipCompressor) Extension() string    { return ".gz" }

type zstdCompressor struct{}

func (zstdCompressor) Compress(data []byte) ([]byte, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, apperrors.NewValidationError("zstd compression failed", err)
	}
	out := enc.EncodeAll(data, nil)
	enc.Close()
	return out, nil
}

func (zstdCompressor) Decompress(data []byte) ([]byte, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, apperrors.NewInvalidFormatError("zstd decompression failed", err)
	}
	defer dec.Close()

	out, err := dec.DecodeAll(data, nil)
	if err != nil {
		return nil, apperrors.NewInvalidFormatError("zstd decompression failed", err)
	}
	return out, nil
}

func (zstdCompressor) Algorithm() Algorithm { return AlgorithmZstd }
func (zstdCompressor) Extension() string    { return ".zst" }

type lz4Compressor struct{}

func (lz4Compressor) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, apperrors.NewValidationError("lz4 compression failed", err)
	}
	if err := w.Close(); err != nil {
		return nil, apperrors.NewValidationError("lz4 compression failed", err)
	}
	return buf.Bytes(), nil
}

func (lz4Compressor) Decompress(data []byte) ([]byte, error) {
	r := lz4.NewReader(bytes.NewReader(data))
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, apperrors.NewInvalidFormatError("lz4 decompression failed", err)
	}
	return out, nil
}

func (lz4Compressor) Algorithm() Algorithm { return AlgorithmLZ4 }
func (lz4Compressor) Extension() string    { return ".lz4" }
