package transport

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/richard-senior/podds/internal/logger"
)

// Content encodings understood when reading fixtures and model files.
// The names follow the HTTP Content-Encoding header.
const (
	EncodingIdentity = ""
	EncodingGzip     = "gzip"
	EncodingDeflate  = "deflate"
	EncodingBrotli   = "br"
)

var suffixEncodings = map[string]string{
	".br":   EncodingBrotli,
	".gz":   EncodingGzip,
	".zz":   EncodingDeflate,
	".zlib": EncodingDeflate,
}

// SplitEncoding returns the encoding implied by a compression suffix and the
// path without it, "x.json.br" gives ("br", "x.json")
func SplitEncoding(path string) (string, string) {
	ext := strings.ToLower(filepath.Ext(path))
	if enc, ok := suffixEncodings[ext]; ok {
		return enc, strings.TrimSuffix(path, filepath.Ext(path))
	}
	return EncodingIdentity, path
}

// NewDecodingReader wraps r so that reads return decoded content
func NewDecodingReader(encoding string, r io.ReadCloser) (io.ReadCloser, error) {
	switch encoding {
	case EncodingIdentity:
		return r, nil
	case EncodingGzip:
		return NewGzipReader(r)
	case EncodingDeflate:
		return NewDeflateReader(r)
	case EncodingBrotli:
		return NewBrotliReader(r)
	}
	return nil, fmt.Errorf("unknown content encoding %q", encoding)
}

// NewGzipReader creates a gzip reader from the provided io.ReadCloser
func NewGzipReader(r io.ReadCloser) (io.ReadCloser, error) {
	return gzip.NewReader(r)
}

// NewDeflateReader creates a deflate reader from the provided io.ReadCloser
func NewDeflateReader(r io.ReadCloser) (io.ReadCloser, error) {
	return flate.NewReader(r), nil
}

// NewBrotliReader creates a brotli reader from the provided io.ReadCloser
func NewBrotliReader(r io.ReadCloser) (io.ReadCloser, error) {
	return io.NopCloser(brotli.NewReader(r)), nil
}

// ReadFile reads path, decoding it according to its compression suffix.
// The returned name is the path with that suffix removed so callers can
// dispatch on the inner extension.
func ReadFile(path string) ([]byte, string, error) {
	enc, inner := SplitEncoding(path)
	f, err := os.Open(path)
	if err != nil {
		return nil, inner, err
	}
	defer f.Close()

	reader, err := NewDecodingReader(enc, f)
	if err != nil {
		return nil, inner, err
	}
	if enc != EncodingIdentity {
		logger.Debug("Decoding", enc, "content from", path)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, inner, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, inner, nil
}

// CompressBrotli encodes data at the default quality
func CompressBrotli(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := brotli.NewWriterLevel(&buf, brotli.DefaultCompression)
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecompressBrotli reverses CompressBrotli
func DecompressBrotli(data []byte) ([]byte, error) {
	return io.ReadAll(brotli.NewReader(bytes.NewReader(data)))
}
