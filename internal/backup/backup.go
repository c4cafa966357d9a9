// Package backup reads and writes exported board documents, optionally xz-compressed.
package backup

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ulikunitz/xz"
)

// CompressedExt selects xz compression when it ends the target path.
const CompressedExt = ".xz"

// MaxDocumentBytes bounds a decompressed document.
const MaxDocumentBytes = 64 << 20

var xzMagic = []byte{0xFD, '7', 'z', 'X', 'Z', 0x00}

// ErrTooLarge means a document exceeds MaxDocumentBytes.
var ErrTooLarge = errors.New("backup document exceeds size limit")

// IsCompressed reports whether data starts with the xz stream header.
func IsCompressed(data []byte) bool {
	return bytes.HasPrefix(data, xzMagic)
}

// Compress wraps document in an xz stream.
func Compress(document []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer, err := xz.NewWriter(&buf)
	if err != nil {
		return nil, fmt.Errorf("create xz writer: %w", err)
	}
	if _, err := writer.Write(document); err != nil {
		_ = writer.Close()
		return nil, fmt.Errorf("compress document: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("finish xz stream: %w", err)
	}
	return buf.Bytes(), nil
}

// Decompress unwraps an xz stream, refusing output above MaxDocumentBytes.
func Decompress(data []byte) ([]byte, error) {
	reader, err := xz.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open xz stream: %w", err)
	}
	return readLimited(reader)
}

// Decode returns the plain document from data, decompressing when it is xz.
func Decode(data []byte) ([]byte, error) {
	if IsCompressed(data) {
		return Decompress(data)
	}
	if len(data) > MaxDocumentBytes {
		return nil, ErrTooLarge
	}
	return data, nil
}

// Read loads a document from path, detecting compression from content rather than name.
func Read(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open backup %q: %w", path, err)
	}
	defer f.Close()

	data, err := readLimited(f)
	if err != nil {
		return nil, fmt.Errorf("read backup %q: %w", path, err)
	}

	document, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode backup %q: %w", path, err)
	}
	return document, nil
}

// Write stores document at path with mode 0600, compressing when path ends in CompressedExt.
// The file is replaced atomically.
func Write(path string, document []byte) error {
	payload := document
	if strings.HasSuffix(path, CompressedExt) {
		compressed, err := Compress(document)
		if err != nil {
			return err
		}
		payload = compressed
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create backup dir %q: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".tilebuddy-export-*")
	if err != nil {
		return fmt.Errorf("create temp backup: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(payload); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write backup %q: %w", path, err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod backup %q: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close backup %q: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace backup %q: %w", path, err)
	}
	return nil
}

// readLimited reads at most MaxDocumentBytes and reports ErrTooLarge beyond that.
func readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxDocumentBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > MaxDocumentBytes {
		return nil, ErrTooLarge
	}
	return data, nil
}
