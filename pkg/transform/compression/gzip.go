package compression

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
)

// Gzip compresses payloads with gzip at the default level.
type Gzip struct{}

func (Gzip) Name() string { return "gzip" }

func (Gzip) Encode(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		_ = zw.Close()
		return nil, fmt.Errorf("write: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close: %w", err)
	}
	return buf.Bytes(), nil
}

func (Gzip) Decode(data []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	return out, nil
}
