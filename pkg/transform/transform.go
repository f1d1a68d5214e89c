package transform

import (
	"bytes"
	"fmt"
	"io"

	common "github.com/tizianocitro/blobquickstart/pkg"
	"github.com/tizianocitro/blobquickstart/pkg/transform/compression"
	"github.com/tizianocitro/blobquickstart/pkg/transform/encryption"
)

// Codec is one reversible step applied to an object payload.
type Codec interface {
	Name() string
	Encode(data []byte) ([]byte, error)
	Decode(data []byte) ([]byte, error)
}

// Pipeline encodes payloads on upload and decodes them, in reverse order, on download.
// The zero value is a pass-through pipeline.
type Pipeline struct {
	codecs []Codec
}

func NewPipeline(codecs ...Codec) Pipeline { return Pipeline{codecs: codecs} }

// Empty reports whether the pipeline leaves payloads untouched.
func (p Pipeline) Empty() bool { return len(p.codecs) == 0 }

// Names lists the codecs in encode order.
func (p Pipeline) Names() []string {
	names := make([]string, 0, len(p.codecs))
	for _, c := range p.codecs {
		names = append(names, c.Name())
	}
	return names
}

// Wrap returns a reader over the encoded payload of reader.
func (p Pipeline) Wrap(reader io.Reader) (io.Reader, error) {
	if p.Empty() {
		return reader, nil
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read payload: %w", err)
	}
	for _, c := range p.codecs {
		data, err = c.Encode(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", c.Name(), err)
		}
	}
	return bytes.NewReader(data), nil
}

// Unwrap decodes the stored payload behind rc. rc is always closed.
func (p Pipeline) Unwrap(rc io.ReadCloser) (io.ReadCloser, error) {
	if p.Empty() {
		return rc, nil
	}

	data, err := io.ReadAll(rc)
	_ = rc.Close()
	if err != nil {
		return nil, fmt.Errorf("read payload: %w", err)
	}
	for i := len(p.codecs) - 1; i >= 0; i-- {
		c := p.codecs[i]
		data, err = c.Decode(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", c.Name(), err)
		}
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// ForProperties builds the pipeline matching the storage properties of a connection:
// compression first, then encryption.
func ForProperties(props common.ConnectionProperties) (Pipeline, error) {
	var codecs []Codec

	switch props.SaveCompress {
	case common.NO_COMPRESSION:
	case common.GZIP_COMPRESSION:
		codecs = append(codecs, compression.Gzip{})
	default:
		return Pipeline{}, fmt.Errorf("unsupported compression algorithm: %v", props.SaveCompress)
	}

	switch props.SaveEncrypt {
	case common.NO_ENCRYPTION:
	case common.AES256_ENCRYPTION:
		if props.EncryptKey == "" {
			return Pipeline{}, fmt.Errorf("missing encryption key for AES256_ENCRYPTION")
		}
		codecs = append(codecs, encryption.AESGCM{Key: props.EncryptKey})
	default:
		return Pipeline{}, fmt.Errorf("unsupported encryption algorithm: %v", props.SaveEncrypt)
	}

	return NewPipeline(codecs...), nil
}
