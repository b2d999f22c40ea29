// Package wire frames encoded payloads for storage.
//
// Uncompressed payloads are stored as-is. Compressed payloads are zlib
// deflated and then base64 encoded (standard alphabet), so stores that expect
// text-safe strings can hold them. The two forms are not self-describing:
// callers must know the owning database's compression policy.
package wire

import (
	"bytes"
	"encoding/base64"
	"errors"
	"io"

	"github.com/klauspost/compress/zlib"
)

var ErrCorrupt = errors.New("stockpile: corrupt compressed entry")

// Pack prepares payload for storage.
func Pack(payload []byte, compress bool) ([]byte, error) {
	if !compress {
		return payload, nil
	}

	var zbuf bytes.Buffer
	zw := zlib.NewWriter(&zbuf)
	if _, err := zw.Write(payload); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}

	out := make([]byte, base64.StdEncoding.EncodedLen(zbuf.Len()))
	base64.StdEncoding.Encode(out, zbuf.Bytes())
	return out, nil
}

// Unpack reverses Pack. Line breaks inside the base64 text are ignored, so
// payloads produced by MIME-style encoders (wrapped at 60/76 columns) decode too.
func Unpack(raw []byte, compress bool) ([]byte, error) {
	if !compress {
		return raw, nil
	}

	text := stripNewlines(raw)
	zb := make([]byte, base64.StdEncoding.DecodedLen(len(text)))
	n, err := base64.StdEncoding.Decode(zb, text)
	if err != nil {
		return nil, errors.Join(ErrCorrupt, err)
	}

	zr, err := zlib.NewReader(bytes.NewReader(zb[:n]))
	if err != nil {
		return nil, errors.Join(ErrCorrupt, err)
	}
	defer zr.Close()

	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, errors.Join(ErrCorrupt, err)
	}
	return out, nil
}

func stripNewlines(b []byte) []byte {
	if bytes.IndexAny(b, "\r\n") < 0 {
		return b
	}
	out := make([]byte, 0, len(b))
	for _, c := range b {
		if c != '\n' && c != '\r' {
			out = append(out, c)
		}
	}
	return out
}
