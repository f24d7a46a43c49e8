// Package frame implements the length-prefixed, optionally-compressed
// binary frame codec (C2): a 4-byte big-endian header whose top bit flags
// gzip compression and whose low 31 bits carry the payload length, followed
// by that many bytes of payload.
package frame

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/klauspost/compress/gzip"

	"odin-kv-server/internal/kverr"
)

const (
	lenLen           = 4
	MaxFrame         = 2*1024*1024 - 1
	CompressionLimit = 1436
	compressionBit   = 1 << 31
)

// Payload is anything that can be marshaled to the wire payload carried
// inside a frame (internal/wire's CommandRequest/CommandResponse).
type Payload interface {
	MarshalWire() ([]byte, error)
}

// Encode writes a length-prefixed, optionally gzip-compressed frame for
// raw to w. Frames whose encoded payload exceeds CompressionLimit bytes are
// gzip-compressed and flagged via the header's top bit.
func Encode(w io.Writer, raw []byte) error {
	if len(raw) > MaxFrame {
		return kverr.Frame("payload exceeds max frame size")
	}

	if len(raw) <= CompressionLimit {
		header := make([]byte, lenLen)
		binary.BigEndian.PutUint32(header, uint32(len(raw)))
		if _, err := w.Write(header); err != nil {
			return kverr.IO(err)
		}
		if _, err := w.Write(raw); err != nil {
			return kverr.IO(err)
		}
		return nil
	}

	var compressed bytes.Buffer
	gz, err := gzip.NewWriterLevel(&compressed, gzip.DefaultCompression)
	if err != nil {
		return kverr.Encode(err)
	}
	if _, err := gz.Write(raw); err != nil {
		return kverr.Encode(err)
	}
	if err := gz.Close(); err != nil {
		return kverr.Encode(err)
	}

	header := make([]byte, lenLen)
	binary.BigEndian.PutUint32(header, uint32(compressed.Len())|compressionBit)
	if _, err := w.Write(header); err != nil {
		return kverr.IO(err)
	}
	if _, err := w.Write(compressed.Bytes()); err != nil {
		return kverr.IO(err)
	}
	return nil
}

// EncodePayload encodes payload's wire form into a frame on w.
func EncodePayload(w io.Writer, payload Payload) error {
	raw, err := payload.MarshalWire()
	if err != nil {
		return err
	}
	return Encode(w, raw)
}

// decodeHeader splits a frame header into (length, compressed). The
// compression test is a bitwise AND against compressionBit: the upstream
// reference used an OR-based comparison that is always true regardless of
// the bit's actual state, treating every frame as compressed.
func decodeHeader(header uint32) (length uint32, compressed bool) {
	compressed = header&compressionBit != 0
	length = header &^ compressionBit
	return length, compressed
}

// Decode reads one frame from r and returns its raw (decompressed) payload.
func Decode(r io.Reader) ([]byte, error) {
	headerBuf := make([]byte, lenLen)
	if _, err := io.ReadFull(r, headerBuf); err != nil {
		return nil, kverr.Frame("failed to read frame header: " + err.Error())
	}
	length, compressed := decodeHeader(binary.BigEndian.Uint32(headerBuf))
	if uint64(length) > MaxFrame {
		return nil, kverr.Frame("frame header declares oversized payload")
	}

	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, kverr.IO(err)
	}

	if !compressed {
		return body, nil
	}

	gz, err := gzip.NewReader(bytes.NewReader(body))
	if err != nil {
		return nil, kverr.Decode(err)
	}
	defer gz.Close()

	raw, err := io.ReadAll(gz)
	if err != nil {
		return nil, kverr.Decode(err)
	}
	return raw, nil
}
