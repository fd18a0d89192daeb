package snapshot

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"

	"github.com/fxamacker/cbor/v2"
	"github.com/golang/snappy"
)

// Frame layout, big-endian:
//
//	magic[4] version[1] compression[1] length[4] crc32[4] payload[length]
//
// The payload is the CBOR document, snappy-compressed.
const (
	Version           = byte(1)
	CompressionSnappy = byte(1)
	headerSize        = 14

	// maxPayload bounds the allocation made for a frame read from disk.
	maxPayload = 1 << 30
)

var magic = [4]byte{'A', 'M', 'R', 'S'}

var (
	ErrBadMagic    = errors.New("not a mesh snapshot")
	ErrBadVersion  = errors.New("unsupported snapshot version")
	ErrBadChecksum = errors.New("snapshot checksum mismatch")
	ErrTooLarge    = errors.New("snapshot payload too large")
)

var encMode = func() cbor.EncMode {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	return em
}()

// Encode writes s to w as one frame.
func Encode(w io.Writer, s *Snapshot) error {
	doc, err := encMode.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	payload := snappy.Encode(nil, doc)

	var header [headerSize]byte
	copy(header[0:4], magic[:])
	header[4] = Version
	header[5] = CompressionSnappy
	binary.BigEndian.PutUint32(header[6:10], uint32(len(payload)))
	binary.BigEndian.PutUint32(header[10:14], crc32.ChecksumIEEE(payload))

	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("write payload: %w", err)
	}
	return nil
}

// Marshal returns the framed encoding of s.
func Marshal(s *Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, s); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode reads one frame from r.
func Decode(r io.Reader) (*Snapshot, error) {
	var header [headerSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if !bytes.Equal(header[0:4], magic[:]) {
		return nil, ErrBadMagic
	}
	if header[4] != Version || header[5] != CompressionSnappy {
		return nil, fmt.Errorf("version %d compression %d: %w", header[4], header[5], ErrBadVersion)
	}

	n := binary.BigEndian.Uint32(header[6:10])
	if n > maxPayload {
		return nil, fmt.Errorf("%d bytes: %w", n, ErrTooLarge)
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("read payload: %w", err)
	}
	if crc32.ChecksumIEEE(payload) != binary.BigEndian.Uint32(header[10:14]) {
		return nil, ErrBadChecksum
	}

	doc, err := snappy.Decode(nil, payload)
	if err != nil {
		return nil, fmt.Errorf("decompress snapshot: %w", err)
	}
	var s Snapshot
	if err := cbor.Unmarshal(doc, &s); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return &s, nil
}

// Unmarshal decodes a frame held in data.
func Unmarshal(data []byte) (*Snapshot, error) {
	return Decode(bytes.NewReader(data))
}
