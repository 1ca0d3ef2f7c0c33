package export

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
)

// EncodeSnappy returns fr as a snappy block, the form sent over the wire.
func EncodeSnappy(fr Frame) ([]byte, error) {
	raw, err := Encode(fr)
	if err != nil {
		return nil, err
	}
	return snappy.Encode(nil, raw), nil
}

// DecodeSnappy reverses EncodeSnappy.
func DecodeSnappy(data []byte) (Frame, error) {
	raw, err := snappy.Decode(nil, data)
	if err != nil {
		return Frame{}, fmt.Errorf("%w: %v", ErrBadFrame, err)
	}
	return Decode(raw)
}

// Write streams frames to w as one zstd stream, each frame prefixed by its
// length.
func Write(w io.Writer, frames ...Frame) error {
	enc, err := zstd.NewWriter(w)
	if err != nil {
		return err
	}
	for i, fr := range frames {
		raw, err := Encode(fr)
		if err != nil {
			enc.Close()
			return fmt.Errorf("frame %d: %w", i, err)
		}
		var size [4]byte
		binary.LittleEndian.PutUint32(size[:], uint32(len(raw)))
		if _, err := enc.Write(size[:]); err != nil {
			enc.Close()
			return err
		}
		if _, err := enc.Write(raw); err != nil {
			enc.Close()
			return err
		}
	}
	return enc.Close()
}

// Read parses every frame of a stream written by Write.
func Read(r io.Reader) ([]Frame, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	var frames []Frame
	for {
		var size [4]byte
		if _, err := io.ReadFull(dec, size[:]); err != nil {
			if errors.Is(err, io.EOF) {
				return frames, nil
			}
			return nil, fmt.Errorf("%w: frame %d length: %v", ErrBadFrame, len(frames), err)
		}
		raw := make([]byte, binary.LittleEndian.Uint32(size[:]))
		if _, err := io.ReadFull(dec, raw); err != nil {
			return nil, fmt.Errorf("%w: frame %d truncated: %v", ErrBadFrame, len(frames), err)
		}
		fr, err := Decode(raw)
		if err != nil {
			return nil, fmt.Errorf("frame %d: %w", len(frames), err)
		}
		frames = append(frames, fr)
	}
}

// WriteFile writes frames to path as a zstd-compressed dump.
func WriteFile(path string, frames ...Frame) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Write(out, frames...); err != nil {
		out.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return out.Close()
}

// ReadFile reads a dump written by WriteFile.
func ReadFile(path string) ([]Frame, error) {
	in, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer in.Close()
	return Read(in)
}
