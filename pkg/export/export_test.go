package export

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/chazu/sigfield/pkg/field"
	"github.com/chazu/sigfield/pkg/grid"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

func sampleField() *grid.Field {
	spec := grid.NewVolumetric(sdf.Box3{Min: v3.Vec{X: -1, Y: 0, Z: -2}, Max: v3.Vec{X: 1, Y: 3, Z: 2}}, 3)
	samples := make([]field.Sample, spec.Len())
	for i := range samples {
		samples[i] = field.Sample{Density: float64(i) / 4, Dominant: 0.5}
	}
	samples[0] = field.Sample{Density: 0, Dominant: field.NoSource}
	return &grid.Field{Spec: spec, Samples: samples}
}

// ---------------------------------------------------------------------------
// Frame codec
// ---------------------------------------------------------------------------

func TestEncodeLayout(t *testing.T) {
	f := sampleField()
	raw, err := Encode(Frame{Field: f, IndexMode: true})
	if err != nil {
		t.Fatal(err)
	}
	if string(raw[:4]) != Magic {
		t.Errorf("magic = %q", raw[:4])
	}
	if raw[4] != byte(grid.Volumetric) {
		t.Errorf("mode byte = %d", raw[4])
	}
	if raw[5] != flagMasked|flagIndex {
		t.Errorf("flags = %b", raw[5])
	}
	if want := headerSize + 8*27; len(raw) != want {
		t.Errorf("len = %d, want %d", len(raw), want)
	}
}

func TestEncodeDecode(t *testing.T) {
	f := sampleField()
	raw, err := Encode(Frame{Field: f})
	if err != nil {
		t.Fatal(err)
	}
	fr, err := Decode(raw)
	if err != nil {
		t.Fatal(err)
	}
	if fr.IndexMode {
		t.Error("index mode set")
	}
	if fr.Field.Spec != f.Spec {
		t.Errorf("spec = %+v, want %+v", fr.Field.Spec, f.Spec)
	}
	// Quarters are exact in float32.
	for i, s := range fr.Field.Samples {
		if s != f.Samples[i] {
			t.Fatalf("sample %d = %+v, want %+v", i, s, f.Samples[i])
		}
	}
}

func TestEncodeRejects(t *testing.T) {
	if _, err := Encode(Frame{}); !errors.Is(err, ErrBadFrame) {
		t.Errorf("nil field: err = %v", err)
	}
	f := sampleField()
	f.Samples = f.Samples[:3]
	if _, err := Encode(Frame{Field: f}); !errors.Is(err, ErrBadFrame) {
		t.Errorf("short samples: err = %v", err)
	}
}

func TestDecodeRejects(t *testing.T) {
	good, err := Encode(Frame{Field: sampleField()})
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		name   string
		mutate func([]byte) []byte
	}{
		{"short", func(b []byte) []byte { return b[:10] }},
		{"magic", func(b []byte) []byte { b[0] = 'X'; return b }},
		{"mode", func(b []byte) []byte { b[4] = 7; return b }},
		{"truncated payload", func(b []byte) []byte { return b[:len(b)-1] }},
		{"trailing bytes", func(b []byte) []byte { return append(b, 0) }},
		{"count mismatch", func(b []byte) []byte { b[headerSize-4] = 5; return b }},
		{"zero resolution", func(b []byte) []byte { b[6] = 0; return b }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := tt.mutate(append([]byte(nil), good...))
			if _, err := Decode(b); !errors.Is(err, ErrBadFrame) {
				t.Errorf("err = %v, want ErrBadFrame", err)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Compression
// ---------------------------------------------------------------------------

func TestSnappy(t *testing.T) {
	f := sampleField()
	data, err := EncodeSnappy(Frame{Field: f, IndexMode: true})
	if err != nil {
		t.Fatal(err)
	}
	fr, err := DecodeSnappy(data)
	if err != nil {
		t.Fatal(err)
	}
	if !fr.IndexMode || fr.Field.Spec != f.Spec {
		t.Errorf("frame = %+v", fr)
	}
	if _, err := DecodeSnappy([]byte("not snappy")); !errors.Is(err, ErrBadFrame) {
		t.Errorf("garbage: err = %v", err)
	}
}

func TestWriteRead(t *testing.T) {
	f := sampleField()
	planar := &grid.Field{Spec: grid.NewPlanar(v3.Vec{Y: 1}, 4, 4, 2, 2), Samples: make([]field.Sample, 4)}

	var buf bytes.Buffer
	if err := Write(&buf, Frame{Field: f}, Frame{Field: planar, IndexMode: true}); err != nil {
		t.Fatal(err)
	}
	frames, err := Read(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if len(frames) != 2 {
		t.Fatalf("got %d frames", len(frames))
	}
	if frames[0].Field.Spec != f.Spec || frames[1].Field.Spec != planar.Spec || !frames[1].IndexMode {
		t.Errorf("frames = %+v", frames)
	}
}

func TestReadEmptyStream(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf); err != nil {
		t.Fatal(err)
	}
	frames, err := Read(&buf)
	if err != nil || len(frames) != 0 {
		t.Errorf("Read = %v, %v", frames, err)
	}
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "field.sgf.zst")
	if err := WriteFile(path, Frame{Field: sampleField()}); err != nil {
		t.Fatal(err)
	}
	frames, err := ReadFile(path)
	if err != nil || len(frames) != 1 {
		t.Fatalf("ReadFile = %v, %v", frames, err)
	}
	if _, err := ReadFile(filepath.Join(t.TempDir(), "missing")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing: err = %v", err)
	}
}
