package image

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"pissoff/media"
)

func TestBuildAndParse(t *testing.T) {
	b := NewBuilder()
	if err := b.Add("bark", bytes.Repeat([]byte{0x10}, 700)); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := b.Add("meow", bytes.Repeat([]byte{0x20}, 512)); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := b.Add("hiss", []byte{1, 2, 3}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	img, err := b.Bytes()
	if err != nil {
		t.Fatalf("Bytes failed: %v", err)
	}
	if len(img) != 5*media.BlockSize {
		t.Errorf("Expected 5 blocks, got %d bytes", len(img))
	}

	records, err := Parse(img)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	expected := []media.Record{
		{StartBlock: 1, FileSize: 700, Name: "bark"},
		{StartBlock: 3, FileSize: 512, Name: "meow"},
		{StartBlock: 4, FileSize: 3, Name: "hiss"},
	}
	if len(records) != len(expected) {
		t.Fatalf("Expected %d records, got %d", len(expected), len(records))
	}
	for i := range expected {
		if records[i] != expected[i] {
			t.Errorf("Record %d: expected %+v, got %+v", i, expected[i], records[i])
		}
	}

	data, err := Extract(img, records[2])
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if !bytes.Equal(data, []byte{1, 2, 3}) {
		t.Errorf("Expected 01 02 03, got % x", data)
	}
	if img[4*media.BlockSize+3] != padByte {
		t.Errorf("Expected padding %#x after file, got %#x", padByte, img[4*media.BlockSize+3])
	}
}

func TestEmptyImage(t *testing.T) {
	img, err := NewBuilder().Bytes()
	if err != nil {
		t.Fatalf("Bytes failed: %v", err)
	}
	records, err := Parse(img)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("Expected no records, got %d", len(records))
	}
}

func TestDirectoryTooLarge(t *testing.T) {
	b := NewBuilder()
	for i := 0; i < 3; i++ {
		if err := b.Add(string(bytes.Repeat([]byte{'a' + byte(i)}, 200)), []byte{0}); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
	}
	if _, err := b.Bytes(); !errors.Is(err, ErrDirectoryTooLarge) {
		t.Errorf("Expected ErrDirectoryTooLarge, got %v", err)
	}
}

func TestAddRejectsBadNames(t *testing.T) {
	b := NewBuilder()
	for _, name := range []string{"", "tab\there", string(bytes.Repeat([]byte{'x'}, 256))} {
		if err := b.Add(name, nil); err == nil {
			t.Errorf("Expected error for name %q", name)
		}
	}
}

func TestParseBadMagic(t *testing.T) {
	img := make([]byte, media.BlockSize)
	copy(img, "XXXX")
	if _, err := Parse(img); !errors.Is(err, media.ErrBadMagic) {
		t.Errorf("Expected ErrBadMagic, got %v", err)
	}
}

func makeWAV(channels, bits uint16, rate uint32, samples []byte) []byte {
	var buf bytes.Buffer
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(4+8+16+8+len(samples)))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1))
	binary.Write(&buf, binary.LittleEndian, channels)
	binary.Write(&buf, binary.LittleEndian, rate)
	binary.Write(&buf, binary.LittleEndian, rate*uint32(channels)*uint32(bits/8))
	binary.Write(&buf, binary.LittleEndian, channels*bits/8)
	binary.Write(&buf, binary.LittleEndian, bits)
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(len(samples)))
	buf.Write(samples)
	return buf.Bytes()
}

func TestDecodeWAV(t *testing.T) {
	samples, rate, err := DecodeWAV(makeWAV(1, 8, 44100, []byte{0x80, 0xff, 0x00}))
	if err != nil {
		t.Fatalf("DecodeWAV failed: %v", err)
	}
	if rate != 44100 {
		t.Errorf("Expected rate 44100, got %d", rate)
	}
	if !bytes.Equal(samples, []byte{0x80, 0xff, 0x00}) {
		t.Errorf("Unexpected samples % x", samples)
	}
}

func TestDecodeWAVRejectsStereo(t *testing.T) {
	if _, _, err := DecodeWAV(makeWAV(2, 8, 44100, []byte{0, 0})); err == nil {
		t.Error("Expected error for stereo input")
	}
	if _, _, err := DecodeWAV(makeWAV(1, 16, 44100, []byte{0, 0})); err == nil {
		t.Error("Expected error for 16-bit input")
	}
	if _, _, err := DecodeWAV([]byte("not a wav file")); !errors.Is(err, ErrNotWAV) {
		t.Errorf("Expected ErrNotWAV, got %v", err)
	}
}

func TestManifestBuild(t *testing.T) {
	manifest := []byte(`
files:
  - path: sounds/Bark.wav
  - name: beep
    path: sounds/beep.raw
`)
	m, err := LoadManifest(manifest)
	if err != nil {
		t.Fatalf("LoadManifest failed: %v", err)
	}
	if m.Files[0].Name != "bark" {
		t.Errorf("Expected default name bark, got %s", m.Files[0].Name)
	}

	files := map[string][]byte{
		"sounds/Bark.wav": makeWAV(1, 8, 22050, []byte{1, 2, 3, 4}),
		"sounds/beep.raw": {9, 9},
	}
	img, mismatched, err := m.Build(func(path string) ([]byte, error) {
		data, ok := files[path]
		if !ok {
			return nil, errors.New("missing")
		}
		return data, nil
	})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if mismatched["bark"] != 22050 {
		t.Errorf("Expected bark reported at 22050 Hz, got %v", mismatched)
	}

	records, err := Parse(img)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(records) != 2 || records[0].FileSize != 4 || records[1].Name != "beep" {
		t.Errorf("Unexpected records %+v", records)
	}
}

func TestManifestRequiresFiles(t *testing.T) {
	if _, err := LoadManifest([]byte("files: []")); err == nil {
		t.Error("Expected error for empty manifest")
	}
	if _, err := LoadManifest([]byte("files:\n  - name: x\n")); err == nil {
		t.Error("Expected error for entry without path")
	}
}
