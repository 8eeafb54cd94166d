package image

import (
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Manifest lists the sounds to put on a card image, in playback order
type Manifest struct {
	Files []ManifestFile `yaml:"files"`
}

// ManifestFile is one sound in the manifest
type ManifestFile struct {
	Name string `yaml:"name"` // Name shown on the console, defaults to the base file name
	Path string `yaml:"path"` // WAV (8-bit mono) or raw unsigned 8-bit samples
}

// LoadManifest parses a YAML manifest
func LoadManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	if len(m.Files) == 0 {
		return nil, fmt.Errorf("manifest lists no files")
	}
	for i := range m.Files {
		f := &m.Files[i]
		if f.Path == "" {
			return nil, fmt.Errorf("manifest entry %d has no path", i)
		}
		if f.Name == "" {
			base := filepath.Base(f.Path)
			f.Name = strings.ToLower(strings.TrimSuffix(base, filepath.Ext(base)))
		}
	}
	return &m, nil
}

// Build reads every manifest file through readFile and assembles the image.
// Returns the image and the sample rate of every WAV whose rate is not
// the device rate, keyed by name.
func (m *Manifest) Build(readFile func(string) ([]byte, error)) ([]byte, map[string]uint32, error) {
	b := NewBuilder()
	mismatched := make(map[string]uint32)
	for _, f := range m.Files {
		data, err := readFile(f.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read %s: %w", f.Path, err)
		}
		samples := data
		if strings.EqualFold(filepath.Ext(f.Path), ".wav") {
			var rate uint32
			samples, rate, err = DecodeWAV(data)
			if err != nil {
				return nil, nil, fmt.Errorf("failed to decode %s: %w", f.Path, err)
			}
			if rate != SampleRate {
				mismatched[f.Name] = rate
			}
		}
		if err := b.Add(f.Name, samples); err != nil {
			return nil, nil, err
		}
	}
	img, err := b.Bytes()
	if err != nil {
		return nil, nil, err
	}
	return img, mismatched, nil
}
