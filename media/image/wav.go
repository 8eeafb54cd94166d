package image

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// SampleRate is the playback rate of the device
const SampleRate = 44100

var ErrNotWAV = errors.New("image: not a RIFF/WAVE file")

// DecodeWAV extracts unsigned 8-bit mono PCM samples from a WAV file
func DecodeWAV(data []byte) ([]byte, uint32, error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, 0, ErrNotWAV
	}

	var (
		haveFormat bool
		rate       uint32
	)
	pos := 12
	for pos+8 <= len(data) {
		id := string(data[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))
		body := pos + 8
		if size < 0 || body+size > len(data) {
			return nil, 0, fmt.Errorf("image: chunk %q runs past end of file", id)
		}
		chunk := data[body : body+size]

		switch id {
		case "fmt ":
			if size < 16 {
				return nil, 0, errors.New("image: short fmt chunk")
			}
			format := binary.LittleEndian.Uint16(chunk[0:2])
			channels := binary.LittleEndian.Uint16(chunk[2:4])
			rate = binary.LittleEndian.Uint32(chunk[4:8])
			bits := binary.LittleEndian.Uint16(chunk[14:16])
			if format != 1 {
				return nil, 0, fmt.Errorf("image: unsupported WAV format %d, need PCM", format)
			}
			if channels != 1 || bits != 8 {
				return nil, 0, fmt.Errorf("image: need 8-bit mono, got %d-bit with %d channels", bits, channels)
			}
			haveFormat = true
		case "data":
			if !haveFormat {
				return nil, 0, errors.New("image: data chunk before fmt chunk")
			}
			return chunk, rate, nil
		}

		// Chunks are padded to even sizes
		pos = body + size + size&1
	}
	return nil, 0, errors.New("image: no data chunk")
}
