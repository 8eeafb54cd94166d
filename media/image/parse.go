package image

import (
	"fmt"

	"pissoff/media"
)

// Parse reads the directory from block 0 of an image
func Parse(img []byte) ([]media.Record, error) {
	if len(img) < media.BlockSize {
		return nil, fmt.Errorf("image: %d bytes is shorter than one block", len(img))
	}
	block := img[:media.BlockSize]
	if err := media.CheckMagic(block); err != nil {
		return nil, err
	}

	var records []media.Record
	pos := media.MagicSize
	for {
		h, err := media.DecodeHeader(block[pos:])
		if err != nil {
			return nil, err
		}
		pos += media.HeaderSize
		if h.IsTerminator() {
			return records, nil
		}
		end := pos + int(h.NameLength)
		if end > len(block) {
			return nil, media.ErrTruncated
		}
		records = append(records, media.Record{
			StartBlock: h.StartBlock,
			FileSize:   h.FileSize,
			Name:       string(block[pos:end]),
		})
		pos = end
	}
}

// Extract returns the contents of one file in the image
func Extract(img []byte, r media.Record) ([]byte, error) {
	start := uint64(r.StartBlock) * media.BlockSize
	end := start + uint64(r.FileSize)
	if end > uint64(len(img)) {
		return nil, fmt.Errorf("image: file %q extends past the end of the image", r.Name)
	}
	return img[start:end], nil
}
