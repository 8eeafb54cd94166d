// Package image builds and inspects card images in the directory
// format the firmware reads. Images are written raw to the card.
package image

import (
	"errors"
	"fmt"

	"pissoff/media"
)

// padByte fills the unused tail of each file's last block (mid-scale silence)
const padByte = 0x80

var ErrDirectoryTooLarge = errors.New("image: directory does not fit in block 0")

// File is a named sound to place on the image
type File struct {
	Name string
	Data []byte
}

// Builder assembles an image: the directory in block 0, then every
// file starting on its own block in the order added.
type Builder struct {
	files []File
}

// NewBuilder creates an empty image builder
func NewBuilder() *Builder {
	return &Builder{}
}

// Add appends a file to the image
func (b *Builder) Add(name string, data []byte) error {
	if err := validateName(name); err != nil {
		return err
	}
	if uint64(len(data)) > 0xffffffff {
		return fmt.Errorf("file %q too large: %d bytes", name, len(data))
	}
	b.files = append(b.files, File{Name: name, Data: data})
	return nil
}

// Records returns the directory the image will carry
func (b *Builder) Records() []media.Record {
	records := make([]media.Record, 0, len(b.files))
	next := uint32(1) // Block 0 holds the directory
	for _, f := range b.files {
		records = append(records, media.Record{
			StartBlock: next,
			FileSize:   uint32(len(f.Data)),
			Name:       f.Name,
		})
		blocks := media.Blocks(uint32(len(f.Data)))
		if blocks == 0 {
			blocks = 1 // Empty files still own a block so start blocks stay unique
		}
		next += blocks
	}
	return records
}

// Bytes renders the complete image
func (b *Builder) Bytes() ([]byte, error) {
	records := b.Records()
	if media.DirectorySize(records) > media.BlockSize {
		return nil, ErrDirectoryTooLarge
	}

	dir := make([]byte, 0, media.BlockSize)
	dir = append(dir, media.Magic...)
	for _, r := range records {
		dir = media.AppendRecord(dir, r)
	}
	dir = media.AppendTerminator(dir)

	total := uint32(1)
	if n := len(records); n > 0 {
		last := records[n-1]
		blocks := media.Blocks(last.FileSize)
		if blocks == 0 {
			blocks = 1
		}
		total = last.StartBlock + blocks
	}

	img := make([]byte, int(total)*media.BlockSize)
	copy(img, dir)
	for i, r := range records {
		start := int(r.StartBlock) * media.BlockSize
		n := copy(img[start:], b.files[i].Data)
		end := start + int(max(media.Blocks(r.FileSize), 1))*media.BlockSize
		for j := start + n; j < end; j++ {
			img[j] = padByte
		}
	}
	return img, nil
}

func validateName(name string) error {
	if name == "" {
		return errors.New("image: empty file name")
	}
	if len(name) > media.MaxNameLength {
		return fmt.Errorf("image: file name %q longer than %d bytes", name, media.MaxNameLength)
	}
	for i := 0; i < len(name); i++ {
		if name[i] < 0x20 || name[i] > 0x7e {
			return fmt.Errorf("image: file name %q contains non-printable byte at %d", name, i)
		}
	}
	return nil
}
