// Package media describes the on-media directory format read by the
// firmware: block 0 starts with a magic value, followed by records of
// start block, file size and name, ended by a record with start block 0.
package media

import (
	"encoding/binary"
	"errors"
)

// Format constants
const (
	BlockSize     = 512    // Addressable unit on the card
	Magic         = "HCDI" // First four bytes of block 0
	MagicSize     = 4
	HeaderSize    = 9 // u32 start block, u32 size, u8 name length
	MaxNameLength = 255
)

var (
	ErrBadMagic  = errors.New("media: unknown directory magic")
	ErrTruncated = errors.New("media: truncated directory record")
)

// Record is one directory entry as stored on the media
type Record struct {
	StartBlock uint32 // First block of the file
	FileSize   uint32 // Size in bytes
	Name       string
}

// Header is the fixed part of a record
type Header struct {
	StartBlock uint32
	FileSize   uint32
	NameLength uint8
}

// IsTerminator reports whether the header ends the directory
func (h Header) IsTerminator() bool {
	return h.StartBlock == 0
}

// DecodeHeader decodes the fixed 9 byte part of a record
func DecodeHeader(b []byte) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, ErrTruncated
	}
	return Header{
		StartBlock: binary.LittleEndian.Uint32(b[0:4]),
		FileSize:   binary.LittleEndian.Uint32(b[4:8]),
		NameLength: b[8],
	}, nil
}

// AppendHeader encodes the fixed part of a record
func AppendHeader(buf []byte, h Header) []byte {
	buf = binary.LittleEndian.AppendUint32(buf, h.StartBlock)
	buf = binary.LittleEndian.AppendUint32(buf, h.FileSize)
	return append(buf, h.NameLength)
}

// AppendRecord encodes a complete record. Names longer than
// MaxNameLength are cut.
func AppendRecord(buf []byte, r Record) []byte {
	name := r.Name
	if len(name) > MaxNameLength {
		name = name[:MaxNameLength]
	}
	buf = AppendHeader(buf, Header{StartBlock: r.StartBlock, FileSize: r.FileSize, NameLength: uint8(len(name))})
	return append(buf, name...)
}

// AppendTerminator encodes the record that ends the directory
func AppendTerminator(buf []byte) []byte {
	return AppendHeader(buf, Header{})
}

// CheckMagic verifies the first four bytes of block 0
func CheckMagic(b []byte) error {
	if len(b) < MagicSize || string(b[:MagicSize]) != Magic {
		return ErrBadMagic
	}
	return nil
}

// DirectorySize returns the encoded size of a directory
func DirectorySize(records []Record) int {
	size := MagicSize + HeaderSize
	for _, r := range records {
		n := len(r.Name)
		if n > MaxNameLength {
			n = MaxNameLength
		}
		size += HeaderSize + n
	}
	return size
}

// Blocks returns the number of blocks needed for size bytes
func Blocks(size uint32) uint32 {
	return (size + BlockSize - 1) / BlockSize
}
