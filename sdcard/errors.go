package sdcard

import "errors"

// Error is a storage error code. The code is sticky: LastError returns
// it until the next failing call overwrites it.
type Error uint8

const (
	NoError                 Error = iota
	ErrTimeOut                    // The card did not answer in time
	ErrSendIfCondFailed           // Interface condition probe failed
	ErrReadOCRFailed              // Operating conditions register read failed
	ErrSetBlockLengthFailed       // The card rejected the 512 byte block length
	ErrReadBlockFailed            // The card rejected a read command
	ErrReadFailed                 // Bad data token or bus error
	ErrUnknownMagic               // Block 0 is not in the expected directory format
	ErrDirectoryFull              // More files than directory entries
)

// ErrEndOfBlock is returned by ReadData when the current block is done.
// Like io.EOF it may come with a final chunk of data.
var ErrEndOfBlock = errors.New("sdcard: end of block")

// Error implements the error interface
func (e Error) Error() string {
	switch e {
	case NoError:
		return "sdcard: no error"
	case ErrTimeOut:
		return "sdcard: timeout"
	case ErrSendIfCondFailed:
		return "sdcard: send interface condition failed"
	case ErrReadOCRFailed:
		return "sdcard: read OCR failed"
	case ErrSetBlockLengthFailed:
		return "sdcard: set block length failed"
	case ErrReadBlockFailed:
		return "sdcard: read command rejected"
	case ErrReadFailed:
		return "sdcard: read failed"
	case ErrUnknownMagic:
		return "sdcard: unknown directory magic"
	case ErrDirectoryFull:
		return "sdcard: directory full"
	default:
		return "sdcard: unknown error"
	}
}

// Code returns the single character shown on the console ('A' + code)
func (e Error) Code() byte {
	return 'A' + byte(e)
}

// IsNegotiationFailure reports whether the error came from the
// interface or operating condition probes during bring-up
func (e Error) IsNegotiationFailure() bool {
	return e == ErrSendIfCondFailed || e == ErrReadOCRFailed
}
