package core

const hexChars = "0123456789abcdef"

// Itoa converts an integer to a string without using fmt package
// This is a lightweight alternative for embedded systems
func Itoa(n int) string {
	if n == 0 {
		return "0"
	}

	negative := n < 0
	if negative {
		n = -n
	}

	// Count digits
	temp := n
	digits := 0
	for temp > 0 {
		digits++
		temp /= 10
	}

	// Add space for negative sign
	if negative {
		digits++
	}

	// Build string from right to left
	buf := make([]byte, digits)
	pos := digits - 1

	for n > 0 {
		buf[pos] = byte('0' + n%10)
		n /= 10
		pos--
	}

	if negative {
		buf[0] = '-'
	}

	return string(buf)
}

// Utoa converts an unsigned integer to a string
func Utoa(n uint32) string {
	if n == 0 {
		return "0"
	}

	// Count digits
	temp := n
	digits := 0
	for temp > 0 {
		digits++
		temp /= 10
	}

	buf := make([]byte, digits)
	pos := digits - 1

	for n > 0 {
		buf[pos] = byte('0' + n%10)
		n /= 10
		pos--
	}

	return string(buf)
}

// AppendHexByte appends two lowercase hex digits
func AppendHexByte(buf []byte, b uint8) []byte {
	return append(buf, hexChars[b>>4], hexChars[b&0x0f])
}

// AppendHexWord appends four lowercase hex digits.
// Only the low 16 bits are shown, like the device console does.
func AppendHexWord(buf []byte, w uint16) []byte {
	buf = AppendHexByte(buf, uint8(w>>8))
	return AppendHexByte(buf, uint8(w))
}

// HexWord formats the low 16 bits of a value as four hex digits
func HexWord(w uint16) string {
	var buf [4]byte
	return string(AppendHexWord(buf[:0], w))
}
