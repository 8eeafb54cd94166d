package app

import "pissoff/core"

const (
	dumpBarWidth    = 32
	rawDumpBarWidth = 64
)

// appendBar draws a bar that is filled up to and including position level
func appendBar(buf []byte, width int, level uint32, fill byte) []byte {
	buf = append(buf, '[')
	for i := 0; i < width; i++ {
		if uint32(i) <= level {
			buf = append(buf, fill)
		} else {
			buf = append(buf, ' ')
		}
	}
	return append(buf, ']')
}

// appendSensorDump renders one sensor dump line without the newline:
// signal and headroom in hex, then both as bars.
func appendSensorDump(buf []byte, normalized, headroom uint16, normalizedMax uint16) []byte {
	buf = append(buf, "Sd: "...)
	buf = core.AppendHexWord(buf, normalized)
	buf = append(buf, " Shr: "...)
	buf = core.AppendHexWord(buf, headroom)
	buf = append(buf, ' ')
	buf = appendBar(buf, dumpBarWidth, uint32(normalized)*dumpBarWidth/uint32(normalizedMax), '#')
	return appendBar(buf, dumpBarWidth, uint32(headroom)>>7, '%')
}

// appendRawDump renders one raw sensor dump line without the newline
func appendRawDump(buf []byte, value uint16) []byte {
	buf = append(buf, "Savg: "...)
	buf = core.AppendHexWord(buf, value)
	buf = append(buf, ' ')
	return appendBar(buf, rawDumpBarWidth, uint32(value)>>6, '#')
}
