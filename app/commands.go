package app

import "pissoff/console"

// command indexes the command table
type command uint8

const (
	cmdMain command = iota // Enter maintenance mode
	cmdExit                // Leave maintenance or a dump mode
	cmdDump                // Start the sensor dump
	cmdPlay                // Play the next sound
	cmdCali                // Calibrate the sensor
	cmdInfo                // Firmware name and version
	cmdRawd                // Start the raw sensor dump
	cmdHelp                // List the commands
	cmdUnknown command = 0xff
)

// commands holds the 4-character tokens, indexed by command
var commands = [...][4]byte{
	{'m', 'a', 'i', 'n'},
	{'e', 'x', 'i', 't'},
	{'d', 'u', 'm', 'p'},
	{'p', 'l', 'a', 'y'},
	{'c', 'a', 'l', 'i'},
	{'i', 'n', 'f', 'o'},
	{'r', 'a', 'w', 'd'},
	{'h', 'e', 'l', 'p'},
}

// lookupCommand matches the first four characters of a line.
// Shorter lines are zero padded and never match.
func lookupCommand(line *[console.BufferSize]byte) command {
	token := [4]byte{line[0], line[1], line[2], line[3]}
	for i, c := range commands {
		if c == token {
			return command(i)
		}
	}
	return cmdUnknown
}

// appendHelp lists every command, comma separated
func appendHelp(buf []byte) []byte {
	buf = append(buf, "Available commands: "...)
	for i, c := range commands {
		if i > 0 {
			buf = append(buf, ',', ' ')
		}
		buf = append(buf, c[:]...)
	}
	return buf
}
