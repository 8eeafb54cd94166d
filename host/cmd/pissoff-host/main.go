// Command pissoff-host talks to the device console and builds card images.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"pissoff/host/console"
	"pissoff/host/serial"
)

type rootOptions struct {
	device  string
	baud    int
	timeout time.Duration
}

var opts rootOptions

var rootCmd = &cobra.Command{
	Use:           "pissoff-host",
	Short:         "Host tools for the PissOff proximity sound device.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetOut(os.Stdout)
	rootCmd.SetErr(os.Stderr)

	rootCmd.PersistentFlags().StringVarP(&opts.device, "device", "d", "/dev/ttyACM0", "Serial device path")
	rootCmd.PersistentFlags().IntVarP(&opts.baud, "baud", "b", 115200, "Baud rate of the device console")
	rootCmd.PersistentFlags().DurationVarP(&opts.timeout, "timeout", "t", 5*time.Second, "How long to wait for each line from the device")

	rootCmd.AddCommand(consoleCmd, dumpCmd, infoCmd, imageCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// openSession opens the serial device named by the root flags
func openSession() (*console.Session, serial.Port, error) {
	cfg := serial.DefaultConfig(opts.device)
	cfg.Baud = opts.baud
	port, err := serial.Open(cfg)
	if err != nil {
		return nil, nil, err
	}
	if err := port.Flush(); err != nil {
		port.Close()
		return nil, nil, fmt.Errorf("failed to flush %s: %w", opts.device, err)
	}
	return console.NewSession(port, opts.timeout), port, nil
}
