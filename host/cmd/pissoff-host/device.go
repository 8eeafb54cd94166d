package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/shlex"
	"github.com/spf13/cobra"

	"pissoff/host/console"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Print the device name and firmware version",
	Args:  cobra.NoArgs,
	RunE:  runInfo,
}

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Record sensor dump lines as CSV",
	Long: "Switch the device to maintenance mode, start a sensor dump and print\n" +
		"each sample as CSV. The dump is stopped afterwards; the device stays\n" +
		"in maintenance mode unless --leave is given.",
	Args: cobra.NoArgs,
	RunE: runDump,
}

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Interactive device console",
	Long: "Lines typed are sent to the device as commands. Lines starting with\n" +
		"':' are handled locally:\n" +
		"  :quit              leave the console\n" +
		"  :sleep <duration>  pause before the next line\n" +
		"  :expect <line>     wait until the device prints the line",
	Args: cobra.NoArgs,
	RunE: runConsole,
}

var (
	minVersion string
	dumpRaw    bool
	dumpCount  int
	dumpLeave  bool
)

func init() {
	infoCmd.Flags().StringVar(&minVersion, "min-version", "", "Fail unless the firmware is at least this version")

	dumpCmd.Flags().BoolVar(&dumpRaw, "raw", false, "Dump the averaged raw sensor reading instead")
	dumpCmd.Flags().IntVarP(&dumpCount, "count", "n", 100, "Number of samples to record")
	dumpCmd.Flags().BoolVar(&dumpLeave, "leave", false, "Leave maintenance mode when done")
}

func runInfo(cmd *cobra.Command, args []string) error {
	s, port, err := openSession()
	if err != nil {
		return err
	}
	defer port.Close()

	name, v, err := s.Info()
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s v%s\n", name, v)
	if minVersion != "" {
		return console.RequireVersion(v, minVersion)
	}
	return nil
}

func runDump(cmd *cobra.Command, args []string) error {
	if dumpCount <= 0 {
		return fmt.Errorf("count must be positive, got %d", dumpCount)
	}
	s, port, err := openSession()
	if err != nil {
		return err
	}
	defer port.Close()

	if err := s.Command("main"); err != nil {
		return fmt.Errorf("failed to enter maintenance mode: %w", err)
	}
	start := "dump"
	if dumpRaw {
		start = "rawd"
	}
	if err := s.Command(start); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if dumpRaw {
		fmt.Fprintln(out, "sample,raw")
	} else {
		fmt.Fprintln(out, "sample,normalized,headroom")
	}
	err = recordDump(s, out, dumpCount, dumpRaw)
	if exitErr := s.Command("exit"); err == nil {
		err = exitErr
	}
	if err == nil && dumpLeave {
		err = s.Command("exit")
	}
	return err
}

// recordDump writes count samples as CSV, skipping lines that are not
// dump lines such as echoes and status messages
func recordDump(s *console.Session, w io.Writer, count int, raw bool) error {
	for n := 0; n < count; {
		line, err := s.ReadLine()
		if err != nil {
			return err
		}
		if raw {
			v, ok := console.ParseRawLine(line)
			if !ok {
				continue
			}
			fmt.Fprintf(w, "%d,%d\n", n, v)
		} else {
			sample, ok := console.ParseSensorLine(line)
			if !ok {
				continue
			}
			fmt.Fprintf(w, "%d,%d,%d\n", n, sample.Normalized, sample.Headroom)
		}
		n++
	}
	return nil
}

var errQuit = errors.New("quit")

func runConsole(cmd *cobra.Command, args []string) error {
	s, port, err := openSession()
	if err != nil {
		return err
	}
	defer port.Close()

	out := cmd.OutOrStdout()
	lines := make(chan string)
	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			line, err := s.ReadLine()
			if errors.Is(err, console.ErrTimeout) {
				select {
				case <-done:
					return
				default:
					continue
				}
			}
			if err != nil {
				return
			}
			select {
			case lines <- line:
			case <-done:
				return
			}
		}
	}()

	input := bufio.NewScanner(cmd.InOrStdin())
	for {
		drain(lines, out, 50*time.Millisecond)
		fmt.Fprint(out, "> ")
		if !input.Scan() {
			return input.Err()
		}
		text := strings.TrimSpace(input.Text())
		if text == "" {
			continue
		}
		if strings.HasPrefix(text, ":") {
			err := runMeta(text[1:], lines, out)
			if errors.Is(err, errQuit) {
				return nil
			}
			if err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
			}
			continue
		}
		if err := s.Send(text); err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
		}
	}
}

// drain prints device lines until none arrive for quiet
func drain(lines <-chan string, out io.Writer, quiet time.Duration) {
	for {
		select {
		case line := <-lines:
			fmt.Fprintln(out, line)
		case <-time.After(quiet):
			return
		}
	}
}

func runMeta(text string, lines <-chan string, out io.Writer) error {
	words, err := shlex.Split(text)
	if err != nil {
		return err
	}
	if len(words) == 0 {
		return fmt.Errorf("empty command")
	}
	switch words[0] {
	case "quit", "q":
		return errQuit
	case "sleep":
		if len(words) != 2 {
			return fmt.Errorf("usage: :sleep <duration>")
		}
		d, err := parseDuration(words[1])
		if err != nil {
			return err
		}
		drain(lines, out, d)
		return nil
	case "expect":
		if len(words) != 2 {
			return fmt.Errorf("usage: :expect <line>")
		}
		return expect(lines, out, words[1], opts.timeout)
	default:
		return fmt.Errorf("unknown meta command %q", words[0])
	}
}

// parseDuration accepts Go durations and bare seconds
func parseDuration(s string) (time.Duration, error) {
	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		return time.Duration(secs * float64(time.Second)), nil
	}
	return time.ParseDuration(s)
}

func expect(lines <-chan string, out io.Writer, want string, timeout time.Duration) error {
	deadline := time.After(timeout)
	for {
		select {
		case line := <-lines:
			fmt.Fprintln(out, line)
			if line == want {
				return nil
			}
		case <-deadline:
			return fmt.Errorf("%q not seen within %s", want, timeout)
		}
	}
}
