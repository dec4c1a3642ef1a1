// Package ui holds the sender/receiver CLI's interactive collaborators:
// extension extraction, the discovered-device chooser menu, and progress
// reporting.
package ui

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ventosilenzioso/dropline/internal/discovery"
)

// ExtractExtension returns the substring after the final '.' in path, or ""
// if path has none.
func ExtractExtension(path string) string {
	i := strings.LastIndexByte(path, '.')
	if i < 0 {
		return ""
	}
	return path[i+1:]
}

// ChooseDevice prints the discovered devices and repeatedly prompts until
// the user enters a valid 1-based index, returning the chosen device.
func ChooseDevice(out io.Writer, in io.Reader, devices []discovery.Device) (discovery.Device, error) {
	if len(devices) == 0 {
		return discovery.Device{}, fmt.Errorf("ui: no devices to choose from")
	}

	fmt.Fprintln(out, "Discovered Devices:")
	fmt.Fprintln(out)
	for i, d := range devices {
		fmt.Fprintf(out, "%d) %s port: %d\n", i+1, d.Name, d.Port)
	}

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Enter choice:")
		if !scanner.Scan() {
			return discovery.Device{}, fmt.Errorf("ui: no more input while choosing a device")
		}
		choice, err := strconv.Atoi(strings.TrimSpace(scanner.Text()))
		if err != nil || choice < 1 || choice > len(devices) {
			continue
		}
		return devices[choice-1], nil
	}
}

// PrintProgress renders one "Progress: N% (done/total chunks acked)" line,
// used as a transfer.ProgressFunc so every whole percentage point prints
// exactly once, in order.
func PrintProgress(out io.Writer) func(percent int, done, total uint32) {
	return func(percent int, done, total uint32) {
		fmt.Fprintf(out, "Progress: %d%% (%d/%d chunks acked)\n", percent, done, total)
	}
}
