package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Confirm prompts the user for confirmation
func Confirm(prompt string, defaultYes bool) (bool, error) {
	if skipConfirm {
		return true, nil
	}

	suffix := " [y/N]: "
	if defaultYes {
		suffix = " [Y/n]: "
	}

	fmt.Print(prompt + suffix)

	reader := bufio.NewReader(os.Stdin)
	response, err := reader.ReadString('\n')
	if err != nil {
		return false, err
	}

	response = strings.ToLower(strings.TrimSpace(response))

	if response == "" {
		return defaultYes, nil
	}

	return response == "y" || response == "yes", nil
}

// message writes one status line, marked with symbol or, under
// --no-color, with label
func message(w io.Writer, symbol, label, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if noColor {
		fmt.Fprintf(w, "%s: %s\n", label, msg)
		return
	}
	fmt.Fprintf(w, "%s %s\n", symbol, msg)
}

// FprintSuccess writes a success message to w unless quiet mode is enabled
func FprintSuccess(w io.Writer, format string, args ...any) {
	if !quiet {
		message(w, "✓", "OK", format, args...)
	}
}

// FprintInfo writes an info message to w unless quiet mode is enabled
func FprintInfo(w io.Writer, format string, args ...any) {
	if !quiet {
		message(w, "ℹ", "INFO", format, args...)
	}
}

// FprintWarning writes a warning to w, even in quiet mode
func FprintWarning(w io.Writer, format string, args ...any) {
	message(w, "⚠", "WARNING", format, args...)
}

// FprintError writes an error to w, even in quiet mode
func FprintError(w io.Writer, format string, args ...any) {
	message(w, "✗", "ERROR", format, args...)
}

// PrintSuccess prints a success message unless quiet mode is enabled
func PrintSuccess(format string, args ...any) { FprintSuccess(os.Stdout, format, args...) }

// PrintInfo prints an info message unless quiet mode is enabled
func PrintInfo(format string, args ...any) { FprintInfo(os.Stdout, format, args...) }

// PrintWarning prints a warning message to stderr
func PrintWarning(format string, args ...any) { FprintWarning(os.Stderr, format, args...) }

// PrintError prints an error message to stderr
func PrintError(format string, args ...any) { FprintError(os.Stderr, format, args...) }

// Global flags (will be set from cmd package)
var (
	quiet       bool
	noColor     bool
	skipConfirm bool
	verbose     bool
)

// SetGlobalFlags sets the global flag values from the cmd package
func SetGlobalFlags(q, nc, sc, v bool) {
	quiet = q
	noColor = nc
	skipConfirm = sc
	verbose = v
}

// Verbose reports whether --verbose was given
func Verbose() bool {
	return verbose
}