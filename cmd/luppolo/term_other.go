//go:build !linux && !darwin && !freebsd && !netbsd && !openbsd

package main

import "os"

// isTerminal is false where termios is unavailable; the REPL then reads
// plain lines.
func isTerminal(*os.File) bool {
	return false
}
