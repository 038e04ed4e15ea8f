package main

import (
	"io"
	"log"
	"os"
	"strings"
)

// For log management, use journalctl commands:
//   - View logs: journalctl -u torrent-bot
//   - Follow logs: journalctl -u torrent-bot -f
//   - View errors: journalctl -u torrent-bot -p err
// Refer to the documentation for details on systemd unit setup.

var (
	InfoLogger  *log.Logger
	ErrorLogger *log.Logger
	DebugLogger *log.Logger
)

// initLoggers sets up separate loggers for stdout and stderr.
// The debug logger is silenced unless level is DEBUG.
func initLoggers(level string) {
	InfoLogger = log.New(os.Stdout, "INFO: ", log.Ldate|log.Ltime|log.Lshortfile)
	ErrorLogger = log.New(os.Stderr, "ERROR: ", log.Ldate|log.Ltime|log.Lshortfile)

	debugOut := io.Discard
	if strings.EqualFold(level, "DEBUG") {
		debugOut = os.Stdout
	}
	DebugLogger = log.New(debugOut, "DEBUG: ", log.Ldate|log.Ltime|log.Lshortfile)
}
