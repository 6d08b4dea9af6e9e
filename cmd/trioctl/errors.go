package main

import (
	"errors"
	"net"
	"os"
	"strconv"
	"syscall"
)

// describeError turns a command failure into the single line printed on
// stderr.
func describeError(err error, port int) string {
	switch {
	case errors.Is(err, syscall.ECONNREFUSED):
		return "Connection refused on port " + strconv.Itoa(port)
	case isTimeout(err):
		return "Connection timed out"
	default:
		return "Error: " + err.Error()
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}

	var netErr net.Error

	return errors.As(err, &netErr) && netErr.Timeout()
}
