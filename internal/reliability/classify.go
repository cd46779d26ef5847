package reliability

import (
	"errors"
	"io"
	"net"

	"github.com/buybrain/HAmq/transport"
)

// IsNetworkError reports whether err is a socket-level failure or a hard
// (connection terminating) broker shutdown. Wrapped errors are inspected
// until the first shutdown signal or network error is found.
func IsNetworkError(err error) bool {
	for e := err; e != nil; e = errors.Unwrap(e) {
		switch v := e.(type) {
		case *transport.ShutdownError:
			return v.Hard
		case net.Error:
			return true
		}
		if e == io.EOF || e == io.ErrUnexpectedEOF {
			return true
		}
	}
	return false
}

// ShouldReconnectToRecover reports whether the channel and connection that
// produced err must be rebuilt. This holds for network errors and for any
// broker shutdown, hard or soft.
func ShouldReconnectToRecover(err error) bool {
	if IsNetworkError(err) {
		return true
	}
	var shutdown *transport.ShutdownError
	return errors.As(err, &shutdown)
}
