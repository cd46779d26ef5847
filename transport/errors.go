package transport

import (
	"fmt"
)

// ShutdownError is a broker shutdown signal. Hard signals terminate the
// whole connection; soft signals only close the channel they occurred on.
type ShutdownError struct {
	Code   int
	Reason string
	// Server is true when the broker initiated the shutdown
	Server bool
	Hard   bool
	Cause  error
}

func (e *ShutdownError) Error() string {
	scope := "channel"
	if e.Hard {
		scope = "connection"
	}
	origin := "client"
	if e.Server {
		origin = "server"
	}
	return fmt.Sprintf("%s shutdown (%s initiated): %d %s", scope, origin, e.Code, e.Reason)
}

func (e *ShutdownError) Unwrap() error {
	return e.Cause
}
