// Package natsutil classifies errors returned by the NATS client.
package natsutil

import (
	"errors"
	"strings"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/arloliu/pulse/types"
)

// IsConnectivityError reports whether err means NATS could not be reached.
//
// Kept out of types/ so that package stays free of NATS imports.
//
// Parameters:
//   - err: Error to check
//
// Returns:
//   - bool: true for timeouts, closed or missing connections and refused dials
func IsConnectivityError(err error) bool {
	if err == nil {
		return false
	}

	return errors.Is(err, types.ErrConnectivity) ||
		errors.Is(err, nats.ErrTimeout) ||
		errors.Is(err, nats.ErrNoServers) ||
		errors.Is(err, nats.ErrDisconnected) ||
		errors.Is(err, nats.ErrConnectionClosed) ||
		errors.Is(err, jetstream.ErrNoStreamResponse) ||
		strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "i/o timeout")
}
