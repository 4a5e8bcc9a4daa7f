// Package netutil provides TCP port checks used around service starts.
package netutil

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"
)

// dialTimeout bounds a single connection attempt.
const dialTimeout = 2 * time.Second

// pollInterval is how often WaitForPort retries.
var pollInterval = 500 * time.Millisecond

// WaitForPort waits for a TCP port to accept connections on host.
// It retries until the port is reachable or the timeout is reached.
func WaitForPort(ctx context.Context, host string, port int, timeout time.Duration) error {
	address := net.JoinHostPort(host, strconv.Itoa(port))
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// Check immediately before waiting for ticker
	if IsOpen(ctx, host, port) {
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			if ctx.Err() == context.DeadlineExceeded {
				return fmt.Errorf("timeout waiting for %s", address)
			}
			return ctx.Err()
		case <-ticker.C:
			if IsOpen(ctx, host, port) {
				return nil
			}
		}
	}
}

// IsOpen reports whether something accepts TCP connections on host:port.
func IsOpen(ctx context.Context, host string, port int) bool {
	d := net.Dialer{Timeout: dialTimeout}
	conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

// BusyPorts returns the ports of ports that already accept connections on
// the local host.
func BusyPorts(ctx context.Context, ports ...int) []int {
	var busy []int
	for _, p := range ports {
		if IsOpen(ctx, "127.0.0.1", p) {
			busy = append(busy, p)
		}
	}
	return busy
}
