package http

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
)

// Failure categories reported by [Classify].
var (
	// ErrTimeout is returned when a request exceeded its deadline.
	ErrTimeout = errors.New("http: timeout")

	// ErrConnection is returned when the remote host could not be reached.
	ErrConnection = errors.New("http: connection failed")
)

// Classify wraps err with [ErrTimeout] or [ErrConnection] when it matches
// one of those categories. Other errors, and nil, are returned unchanged.
func Classify(err error) error {
	if err == nil || errors.Is(err, ErrTimeout) || errors.Is(err, ErrConnection) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return fmt.Errorf("%w: %w", ErrConnection, err)
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return fmt.Errorf("%w: %w", ErrConnection, err)
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return fmt.Errorf("%w: %w", ErrConnection, err)
	}
	return err
}
