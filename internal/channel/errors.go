package channel

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// AdapterError classifies delivery failures as transient/permanent.
type AdapterError struct {
	Channel    string
	StatusCode int
	Message    string
	Transient  bool
	Cause      error
}

func (e *AdapterError) Error() string {
	if e == nil {
		return "<nil>"
	}

	parts := make([]string, 0, 5)
	parts = append(parts, "adapter error")

	if ch := strings.TrimSpace(e.Channel); ch != "" {
		parts = append(parts, fmt.Sprintf("channel=%s", strings.ToLower(ch)))
	}
	if e.StatusCode > 0 {
		parts = append(parts, fmt.Sprintf("status=%d", e.StatusCode))
	}
	if msg := strings.TrimSpace(e.Message); msg != "" {
		parts = append(parts, msg)
	}
	if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}

	return strings.Join(parts, ": ")
}

func (e *AdapterError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// IsTransient reports whether a send failure is worth retrying.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	var adapterErr *AdapterError
	if errors.As(err, &adapterErr) {
		return adapterErr.Transient
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}

	return false
}
