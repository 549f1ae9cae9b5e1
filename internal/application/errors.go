package application

import (
	"context"
	"errors"
	"net"
)

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrConflict           = errors.New("email already registered")
	ErrUserNotFound       = errors.New("user not found")
	ErrServiceUnavailable = errors.New("service unavailable")
)

// mapInfraErr turns cache/persistence timeouts into a retryable error.
// Everything else propagates unchanged to the handler layer.
func mapInfraErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrServiceUnavailable
	}
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return ErrServiceUnavailable
	}
	return err
}
