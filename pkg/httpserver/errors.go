package httpserver

import "errors"

var (
	// ErrStart indicates that the server failed to bind or serve.
	ErrStart = errors.New("failed to start HTTP server")
	// ErrShutdown indicates that graceful shutdown or a closer failed.
	ErrShutdown = errors.New("failed to shutdown HTTP server gracefully")
)
