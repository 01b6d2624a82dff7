package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"syscall"
	"time"

	"pkt.systems/pslog"
)

const shutdownTimeout = 5 * time.Second

// Listen binds the configured host and port. When the port is already
// taken it retries once on an OS-assigned ephemeral port; every other
// bind failure is returned as-is. The second return value is the port
// actually bound, for the host application to surface to the operator.
func Listen(ctx context.Context, host string, port int) (net.Listener, int, error) {
	logger := pslog.Ctx(ctx)
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		if !errors.Is(err, syscall.EADDRINUSE) {
			return nil, 0, err
		}
		logger.Warn("port in use, retrying on ephemeral port", "addr", addr)
		listener, err = net.Listen("tcp", net.JoinHostPort(host, "0"))
		if err != nil {
			return nil, 0, err
		}
	}
	bound := listener.Addr().(*net.TCPAddr).Port
	logger.Info("listening", "host", host, "port", bound)
	return listener, bound, nil
}

// Serve runs an HTTP server on the listener and shuts it down on
// context cancellation.
func Serve(ctx context.Context, listener net.Listener, handler http.Handler) error {
	logger := pslog.Ctx(ctx)
	server := &http.Server{
		Handler:  handler,
		ErrorLog: pslog.LogLoggerWithLevel(logger, pslog.ErrorLevel),
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Serve(listener)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
