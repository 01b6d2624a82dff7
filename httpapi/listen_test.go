package httpapi

import (
	"context"
	"net"
	"testing"
)

func TestListenFallsBackToEphemeralPort(t *testing.T) {
	occupier, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("occupy port: %v", err)
	}
	defer func() { _ = occupier.Close() }()
	taken := occupier.Addr().(*net.TCPAddr).Port

	listener, bound, err := Listen(context.Background(), "127.0.0.1", taken)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer func() { _ = listener.Close() }()

	if bound == taken {
		t.Fatalf("expected fallback to a different port, still on %d", bound)
	}
	if bound == 0 {
		t.Fatalf("expected a concrete bound port")
	}
}

func TestListenReportsBoundPort(t *testing.T) {
	listener, bound, err := Listen(context.Background(), "127.0.0.1", 0)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer func() { _ = listener.Close() }()

	if got := listener.Addr().(*net.TCPAddr).Port; got != bound {
		t.Fatalf("reported port %d, listener on %d", bound, got)
	}
}

func TestConfigNormalize(t *testing.T) {
	cfg := Config{}.Normalize()
	if cfg.Host != "127.0.0.1" || cfg.Port != DefaultPort || cfg.SendBuffer != 256 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}

	cfg = Config{Host: "0.0.0.0", Port: 9000, SendBuffer: 8, Welcome: "hi"}.Normalize()
	if cfg.Host != "0.0.0.0" || cfg.Port != 9000 || cfg.SendBuffer != 8 || cfg.Welcome != "hi" {
		t.Fatalf("explicit settings must be preserved: %+v", cfg)
	}
}
