package api

import (
	"context"
	"testing"
	"time"
)

func TestServer_StartStopsOnContextCancel(t *testing.T) {
	cfg := APIConfig{Host: "127.0.0.1", Port: 18089}
	srv := NewServer(cfg, nil, nil, "")

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- srv.Start(ctx)
	}()

	// Give the listener a moment to come up, then cancel.
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Expected graceful shutdown, got: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Server did not stop after context cancellation")
	}
}

func TestServer_StopIsIdempotent(t *testing.T) {
	cfg := APIConfig{Host: "127.0.0.1", Port: 18090}
	srv := NewServer(cfg, nil, nil, "")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := srv.Stop(ctx); err != nil {
		t.Errorf("First Stop failed: %v", err)
	}
	if err := srv.Stop(ctx); err != nil {
		t.Errorf("Second Stop failed: %v", err)
	}
}

func TestServer_AppliesDefaults(t *testing.T) {
	srv := NewServer(APIConfig{}, nil, nil, "")

	if srv.Port() != 8080 {
		t.Errorf("Expected default port 8080, got %d", srv.Port())
	}
	if srv.Addr() != "127.0.0.1:8080" {
		t.Errorf("Expected default addr 127.0.0.1:8080, got %s", srv.Addr())
	}
}
