package main

import (
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/vyrodovalexey/itemstore/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		ServerPort:         0,
		ShutdownTimeout:    5 * time.Second,
		ReadTimeout:        config.DefaultReadTimeout,
		WriteTimeout:       config.DefaultWriteTimeout,
		MaxBodyBytes:       config.DefaultMaxBodyBytes,
		LogLevel:           config.DefaultLogLevel,
		CORSEnabled:        true,
		CORSAllowedOrigins: []string{"*"},
		ServiceName:        config.DefaultServiceName,
	}
}

func TestServe_StopsOnCancel(t *testing.T) {
	// Arrange
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	// Act
	go func() { done <- serve(ctx, testConfig(), zap.NewNop()) }()
	time.Sleep(100 * time.Millisecond)
	cancel()

	// Assert
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("serve() error = %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("serve() did not return after cancel")
	}
}

func TestServe_PortInUse(t *testing.T) {
	// Arrange
	occupied, err := net.Listen("tcp", ":0")
	if err != nil {
		t.Fatalf("failed to reserve port: %v", err)
	}
	defer occupied.Close()

	cfg := testConfig()
	cfg.ServerPort = occupied.Addr().(*net.TCPAddr).Port

	// Act
	err = serve(context.Background(), cfg, zap.NewNop())

	// Assert
	if err == nil {
		t.Fatal("serve() expected error for port in use, got nil")
	}
}

func TestServe_InvalidOTLPEndpoint(t *testing.T) {
	// Arrange
	cfg := testConfig()
	cfg.OTLPEndpoint = "http://"

	// Act
	err := serve(context.Background(), cfg, zap.NewNop())

	// Assert
	if err == nil {
		t.Fatal("serve() expected error for invalid OTLP endpoint, got nil")
	}
	if !strings.Contains(err.Error(), "initializing tracing") {
		t.Errorf("serve() error = %v, want tracing initialization error", err)
	}
}

func TestLogConfig(t *testing.T) {
	// Arrange
	core, logs := observer.New(zapcore.InfoLevel)
	cfg := testConfig()
	cfg.ServerPort = 3000

	// Act
	logConfig(zap.New(core), cfg)

	// Assert
	entries := logs.FilterMessage("configuration loaded").All()
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["server_port"] != int64(3000) {
		t.Errorf("server_port = %v, want 3000", fields["server_port"])
	}
	if fields["tracing_enabled"] != false {
		t.Errorf("tracing_enabled = %v, want false", fields["tracing_enabled"])
	}
}
