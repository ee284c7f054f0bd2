// Fitbit Exporter - Prometheus exporter for Fitbit health and activity data
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fitbit-exporter

package services

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"
)

const loopback = "127.0.0.1:0"

// fakeHTTPServer blocks in Serve until Shutdown is called.
type fakeHTTPServer struct {
	serveErr    error
	shutdownErr error
	serves      atomic.Int32
	shutdowns   atomic.Int32
	started     chan struct{}
	stopCh      chan struct{}
}

func newFakeHTTPServer() *fakeHTTPServer {
	return &fakeHTTPServer{
		started: make(chan struct{}, 1),
		stopCh:  make(chan struct{}),
	}
}

func (f *fakeHTTPServer) Serve(ln net.Listener) error {
	defer ln.Close()
	f.serves.Add(1)
	select {
	case f.started <- struct{}{}:
	default:
	}
	if f.serveErr != nil {
		return f.serveErr
	}
	<-f.stopCh
	return http.ErrServerClosed
}

func (f *fakeHTTPServer) Shutdown(ctx context.Context) error {
	if f.shutdowns.Add(1) == 1 {
		close(f.stopCh)
	}
	return f.shutdownErr
}

var _ suture.Service = (*HTTPServerService)(nil)

func TestNewHTTPServerService_DefaultTimeout(t *testing.T) {
	for _, timeout := range []time.Duration{0, -5 * time.Second} {
		svc := NewHTTPServerService(newFakeHTTPServer(), loopback, timeout)
		if svc.shutdownTimeout != 10*time.Second {
			t.Errorf("timeout %v: expected default 10s, got %v", timeout, svc.shutdownTimeout)
		}
	}
	if svc := NewHTTPServerService(newFakeHTTPServer(), loopback, 3*time.Second); svc.shutdownTimeout != 3*time.Second {
		t.Errorf("expected 3s, got %v", svc.shutdownTimeout)
	}
}

func TestHTTPServerService_Serve(t *testing.T) {
	t.Run("shuts down gracefully on context cancellation", func(t *testing.T) {
		server := newFakeHTTPServer()
		svc := NewHTTPServerService(server, loopback, time.Second)

		ctx, cancel := context.WithCancel(context.Background())
		errCh := make(chan error, 1)
		go func() { errCh <- svc.Serve(ctx) }()

		select {
		case <-server.started:
		case <-time.After(time.Second):
			t.Fatal("server did not start")
		}
		if addr := svc.boundAddr(); !strings.HasPrefix(addr, "127.0.0.1:") || addr == loopback {
			t.Errorf("bound address = %q", addr)
		}
		cancel()

		select {
		case err := <-errCh:
			if !errors.Is(err, context.Canceled) {
				t.Errorf("expected context.Canceled, got %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("Serve did not return after context cancellation")
		}
		if server.serves.Load() != 1 || server.shutdowns.Load() != 1 {
			t.Errorf("serves=%d shutdowns=%d", server.serves.Load(), server.shutdowns.Load())
		}
		if svc.boundAddr() != "" {
			t.Errorf("bound address should clear after stop, got %q", svc.boundAddr())
		}
	})

	t.Run("fails before serving when the address is in use", func(t *testing.T) {
		taken, err := net.Listen("tcp", loopback)
		if err != nil {
			t.Fatalf("listen: %v", err)
		}
		defer taken.Close()

		server := newFakeHTTPServer()
		err = NewHTTPServerService(server, taken.Addr().String(), time.Second).Serve(context.Background())
		if err == nil || !strings.Contains(err.Error(), "listen on "+taken.Addr().String()) {
			t.Errorf("expected listen error, got %v", err)
		}
		if server.serves.Load() != 0 {
			t.Errorf("server should not serve without a listener, serves=%d", server.serves.Load())
		}
	})

	t.Run("returns serve error", func(t *testing.T) {
		serveErr := errors.New("accept: too many open files")
		server := newFakeHTTPServer()
		server.serveErr = serveErr

		err := NewHTTPServerService(server, loopback, time.Second).Serve(context.Background())
		if !errors.Is(err, serveErr) {
			t.Errorf("expected wrapped serve error, got %v", err)
		}
	})

	t.Run("returns shutdown error", func(t *testing.T) {
		shutdownErr := errors.New("shutdown timeout")
		server := newFakeHTTPServer()
		server.shutdownErr = shutdownErr
		svc := NewHTTPServerService(server, loopback, time.Second)

		ctx, cancel := context.WithCancel(context.Background())
		errCh := make(chan error, 1)
		go func() { errCh <- svc.Serve(ctx) }()
		<-server.started
		cancel()

		select {
		case err := <-errCh:
			if !errors.Is(err, shutdownErr) {
				t.Errorf("expected shutdown error, got %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("Serve did not return")
		}
	})
}

func TestHTTPServerService_RealServer(t *testing.T) {
	server := &http.Server{
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, "ok")
		}),
		ReadHeaderTimeout: time.Second,
	}
	svc := NewHTTPServerService(server, loopback, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- svc.Serve(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for svc.boundAddr() == "" && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	resp, err := http.Get("http://" + svc.boundAddr() + "/healthz")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if string(body) != "ok" {
		t.Errorf("body = %q", body)
	}
	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("real server did not shut down")
	}
}

func TestHTTPServerService_WithSupervisor(t *testing.T) {
	server := newFakeHTTPServer()
	svc := NewHTTPServerService(server, loopback, time.Second)

	sup := suture.New("test-sup", suture.Spec{
		FailureThreshold: 3,
		FailureBackoff:   10 * time.Millisecond,
		Timeout:          2 * time.Second,
	})
	sup.Add(svc)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := sup.ServeBackground(ctx)

	select {
	case <-server.started:
	case <-time.After(time.Second):
		t.Fatal("server did not start")
	}
	cancel()
	<-errCh

	if server.shutdowns.Load() != 1 {
		t.Errorf("expected 1 Shutdown call, got %d", server.shutdowns.Load())
	}
	if svc.String() != "http-server" {
		t.Errorf("expected 'http-server', got %q", svc.String())
	}
}
