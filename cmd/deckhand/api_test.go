package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"path/filepath"
	"testing"
	"time"
)

func startUnixServer(t *testing.T, handler http.Handler) string {
	t.Helper()
	socketPath := filepath.Join(t.TempDir(), "test.sock")
	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		t.Fatalf("listen unix: %v", err)
	}
	server := &http.Server{Handler: handler}
	go func() { _ = server.Serve(listener) }()
	t.Cleanup(func() { _ = server.Close() })
	return socketPath
}

func TestDoJSONSuccess(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/host", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(hostResponse{Version: "1.2.3", RuntimeAvailable: true})
	})
	socketPath := startUnixServer(t, mux)

	client := newAPIClient(socketPath, 5*time.Second)
	payload, err := client.doJSON(context.Background(), http.MethodGet, "/v1/host", nil)
	if err != nil {
		t.Fatalf("doJSON: %v", err)
	}
	var host hostResponse
	if err := json.Unmarshal(payload, &host); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if host.Version != "1.2.3" || !host.RuntimeAvailable {
		t.Fatalf("unexpected response: %+v", host)
	}
}

func TestDoJSONParsesAPIError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/products/crm/start", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(apiError{Error: "unknown product: crm", Code: "v1/product/not_found"})
	})
	socketPath := startUnixServer(t, mux)

	client := newAPIClient(socketPath, 5*time.Second)
	_, err := client.doJSON(context.Background(), http.MethodPost, "/v1/products/crm/start", nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if err.Error() != "unknown product: crm" {
		t.Fatalf("error = %q", err.Error())
	}
}

func TestDoJSONSocketMissing(t *testing.T) {
	client := newAPIClient(filepath.Join(t.TempDir(), "missing.sock"), time.Second)
	_, err := client.doJSON(context.Background(), http.MethodGet, "/v1/host", nil)
	if err == nil {
		t.Fatal("expected connection error")
	}
}

func TestParseAPIErrorFallsBackToStatus(t *testing.T) {
	err := parseAPIError(http.StatusBadGateway, []byte("not json"))
	if err == nil || err.Error() != "request failed with status 502" {
		t.Fatalf("err = %v", err)
	}
}

func TestPrettyPrintJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := prettyPrintJSON(&buf, []byte(`{"a":1}`)); err != nil {
		t.Fatalf("prettyPrintJSON: %v", err)
	}
	want := "{\n  \"a\": 1\n}\n"
	if buf.String() != want {
		t.Fatalf("output = %q, want %q", buf.String(), want)
	}
}
