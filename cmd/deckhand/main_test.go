package main

import (
	"strings"
	"testing"
	"time"
)

func TestParseGlobalDefaults(t *testing.T) {
	opts, args, err := parseGlobal([]string{"product", "list"})
	if err != nil {
		t.Fatalf("parseGlobal: %v", err)
	}
	if opts.socketPath != defaultSocketPath {
		t.Fatalf("socketPath = %q", opts.socketPath)
	}
	if opts.timeout != defaultRequestTimeout {
		t.Fatalf("timeout = %v", opts.timeout)
	}
	if len(args) != 2 || args[0] != "product" {
		t.Fatalf("args = %v", args)
	}
}

func TestParseGlobalOverrides(t *testing.T) {
	opts, args, err := parseGlobal([]string{"--socket", "/tmp/x.sock", "--json", "--timeout", "5s", "host"})
	if err != nil {
		t.Fatalf("parseGlobal: %v", err)
	}
	if opts.socketPath != "/tmp/x.sock" || !opts.jsonOutput || opts.timeout != 5*time.Second {
		t.Fatalf("opts = %+v", opts)
	}
	if len(args) != 1 || args[0] != "host" {
		t.Fatalf("args = %v", args)
	}
}

func TestIsHelpToken(t *testing.T) {
	for _, token := range []string{"help", "-h", "--help"} {
		if !isHelpToken(token) {
			t.Fatalf("isHelpToken(%q) = false", token)
		}
	}
	if isHelpToken("host") {
		t.Fatal("isHelpToken(host) = true")
	}
}

func TestKeyValueFlag(t *testing.T) {
	params := keyValueFlag{}
	if err := params.Set("service=telemetry"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := params.Set("mode=fast"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if params["service"] != "telemetry" || params["mode"] != "fast" {
		t.Fatalf("params = %v", params)
	}
	if err := params.Set("missing-separator"); err == nil {
		t.Fatal("expected error for value without key=value shape")
	}
	if err := params.Set("=orphan"); err == nil {
		t.Fatal("expected error for empty key")
	}
}

func TestFormatCLIErrorIncludesNextStep(t *testing.T) {
	err := newCLIError("prune refused", "re-run with --force")
	out := formatCLIError(err)
	if !strings.Contains(out, "prune refused") || !strings.Contains(out, "Next: re-run with --force") {
		t.Fatalf("out = %q", out)
	}
}
