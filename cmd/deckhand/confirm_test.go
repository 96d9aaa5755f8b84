package main

import (
	"strings"
	"testing"
)

func TestRequireConfirmationForceSkipsPrompt(t *testing.T) {
	if err := requireConfirmation(confirmOptions{action: "prune", force: true}); err != nil {
		t.Fatalf("force should skip prompt: %v", err)
	}
}

func TestRequireConfirmationJSONModeNeedsForce(t *testing.T) {
	err := requireConfirmation(confirmOptions{action: "prune", jsonOutput: true})
	if err == nil {
		t.Fatal("expected refusal in --json mode without --force")
	}
	if !strings.Contains(err.Error(), "--force") {
		t.Fatalf("err = %v", err)
	}
}

func TestPromptYesNo(t *testing.T) {
	cases := []struct {
		input string
		want  bool
	}{
		{"yes\n", true},
		{"YES\n", true},
		{"no\n", false},
		{"\n", false},
		{"y\n", false},
	}
	for _, tc := range cases {
		got, err := promptYesNo(strings.NewReader(tc.input), nil, "")
		if err != nil {
			t.Fatalf("promptYesNo(%q): %v", tc.input, err)
		}
		if got != tc.want {
			t.Fatalf("promptYesNo(%q) = %t, want %t", tc.input, got, tc.want)
		}
	}
}
