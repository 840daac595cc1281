package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
)

// Execute must hand failures back to main so they reach stderr; with
// SilenceErrors set, a swallowed error would exit without a word.
func TestExecutePropagatesConfigError(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.yaml")

	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"--config", missing, "tools"})

	err := root.Execute()
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
	if !strings.Contains(err.Error(), "nope.yaml") {
		t.Fatalf("error does not name the config file: %v", err)
	}
}
