// Package testutil provides testing utilities for TRPL tests.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/coder3112/trplvm/pkg/vm"
)

// AddProgram is the canonical two-load, one-add program. After a run
// R2 holds i32 0.
const AddProgram = `LOAD R0, i32 -8
LOAD R1, i32 8
ADD R0, R1, R2
HALT
`

// TempFile creates a temporary file with the given content and extension.
// The file is automatically cleaned up when the test finishes.
func TempFile(t *testing.T, content, ext string) string {
	t.Helper()
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "test"+ext)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	return path
}

// Run executes code on a fresh engine and fails the test on a fatal fault.
func Run(t *testing.T, code []byte) *vm.VM {
	t.Helper()
	machine := vm.New()
	machine.SetProgram(code)
	if err := machine.Run(); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	return machine
}

// AssertRegister checks that register r of machine holds want.
func AssertRegister(t *testing.T, machine *vm.VM, r vm.Register, want vm.Value) {
	t.Helper()
	got, err := machine.Register(r)
	if err != nil {
		t.Fatalf("reading %s: %v", r, err)
	}
	if !got.Equal(want) {
		t.Errorf("expected %s = %v, got %v", r, want, got)
	}
}

// AssertFloat64Near checks if two float64 values are approximately equal.
func AssertFloat64Near(t *testing.T, expected, actual, tolerance float64) {
	t.Helper()
	if actual < expected-tolerance || actual > expected+tolerance {
		t.Errorf("expected %.6f, got %.6f (tolerance: %.6f)", expected, actual, tolerance)
	}
}
