package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

// useImage points the global flags at a fresh image path and resets the
// command flags between tests.
func useImage(t *testing.T) string {
	t.Helper()
	t.Setenv("CDS_LOG_LEVEL", "error")

	path := filepath.Join(t.TempDir(), "cds.img")
	imagePath, imageSize, activeApps = path, 32*1024, nil
	verbose, quiet, jsonOut = false, false, false
	initForce, registerTable, deleteTable = false, false, false
	dumpFormat, dumpAll = "text", false
	readOut, readHex, scanRaw, snapshotForce = "", false, false, false
	return path
}

// captureOutput captures stdout while running a function
func captureOutput(t *testing.T, fn func() error) (string, error) {
	t.Helper()

	origStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("failed to create pipe: %v", err)
	}
	os.Stdout = w

	fnErr := fn()

	w.Close()
	os.Stdout = origStdout

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(r); err != nil {
		t.Fatalf("failed to read output: %v", err)
	}
	return buf.String(), fnErr
}
