package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/cdskit/cds"
)

func run(t *testing.T, fn func() error) string {
	t.Helper()
	out, err := captureOutput(t, fn)
	require.NoError(t, err, out)
	return out
}

func TestInitThenInfo(t *testing.T) {
	path := useImage(t)

	out := run(t, runInit)
	assert.Contains(t, out, "reinitialized")
	st, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(32*1024), st.Size())

	out = run(t, runInit)
	assert.Contains(t, out, "recovered")

	jsonOut = true
	out = run(t, runInfo)
	var info map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, "recovered", info["boot"])
	assert.Equal(t, float64(32*1024), info["capacity"])

	jsonOut, initForce = false, true
	out = run(t, runInit)
	assert.Contains(t, out, "requested")
}

func TestRegisterWriteReadDelete(t *testing.T) {
	dir := filepath.Dir(useImage(t))

	out := run(t, func() error { return runRegister([]string{"SC", "State", "16"}) })
	assert.Contains(t, out, "Registered SC.State")
	out = run(t, func() error { return runRegister([]string{"SC", "State", "16"}) })
	assert.Contains(t, out, "already registered")

	in := filepath.Join(dir, "in.bin")
	require.NoError(t, os.WriteFile(in, []byte("spacecraft state"), 0o644))
	out = run(t, func() error { return runWrite([]string{"SC.State", in}) })
	assert.Contains(t, out, "Wrote 16 of 16 bytes")

	out = run(t, func() error { return runRead([]string{"SC.State"}) })
	assert.Equal(t, "spacecraft state", out)

	readOut = filepath.Join(dir, "out.bin")
	run(t, func() error { return runRead([]string{"SC.State"}) })
	got, err := os.ReadFile(readOut)
	require.NoError(t, err)
	assert.Equal(t, []byte("spacecraft state"), got)
	readOut = ""

	activeApps = []string{"SC"}
	_, err = captureOutput(t, func() error { return runDelete([]string{"SC.State"}) })
	require.ErrorIs(t, err, cds.ErrOwnerActive)

	activeApps = nil
	out = run(t, func() error { return runDelete([]string{"SC.State"}) })
	assert.Contains(t, out, "Deleted SC.State")

	_, err = captureOutput(t, func() error { return runRead([]string{"SC.State"}) })
	require.ErrorIs(t, err, cds.ErrNotFound)
}

func TestRegister_Errors(t *testing.T) {
	useImage(t)

	_, err := captureOutput(t, func() error { return runRegister([]string{"SC", "State", "lots"}) })
	require.Error(t, err)

	_, err = captureOutput(t, func() error { return runRegister([]string{"S.C", "State", "8"}) })
	require.ErrorIs(t, err, cds.ErrNameInvalid)

	registerTable = true
	run(t, func() error { return runRegister([]string{"TBL", "Limits", "8"}) })
	registerTable = false
	_, err = captureOutput(t, func() error { return runDelete([]string{"TBL.Limits"}) })
	require.ErrorIs(t, err, cds.ErrWrongType)
}

func TestDumpFormats(t *testing.T) {
	useImage(t)
	run(t, func() error { return runRegister([]string{"SC", "State", "16"}) })
	registerTable = true
	run(t, func() error { return runRegister([]string{"TBL", "Limits", "64"}) })

	out := run(t, runDump)
	assert.Contains(t, out, "SLOT")
	assert.Contains(t, out, "SC.State")
	assert.Contains(t, out, "TBL.Limits")

	dumpFormat = "json"
	out = run(t, runDump)
	var records []cds.Record
	require.NoError(t, json.Unmarshal([]byte(out), &records))
	require.Len(t, records, 2)
	assert.Equal(t, "TBL.Limits", records[1].Name)
	assert.True(t, records[1].Table)

	dumpFormat = "yaml"
	out = run(t, runDump)
	assert.Contains(t, out, "name: SC.State")
	assert.Contains(t, out, "table: true")

	dumpFormat, dumpAll = "text", true
	out = run(t, runDump)
	assert.Contains(t, out, "(free)")

	dumpFormat = "xml"
	_, err := captureOutput(t, runDump)
	require.Error(t, err)
}

func TestValidateAndScan(t *testing.T) {
	path := useImage(t)

	_, err := captureOutput(t, runValidate)
	require.Error(t, err, "missing image")

	run(t, func() error { return runRegister([]string{"SC", "State", "16"}) })
	out := run(t, runValidate)
	assert.Contains(t, out, "VALID")

	out = run(t, runScan)
	assert.Contains(t, out, "HANDLE")
	assert.Equal(t, 2, strings.Count(out, " ok"))

	scanRaw = true
	out = run(t, runScan)
	assert.Contains(t, out, "ScanReport")
	scanRaw = false

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	data[len(data)-1] ^= 0xFF
	require.NoError(t, os.WriteFile(path, data, 0o644))

	jsonOut = true
	out, err = captureOutput(t, runValidate)
	require.Error(t, err)
	var result map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, false, result["valid"])
	assert.Contains(t, result["error"], "end signature")
}

func TestSnapshotRoundTrip(t *testing.T) {
	path := useImage(t)
	snap := filepath.Join(filepath.Dir(path), "cds.zst")

	run(t, func() error { return runRegister([]string{"SC", "State", "16"}) })
	original, err := os.ReadFile(path)
	require.NoError(t, err)

	out := run(t, func() error { return runSnapshotSave([]string{snap}) })
	assert.Contains(t, out, "Saved")

	imagePath = filepath.Join(filepath.Dir(path), "spare.img")
	run(t, func() error { return runSnapshotLoad([]string{snap}) })
	restored, err := os.ReadFile(imagePath)
	require.NoError(t, err)
	assert.Equal(t, original, restored)

	out = run(t, runInit)
	assert.Contains(t, out, "recovered")

	// A snapshot of something that is not a store is refused.
	garbage := filepath.Join(filepath.Dir(path), "garbage.img")
	require.NoError(t, os.WriteFile(garbage, make([]byte, 4096), 0o644))
	imagePath = garbage
	run(t, func() error { return runSnapshotSave([]string{snap}) })
	imagePath = filepath.Join(filepath.Dir(path), "other.img")
	_, err = captureOutput(t, func() error { return runSnapshotLoad([]string{snap}) })
	require.Error(t, err)
	snapshotForce = true
	run(t, func() error { return runSnapshotLoad([]string{snap}) })
}

func TestStats(t *testing.T) {
	useImage(t)
	run(t, func() error { return runRegister([]string{"SC", "State", "16"}) })

	out := run(t, runStats)
	assert.Contains(t, out, "Pool: 2 used blocks")
	assert.Contains(t, out, `cds_boots_total{outcome="recovered"} 1`)

	jsonOut = true
	out = run(t, runStats)
	var stats map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.Contains(t, stats, "store")
	assert.Contains(t, stats, "metrics")
}
