package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--config", filepath.Join(t.TempDir(), "none.yaml"), "--log-level", "error"}, args...))
	require.NoError(t, rootCmd.Execute())
	return out.String()
}

func TestDirectionsCommand(t *testing.T) {
	out := execute(t, "directions", "--frequency", "1")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Len(t, lines, 13)
	assert.Contains(t, lines[0], "theta")
}

func TestBasisCommand(t *testing.T) {
	out := execute(t, "basis", "--order", "2", "--toolkit", "mrtrix", "--frequency", "2", "--cores", "1")
	assert.Contains(t, out, "basis 42x6 (order 2, MRTRIX)")

	out = execute(t, "basis", "--order", "0", "--toolkit", "fsl", "--frequency", "1", "--rows")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 12)
	assert.Equal(t, "0.28209479177387814", lines[0])
	printRows = false
}

func TestPhantomCommand(t *testing.T) {
	dir := t.TempDir()
	out := execute(t, "phantom", "--size", "4,3,2", "--order", "4", "--toolkit", "FSL",
		"--frequency", "5", "--cores", "2", "--save-slices", "--slices-dir", dir)
	assert.Contains(t, out, "Reconstructed 24 voxels x 252 directions")
	assert.Contains(t, out, "Peak at voxel [0 2 0]")

	entries, err := os.ReadDir(filepath.Join(dir, "z"))
	require.NoError(t, err)
	assert.Len(t, entries, 2)
	saveSlices = false
}

func TestConfigInitCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shodf.yaml")
	out := execute(t, "config", "init", path)
	assert.Contains(t, out, "wrote "+path)

	rootCmd.SetArgs([]string{"config", "init", path})
	assert.Error(t, rootCmd.Execute())
}
