package mipsio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/devraj-iyer/mipsindex/internal/mipskernel"
	"github.com/stretchr/testify/require"
)

// TestTextRoundTrip exercises spec.md section 8's matrix round-trip
// property for the text format.
func TestTextRoundTrip(t *testing.T) {
	m := mipskernel.NewMatrixFromRows([][]float32{
		{1, 2, 3},
		{-1.5, 0, 4.25},
	})
	path := filepath.Join(t.TempDir(), "vectors.txt")
	require.NoError(t, WriteText(path, m))
	got, err := ReadText(path)
	require.NoError(t, err)
	assertMatrixEqual(t, m, got)
}

// TestFvecsRoundTrip exercises the binary fvecs round-trip: write then
// read back must reproduce the matrix exactly.
func TestFvecsRoundTrip(t *testing.T) {
	m := mipskernel.NewMatrixFromRows([][]float32{
		{1, 2, 3, 4},
		{5.5, -6.25, 7, 8},
		{0, 0, 0, 0},
	})
	path := filepath.Join(t.TempDir(), "vectors.fvecs")
	require.NoError(t, WriteFvecs(path, m))
	got, err := ReadFvecs(path)
	require.NoError(t, err)
	assertMatrixEqual(t, m, got)
}

// TestIvecsRoundTrip exercises the binary ivecs round-trip used for
// ground-truth neighbor id files.
func TestIvecsRoundTrip(t *testing.T) {
	m := mipskernel.NewMatrixFromRows([][]float32{
		{0, 5, 12},
		{3, 3, 9},
	})
	path := filepath.Join(t.TempDir(), "groundtruth.ivecs")
	require.NoError(t, WriteIvecs(path, m))
	got, err := ReadIvecs(path)
	require.NoError(t, err)
	assertMatrixEqual(t, m, got)
}

// TestReadFvecsRejectsTruncatedFile checks the malformed-input path when
// the file size is not a multiple of the per-row record size.
func TestReadFvecsRejectsTruncatedFile(t *testing.T) {
	m := mipskernel.NewMatrixFromRows([][]float32{{1, 2}, {3, 4}})
	path := filepath.Join(t.TempDir(), "truncated.fvecs")
	require.NoError(t, WriteFvecs(path, m))

	_, err := ReadFvecs(path)
	require.NoError(t, err, "well-formed file should read cleanly")

	badPath := filepath.Join(t.TempDir(), "bad.fvecs")
	writeRawBytes(t, badPath, []byte{2, 0, 0, 0, 1, 2, 3}) // dim=2 header, only 3 payload bytes
	_, err = ReadFvecs(badPath)
	require.Error(t, err, "expected error reading truncated fvecs file")
}

func assertMatrixEqual(t *testing.T, want, got *mipskernel.Matrix) {
	t.Helper()
	require.Equal(t, want.Rows(), got.Rows())
	require.Equal(t, want.Dim, got.Dim)
	require.Equal(t, want.Data, got.Data)
}

func writeRawBytes(t *testing.T, path string, data []byte) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, data, 0o644))
}
