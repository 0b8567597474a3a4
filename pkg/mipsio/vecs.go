// Package mipsio reads and writes the two vector file formats used across
// the benchmarking tooling: a whitespace text format and the binary
// fvecs/ivecs row format. Grounded on
// original_source/src/common.inc.h's load_text_file/load_vecs for the
// exact layouts, and on the teacher's pkg/diskann.DiskGraph for the
// encoding/binary + os.File idiom used to read and write them in Go.
package mipsio

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/devraj-iyer/mipsindex/internal/mipskernel"
	"github.com/devraj-iyer/mipsindex/pkg/mipserr"
)

// ReadText loads a text-format matrix: a header line "n d" followed by
// n*d whitespace-separated floats in row-major order.
func ReadText(path string) (*mipskernel.Matrix, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("mipsio: opening %s: %w", path, err)
	}
	defer f.Close()

	reader := bufio.NewReaderSize(f, 1<<20)
	var n, d int
	if _, err := fmt.Fscan(reader, &n, &d); err != nil {
		return nil, mipserr.MalformedInput("mipsio: reading header of %s: %v", path, err)
	}
	if n < 0 || d < 0 {
		return nil, mipserr.MalformedInput("mipsio: %s has negative header n=%d d=%d", path, n, d)
	}

	m := mipskernel.NewMatrix(n, d)
	for i := range m.Data {
		if _, err := fmt.Fscan(reader, &m.Data[i]); err != nil {
			return nil, mipserr.MalformedInput("mipsio: %s truncated at element %d of %d: %v", path, i, len(m.Data), err)
		}
	}
	return m, nil
}

// WriteText writes m in the text format ReadText understands.
func WriteText(path string, m *mipskernel.Matrix) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("mipsio: creating %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriterSize(f, 1<<20)
	if _, err := fmt.Fprintf(w, "%d %d\n", m.Rows(), m.Dim); err != nil {
		return fmt.Errorf("mipsio: writing header to %s: %w", path, err)
	}
	for i := 0; i < m.Rows(); i++ {
		row := m.Row(i)
		for j, v := range row {
			sep := " "
			if j == len(row)-1 {
				sep = "\n"
			}
			if _, err := fmt.Fprintf(w, "%g%s", v, sep); err != nil {
				return fmt.Errorf("mipsio: writing row %d to %s: %w", i, path, err)
			}
		}
	}
	return w.Flush()
}

// ReadFvecs loads a binary .fvecs file: each row is a little-endian
// int32 dimension followed by that many little-endian float32 values.
func ReadFvecs(path string) (*mipskernel.Matrix, error) {
	data, dim, n, err := readVecsRaw(path, 4)
	if err != nil {
		return nil, err
	}
	m := mipskernel.NewMatrix(n, dim)
	for i := 0; i < n*dim; i++ {
		bits := binary.LittleEndian.Uint32(data[i*4:])
		m.Data[i] = math.Float32frombits(bits)
	}
	return m, nil
}

// WriteFvecs writes m as a binary .fvecs file.
func WriteFvecs(path string, m *mipskernel.Matrix) error {
	return writeVecsRaw(path, m.Rows(), m.Dim, func(w io.Writer, row []float32) error {
		for _, v := range row {
			if err := binary.Write(w, binary.LittleEndian, v); err != nil {
				return err
			}
		}
		return nil
	}, m)
}

// ReadIvecs loads a binary .ivecs file: each row is a little-endian
// int32 dimension followed by that many little-endian int32 values,
// returned as float32 so callers share Matrix across both formats (used
// for ground-truth neighbor id files).
func ReadIvecs(path string) (*mipskernel.Matrix, error) {
	data, dim, n, err := readVecsRaw(path, 4)
	if err != nil {
		return nil, err
	}
	m := mipskernel.NewMatrix(n, dim)
	for i := 0; i < n*dim; i++ {
		bits := binary.LittleEndian.Uint32(data[i*4:])
		m.Data[i] = float32(int32(bits))
	}
	return m, nil
}

// WriteIvecs writes m as a binary .ivecs file, truncating each value to
// an int32.
func WriteIvecs(path string, m *mipskernel.Matrix) error {
	return writeVecsRaw(path, m.Rows(), m.Dim, func(w io.Writer, row []float32) error {
		for _, v := range row {
			if err := binary.Write(w, binary.LittleEndian, int32(v)); err != nil {
				return err
			}
		}
		return nil
	}, m)
}

// readVecsRaw validates the fixed-width-record layout shared by fvecs and
// ivecs (dim header repeated per row, constant file-wide) and returns the
// flat post-header bytes, dimension, and row count.
func readVecsRaw(path string, elemSize int) (data []byte, dim int, n int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("mipsio: opening %s: %w", path, err)
	}
	defer f.Close()

	var dimHeader int32
	if err := binary.Read(f, binary.LittleEndian, &dimHeader); err != nil {
		return nil, 0, 0, mipserr.MalformedInput("mipsio: reading dimension header of %s: %v", path, err)
	}
	dim = int(dimHeader)

	fi, err := f.Stat()
	if err != nil {
		return nil, 0, 0, fmt.Errorf("mipsio: stat %s: %w", path, err)
	}
	fsz := fi.Size()
	rowSize := int64(elemSize)*int64(dim) + 4
	if rowSize <= 0 || fsz%rowSize != 0 {
		return nil, 0, 0, mipserr.MalformedInput("mipsio: %s size %d is not a multiple of row size %d", path, fsz, rowSize)
	}
	n = int(fsz / rowSize)

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, 0, 0, fmt.Errorf("mipsio: seeking %s: %w", path, err)
	}

	out := make([]byte, n*dim*elemSize)
	for i := 0; i < n; i++ {
		var rowDim int32
		if err := binary.Read(f, binary.LittleEndian, &rowDim); err != nil {
			return nil, 0, 0, mipserr.MalformedInput("mipsio: %s row %d: reading dimension: %v", path, i, err)
		}
		if int(rowDim) != dim {
			return nil, 0, 0, mipserr.MalformedInput("mipsio: %s row %d has dimension %d, expected %d", path, i, rowDim, dim)
		}
		chunk := out[i*dim*elemSize : (i+1)*dim*elemSize]
		if _, err := io.ReadFull(f, chunk); err != nil {
			return nil, 0, 0, mipserr.MalformedInput("mipsio: %s row %d: reading payload: %v", path, i, err)
		}
	}
	return out, dim, n, nil
}

func writeVecsRaw(path string, n, dim int, writeRow func(io.Writer, []float32) error, m *mipskernel.Matrix) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("mipsio: creating %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriterSize(f, 1<<20)
	for i := 0; i < n; i++ {
		if err := binary.Write(w, binary.LittleEndian, int32(dim)); err != nil {
			return fmt.Errorf("mipsio: writing row %d dimension to %s: %w", i, path, err)
		}
		if err := writeRow(w, m.Row(i)); err != nil {
			return fmt.Errorf("mipsio: writing row %d to %s: %w", i, path, err)
		}
	}
	return w.Flush()
}
