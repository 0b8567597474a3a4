// Package mipskernel provides the shared numeric primitives used by every
// index in the module: the row-major matrix store, the MIPS-to-NN
// augmentation family, and the k-means wrapper around the external
// clustering kernel.
package mipskernel

import "fmt"

// Matrix is a flat, row-major store of n vectors of width Dim. Row i spans
// Data[i*Dim : i*Dim+Dim]. The row width is fixed after construction; every
// downstream component assumes row stride equals Dim exactly.
type Matrix struct {
	Data []float32
	Dim  int
}

// NewMatrix allocates a zeroed matrix of the given shape.
func NewMatrix(rows, dim int) *Matrix {
	return &Matrix{Data: make([]float32, rows*dim), Dim: dim}
}

// NewMatrixFromRows copies a slice-of-slices into row-major form. All rows
// must share the same length.
func NewMatrixFromRows(rows [][]float32) *Matrix {
	if len(rows) == 0 {
		return &Matrix{}
	}
	dim := len(rows[0])
	m := NewMatrix(len(rows), dim)
	for i, r := range rows {
		if len(r) != dim {
			panic(fmt.Sprintf("mipskernel: row %d has width %d, want %d", i, len(r), dim))
		}
		copy(m.Row(i), r)
	}
	return m
}

// Rows returns the number of rows currently stored.
func (m *Matrix) Rows() int {
	if m.Dim == 0 {
		return 0
	}
	return len(m.Data) / m.Dim
}

// Row returns the contiguous span for row i, bounds-checked.
func (m *Matrix) Row(i int) []float32 {
	if i < 0 || i >= m.Rows() {
		panic(fmt.Sprintf("mipskernel: row index %d out of range [0,%d)", i, m.Rows()))
	}
	start := i * m.Dim
	return m.Data[start : start+m.Dim]
}

// At returns element (i,j), panicking out of range.
func (m *Matrix) At(i, j int) float32 {
	if j < 0 || j >= m.Dim {
		panic(fmt.Sprintf("mipskernel: column index %d out of range [0,%d)", j, m.Dim))
	}
	return m.Row(i)[j]
}

// Set assigns element (i,j), panicking out of range.
func (m *Matrix) Set(i, j int, v float32) {
	if j < 0 || j >= m.Dim {
		panic(fmt.Sprintf("mipskernel: column index %d out of range [0,%d)", j, m.Dim))
	}
	m.Row(i)[j] = v
}

// Resize erases contents and reshapes the matrix to (rows, dim).
func (m *Matrix) Resize(rows, dim int) {
	m.Data = make([]float32, rows*dim)
	m.Dim = dim
}

// AppendRow appends a copy of row to the matrix, panicking if widths differ
// from an already-populated matrix.
func (m *Matrix) AppendRow(row []float32) {
	if m.Dim == 0 {
		m.Dim = len(row)
	} else if len(row) != m.Dim {
		panic(fmt.Sprintf("mipskernel: append row width %d, want %d", len(row), m.Dim))
	}
	m.Data = append(m.Data, row...)
}
