package domain

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// TrafficMatrix holds the symmetric pairwise traffic volume between VMs,
// indexed by VM ID. The diagonal is always zero and no entry is negative.
type TrafficMatrix struct {
	sym *mat.SymDense
	n   int
}

// NewTrafficMatrix returns an all-zero traffic matrix for n VMs.
func NewTrafficMatrix(n int) (*TrafficMatrix, error) {
	if n < 0 {
		return nil, fmt.Errorf("traffic matrix dimension %d: %w", n, ErrInvalidArgument)
	}
	if n == 0 {
		// gonum rejects zero-length matrices.
		return &TrafficMatrix{}, nil
	}
	return &TrafficMatrix{sym: mat.NewSymDense(n, nil), n: n}, nil
}

// TrafficMatrixFromRows builds a matrix from a dense row representation.
// The rows must form a square, symmetric, non-negative matrix with a zero diagonal.
func TrafficMatrixFromRows(rows [][]float64) (*TrafficMatrix, error) {
	t, err := NewTrafficMatrix(len(rows))
	if err != nil {
		return nil, err
	}
	for i, row := range rows {
		if len(row) != len(rows) {
			return nil, fmt.Errorf("traffic row %d has %d columns, want %d: %w", i, len(row), len(rows), ErrInvalidArgument)
		}
	}
	for i := range rows {
		for j := i; j < len(rows); j++ {
			if rows[i][j] != rows[j][i] {
				return nil, fmt.Errorf("traffic(%d,%d)=%v differs from traffic(%d,%d)=%v: %w",
					i, j, rows[i][j], j, i, rows[j][i], ErrInvalidArgument)
			}
			if err := t.Set(i, j, rows[i][j]); err != nil {
				return nil, err
			}
		}
	}
	return t, nil
}

// Dim returns the number of VMs the matrix covers.
func (t *TrafficMatrix) Dim() int {
	return t.n
}

// Contains reports whether the VM ID indexes into the matrix.
func (t *TrafficMatrix) Contains(vmID int) bool {
	return vmID >= 0 && vmID < t.n
}

// Set stores the traffic volume between a and b (and b and a).
func (t *TrafficMatrix) Set(a, b int, volume float64) error {
	if !t.Contains(a) || !t.Contains(b) {
		return fmt.Errorf("traffic index (%d,%d) outside %dx%d matrix: %w", a, b, t.n, t.n, ErrInvalidArgument)
	}
	if volume < 0 || math.IsNaN(volume) || math.IsInf(volume, 0) {
		return fmt.Errorf("traffic(%d,%d)=%v must be finite and non-negative: %w", a, b, volume, ErrInvalidArgument)
	}
	if a == b && volume != 0 {
		return fmt.Errorf("traffic(%d,%d)=%v on the diagonal must be zero: %w", a, b, volume, ErrInvalidArgument)
	}
	t.sym.SetSym(a, b, volume)
	return nil
}

// At returns the traffic volume between a and b. Both IDs must be in range.
func (t *TrafficMatrix) At(a, b int) float64 {
	return t.sym.At(a, b)
}
