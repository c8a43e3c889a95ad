package domain

import "fmt"

// PromptMatrix is an ordered grid of prompt templates: one row per agent, one
// column per sequence position. An empty string marks an absent cell.
// All rows have equal length; mutation is only possible through AppendRow and
// RemoveRow, both of which preserve that invariant.
type PromptMatrix struct {
	rows [][]string
}

// NewPromptMatrix builds a matrix from the given rows.
// Every row must have the same length as the first.
func NewPromptMatrix(rows [][]string) (*PromptMatrix, error) {
	m := &PromptMatrix{}
	for i, row := range rows {
		if err := m.AppendRow(row); err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
	}
	return m, nil
}

// Shape returns (rows, columns). An empty matrix is (0, 0).
func (m *PromptMatrix) Shape() (int, int) {
	if len(m.rows) == 0 {
		return 0, 0
	}
	return len(m.rows), len(m.rows[0])
}

// AppendRow adds a row to the bottom of the matrix. The row length must match
// the existing width, unless the matrix is still empty.
func (m *PromptMatrix) AppendRow(row []string) error {
	if len(m.rows) > 0 && len(row) != len(m.rows[0]) {
		return fmt.Errorf("%w: got %d, want %d", ErrShapeMismatch, len(row), len(m.rows[0]))
	}
	cloned := make([]string, len(row))
	copy(cloned, row)
	m.rows = append(m.rows, cloned)
	return nil
}

// RemoveRow deletes the row at the given index.
func (m *PromptMatrix) RemoveRow(index int) error {
	if index < 0 || index >= len(m.rows) {
		return fmt.Errorf("%w: row %d", ErrIndexOutOfRange, index)
	}
	m.rows = append(m.rows[:index], m.rows[index+1:]...)
	return nil
}

// Row returns a copy of the row at the given index.
func (m *PromptMatrix) Row(index int) ([]string, error) {
	if index < 0 || index >= len(m.rows) {
		return nil, fmt.Errorf("%w: row %d", ErrIndexOutOfRange, index)
	}
	row := make([]string, len(m.rows[index]))
	copy(row, m.rows[index])
	return row, nil
}

// Column returns the column vector at the given index: the index-th entry of
// every row, top to bottom.
func (m *PromptMatrix) Column(index int) ([]string, error) {
	rows, cols := m.Shape()
	if index < 0 || index >= cols {
		return nil, fmt.Errorf("%w: column %d", ErrIndexOutOfRange, index)
	}
	column := make([]string, rows)
	for i := range m.rows {
		column[i] = m.rows[i][index]
	}
	return column, nil
}

// Cell returns the template at (row, column).
func (m *PromptMatrix) Cell(row, column int) (string, error) {
	rows, cols := m.Shape()
	if row < 0 || row >= rows || column < 0 || column >= cols {
		return "", fmt.Errorf("%w: cell (%d, %d)", ErrIndexOutOfRange, row, column)
	}
	return m.rows[row][column], nil
}

// Rows returns a deep copy of the underlying grid.
func (m *PromptMatrix) Rows() [][]string {
	out := make([][]string, len(m.rows))
	for i, row := range m.rows {
		out[i] = make([]string, len(row))
		copy(out[i], row)
	}
	return out
}

// ResponseCell is one slot of a ResponseMatrix. OK reports whether the cell
// has been written during an execution pass.
type ResponseCell struct {
	Value string `json:"value"`
	OK    bool   `json:"ok"`
}

// ResponseMatrix mirrors the shape of a PromptMatrix and collects step
// results positionally. Cells start unset and are overwritten once per
// execution pass (re-running a chain overwrites again).
type ResponseMatrix struct {
	cells [][]ResponseCell
}

// NewResponseMatrix allocates an all-unset matrix of the given shape.
func NewResponseMatrix(rows, columns int) *ResponseMatrix {
	cells := make([][]ResponseCell, rows)
	for i := range cells {
		cells[i] = make([]ResponseCell, columns)
	}
	return &ResponseMatrix{cells: cells}
}

// Shape returns (rows, columns).
func (m *ResponseMatrix) Shape() (int, int) {
	if len(m.cells) == 0 {
		return 0, 0
	}
	return len(m.cells), len(m.cells[0])
}

// Set writes a result into (row, column), marking the cell as filled.
func (m *ResponseMatrix) Set(row, column int, value string) error {
	rows, cols := m.Shape()
	if row < 0 || row >= rows || column < 0 || column >= cols {
		return fmt.Errorf("%w: cell (%d, %d)", ErrIndexOutOfRange, row, column)
	}
	m.cells[row][column] = ResponseCell{Value: value, OK: true}
	return nil
}

// Cell returns the cell at (row, column).
func (m *ResponseMatrix) Cell(row, column int) (ResponseCell, error) {
	rows, cols := m.Shape()
	if row < 0 || row >= rows || column < 0 || column >= cols {
		return ResponseCell{}, fmt.Errorf("%w: cell (%d, %d)", ErrIndexOutOfRange, row, column)
	}
	return m.cells[row][column], nil
}

// Snapshot returns a deep copy of the cells, suitable for persistence.
func (m *ResponseMatrix) Snapshot() [][]ResponseCell {
	out := make([][]ResponseCell, len(m.cells))
	for i, row := range m.cells {
		out[i] = make([]ResponseCell, len(row))
		copy(out[i], row)
	}
	return out
}

// Restore replaces the cells with a previously taken snapshot.
// The snapshot shape must match the matrix shape.
func (m *ResponseMatrix) Restore(cells [][]ResponseCell) error {
	rows, cols := m.Shape()
	if len(cells) != rows {
		return fmt.Errorf("%w: got %d rows, want %d", ErrShapeMismatch, len(cells), rows)
	}
	for i, row := range cells {
		if len(row) != cols {
			return fmt.Errorf("%w: row %d has %d columns, want %d", ErrShapeMismatch, i, len(row), cols)
		}
	}
	for i, row := range cells {
		copy(m.cells[i], row)
	}
	return nil
}
