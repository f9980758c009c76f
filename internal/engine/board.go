package engine

import "sync"

// RowStatus is the visual state of one result row.
type RowStatus string

// Row states. A row moves from pending to exactly one terminal state.
const (
	RowPending RowStatus = "pending"
	RowSuccess RowStatus = "success"
	RowFailure RowStatus = "failure"
)

// ResultRow is one attempt entry in the shared result view.
type ResultRow struct {
	Index  int       `json:"index"`
	URL    string    `json:"url"`
	Status RowStatus `json:"status"`
}

// Board holds the ordered result rows for a run. Rows appear in creation
// order, not completion order, and are immutable once marked.
type Board struct {
	mu   sync.RWMutex
	rows []ResultRow
}

// NewBoard returns an empty Board.
func NewBoard() *Board {
	return &Board{}
}

// Add appends a pending row for url and returns its index.
func (b *Board) Add(url string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	idx := len(b.rows)
	b.rows = append(b.rows, ResultRow{Index: idx, URL: url, Status: RowPending})
	return idx
}

// Mark resolves a pending row. Marking an already resolved row or an
// out-of-range index is a no-op.
func (b *Board) Mark(index int, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if index < 0 || index >= len(b.rows) {
		return
	}
	if b.rows[index].Status != RowPending {
		return
	}
	if ok {
		b.rows[index].Status = RowSuccess
	} else {
		b.rows[index].Status = RowFailure
	}
}

// StatusOf returns the current status of a row.
func (b *Board) StatusOf(index int) RowStatus {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if index < 0 || index >= len(b.rows) {
		return RowStatus("")
	}
	return b.rows[index].Status
}

// Rows returns a copy of all rows in creation order.
func (b *Board) Rows() []ResultRow {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]ResultRow, len(b.rows))
	copy(out, b.rows)
	return out
}

// Len returns the number of rows created so far.
func (b *Board) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.rows)
}
