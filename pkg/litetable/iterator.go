package litetable

// SliceIterator iterates over rows that were fully materialized by the store.
type SliceIterator struct {
	rows   []Row
	pos    int
	closed bool
}

// NewSliceIterator returns a RowIterator over rows.
func NewSliceIterator(rows []Row) *SliceIterator {
	return &SliceIterator{rows: rows, pos: -1}
}

func (it *SliceIterator) Next() bool {
	if it.closed || it.pos+1 >= len(it.rows) {
		return false
	}
	it.pos++
	return true
}

func (it *SliceIterator) Row() Row {
	if it.pos < 0 || it.pos >= len(it.rows) {
		return Row{}
	}
	return it.rows[it.pos]
}

func (it *SliceIterator) Err() error {
	return nil
}

func (it *SliceIterator) Close() error {
	it.closed = true
	it.rows = nil
	return nil
}
