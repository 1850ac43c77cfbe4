package apperror

// ItemError is a single failed item inside a batch operation.
type ItemError struct {
	ID    int    `json:"id"`
	Error string `json:"error"`
}

// BulkResult summarizes a batch operation that continues past per-item failures.
type BulkResult struct {
	Processed int         `json:"processed_count"`
	Failed    []ItemError `json:"errors"`
}

// Add records the outcome for one item.
func (r *BulkResult) Add(id int, err error) {
	if err != nil {
		r.Failed = append(r.Failed, ItemError{ID: id, Error: err.Error()})
		return
	}
	r.Processed++
}

// OK reports whether every item succeeded.
func (r *BulkResult) OK() bool { return len(r.Failed) == 0 }
