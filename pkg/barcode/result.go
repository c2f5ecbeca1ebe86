package barcode

// Result is the outcome of a scan. An empty Text is reserved for "no
// result", which is how a cancelled scan is reported.
type Result struct {
	Text   string `json:"text"`
	Format Hint   `json:"format"`
}

// Empty returns the sentinel result used for "not decided yet" and for
// cancellation.
func Empty() Result {
	return Result{Format: HintUnknown}
}

// IsEmpty reports whether r carries no decoded text.
func (r Result) IsEmpty() bool {
	return r.Text == ""
}
