package models

// ValidationOutcome is the per-candidate accept/reject decision. One per
// candidate file; never mutated, recomputed on each new selection.
type ValidationOutcome struct {
	File     SelectedFile `json:"-"`
	FileName string       `json:"fileName"`
	Accepted bool         `json:"accepted"`
	Reason   ErrorKind    `json:"reason,omitempty"`
}

// ValidationReport aggregates the outcomes for one selection. Accepted
// preserves selection order; Diagnostics are advisory and never block the
// accepted subset from proceeding.
type ValidationReport struct {
	Accepted    []SelectedFile      `json:"-"`
	Outcomes    []ValidationOutcome `json:"outcomes"`
	Diagnostics []Diagnostic        `json:"diagnostics,omitempty"`
}
