package model

import "time"

// Candidate is a public type that no other unit uses.
type Candidate struct {
	Symbol    string     `json:"symbol"`
	Kind      SymbolKind `json:"kind"`
	Unit      UnitID     `json:"unit"`
	Locations []string   `json:"locations"` // file:line:col
}

// UnitReport summarizes the analysis of one unit
type UnitReport struct {
	Unit       UnitID      `json:"unit"`
	Name       string      `json:"name"`
	Analyzed   int         `json:"analyzed"` // public types examined
	Candidates []Candidate `json:"candidates"`
	Error      string      `json:"error,omitempty"`
}

// Report is the result of one analysis run over a workspace
type Report struct {
	RunID     string        `json:"runId"`
	Workspace string        `json:"workspace"`
	Units     []UnitReport  `json:"units"`
	Fixed     bool          `json:"fixed"`
	Rewritten []string      `json:"rewritten,omitempty"` // files written by --fix
	Cycles    [][]UnitID    `json:"cycles,omitempty"`
	Started   time.Time     `json:"started"`
	Duration  time.Duration `json:"duration"`
}

// CandidateCount returns the total number of candidates across units
func (r *Report) CandidateCount() int {
	n := 0
	for _, u := range r.Units {
		n += len(u.Candidates)
	}
	return n
}
