package analysis

// Phase is a step of the analysis reported to progress observers
type Phase string

const (
	PhaseEnumerate Phase = "enumerate-public-symbols"
	PhaseScope     Phase = "compute-search-scope"
	PhaseSearch    Phase = "search-references"
	PhaseClassify  Phase = "classify-results"
)

// Phases lists the phases in execution order
var Phases = []Phase{PhaseEnumerate, PhaseScope, PhaseSearch, PhaseClassify}

// Progress is a progress notification. Current and Total are zero for
// phases that are not measured; Total is set for PhaseSearch.
type Progress struct {
	Unit    string `json:"unit"`
	Phase   Phase  `json:"phase"`
	Current int    `json:"current"`
	Total   int    `json:"total"`
	Symbol  string `json:"symbol,omitempty"`
	Done    bool   `json:"done"`
}

// ProgressFunc receives progress notifications. A nil ProgressFunc ignores
// them.
type ProgressFunc func(Progress)

func (f ProgressFunc) report(p Progress) {
	if f != nil {
		f(p)
	}
}

// Tee returns a ProgressFunc forwarding to every non-nil sink
func Tee(sinks ...ProgressFunc) ProgressFunc {
	return func(p Progress) {
		for _, s := range sinks {
			s.report(p)
		}
	}
}
