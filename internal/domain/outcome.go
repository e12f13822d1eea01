package domain

type OutcomeStatus int

const (
	OutcomeApplied OutcomeStatus = iota
	OutcomeRejected
)

func (s OutcomeStatus) String() string {
	switch s {
	case OutcomeApplied:
		return "applied"
	case OutcomeRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Outcome reports whether a divide or join changed the tree. A rejected
// outcome leaves the tree exactly as it was.
type Outcome struct {
	Status OutcomeStatus
	Reason string
}

func applied() Outcome {
	return Outcome{Status: OutcomeApplied}
}

func rejected(reason string) Outcome {
	return Outcome{Status: OutcomeRejected, Reason: reason}
}

func (o Outcome) OK() bool {
	return o.Status == OutcomeApplied
}
