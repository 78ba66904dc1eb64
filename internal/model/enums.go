package model

// MediaKind is the negotiated media for a call attempt.
type MediaKind string

const (
	MediaAudio MediaKind = "audio"
	MediaVideo MediaKind = "video"
)

// Valid reports whether the media kind is one of the known values.
func (m MediaKind) Valid() bool {
	return m == MediaAudio || m == MediaVideo
}

// CallOutcome is the terminal result of a call attempt.
type CallOutcome string

const (
	OutcomeMissed    CallOutcome = "missed"
	OutcomeRejected  CallOutcome = "rejected"
	OutcomeCompleted CallOutcome = "completed"
	OutcomeFailed    CallOutcome = "failed"
)

func (o CallOutcome) Valid() bool {
	switch o {
	case OutcomeMissed, OutcomeRejected, OutcomeCompleted, OutcomeFailed:
		return true
	}
	return false
}
