package model

import "time"

// CallRecord is one immutable call-history row. Written exactly once
// when a call attempt reaches a terminal outcome, never updated.
type CallRecord struct {
	ID               string      `db:"id" json:"id"`
	CallerIdentity   string      `db:"caller_identity" json:"callerIdentity"`
	ReceiverIdentity string      `db:"receiver_identity" json:"receiverIdentity"`
	MediaKind        MediaKind   `db:"media_kind" json:"mediaKind"`
	Outcome          CallOutcome `db:"outcome" json:"outcome"`
	DurationSeconds  int         `db:"duration_seconds" json:"durationSeconds"`
	CreatedAt        time.Time   `db:"created_at" json:"createdAt"`
}

type CreateCallRecordParams struct {
	CallerIdentity   string
	ReceiverIdentity string
	MediaKind        MediaKind
	Outcome          CallOutcome
	DurationSeconds  int
}
