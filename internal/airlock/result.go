package airlock

import "github.com/zmlAEQ/airlock-core/internal/adapters"

// Outcome is the terminal disposition of one Submit call. DelayedApproved
// is distinct from a plain Approved: it marks a flagged intent whose VDF
// time-lock completed before guardian voting resolved, so its envelope
// carries a full VDF proof and a threshold signature over the
// delayed-approved tag instead of an approve decision.
type Outcome string

const (
	OutcomeApproved        Outcome = "approved"
	OutcomeDelayedApproved Outcome = "delayed-approved"
	OutcomeRejected        Outcome = "rejected"
	OutcomeBlocked         Outcome = "blocked"
	OutcomeExpired         Outcome = "expired"
	OutcomeFailed          Outcome = "failed"
)

// Result is everything Submit returns for one intent: its terminal outcome,
// the envelope handed to the executor when one was produced, the
// executor's receipt if it ran, and a human-readable reason for block/fail
// outcomes.
type Result struct {
	Fingerprint adapters.Fingerprint
	Outcome     Outcome
	Envelope    *adapters.Envelope
	Receipt     *adapters.Receipt
	Reason      string
}
