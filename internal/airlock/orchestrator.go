// Package airlock implements the transaction-intent state machine: score,
// maybe time-lock, always vote, then race the two to a verifiable outcome.
// The event loop shape — injectable SetXxx collaborators, metrics and
// structured logs on every branch, explicit named-error transitions — and
// the per-entity locking it hands off to follow the same idiom used
// elsewhere in this module for stateful, concurrently-driven services.
package airlock

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/zmlAEQ/airlock-core/internal/adapters"
	"github.com/zmlAEQ/airlock-core/internal/proposal"
	"github.com/zmlAEQ/airlock-core/internal/vdf"
	"github.com/zmlAEQ/airlock-core/internal/zkvote"
	"github.com/zmlAEQ/airlock-core/pkg/bus"
	"github.com/zmlAEQ/airlock-core/pkg/config"
	"github.com/zmlAEQ/airlock-core/pkg/logger"
	"github.com/zmlAEQ/airlock-core/pkg/metrics"
	"github.com/zmlAEQ/airlock-core/pkg/trace"
)

var (
	// ErrInvalidIntent is returned by Submit for a structurally invalid
	// intent; recovered at the boundary, never retried internally.
	ErrInvalidIntent = errors.New("airlock: invalid intent")
	// ErrNotConfigured is returned when Submit is called before every
	// required collaborator has been injected.
	ErrNotConfigured = errors.New("airlock: orchestrator missing a required collaborator")
)

// pollInterval is how often the racing loop polls the guardian network for
// a resolved tally. Short enough that boundary-behavior tests (exactly-
// threshold approval, deadline-vs-reveal races) observe transitions within
// a fraction of a test's simulated deadline.
const pollInterval = 20 * time.Millisecond

// Orchestrator drives one transaction intent through scoring, an optional
// time-locked delay, and guardian voting to a terminal, signed outcome. It
// holds references to its collaborators only, never their state — the
// scorer, executor and guardian network are capability interfaces from
// internal/adapters; the VDF engine and proposal store are concrete because
// the orchestrator is their only caller.
type Orchestrator struct {
	cfg config.Config

	scorer    adapters.Scorer
	executor  adapters.Executor
	guardians adapters.GuardianNetwork
	policy    adapters.PolicySource
	vdfEngine *vdf.Engine
	store     *proposal.Store
	bus       *bus.Bus
}

// New returns an Orchestrator configured with cfg. Collaborators are wired
// in afterward via the SetXxx methods, a construct-then-inject idiom so
// tests can swap any one of them independently.
func New(cfg config.Config) *Orchestrator {
	return &Orchestrator{cfg: cfg}
}

func (o *Orchestrator) SetScorer(s adapters.Scorer)             { o.scorer = s }
func (o *Orchestrator) SetExecutor(e adapters.Executor)         { o.executor = e }
func (o *Orchestrator) SetGuardianNetwork(g adapters.GuardianNetwork) { o.guardians = g }
func (o *Orchestrator) SetPolicySource(p adapters.PolicySource) { o.policy = p }
func (o *Orchestrator) SetVDFEngine(e *vdf.Engine)               { o.vdfEngine = e }
func (o *Orchestrator) SetStore(s *proposal.Store)               { o.store = s }
func (o *Orchestrator) SetBus(b *bus.Bus)                        { o.bus = b }

// Name identifies this service to pkg/lifecycle.Manager.
func (o *Orchestrator) Name() string { return "airlock" }

// Start runs the proposal expiry sweep on a fixed interval until ctx is
// done. It does not itself accept intents; callers invoke Submit directly.
func (o *Orchestrator) Start(ctx context.Context) error {
	if o.store == nil {
		return ErrNotConfigured
	}
	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				for _, fp := range o.store.ExpireSweep(time.Now()) {
					metrics.Inc("airlock_expired_total", nil)
					o.publish(ctx, bus.KindFailed, fp, "expired")
				}
			}
		}
	}()
	return nil
}

// Stop is a no-op: Submit calls carry their own context and clean up their
// own goroutines on return.
func (o *Orchestrator) Stop(ctx context.Context) error { return nil }

func (o *Orchestrator) publish(ctx context.Context, kind bus.Kind, fp adapters.Fingerprint, body any) {
	if o.bus == nil {
		return
	}
	traceID, _ := trace.FromContext(ctx)
	o.bus.Publish(ctx, bus.Event{Kind: kind, Fingerprint: string(fp), TraceID: traceID, Body: body})
}

// SubmitCommit forwards a guardian's commit to the proposal store (which
// enforces the no-double-commit invariant) and then to the guardian
// network adapter that actually tallies it.
func (o *Orchestrator) SubmitCommit(ctx context.Context, fp adapters.Fingerprint, slot int, hash adapters.Hash) error {
	if err := o.store.RecordCommit(proposal.Fingerprint(fp), slot); err != nil {
		return err
	}
	return o.guardians.SubmitCommit(ctx, fp, slot, hash)
}

// SubmitReveal forwards a guardian's reveal to the guardian network, which
// owns proof verification, and mirrors the accepted vote into the proposal
// store for the orchestrator's own commit-before-reveal and
// no-mutation-after-finalize bookkeeping.
func (o *Orchestrator) SubmitReveal(ctx context.Context, fp adapters.Fingerprint, slot int, vote zkvote.Vote, proof zkvote.RevealProof) error {
	if err := o.guardians.SubmitReveal(ctx, fp, slot, vote, proof); err != nil {
		return err
	}
	return o.store.RecordReveal(proposal.Fingerprint(fp), slot, proposal.Vote(vote))
}

// Submit runs intent through the full airlock lifecycle and returns its
// terminal outcome. It never returns a non-nil error for a policy or voting
// outcome — only for a malformed intent or a missing collaborator; every
// other disposition (blocked, expired, rejected, failed) comes back as a
// Result whose Outcome names exactly one terminal state.
func (o *Orchestrator) Submit(ctx context.Context, intent adapters.Intent) (Result, error) {
	if o.scorer == nil || o.executor == nil || o.guardians == nil || o.store == nil {
		return Result{}, ErrNotConfigured
	}
	if intent.Destination == "" {
		return Result{}, ErrInvalidIntent
	}

	ctx, traceID := trace.Ensure(ctx)
	fp := intent.Fingerprint()
	logger.InfoJ("airlock_submit", map[string]any{"fingerprint": string(fp), "trace_id": traceID})
	o.publish(ctx, bus.KindSubmitted, fp, nil)

	if blocked, reason := o.preFlight(ctx, intent); blocked {
		metrics.Inc("airlock_intents_total", map[string]string{"outcome": "blocked"})
		o.publish(ctx, bus.KindFailed, fp, reason)
		return Result{Fingerprint: fp, Outcome: OutcomeBlocked, Reason: reason}, nil
	}

	flagged, score := o.score(ctx, fp, intent)

	deadline := time.Now().Add(o.cfg.ProposalDeadline)
	if err := o.store.Open(proposal.Fingerprint(fp), deadline); err != nil {
		metrics.Inc("airlock_intents_total", map[string]string{"outcome": "conflict"})
		return Result{Fingerprint: fp, Outcome: OutcomeFailed, Reason: err.Error()}, nil
	}

	var jobID vdf.JobID
	hasVDF := flagged
	if flagged {
		o.publish(ctx, bus.KindVDFPending, fp, score)
		id, err := o.vdfEngine.Request(ctx, []byte(fp), o.cfg.VDFIterations)
		if err != nil {
			// A VDF admission failure degrades this intent to the
			// unflagged path rather than failing it outright: voting alone
			// still governs the outcome.
			logger.ErrorJ("airlock_vdf_request", map[string]any{"fingerprint": string(fp), "error": err.Error()})
			hasVDF = false
		} else {
			jobID = id
			_ = o.store.SetVDFJobID(proposal.Fingerprint(fp), string(id))
		}
	}
	o.publish(ctx, bus.KindVotingPending, fp, nil)

	return o.race(ctx, fp, hasVDF, jobID, deadline)
}

// preFlight runs the policy checks that short-circuit everything else:
// blacklist and global pause, both terminal and evaluated before scoring.
func (o *Orchestrator) preFlight(ctx context.Context, intent adapters.Intent) (blocked bool, reason string) {
	if o.policy == nil {
		return false, ""
	}
	snap, err := o.policy.Snapshot(ctx)
	if err != nil {
		// Policy source unavailable is not treated as fatal; fail open on
		// the pre-flight check rather than block every intent because the
		// policy adapter is down.
		logger.ErrorJ("airlock_policy", map[string]any{"error": err.Error()})
		return false, ""
	}
	if snap.Paused {
		return true, "protocol paused"
	}
	if snap.IsBlacklisted(intent.Caller) {
		return true, "sender blacklisted"
	}
	return false, ""
}

// score calls the scorer with its configured timeout and degrades to
// unflagged on any error: the scorer can fail open, but voting never does.
func (o *Orchestrator) score(ctx context.Context, fp adapters.Fingerprint, intent adapters.Intent) (flagged bool, score float64) {
	o.publish(ctx, bus.KindScoring, fp, nil)

	timeout := o.cfg.ScorerTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	scoreCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	res, err := o.scorer.Analyze(scoreCtx, adapters.ScoreInput{
		Sender:      intent.Caller,
		Destination: intent.Destination,
		Value:       intent.Value,
		Payload:     intent.Payload,
		Chain:       intent.SourceChain,
	})
	if err != nil {
		metrics.Inc("airlock_scorer_total", map[string]string{"result": "error"})
		logger.ErrorJ("airlock_scorer", map[string]any{"fingerprint": string(fp), "error": err.Error()})
		return false, 0
	}
	metrics.Inc("airlock_scorer_total", map[string]string{"result": "ok"})

	flagged = res.Score >= float64(o.cfg.FlagThreshold)
	if !flagged {
		// No dedicated "unflagged" bus.Kind is exposed; unflagged intents
		// simply skip straight to voting-pending, which Submit publishes
		// next.
		return false, res.Score
	}
	o.publish(ctx, bus.KindFlagged, fp, res.Score)
	return true, res.Score
}

// race waits for the first of voting resolution, VDF completion, or
// proposal deadline, then assembles the terminal Result from whichever arm
// resolved first.
func (o *Orchestrator) race(ctx context.Context, fp adapters.Fingerprint, hasVDF bool, jobID vdf.JobID, deadline time.Time) (Result, error) {
	raceCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, raceCtx := errgroup.WithContext(raceCtx)

	votingCh := make(chan adapters.TallySnapshot, 1)
	g.Go(func() error {
		o.pollVoting(raceCtx, fp, votingCh)
		return nil
	})

	var vdfCh chan vdf.Snapshot
	if hasVDF {
		vdfCh = make(chan vdf.Snapshot, 1)
		g.Go(func() error {
			snap, err := o.vdfEngine.Await(raceCtx, jobID)
			if err != nil {
				return nil
			}
			select {
			case vdfCh <- snap:
			default:
			}
			return nil
		})
	}

	timer := time.NewTimer(time.Until(deadline))
	defer timer.Stop()

	var result Result
	select {
	case snap := <-votingCh:
		if hasVDF {
			_ = o.vdfEngine.Bypass(jobID)
		}
		result, _ = o.finishOnVoting(ctx, fp, snap)
	case vsnap := <-vdfCh:
		result, _ = o.finishOnVDF(ctx, fp, vsnap)
	case <-timer.C:
		if hasVDF {
			_ = o.vdfEngine.Bypass(jobID)
		}
		result, _ = o.finishOnExpiry(ctx, fp)
	case <-ctx.Done():
		if hasVDF {
			_ = o.vdfEngine.Bypass(jobID)
		}
		result, _ = o.finishOnExpiry(ctx, fp)
	}

	// Release both racer goroutines and wait for them to actually exit
	// before returning, so Submit never leaves a pollVoting/Await goroutine
	// running past its caller's observation of the result.
	cancel()
	_ = g.Wait()
	return result, nil
}

// pollVoting repeatedly polls the guardian network until its tally
// resolves (a threshold signature becomes available) or raceCtx ends.
func (o *Orchestrator) pollVoting(raceCtx context.Context, fp adapters.Fingerprint, out chan<- adapters.TallySnapshot) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-raceCtx.Done():
			return
		case <-ticker.C:
			snap, err := o.guardians.PollTally(raceCtx, fp)
			if err != nil {
				continue
			}
			if snap.Signature != nil {
				select {
				case out <- snap:
				default:
				}
				return
			}
		}
	}
}

// finishOnVoting handles the "voting resolves first" race branches: the
// threshold signature over the winning outcome becomes the envelope's
// signature over a zero VDF proof.
func (o *Orchestrator) finishOnVoting(ctx context.Context, fp adapters.Fingerprint, snap adapters.TallySnapshot) (Result, error) {
	var outcome Outcome
	var tag adapters.OutcomeTag
	var propOutcome proposal.Outcome
	switch {
	case snap.Approve >= o.cfg.ApprovalThreshold:
		outcome, tag, propOutcome = OutcomeApproved, adapters.OutcomeTagApproved, proposal.OutcomeApproved
	case snap.Reject >= o.cfg.RejectionThreshold:
		outcome, tag, propOutcome = OutcomeRejected, adapters.OutcomeTagRejected, proposal.OutcomeRejected
	default:
		// The signature arrived but neither tally threshold has actually
		// been crossed (shouldn't happen against a well-behaved adapter);
		// treat conservatively as a signature-assembly error.
		return o.finishFailed(ctx, fp, "guardian signature without a crossed threshold")
	}

	env := adapters.Envelope{
		Fingerprint: fp,
		VDFProof:    adapters.VDFProofWire{},
		Signature:   *snap.Signature,
		Outcome:     tag,
	}
	_ = o.store.Finalize(proposal.Fingerprint(fp), propOutcome)
	o.publish(ctx, bus.KindReady, fp, nil)
	return o.deliver(ctx, fp, outcome, env)
}

// finishOnVDF handles the "VDF completes first, voting still open" branch:
// a full VDF proof plus whatever threshold signature the guardian network
// can currently assemble over the "delayed-approved" tag, or a failed
// outcome if no subset has reached the signing threshold yet, or if the
// VDF computation itself errored before voting resolved — fatal for this
// intent in that case.
func (o *Orchestrator) finishOnVDF(ctx context.Context, fp adapters.Fingerprint, vsnap vdf.Snapshot) (Result, error) {
	if vsnap.Status != vdf.StatusReady {
		reason := "vdf failed before voting resolved"
		if vsnap.Err != nil {
			reason = vsnap.Err.Error()
		}
		return o.finishFailed(ctx, fp, reason)
	}

	sig, err := o.guardians.SignDelayed(ctx, fp)
	if err != nil || sig == nil {
		return o.finishFailed(ctx, fp, "insufficient guardian signers available at vdf completion")
	}

	env := adapters.Envelope{
		Fingerprint: fp,
		VDFProof:    adapters.ToVDFProofWire(vsnap.Proof),
		Signature:   *sig,
		Outcome:     adapters.OutcomeTagDelayedApproved,
	}
	_ = o.store.Finalize(proposal.Fingerprint(fp), proposal.OutcomeApproved)
	o.publish(ctx, bus.KindReady, fp, nil)
	return o.deliver(ctx, fp, OutcomeDelayedApproved, env)
}

// finishOnExpiry handles a proposal deadline firing before either race arm
// resolves: no envelope, the intent is blocked.
func (o *Orchestrator) finishOnExpiry(ctx context.Context, fp adapters.Fingerprint) (Result, error) {
	_ = o.store.Finalize(proposal.Fingerprint(fp), proposal.OutcomeExpired)
	metrics.Inc("airlock_intents_total", map[string]string{"outcome": "expired"})
	o.publish(ctx, bus.KindFailed, fp, "expired")
	return Result{Fingerprint: fp, Outcome: OutcomeExpired, Reason: "proposal deadline reached"}, nil
}

// finishFailed is the fatal-error terminal path: the intent is blocked with
// no envelope, but (unlike expiry) the proposal is marked rejected in the
// store since it never reached a clean expiry.
func (o *Orchestrator) finishFailed(ctx context.Context, fp adapters.Fingerprint, reason string) (Result, error) {
	_ = o.store.Finalize(proposal.Fingerprint(fp), proposal.OutcomeRejected)
	metrics.Inc("airlock_intents_total", map[string]string{"outcome": "failed"})
	logger.ErrorJ("airlock_failed", map[string]any{"fingerprint": string(fp), "reason": reason})
	o.publish(ctx, bus.KindFailed, fp, reason)
	return Result{Fingerprint: fp, Outcome: OutcomeFailed, Reason: reason}, nil
}

// deliver hands env to the executor and assembles the final Result. A
// rejection envelope is still submitted — the executor itself is
// responsible for refusing it on-chain — so Submit always reports whatever
// the executor returned.
func (o *Orchestrator) deliver(ctx context.Context, fp adapters.Fingerprint, outcome Outcome, env adapters.Envelope) (Result, error) {
	o.publish(ctx, bus.KindExecuting, fp, nil)
	receipt, err := o.executor.Submit(ctx, env)
	if err != nil {
		logger.ErrorJ("airlock_executor", map[string]any{"fingerprint": string(fp), "error": err.Error()})
		metrics.Inc("airlock_intents_total", map[string]string{"outcome": "executor_error"})
		o.publish(ctx, bus.KindFailed, fp, err.Error())
		return Result{Fingerprint: fp, Outcome: OutcomeFailed, Envelope: &env, Reason: err.Error()}, nil
	}
	metrics.Inc("airlock_intents_total", map[string]string{"outcome": string(outcome)})
	o.publish(ctx, bus.KindComplete, fp, outcome)
	return Result{Fingerprint: fp, Outcome: outcome, Envelope: &env, Receipt: &receipt}, nil
}
