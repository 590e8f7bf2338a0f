// Package config holds the module's runtime tunables: guardian quorum size
// and thresholds, VDF difficulty, proposal deadlines, and per-adapter
// timeouts — a plain struct populated by flag.FlagSet, no config
// framework.
package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config is the full set of tunables read by internal/airlock and its
// collaborators.
type Config struct {
	// GuardianCount is the number of guardians in the threshold signing
	// group (FROST's n).
	GuardianCount int
	// ApprovalThreshold is the number of APPROVE votes required to clear an
	// intent for execution.
	ApprovalThreshold int
	// RejectionThreshold is the number of REJECT votes that blocks an
	// intent outright. Derived as GuardianCount - ApprovalThreshold + 1
	// unless overridden.
	RejectionThreshold int
	// FlagThreshold is the risk score (0-100) at or above which an intent
	// is flagged: a VDF time-lock is started alongside the guardian vote
	// that every intent goes through.
	FlagThreshold int
	// VDFIterations is the number of squarings the VDF engine must perform
	// before a proof is accepted.
	VDFIterations uint64
	// ProposalDeadline bounds how long a proposal may remain open awaiting
	// votes before it expires.
	ProposalDeadline time.Duration
	// ScorerTimeout bounds a single call to the risk scorer.
	ScorerTimeout time.Duration
	// CheckpointEvery is the number of VDF squaring steps between
	// checkpoints, where the engine records progress and checks for a
	// bypass or cancellation. Checkpoints are not persisted.
	CheckpointEvery uint64
}

// DefaultConfig returns the tunables used when no override is supplied.
func DefaultConfig() Config {
	c := Config{
		GuardianCount:     10,
		ApprovalThreshold: 7,
		FlagThreshold:     50,
		VDFIterations:     2_000_000,
		ProposalDeadline:  5 * time.Minute,
		ScorerTimeout:     2 * time.Second,
		CheckpointEvery:   4096,
	}
	c.RejectionThreshold = c.GuardianCount - c.ApprovalThreshold + 1
	return c
}

// Validate checks the tunables for internal consistency.
func (c Config) Validate() error {
	if c.GuardianCount <= 0 {
		return fmt.Errorf("config: guardian count must be positive")
	}
	if c.ApprovalThreshold <= 0 || c.ApprovalThreshold > c.GuardianCount {
		return fmt.Errorf("config: approval threshold out of range")
	}
	if c.RejectionThreshold <= 0 || c.RejectionThreshold > c.GuardianCount {
		return fmt.Errorf("config: rejection threshold out of range")
	}
	if c.FlagThreshold < 0 || c.FlagThreshold > 100 {
		return fmt.Errorf("config: flag threshold must be in [0,100]")
	}
	if c.VDFIterations == 0 {
		return fmt.Errorf("config: vdf iterations must be positive")
	}
	if c.ProposalDeadline <= 0 {
		return fmt.Errorf("config: proposal deadline must be positive")
	}
	if c.ScorerTimeout <= 0 {
		return fmt.Errorf("config: scorer timeout must be positive")
	}
	return nil
}

// FromFlags registers the config's tunables on fs and returns a pointer to
// the Config that will be populated once fs.Parse is called. Callers
// typically pass flag.CommandLine and call flag.Parse() themselves. Flag
// defaults come from FromEnv, not DefaultConfig directly, so an operator can
// set AIRLOCK_* environment variables as the baseline and still override any
// single one of them with a flag at process start.
func FromFlags(fs *flag.FlagSet) *Config {
	c := FromEnv()
	fs.IntVar(&c.GuardianCount, "guardian-count", c.GuardianCount, "Number of guardians in the threshold signing group")
	fs.IntVar(&c.ApprovalThreshold, "approval-threshold", c.ApprovalThreshold, "Number of APPROVE votes required to clear an intent")
	fs.IntVar(&c.RejectionThreshold, "rejection-threshold", c.RejectionThreshold, "Number of REJECT votes that blocks an intent outright")
	fs.IntVar(&c.FlagThreshold, "flag-threshold", c.FlagThreshold, "Risk score at or above which an intent is flagged and a VDF time-lock started")
	fs.Uint64Var(&c.VDFIterations, "vdf-iterations", c.VDFIterations, "Number of squarings the VDF engine must perform")
	fs.DurationVar(&c.ProposalDeadline, "proposal-deadline", c.ProposalDeadline, "How long a proposal may stay open awaiting votes")
	fs.DurationVar(&c.ScorerTimeout, "scorer-timeout", c.ScorerTimeout, "Timeout for a single risk-scorer call")
	fs.Uint64Var(&c.CheckpointEvery, "checkpoint-every", c.CheckpointEvery, "VDF squaring steps between progress/bypass checkpoints")
	return c
}

// FromEnv returns the tunables read from the process environment, falling
// back to DefaultConfig for any variable that is unset or fails to parse.
// Variables follow the AIRLOCK_ prefix internal/tss/dkg's own env-driven
// knobs use: AIRLOCK_GUARDIAN_COUNT, AIRLOCK_APPROVAL_THRESHOLD,
// AIRLOCK_REJECTION_THRESHOLD, AIRLOCK_FLAG_THRESHOLD,
// AIRLOCK_VDF_ITERATIONS, AIRLOCK_PROPOSAL_DEADLINE (a time.Duration
// string, e.g. "5m"), AIRLOCK_SCORER_TIMEOUT (same), AIRLOCK_CHECKPOINT_EVERY.
func FromEnv() *Config {
	c := DefaultConfig()
	envInt(&c.GuardianCount, "AIRLOCK_GUARDIAN_COUNT")
	envInt(&c.ApprovalThreshold, "AIRLOCK_APPROVAL_THRESHOLD")
	envInt(&c.RejectionThreshold, "AIRLOCK_REJECTION_THRESHOLD")
	envInt(&c.FlagThreshold, "AIRLOCK_FLAG_THRESHOLD")
	envUint64(&c.VDFIterations, "AIRLOCK_VDF_ITERATIONS")
	envDuration(&c.ProposalDeadline, "AIRLOCK_PROPOSAL_DEADLINE")
	envDuration(&c.ScorerTimeout, "AIRLOCK_SCORER_TIMEOUT")
	envUint64(&c.CheckpointEvery, "AIRLOCK_CHECKPOINT_EVERY")
	return &c
}

func envInt(dst *int, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	if n, err := strconv.Atoi(v); err == nil {
		*dst = n
	}
}

func envUint64(dst *uint64, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	if n, err := strconv.ParseUint(v, 10, 64); err == nil {
		*dst = n
	}
}

func envDuration(dst *time.Duration, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	if d, err := time.ParseDuration(v); err == nil {
		*dst = d
	}
}
