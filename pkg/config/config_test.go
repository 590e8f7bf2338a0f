package config

import (
	"flag"
	"testing"
	"time"
)

func TestDefaultConfig_PassesValidate(t *testing.T) {
	c := DefaultConfig()
	if err := c.Validate(); err != nil {
		t.Fatalf("DefaultConfig failed Validate: %v", err)
	}
}

func TestFromEnv_UnsetFallsBackToDefaults(t *testing.T) {
	c := FromEnv()
	want := DefaultConfig()
	if *c != want {
		t.Fatalf("FromEnv with no AIRLOCK_* vars set = %+v, want %+v", *c, want)
	}
}

func TestFromEnv_ReadsOverrides(t *testing.T) {
	t.Setenv("AIRLOCK_GUARDIAN_COUNT", "12")
	t.Setenv("AIRLOCK_APPROVAL_THRESHOLD", "9")
	t.Setenv("AIRLOCK_VDF_ITERATIONS", "500000")
	t.Setenv("AIRLOCK_PROPOSAL_DEADLINE", "90s")

	c := FromEnv()
	if c.GuardianCount != 12 {
		t.Errorf("GuardianCount = %d, want 12", c.GuardianCount)
	}
	if c.ApprovalThreshold != 9 {
		t.Errorf("ApprovalThreshold = %d, want 9", c.ApprovalThreshold)
	}
	if c.VDFIterations != 500000 {
		t.Errorf("VDFIterations = %d, want 500000", c.VDFIterations)
	}
	if c.ProposalDeadline != 90*time.Second {
		t.Errorf("ProposalDeadline = %v, want 90s", c.ProposalDeadline)
	}
}

func TestFromEnv_UnparsableValueIsIgnored(t *testing.T) {
	t.Setenv("AIRLOCK_GUARDIAN_COUNT", "not-a-number")
	c := FromEnv()
	if c.GuardianCount != DefaultConfig().GuardianCount {
		t.Fatalf("expected an unparsable env value to leave the default in place, got %d", c.GuardianCount)
	}
}

func TestFromFlags_DefaultsComeFromEnv(t *testing.T) {
	t.Setenv("AIRLOCK_APPROVAL_THRESHOLD", "8")
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	c := FromFlags(fs)
	if err := fs.Parse(nil); err != nil {
		t.Fatalf("fs.Parse failed: %v", err)
	}
	if c.ApprovalThreshold != 8 {
		t.Fatalf("expected the env override to flow through as the flag default, got %d", c.ApprovalThreshold)
	}
}

func TestFromFlags_FlagOverridesEnv(t *testing.T) {
	t.Setenv("AIRLOCK_APPROVAL_THRESHOLD", "8")
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	c := FromFlags(fs)
	if err := fs.Parse([]string{"-approval-threshold=9"}); err != nil {
		t.Fatalf("fs.Parse failed: %v", err)
	}
	if c.ApprovalThreshold != 9 {
		t.Fatalf("expected the explicit flag to win over the env default, got %d", c.ApprovalThreshold)
	}
}

func TestValidate_RejectsOutOfRangeThreshold(t *testing.T) {
	c := DefaultConfig()
	c.ApprovalThreshold = c.GuardianCount + 1
	if err := c.Validate(); err == nil {
		t.Fatal("expected Validate to reject an approval threshold above guardian count")
	}
}
