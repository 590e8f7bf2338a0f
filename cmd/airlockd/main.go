// Command airlockd wires an Orchestrator and its collaborators into a
// long-running process: parse flags, construct services, Add them to a
// lifecycle.Manager in dependency order, StartAll, block on a signal,
// StopAll.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/benbjohnson/clock"

	"github.com/zmlAEQ/airlock-core/internal/adapters"
	"github.com/zmlAEQ/airlock-core/internal/airlock"
	"github.com/zmlAEQ/airlock-core/internal/proposal"
	"github.com/zmlAEQ/airlock-core/internal/statusapi"
	"github.com/zmlAEQ/airlock-core/internal/vdf"
	"github.com/zmlAEQ/airlock-core/pkg/bus"
	"github.com/zmlAEQ/airlock-core/pkg/config"
	"github.com/zmlAEQ/airlock-core/pkg/lifecycle"
	"github.com/zmlAEQ/airlock-core/pkg/logger"
)

func main() {
	var (
		statusAddr string
		signThresh int
		policyPath string
		keyDir     string
		vdfLambda  uint64
		maxExpired int
		busSize    int
	)
	fs := flag.CommandLine
	fs.StringVar(&statusAddr, "status-addr", "127.0.0.1:4630", "Status/metrics HTTP listen address")
	fs.IntVar(&signThresh, "sign-threshold", 0, "FROST signing threshold t (defaults to approval-threshold)")
	fs.StringVar(&policyPath, "policy-file", "airlock-policy.json", "Path to the persisted blacklist/pause document")
	fs.StringVar(&keyDir, "key-dir", "airlock-keys", "Directory holding each guardian's persisted DKG share")
	fs.Uint64Var(&vdfLambda, "vdf-lambda", 128, "Bit length of each RSA prime factor of the VDF modulus (generated once at startup)")
	fs.IntVar(&maxExpired, "max-expired-cache", 4096, "Bounded LRU size for recently-expired proposal fingerprints")
	fs.IntVar(&busSize, "bus-size", 256, "Progress-event bus channel capacity")
	cfg := config.FromFlags(fs)
	flag.Parse()

	if signThresh <= 0 {
		signThresh = cfg.ApprovalThreshold
	}
	if err := cfg.Validate(); err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, err := proposal.New(clock.New(), maxExpired)
	if err != nil {
		logger.Error("proposal store: " + err.Error())
		os.Exit(1)
	}

	guardians, err := adapters.NewLocalGuardianNetworkPersistent(cfg.GuardianCount, signThresh, cfg.ApprovalThreshold, cfg.RejectionThreshold, keyDir)
	if err != nil {
		logger.Error("guardian network dkg: " + err.Error())
		os.Exit(1)
	}

	wesolowski, err := vdf.NewWesolowski(vdfLambda)
	if err != nil {
		logger.Error("vdf modulus generation: " + err.Error())
		os.Exit(1)
	}
	engine := vdf.NewEngine(wesolowski, int64(cfg.GuardianCount), cfg.CheckpointEvery)

	policy, err := adapters.NewFilePolicySource(policyPath)
	if err != nil {
		logger.Error("policy source: " + err.Error())
		os.Exit(1)
	}

	b := bus.New(busSize)

	orch := airlock.New(*cfg)
	orch.SetStore(store)
	orch.SetGuardianNetwork(guardians)
	orch.SetVDFEngine(engine)
	orch.SetPolicySource(policy)
	orch.SetBus(b)
	// Scorer and Executor stay opaque adapters: model inference and chain
	// submission are both out of scope here. Operators wire their own model
	// client and chain submitter in place of these before taking traffic.
	orch.SetScorer(adapters.NewMockScorer(adapters.ScoreResult{Score: 0, Verdict: adapters.VerdictSafe}))
	orch.SetExecutor(adapters.NewMockExecutor(adapters.Receipt{Status: "accepted"}))

	m := lifecycle.New()
	m.Add(orch)
	m.Add(statusapi.New(statusAddr, orchestratorHealth{orch}))

	if err := m.StartAll(ctx); err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}
	<-ctx.Done()
	_ = m.StopAll(context.Background())
}

// orchestratorHealth adapts the orchestrator to statusapi.HealthReporter.
// It reports healthy whenever it holds an orchestrator: Orchestrator.Start
// already refuses to run without its store configured, so a running process
// is by definition past that check.
type orchestratorHealth struct {
	orch *airlock.Orchestrator
}

func (h orchestratorHealth) Healthy() (bool, string) {
	if h.orch == nil {
		return false, "orchestrator not configured"
	}
	return true, "ok"
}
