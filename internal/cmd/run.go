package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/concord-hq/concord/internal/agent"
	"github.com/concord-hq/concord/internal/breaker"
	"github.com/concord-hq/concord/internal/checker"
	"github.com/concord-hq/concord/internal/config"
	"github.com/concord-hq/concord/internal/errors"
	"github.com/concord-hq/concord/internal/event"
	"github.com/concord-hq/concord/internal/gaps"
	"github.com/concord-hq/concord/internal/logging"
	"github.com/concord-hq/concord/internal/model"
	"github.com/concord-hq/concord/internal/negotiation"
	"github.com/concord-hq/concord/internal/reasoner"
	"github.com/concord-hq/concord/internal/util"
)

var (
	runDemand    string
	runKeywords  []string
	runRequester string
	runHoldouts  int
	runTimeout   time.Duration
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a negotiation against the demo agent pool",
	Long: `Run one negotiation end to end against a built-in demo agent pool,
streaming session events as they happen.

The demo pool uses a deterministic scripted reasoner: agents respond
based on keyword overlap with the demand. Use --holdouts to mark agents
that keep negotiating instead of accepting, which drives the session
through multiple rounds and, at the cap, a forced finalization.`,
	Example: `  concord run --demand "coordinate a warehouse rollout" --keywords logistics,planning
  concord run --demand "localize the product launch" --keywords translation --holdouts 2`,
	RunE: runNegotiation,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVarP(&runDemand, "demand", "d", "", "demand text to negotiate (required)")
	runCmd.Flags().StringSliceVarP(&runKeywords, "keywords", "k", nil, "demand keywords for candidate matching")
	runCmd.Flags().StringVar(&runRequester, "requester", "cli", "requester identifier")
	runCmd.Flags().IntVar(&runHoldouts, "holdouts", 0, "agents that negotiate instead of accepting")
	runCmd.Flags().DurationVar(&runTimeout, "timeout", 2*time.Minute, "overall time budget for the session")
	_ = runCmd.MarkFlagRequired("demand")
}

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	eventStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	successStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	warnStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11"))
	failStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
)

// demoPool is the roster the run command negotiates against.
func demoPool() *agent.Pool {
	pool := agent.NewPool()
	for _, p := range []agent.Profile{
		{ID: "atlas", Name: "Atlas", Description: "freight and warehouse operations", Capabilities: []string{"logistics", "warehousing"}, Keywords: []string{"logistics", "freight", "warehouse", "rollout"}},
		{ID: "ledger", Name: "Ledger", Description: "budget and cost control", Capabilities: []string{"finance"}, Keywords: []string{"finance", "budget", "cost", "planning"}},
		{ID: "beacon", Name: "Beacon", Description: "launch communications", Capabilities: []string{"communications"}, Keywords: []string{"communications", "launch", "announcement"}},
		{ID: "polyglot", Name: "Polyglot", Description: "localization and translation", Capabilities: []string{"translation"}, Keywords: []string{"translation", "localization", "launch"}},
		{ID: "sentinel", Name: "Sentinel", Description: "compliance review", Capabilities: []string{"compliance"}, Keywords: []string{"compliance", "review", "planning"}},
		{ID: "courier", Name: "Courier", Description: "last-mile delivery", Capabilities: []string{"delivery"}, Keywords: []string{"delivery", "logistics", "rollout"}},
	} {
		pool.Add(p)
	}
	return pool
}

func runNegotiation(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %s", errs[0].Error())
	}

	log, err := logging.NewLogger(cfg.Logging.Dir, cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	defer log.Close()

	pool := demoPool()
	scripted := reasoner.NewScripted()
	for i, id := range pool.IDs() {
		if i < runHoldouts {
			scripted.SetBehavior(id, reasoner.Behavior{AcceptFromRound: cfg.Negotiation.MaxRounds + 1})
		}
	}

	cb := breaker.New(cfg.Breaker.FailureThreshold, cfg.Breaker.RecoveryTimeout(), log)
	rsn := reasoner.NewProtected(scripted, cb, log)

	bus := event.NewBus()
	bus.SubscribeAll(printEvent)

	mgr := negotiation.NewManager(cfg, pool, rsn, bus, log)
	defer mgr.Close()

	chk := checker.New(mgr, cfg.Checker, log)
	gapMgr := gaps.New(mgr, rsn, bus, cfg.Gaps, log)

	// Config edits made while the session runs take effect on the next
	// sweep without a restart.
	if path := viper.ConfigFileUsed(); path != "" {
		w, werr := config.NewWatcher(path, func(updated *config.Config) {
			chk.Reconfigure(updated.Checker)
			log.Info("configuration reloaded",
				"path", path,
				"max_stuck_seconds", updated.Checker.MaxStuckSeconds)
		})
		if werr != nil {
			log.Warn("config watch unavailable", "path", path, "error", werr)
		} else {
			defer w.Close()
		}
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), runTimeout)
	defer cancel()

	chk.Start(ctx)
	defer chk.Stop()
	gapMgr.Start(ctx)
	defer gapMgr.Stop()

	fmt.Println(headerStyle.Render("Concord negotiation"))
	fmt.Printf("%s %s\n", labelStyle.Render("demand:"), runDemand)
	if len(runKeywords) > 0 {
		fmt.Printf("%s %s\n", labelStyle.Render("keywords:"), strings.Join(runKeywords, ", "))
	}
	fmt.Printf("%s %d agents\n\n", labelStyle.Render("pool:"), pool.Size())

	demand := model.Demand{
		RequesterID: runRequester,
		RawText:     runDemand,
		Keywords:    runKeywords,
	}
	sessionID, err := mgr.Submit(ctx, demand)
	if err != nil {
		return userError(log, err)
	}
	if err := mgr.Confirm(sessionID); err != nil {
		return userError(log, err)
	}
	if err := mgr.Wait(ctx, sessionID); err != nil {
		return fmt.Errorf("session did not finish in time: %w", err)
	}

	// Let any spawned child negotiations finish before reporting.
	for _, s := range mgr.ActiveSnapshots() {
		_ = mgr.Wait(ctx, s.ID)
	}

	snap, err := mgr.Get(sessionID)
	if err != nil {
		return err
	}
	printOutcome(snap)
	return nil
}

// userError keeps internal detail in the log and returns only messages
// that are safe to print.
func userError(log *logging.Logger, err error) error {
	if errors.IsUserFacing(err) {
		return err
	}
	log.Error("command failed",
		"severity", errors.SeverityOf(err).String(), "error", err)
	return fmt.Errorf("internal error, see the log for details")
}

func printEvent(e event.Event) {
	detail := ""
	switch ev := e.(type) {
	case event.FilterCompletedEvent:
		detail = fmt.Sprintf("candidates=%s fallback=%v", strings.Join(ev.CandidateIDs, ","), ev.UsedFallback)
	case event.RoundStartedEvent:
		detail = fmt.Sprintf("round=%d/%d", ev.Round, ev.MaxRounds)
	case event.OfferSubmittedEvent:
		detail = fmt.Sprintf("agent=%s decision=%s", ev.AgentID, ev.Decision)
	case event.ProposalDistributedEvent:
		detail = fmt.Sprintf("proposal=%s round=%d", ev.ProposalID, ev.Round)
	case event.FeedbackEvaluatedEvent:
		detail = fmt.Sprintf("accept_rate=%.2f decision=%s", ev.AcceptRate, ev.Decision)
	case event.ForceFinalizedEvent:
		detail = fmt.Sprintf("confirmed=%d optional=%d", len(ev.ConfirmedParticipants), len(ev.OptionalParticipants))
	case event.NegotiationFailedEvent:
		detail = fmt.Sprintf("reason=%s", ev.Reason)
	case event.GapIdentifiedEvent:
		detail = fmt.Sprintf("capability=%s importance=%d", ev.Capability, ev.Importance)
	case event.SubnetTriggeredEvent:
		detail = fmt.Sprintf("child=%s gap=%s", ev.ChildID, ev.GapID)
	}
	line := eventStyle.Render(fmt.Sprintf("  %-32s %s", e.EventType(), detail))
	fmt.Println(util.TruncateANSI(line, 110))
}

func printOutcome(snap negotiation.Snapshot) {
	fmt.Println()
	switch snap.Status {
	case negotiation.StatusFinalized:
		fmt.Println(successStyle.Render(fmt.Sprintf("FINALIZED after %d round(s)", snap.Round)))
	case negotiation.StatusForceFinalized:
		fmt.Println(warnStyle.Render(fmt.Sprintf("FORCE FINALIZED at the round cap (%d)", snap.MaxRounds)))
	case negotiation.StatusFailed:
		fmt.Println(failStyle.Render(fmt.Sprintf("FAILED: %s", snap.FailReason)))
		return
	}

	proposal, ok := snap.LatestProposal()
	if !ok {
		return
	}
	fmt.Println(labelStyle.Render("assignments:"))
	for _, a := range proposal.Assignments {
		marker := "optional"
		if a.IsConfirmed {
			marker = "confirmed"
		}
		fmt.Printf("  %-10s %-10s %s\n", a.AgentID, marker, util.TruncateString(a.Responsibility, 70))
	}
	if proposal.IsForced {
		fmt.Printf("%s %s\n", labelStyle.Render("confirmed:"), strings.Join(proposal.ConfirmedParticipants, ", "))
		fmt.Printf("%s %s\n", labelStyle.Render("optional:"), strings.Join(proposal.OptionalParticipants, ", "))
	}
	for _, g := range proposal.Gaps {
		res := string(g.Resolution)
		if res == "" {
			res = "open"
		}
		fmt.Printf("%s %s (importance %d, %s)\n", labelStyle.Render("gap:"), g.Capability, g.Importance, res)
	}
}
