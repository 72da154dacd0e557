/*
orchestrator.go - Dirty-range recomputation

PURPOSE:
  Given an upload's target month (and the earliest month any adjustment
  reached back to), determines the ordered set of months requiring
  recomputation and drives Aggregator -> Resolver -> Synthesizer across
  that set for every affected payee.

DIRTY RANGE:
  [min(adjusted month, upload month) .. max(upload month, latest month
  with any existing summary)]. Extending forward through the latest
  summary month guarantees that tier and threshold changes propagate to
  months already computed from now-stale data.

TWO-PHASE ORDERING:
  Aggregation for every (payee, month) in the range completes before any
  payout synthesis begins. The recruitment-manager and account-manager
  policies read the summary of a deal's invoice month, which may be
  later in the range than the month being synthesized; synthesizing
  against a half-updated summary would rate bonuses from stale totals.

CONCURRENCY:
  Months are processed in ascending order; payees within a phase run in
  parallel (payee state is independent). Payout replacement is atomic
  per (payee, sourceMonth), so a failed or interrupted run can be safely
  re-triggered: the rerun converges on the same ledger.

FAILURE SEMANTICS:
  The first error aborts the whole run and propagates to the caller.
  No partial result is reported as success.
*/
package commission

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency bounds per-payee parallelism within a phase.
const DefaultConcurrency = 4

// Orchestrator recomputes summaries and payouts over a dirty month range.
type Orchestrator struct {
	Store  RecordStore
	Logger *slog.Logger

	// Concurrency caps parallel payees per phase. <= 0 means
	// DefaultConcurrency.
	Concurrency int
}

// RecalcRequest is an explicit batch of work: which payees to process
// and which months are known dirty.
type RecalcRequest struct {
	// UploadMonth is the month the triggering upload targeted.
	UploadMonth Month

	// EarliestDirty extends the range backward when an adjustment
	// reached into history. Zero value means no earlier month is dirty.
	EarliestDirty Month

	// Payees is the explicit work list. Payee state is independent, so
	// callers may scope a run to any subset (typically one class).
	Payees []PayeeConfig
}

// Run recomputes the dirty range. Reprocessing the same range with
// unchanged inputs yields an identical summary and payout set.
func (o *Orchestrator) Run(ctx context.Context, req RecalcRequest) error {
	from := req.UploadMonth
	if !req.EarliestDirty.IsZero() {
		from = MinMonth(from, req.UploadMonth)
		from = MinMonth(from, req.EarliestDirty)
	}
	to := req.UploadMonth
	latest, err := o.Store.LatestSummaryMonth(ctx)
	if err != nil {
		return err
	}
	if latest != nil {
		to = MaxMonth(to, *latest)
	}

	months := MonthsBetween(from, to)
	o.logger().Info("recalculation starting",
		"from", from.String(), "to", to.String(), "payees", len(req.Payees))

	aggregator := &Aggregator{Store: o.Store}
	synthesizer := &Synthesizer{Store: o.Store}

	// Phase 1: materialize every summary in the range before any payout
	// is synthesized.
	for _, month := range months {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(o.concurrency())
		for _, payee := range req.Payees {
			email := payee.Email
			m := month
			g.Go(func() error {
				_, err := aggregator.Recompute(gctx, email, m)
				return err
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
	}

	// Phase 2: synthesize payouts, month-ascending, payees in parallel.
	for _, month := range months {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(o.concurrency())
		for i := range req.Payees {
			cfg := req.Payees[i]
			m := month
			g.Go(func() error {
				return synthesizer.Synthesize(gctx, &cfg, cfg.Email, m)
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
	}

	o.logger().Info("recalculation complete",
		"from", from.String(), "to", to.String(), "months", len(months))
	return nil
}

func (o *Orchestrator) concurrency() int {
	if o.Concurrency > 0 {
		return o.Concurrency
	}
	return DefaultConcurrency
}

func (o *Orchestrator) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}
