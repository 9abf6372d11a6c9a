package rbxproducts

import (
	"context"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/agentstation/rbxproducts/pkg/catalog"
	"github.com/agentstation/rbxproducts/pkg/declared"
	"github.com/agentstation/rbxproducts/pkg/executor"
	"github.com/agentstation/rbxproducts/pkg/logging"
	"github.com/agentstation/rbxproducts/pkg/reconciler"
)

// SyncResult describes one sync run.
type SyncResult struct {
	RunID      string           `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	File       string           `json:"file" yaml:"file"`
	UniverseID uint64           `json:"universe_id" yaml:"universe_id"`
	DryRun     bool             `json:"dry_run" yaml:"dry_run"`
	Plan       *reconciler.Plan `json:"plan" yaml:"plan"`
	Report     *executor.Report `json:"report,omitempty" yaml:"report,omitempty"`
	// Linked counts declared entries that gained a remote id.
	Linked        int           `json:"linked" yaml:"linked"`
	GeneratedFile string        `json:"generated_file,omitempty" yaml:"generated_file,omitempty"`
	Duration      time.Duration `json:"duration" yaml:"duration"`
}

// OK reports whether every attempted write succeeded.
func (r *SyncResult) OK() bool {
	return r.Report == nil || r.Report.OK()
}

// Sync pushes the declared catalog to the remote catalog.
//
// A malformed declared file or a failed listing aborts before anything is
// written. After that, each create or update stands alone: failures are
// reported in the result and the run moves on. New ids are written back to
// the declared file even when some operations failed, so the next run
// updates them instead of creating duplicates.
func (s *Syncer) Sync(ctx context.Context) (result *SyncResult, err error) {
	ctx = s.context(ctx)
	start := time.Now()

	// Step 1: Load the declared file and open its universe
	decl, source, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	result = &SyncResult{File: s.config.file, UniverseID: decl.Metadata.UniverseID, DryRun: s.config.dryRun}
	ctx = logging.WithField(ctx, "universe_id", decl.Metadata.UniverseID)

	// Step 2: Open a journal run
	var finish func(*executor.Report, error)
	ctx, result.RunID, finish = s.startRun(ctx, "sync", result.UniverseID, result.DryRun)
	defer func() {
		result.Duration = time.Since(start)
		finish(result.Report, err)
	}()
	log := s.logger(ctx)

	// Step 3: List the remote catalog
	records, err := source.List(ctx)
	if err != nil {
		return result, err
	}
	log.Info().Int("declared", decl.Len()).Int("remote", len(records)).Msg("Catalogs loaded")

	// Step 4: Plan
	rec, err := reconciler.New(s.config.reconcilerOptions()...)
	if err != nil {
		return result, err
	}
	plan, err := rec.Plan(decl, records)
	if err != nil {
		return result, err
	}
	logPlan(log, plan)
	result.Plan = plan

	if s.config.dryRun {
		log.Info().Bool("dry_run", true).Msg("Dry run completed - no changes applied")
		return result, nil
	}
	if !plan.HasChanges() {
		log.Info().Msg("No changes detected")
	}

	// Step 5: Ask for approval
	plan = plan.Decline(s.config.approve)
	result.Plan = plan

	// Step 6: Execute
	exec, err := executor.New(source,
		executor.WithConcurrency(s.config.concurrency),
		executor.WithObserver(s.recordOutcome(result.RunID)),
	)
	if err != nil {
		return result, err
	}
	report := exec.Execute(ctx, plan)
	result.Report = report

	// Step 7: Write new ids back, including entries paired by name
	for cat, links := range report.Links {
		result.Linked += decl.LinkAll(cat, links)
	}
	for cat, links := range nameMatches(report) {
		result.Linked += decl.LinkAll(cat, links)
	}
	if result.Linked > 0 {
		if err := declared.Save(s.config.file, decl); err != nil {
			return result, err
		}
		log.Info().Int("linked", result.Linked).Str("path", s.config.file).Msg("Declared file updated")
	}

	if report.Fatal != nil {
		return result, report.Fatal
	}
	if err := ctx.Err(); err != nil {
		return result, err
	}

	// Step 8: Regenerate from a fresh listing
	if decl.Metadata.GeneratedFile != "" {
		if report.Created+report.Updated > 0 {
			if records, err = source.List(ctx); err != nil {
				return result, err
			}
		}
		if result.GeneratedFile, err = s.regenerate(ctx, decl, records); err != nil {
			return result, err
		}
	}

	log.Info().Str("summary", report.Summary()).Dur("duration", time.Since(start)).Msg("Sync completed")
	return result, nil
}

// Plan computes what Sync would do without applying or saving anything.
func (s *Syncer) Plan(ctx context.Context) (*reconciler.Plan, error) {
	ctx = s.context(ctx)
	decl, source, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	records, err := source.List(ctx)
	if err != nil {
		return nil, err
	}
	rec, err := reconciler.New(s.config.reconcilerOptions()...)
	if err != nil {
		return nil, err
	}
	return rec.Plan(decl, records)
}

func logPlan(log *zerolog.Logger, plan *reconciler.Plan) {
	summary := plan.Summary()
	log.Info().
		Int("creates", summary.Creates).
		Int("updates", summary.Updates).
		Int("unchanged", summary.NoOps).
		Int("conflicts", summary.Conflicts).
		Int("unmanaged", summary.Unmanaged).
		Msg("Plan computed")

	for _, r := range plan.Unmanaged {
		log.Info().
			Str("category", r.Category.String()).
			Uint64("record_id", r.ID).
			Str("name", r.Name).
			Msg("Remote record is not declared; leaving it untouched")
	}
	for _, op := range plan.Conflicts() {
		log.Warn().
			Str("category", op.Category.String()).
			Str("entry_key", op.Key).
			Uint64("record_id", op.RecordID()).
			Str("reason", op.Reason).
			Msg("Entry needs review")
	}
}

// startRun opens a journal run when a journal is configured. Journal
// failures are logged and never fail the sync.
func (s *Syncer) startRun(ctx context.Context, command string, universeID uint64, dryRun bool) (context.Context, string, func(*executor.Report, error)) {
	noop := func(*executor.Report, error) {}
	if s.config.journal == nil {
		return ctx, "", noop
	}
	runID, err := s.config.journal.StartRun(ctx, command, s.config.file, universeID, dryRun)
	if err != nil {
		s.logger(ctx).Warn().Err(err).Msg("Journal unavailable; run will not be recorded")
		return ctx, "", noop
	}
	ctx = logging.WithRunID(ctx, runID)

	return ctx, runID, func(report *executor.Report, runErr error) {
		if err := s.config.journal.FinishRun(context.WithoutCancel(ctx), runID, report, runErr); err != nil {
			s.logger(ctx).Warn().Err(err).Msg("Failed to finish journal run")
		}
	}
}

func (s *Syncer) recordOutcome(runID string) executor.Observer {
	return func(ctx context.Context, o executor.Outcome) {
		if s.config.journal == nil || runID == "" {
			return
		}
		if err := s.config.journal.RecordOutcome(context.WithoutCancel(ctx), runID, o); err != nil {
			s.logger(ctx).Warn().Err(err).Str("entry_key", o.Operation.Key).Msg("Failed to journal outcome")
		}
	}
}

// nameMatches collects the records that unlinked entries were paired with
// by name and that are known to exist after execution.
func nameMatches(report *executor.Report) map[catalog.Category]map[string]uint64 {
	out := make(map[catalog.Category]map[string]uint64)
	for _, o := range report.Outcomes {
		if o.Operation.Match != reconciler.MatchName || o.Record == nil {
			continue
		}
		if o.Status != executor.StatusUpdated && o.Status != executor.StatusNoOp {
			continue
		}
		if out[o.Operation.Category] == nil {
			out[o.Operation.Category] = make(map[string]uint64)
		}
		out[o.Operation.Category][o.Operation.Key] = o.Record.ID
	}
	return out
}

// resolve interprets a generated-file path relative to the declared file.
func resolve(declaredFile, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(filepath.Dir(declaredFile), path)
}
