package sync

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/agentstation/rbxproducts"
	"github.com/agentstation/rbxproducts/cmd/application"
	"github.com/agentstation/rbxproducts/internal/cmd/cmdutil"
	"github.com/agentstation/rbxproducts/internal/cmd/output"
	"github.com/agentstation/rbxproducts/internal/cmd/prompt"
	"github.com/agentstation/rbxproducts/pkg/catalog"
	"github.com/agentstation/rbxproducts/pkg/declared"
)

// ExecuteSync runs a sync and renders its result.
func ExecuteSync(ctx context.Context, app application.Application, flags *Flags, stdin io.Reader, stdout, stderr io.Writer) error {
	logger := app.Logger()

	opts := []rbxproducts.Option{rbxproducts.WithDryRun(flags.DryRun)}
	if flags.Concurrency != 0 {
		opts = append(opts, rbxproducts.WithConcurrency(flags.Concurrency))
	}
	if flags.AllFields {
		opts = append(opts, rbxproducts.WithFields(catalog.AllFields()...))
	}
	if !flags.DryRun && !app.Overwrite() && !app.AutoApprove() {
		p := prompt.New(stdin, stderr)
		if !p.Interactive() {
			logger.Warn().Msg("Input is not a terminal; every change will be declined. Pass --yes to apply without prompting")
		}
		opts = append(opts, rbxproducts.WithConfirm(p.Approve))
	}

	syncer, err := app.Syncer(opts...)
	if err != nil {
		return err
	}
	result, err := syncer.Sync(ctx)
	if result != nil && result.Plan != nil && flags.Report != "" {
		if reportErr := writeReport(flags.Report, result); reportErr != nil {
			logger.Warn().Err(reportErr).Str("path", flags.Report).Msg("Failed to write report")
		} else {
			logger.Info().Str("path", flags.Report).Msg("Report written")
		}
	}
	if err != nil {
		return err
	}

	format, err := output.ParseFormat(app.OutputFormat())
	if err != nil {
		return err
	}
	if result.DryRun {
		if err := output.Write(stdout, format, result, output.PlanTable(result.Plan)); err != nil {
			return err
		}
		fmt.Fprintf(stderr, "Dry run: %s\n", result.Plan.Summary())
		return nil
	}

	if err := output.Write(stdout, format, result, output.ReportTable(result.Report)); err != nil {
		return err
	}
	fmt.Fprintln(stderr, result.Report.Summary())

	if !result.OK() {
		return cmdutil.Partial("%d operations failed", result.Report.Failed)
	}
	return nil
}

// ExecutePlan computes and renders a plan.
func ExecutePlan(ctx context.Context, app application.Application, flags *Flags, stdout, stderr io.Writer) error {
	var opts []rbxproducts.Option
	if flags.AllFields {
		opts = append(opts, rbxproducts.WithFields(catalog.AllFields()...))
	}
	syncer, err := app.Syncer(opts...)
	if err != nil {
		return err
	}
	plan, err := syncer.Plan(ctx)
	if err != nil {
		return err
	}

	format, err := output.ParseFormat(app.OutputFormat())
	if err != nil {
		return err
	}
	if err := output.Write(stdout, format, plan, output.PlanTable(plan)); err != nil {
		return err
	}
	if (format == output.FormatTable || format == "") && len(plan.Unmanaged) > 0 {
		fmt.Fprintln(stdout, "\nUnmanaged remote records:")
		if err := output.Write(stdout, output.FormatTable, nil, output.UnmanagedTable(plan.Unmanaged)); err != nil {
			return err
		}
	}
	fmt.Fprintln(stderr, plan.Summary())
	return nil
}

func writeReport(path string, result *rbxproducts.SyncResult) error {
	var buf bytes.Buffer
	err := output.WriteMarkdown(&buf, output.SyncReport{
		RunID:      result.RunID,
		File:       result.File,
		UniverseID: result.UniverseID,
		DryRun:     result.DryRun,
		At:         time.Now(),
		Plan:       result.Plan,
		Report:     result.Report,
	})
	if err != nil {
		return err
	}
	return declared.WriteFileAtomic(path, buf.Bytes())
}
