// Command hlsc is the HLS compiler CLI: it ingests a JSON action tree,
// lowers and converts it to IR, optimizes, schedules, and emits either the
// IR text form or synthesizable hardware text. Subcommand dispatch follows
// the teacher's cmd/mygo/main.go run(args) switch, restructured onto
// cobra per vovakirdan-surge's cmd/surge, keeping §6's exact flag names.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/hlsc-project/hlsc/internal/ast"
	"github.com/hlsc-project/hlsc/internal/bench"
	"github.com/hlsc-project/hlsc/internal/config"
	"github.com/hlsc-project/hlsc/internal/delay"
	"github.com/hlsc-project/hlsc/internal/diag"
	"github.com/hlsc-project/hlsc/internal/emit/hardware"
	"github.com/hlsc-project/hlsc/internal/emit/irtext"
	"github.com/hlsc-project/hlsc/internal/ir"
	"github.com/hlsc-project/hlsc/internal/irconv"
	"github.com/hlsc-project/hlsc/internal/lower"
	"github.com/hlsc-project/hlsc/internal/passes"
	"github.com/hlsc-project/hlsc/internal/schedule"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if derr, ok := err.(*diag.Error); ok {
			os.Exit(derr.Kind.ExitCode())
		}
		os.Exit(1)
	}
}

type commonFlags struct {
	top                     string
	optLevel                int
	pipelineStages          int
	clockPeriodPs           int64
	clockMarginPercent      int64
	periodRelaxationPercent int64
	delayModel              string
	irDumpPath              string
	diagFormat              string
	output                  string
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "hlsc",
		Short: "high-level-synthesis compiler for the packet-processing action-tree IR",
	}
	root.AddCommand(newCompileCmd(), newDumpIRCmd(), newScheduleCmd(), newBenchCmd())
	return root
}

func bindCommonFlags(cmd *cobra.Command, f *commonFlags) {
	cmd.Flags().StringVar(&f.top, "top", "main", "target function name")
	cmd.Flags().IntVar(&f.optLevel, "opt_level", 1, "optimization level (1..max)")
	cmd.Flags().IntVar(&f.pipelineStages, "pipeline_stages", 0, "requested pipeline stage count (0 = derive from clock period)")
	cmd.Flags().Int64Var(&f.clockPeriodPs, "clock_period_ps", 0, "target clock period in picoseconds (0 = search for the minimum)")
	cmd.Flags().Int64Var(&f.clockMarginPercent, "clock_margin_percent", 0, "percent of the clock period to hold back as margin before scheduling")
	cmd.Flags().Int64Var(&f.periodRelaxationPercent, "period_relaxation_percent", 0, "percent of the clock period to relax by when reporting")
	cmd.Flags().StringVar(&f.delayModel, "delay_model", "table", "delay estimator to use (table is the only one built in)")
	cmd.Flags().StringVar(&f.irDumpPath, "ir_dump_path", "", "optional path to also dump the IR text form")
	cmd.Flags().StringVar(&f.diagFormat, "diag-format", "text", "diagnostic output format (text|json)")
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "output file path (stdout when omitted)")
}

func loadFunction(path string, f *commonFlags, reporter *diag.Reporter) (*ir.Function, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, diag.Errorf(diag.KindNotFound, "reading %s: %v", path, err)
	}
	a, moduleID, err := ast.Decode(data, reporter)
	if err != nil {
		return nil, err
	}

	lowerCtx := lower.NewContext(a, reporter)
	if err := lower.DefaultPipeline().Run(lowerCtx); err != nil {
		return nil, err
	}
	if reporter.HasErrors() {
		return nil, diag.Errorf(diag.KindInvalidArgument, "lowering reported errors for %s", path)
	}

	fn := ir.NewFunction(f.top)
	if err := irconv.Convert(a, moduleID, fn, reporter); err != nil {
		return nil, err
	}
	if reporter.HasErrors() {
		return nil, diag.Errorf(diag.KindInvalidArgument, "IR conversion reported errors for %s", path)
	}

	if f.optLevel > 0 {
		if err := passes.DefaultPipeline().Run(fn); err != nil {
			return nil, err
		}
	}

	if f.irDumpPath != "" {
		if err := writeToPath(f.irDumpPath, func(w io.Writer) error { return irtext.Emit(fn, w) }); err != nil {
			return nil, err
		}
	}
	return fn, nil
}

// applyConfig layers an optional hlsc.toml project manifest and hlsc.yml
// sidecar defaults from the current directory underneath whatever flags
// the user actually typed, per internal/config's precedence rule.
func applyConfig(cmd *cobra.Command, f *commonFlags) error {
	cwd, err := os.Getwd()
	if err != nil {
		return diag.Errorf(diag.KindInternal, "getwd: %v", err)
	}
	defaults, err := config.LoadDefaults(cwd)
	if err != nil {
		return diag.Errorf(diag.KindInvalidArgument, "%v", err)
	}
	manifest, _, err := config.LoadManifest(cwd)
	if err != nil {
		return diag.Errorf(diag.KindInvalidArgument, "%v", err)
	}

	flagsSet := map[string]bool{
		"top":                       cmd.Flags().Changed("top"),
		"clock_period_ps":           cmd.Flags().Changed("clock_period_ps"),
		"clock_margin_percent":      cmd.Flags().Changed("clock_margin_percent"),
		"period_relaxation_percent": cmd.Flags().Changed("period_relaxation_percent"),
		"delay_model":               cmd.Flags().Changed("delay_model"),
	}
	resolved := config.Resolve(defaults, manifest, config.Resolved{
		Top:                     f.top,
		ClockPeriodPs:           f.clockPeriodPs,
		ClockMarginPercent:      f.clockMarginPercent,
		PeriodRelaxationPercent: f.periodRelaxationPercent,
		DelayModel:              f.delayModel,
	}, flagsSet)

	f.top = resolved.Top
	f.clockPeriodPs = resolved.ClockPeriodPs
	f.clockMarginPercent = resolved.ClockMarginPercent
	f.periodRelaxationPercent = resolved.PeriodRelaxationPercent
	f.delayModel = resolved.DelayModel
	return nil
}

func resolveDelayEstimator(name string) (delay.Estimator, error) {
	switch name {
	case "", "table":
		return delay.TableEstimator{}, nil
	default:
		return nil, diag.Errorf(diag.KindInvalidArgument, "unknown --delay_model %q", name)
	}
}

func runSchedule(fn *ir.Function, f *commonFlags) (*schedule.Schedule, error) {
	est, err := resolveDelayEstimator(f.delayModel)
	if err != nil {
		return nil, err
	}
	opts := schedule.Options{
		ClockPeriodPs:           f.clockPeriodPs,
		ClockMarginPercent:      f.clockMarginPercent,
		PeriodRelaxationPercent: f.periodRelaxationPercent,
		PipelineStages:          f.pipelineStages,
		Strategy:                schedule.StrategyMinCut,
	}
	return schedule.Run(context.Background(), fn, est, opts)
}

func newDumpIRCmd() *cobra.Command {
	f := &commonFlags{}
	cmd := &cobra.Command{
		Use:   "dump-ir <path>",
		Short: "parse, lower, convert, and optimize, emitting the IR text form",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := applyConfig(cmd, f); err != nil {
				return err
			}
			reporter := diag.NewReporter(os.Stderr, f.diagFormat)
			fn, err := loadFunction(args[0], f, reporter)
			if err != nil {
				return err
			}
			return writeToPath(f.output, func(w io.Writer) error { return irtext.Emit(fn, w) })
		},
	}
	bindCommonFlags(cmd, f)
	return cmd
}

func newScheduleCmd() *cobra.Command {
	f := &commonFlags{}
	cmd := &cobra.Command{
		Use:   "schedule <path>",
		Short: "parse, lower, convert, optimize, and schedule, printing the per-cycle dump",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := applyConfig(cmd, f); err != nil {
				return err
			}
			reporter := diag.NewReporter(os.Stderr, f.diagFormat)
			fn, err := loadFunction(args[0], f, reporter)
			if err != nil {
				return err
			}
			sched, err := runSchedule(fn, f)
			if err != nil {
				return err
			}
			return writeToPath(f.output, func(w io.Writer) error {
				_, err := io.WriteString(w, sched.String())
				return err
			})
		},
	}
	bindCommonFlags(cmd, f)
	return cmd
}

func newCompileCmd() *cobra.Command {
	f := &commonFlags{}
	var sequential bool
	var stride, tripCount, bodyLatency int
	cmd := &cobra.Command{
		Use:   "compile <path>",
		Short: "run the full pipeline and emit hardware text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := applyConfig(cmd, f); err != nil {
				return err
			}
			reporter := diag.NewReporter(os.Stderr, f.diagFormat)
			fn, err := loadFunction(args[0], f, reporter)
			if err != nil {
				return err
			}
			sched, err := runSchedule(fn, f)
			if err != nil {
				return err
			}
			return writeToPath(f.output, func(w io.Writer) error {
				if sequential {
					lp := hardware.LoopParams{Stride: stride, TripCount: tripCount, BodyLatency: bodyLatency}
					return hardware.EmitSequential(fn, sched, lp, w)
				}
				return hardware.EmitPipeline(fn, sched, w)
			})
		},
	}
	bindCommonFlags(cmd, f)
	cmd.Flags().BoolVar(&sequential, "sequential", false, "emit the resource-shared sequential FSM wrapper instead of the plain pipeline")
	cmd.Flags().IntVar(&stride, "stride", 1, "sequential loop stride (only with --sequential)")
	cmd.Flags().IntVar(&tripCount, "trip_count", 1, "sequential loop trip count (only with --sequential)")
	cmd.Flags().IntVar(&bodyLatency, "body_latency", 0, "sequential loop body pipeline latency in cycles (only with --sequential)")
	return cmd
}

func newBenchCmd() *cobra.Command {
	f := &commonFlags{}
	var jobs int
	cmd := &cobra.Command{
		Use:   "bench <path>...",
		Short: "compile and schedule every given path concurrently, reporting wall-time and stage-count stats",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := applyConfig(cmd, f); err != nil {
				return err
			}
			compile := func(ctx context.Context, path string) (int, error) {
				reporter := diag.NewReporter(io.Discard, f.diagFormat)
				fn, err := loadFunction(path, f, reporter)
				if err != nil {
					return 0, err
				}
				sched, err := runSchedule(fn, f)
				if err != nil {
					return 0, err
				}
				return sched.NumStages, nil
			}
			results := bench.Run(cmd.Context(), args, compile, bench.Options{Jobs: jobs, Progress: cmd.ErrOrStderr()})
			summary := bench.Summarize(results)
			for _, r := range results {
				if r.Err != nil {
					fmt.Fprintf(cmd.OutOrStdout(), "%s: FAILED: %v\n", r.Path, r.Err)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d stages, %s\n", r.Path, r.NumStages, r.Duration)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "total=%d failed=%d min=%s median=%s max=%s\n",
				summary.Total, summary.Failed, summary.Min, summary.Median, summary.Max)
			if summary.Failed > 0 {
				return diag.Errorf(diag.KindInvalidArgument, "%d of %d inputs failed to compile", summary.Failed, summary.Total)
			}
			return nil
		},
	}
	bindCommonFlags(cmd, f)
	cmd.Flags().IntVar(&jobs, "jobs", 0, "worker pool size (0 = one worker per input)")
	return cmd
}

func writeToPath(path string, fn func(io.Writer) error) error {
	if path == "" || path == "-" {
		return fn(os.Stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return diag.Errorf(diag.KindInvalidArgument, "creating %s: %v", path, err)
	}
	defer f.Close()
	return fn(f)
}
