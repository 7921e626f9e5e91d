package cli

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/paiban/lineplan/internal/cli/formatter"
	"github.com/paiban/lineplan/internal/planfile"
	"github.com/paiban/lineplan/pkg/errors"
	"github.com/paiban/lineplan/pkg/model"
	"github.com/paiban/lineplan/pkg/planner"
	"github.com/paiban/lineplan/pkg/stats"
)

func newResolveCmd(app *App, opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve",
		Short: "解析计划文件中的预分配指令",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, sc, err := app.loadSession(opts)
			if err != nil {
				return err
			}
			result := s.Resolve(sc.Directives, sc.Periodic)
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatResolve(result))
			return nil
		},
	}
}

func newDiagnoseCmd(app *App, opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "diagnose",
		Short: "检查预分配能否同时满足，并给出违反量",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, sc, err := app.loadSession(opts)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			result := s.Resolve(sc.Directives, sc.Periodic)
			if result.HasErrors() {
				fmt.Fprintln(out, formatter.FormatResolve(result))
			}
			report, err := s.Diagnose(cmd.Context(), nil)
			if err != nil {
				return err
			}
			fmt.Fprint(out, formatter.FormatReport(report))
			return nil
		},
	}
}

func newOptimizeCmd(app *App, opts *options) *cobra.Command {
	var (
		dbPath    string
		showStats bool
	)
	cmd := &cobra.Command{
		Use:   "optimize",
		Short: "两阶段排产并输出排产表",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, sc, err := app.loadSession(opts)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			resolved := s.Resolve(sc.Directives, sc.Periodic)
			if resolved.HasErrors() {
				fmt.Fprintln(out, formatter.FormatResolve(resolved))
			}
			result, err := s.Optimize(cmd.Context(), nil)
			if err != nil {
				return err
			}
			live := s.Snapshot(model.SnapshotLive)
			fmt.Fprint(out, formatter.FormatOptimize(result, live))
			if showStats {
				fmt.Fprintln(out)
				fmt.Fprint(out, formatter.FormatCoverage(
					stats.NewCoverageAnalyzer(s.Plan()).Analyze(live),
					stats.NewBalanceAnalyzer(s.Plan()).Analyze(live),
				))
			}

			if dbPath == "" {
				return nil
			}
			if err := save(cmd, dbPath, s, sc); err != nil {
				return err
			}
			fmt.Fprintln(out, formatter.OK(fmt.Sprintf("已保存计划 %s", s.Plan().ID)))
			return nil
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "", "保存排产结果的 sqlite 文件")
	cmd.Flags().BoolVar(&showStats, "stats", false, "输出产线负荷统计")
	return cmd
}

// save 写入计划与两份快照
func save(cmd *cobra.Command, path string, s *planner.Session, sc *planfile.Scenario) error {
	store, closeFn, err := openStore(path)
	if err != nil {
		return err
	}
	defer closeFn()

	ctx := cmd.Context()
	plan := s.Plan()
	if _, err := store.SavePlan(ctx, plan, sc.Source); err != nil {
		return err
	}
	if err := store.ReplaceEntries(ctx, plan.ID, model.SnapshotOriginal, s.Snapshot(model.SnapshotOriginal).Entries); err != nil {
		return err
	}
	return store.ReplaceEntries(ctx, plan.ID, model.SnapshotLive, s.Snapshot(model.SnapshotLive).Entries)
}

func newAuditCmd(app *App, opts *options) *cobra.Command {
	var dbPath, planID string
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "审计排产表；指定 --plan 时读取已保存的现行表，否则先排产",
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				s   *planner.Session
				err error
			)
			if planID != "" {
				s, err = app.loadStored(cmd, opts, dbPath, planID)
			} else {
				s, err = app.optimizeFile(cmd, opts)
			}
			if err != nil {
				return err
			}
			result := s.Audit()
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatAudit(result))
			if !result.IsValid {
				return errors.New(errors.CodeConstraintViolation, "排产表违反硬约束")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "", "sqlite 排产库")
	cmd.Flags().StringVar(&planID, "plan", "", "已保存计划的标识")
	return cmd
}

func (a *App) optimizeFile(cmd *cobra.Command, opts *options) (*planner.Session, error) {
	s, sc, err := a.loadSession(opts)
	if err != nil {
		return nil, err
	}
	s.Resolve(sc.Directives, sc.Periodic)
	if _, err := s.Optimize(cmd.Context(), nil); err != nil {
		return nil, err
	}
	return s, nil
}

// loadStored 从排产库恢复计划与快照
func (a *App) loadStored(cmd *cobra.Command, opts *options, path, rawID string) (*planner.Session, error) {
	if path == "" {
		return nil, errors.InvalidInput("db", "读取已保存计划需要 --db")
	}
	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, errors.InvalidInput("plan", "不是有效的标识")
	}
	store, closeFn, err := openStore(path)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	ctx := cmd.Context()
	rec, err := store.GetPlan(ctx, id)
	if err != nil {
		return nil, err
	}
	sc, err := planfile.Parse([]byte(rec.Document), a.Defaults)
	if err != nil {
		return nil, err
	}
	sc.Plan.ID = rec.ID

	live, err := store.ListEntries(ctx, id, model.SnapshotLive)
	if err != nil {
		return nil, err
	}
	original, err := store.ListEntries(ctx, id, model.SnapshotOriginal)
	if err != nil {
		return nil, err
	}
	s := planner.NewSession(sc.Plan, a.sessionConfig(opts))
	s.Load(model.NewSchedule(live), model.NewSchedule(original))
	return s, nil
}
