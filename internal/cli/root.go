// Package cli 提供 lineplan 命令行
package cli

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/paiban/lineplan/internal/config"
	"github.com/paiban/lineplan/internal/database"
	"github.com/paiban/lineplan/internal/planfile"
	"github.com/paiban/lineplan/internal/repository"
	"github.com/paiban/lineplan/pkg/errors"
	"github.com/paiban/lineplan/pkg/model"
	"github.com/paiban/lineplan/pkg/planner"
)

// App 命令共享的配置
type App struct {
	Defaults planfile.Defaults
	Config   planner.Config
}

// Store 本地排产库
type Store interface {
	SavePlan(ctx context.Context, plan *model.Plan, document string) (*repository.PlanRecord, error)
	GetPlan(ctx context.Context, id uuid.UUID) (*repository.PlanRecord, error)
	ReplaceEntries(ctx context.Context, planID uuid.UUID, snapshot model.Snapshot, entries []model.ScheduleEntry) error
	ListEntries(ctx context.Context, planID uuid.UUID, snapshot model.Snapshot) ([]model.ScheduleEntry, error)
}

// options 全局参数
type options struct {
	file    string
	timeout time.Duration
}

// NewRootCmd 创建 lineplan 根命令
func NewRootCmd(app *App) *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "lineplan",
		Short:         "产线 × 班次排产工具",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.file, "file", "f", "", "计划文件 (YAML)")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 0, "单次求解时限，0 使用配置值")

	root.AddCommand(
		newResolveCmd(app, opts),
		newDiagnoseCmd(app, opts),
		newOptimizeCmd(app, opts),
		newAuditCmd(app, opts),
	)
	return root
}

// loadSession 读取计划文件并创建会话
func (a *App) loadSession(opts *options) (*planner.Session, *planfile.Scenario, error) {
	if opts.file == "" {
		return nil, nil, errors.InvalidInput("file", "需要通过 -f 指定计划文件")
	}
	sc, err := planfile.Load(opts.file, a.Defaults)
	if err != nil {
		return nil, nil, err
	}
	return planner.NewSession(sc.Plan, a.sessionConfig(opts)), sc, nil
}

func (a *App) sessionConfig(opts *options) planner.Config {
	cfg := a.Config
	if opts.timeout > 0 {
		cfg.Solver.TimeLimit = opts.timeout
	}
	return cfg
}

// openStore 打开 sqlite 排产库
func openStore(path string) (Store, func() error, error) {
	db, err := database.New(&config.DatabaseConfig{Driver: "sqlite", Path: path})
	if err != nil {
		return nil, nil, err
	}
	return repository.NewScheduleRepository(db), db.Close, nil
}

// FormatError 命令行错误输出，字段按名称排序
func FormatError(err error) string {
	appErr := errors.From(err)
	msg := fmt.Sprintf("%s: %s", appErr.Code, appErr.Message)
	if appErr.Details != "" {
		msg += " (" + appErr.Details + ")"
	}
	if appErr.Cause != nil {
		msg += ": " + appErr.Cause.Error()
	}
	fields := make([]string, 0, len(appErr.Fields))
	for field := range appErr.Fields {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	for _, field := range fields {
		msg += fmt.Sprintf("\n  %s: %v", field, appErr.Fields[field])
	}
	return msg
}
