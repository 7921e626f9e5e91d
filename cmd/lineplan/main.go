// lineplan 命令行：解析、诊断、排产与审计

package main

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/paiban/lineplan/internal/cli"
	"github.com/paiban/lineplan/internal/cli/formatter"
	"github.com/paiban/lineplan/internal/config"
	"github.com/paiban/lineplan/internal/planfile"
	"github.com/paiban/lineplan/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, cli.FormatError(err))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// 日志写 stderr，表格写 stdout
	logCfg := cfg.Logger()
	logCfg.Output = "stderr"
	logger.Init(logCfg)

	formatter.SetPlain(!isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()))

	app := &cli.App{
		Defaults: planfile.Defaults{Horizon: cfg.Planner.Horizon(), Naming: cfg.Planner.Naming()},
		Config:   cfg.Planner.Session(),
	}
	return cli.NewRootCmd(app).Execute()
}
