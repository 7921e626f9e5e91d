package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paiban/lineplan/internal/cli/formatter"
	"github.com/paiban/lineplan/internal/planfile"
	"github.com/paiban/lineplan/pkg/errors"
	"github.com/paiban/lineplan/pkg/model"
	"github.com/paiban/lineplan/pkg/planner"
)

const planYAML = `
name: cli
horizon: {shifts_per_day: 1, days: 2, weeks: 1}
availability:
  ABC: [I-L1]
  XYZ: [J-L1]
demand:
  - {item: ABC1, quantity: 100}
  - {item: XYZ1, quantity: 50}
capacity:
  I-L1: [60, 30]
directives:
  - {pattern: ABC1, line: I-L1, shift: 2, quantity: 20}
  - {pattern: QQQ1, line: I-L1, shift: 1, quantity: 5}
`

const overbookedYAML = `
name: overbooked
horizon: {shifts_per_day: 1, days: 2, weeks: 1}
availability:
  ABC: [I-L1]
demand:
  - {item: ABC1, quantity: 100}
capacity:
  I-L1: [60, 30]
directives:
  - {pattern: ABC1, line: I-L1, shift: 2, quantity: 100}
`

var savedPlan = regexp.MustCompile(`已保存计划 ([0-9a-f-]{36})`)

func writePlan(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "plan.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func testApp() *App {
	cfg := planner.DefaultConfig()
	cfg.Solver.TimeLimit = 10 * time.Second
	return &App{
		Defaults: planfile.Defaults{Horizon: model.DefaultHorizon(), Naming: model.DefaultNamingRule()},
		Config:   cfg,
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	formatter.SetPlain(true)
	root := NewRootCmd(testApp())
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

func TestResolveCmd(t *testing.T) {
	out, err := execute(t, "resolve", "-f", writePlan(t, planYAML))
	require.NoError(t, err)
	assert.Contains(t, out, "预分配请求 (1)")
	assert.Contains(t, out, "ABC1")
	assert.Contains(t, out, "被拒绝的指令")
	assert.Contains(t, out, "QQQ1")
}

func TestResolveCmd_RequiresFile(t *testing.T) {
	_, err := execute(t, "resolve")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.CodeInvalidInput))
}

func TestDiagnoseCmd(t *testing.T) {
	out, err := execute(t, "diagnose", "-f", writePlan(t, planYAML))
	require.NoError(t, err)
	assert.Contains(t, out, "预分配可同时满足")

	out, err = execute(t, "diagnose", "-f", writePlan(t, overbookedYAML))
	require.NoError(t, err, "存在违反不是错误")
	assert.Contains(t, out, "发现")
	assert.Contains(t, out, "违反量")
}

func TestOptimizeThenAuditStored(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "lineplan.db")
	out, err := execute(t, "optimize", "-f", writePlan(t, planYAML), "--db", dbPath, "--timeout", "5s", "--stats")
	require.NoError(t, err)
	assert.Contains(t, out, "合计 140")
	assert.Contains(t, out, "产线负荷")
	assert.Contains(t, out, "利用率")
	assert.Contains(t, out, "预分配")

	m := savedPlan.FindStringSubmatch(out)
	require.Len(t, m, 2, out)

	out, err = execute(t, "audit", "--db", dbPath, "--plan", m[1])
	require.NoError(t, err)
	assert.Contains(t, out, "排产表审计")
	assert.NotContains(t, out, "违反")
}

func TestAuditCmd_Errors(t *testing.T) {
	_, err := execute(t, "audit", "--plan", "not-a-uuid", "--db", filepath.Join(t.TempDir(), "x.db"))
	assert.True(t, errors.Is(err, errors.CodeInvalidInput))

	_, err = execute(t, "audit", "--plan", "4f6a1c1e-0000-4000-8000-000000000000")
	assert.True(t, errors.Is(err, errors.CodeInvalidInput), "缺少 --db")

	_, err = execute(t, "audit", "--db", filepath.Join(t.TempDir(), "y.db"), "--plan", "4f6a1c1e-0000-4000-8000-000000000000")
	assert.True(t, errors.Is(err, errors.CodeNotFound))
}

func TestFormatError(t *testing.T) {
	err := errors.InvalidInput("file", "需要计划文件").WithField("path", "a.yaml")
	msg := FormatError(err)
	assert.Contains(t, msg, string(errors.CodeInvalidInput))
	assert.Contains(t, msg, "path: a.yaml")
}
