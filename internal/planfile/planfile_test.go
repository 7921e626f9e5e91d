package planfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paiban/lineplan/pkg/errors"
	"github.com/paiban/lineplan/pkg/model"
)

const sample = `
name: week-42
horizon:
  shifts_per_day: 2
  days: 2
  weeks: 1
availability:
  ABC: [I-L1, I-L2]
  XYZ: "J-L1"
demand:
  - item: ABC1
    quantity: 100
    due_lt: 3
  - item: XYZ1
    quantity: 40
    rmc: R-7
capacity:
  I-L1: [60, ~, 30]
  J-L1: [.nan, 20]
  Max_line_I: [1, 1, 1, 1]
  Max_qty_J: [~, 0]
portions:
  I: {lower: 0.2, upper: 0.8}
utilization:
  1: 0.9
directives:
  - pattern: ABC1
    line: I-L1
    shift: "1,3"
    quantity: 20
  - pattern: "XYZ*"
    quantity: ALL
periodic:
  - pattern: ABC1
    line: [I-L2]
    days: "1"
    day_shifts: "2"
    quantity: 5
`

func defaults() Defaults {
	return Defaults{Horizon: model.DefaultHorizon(), Naming: model.DefaultNamingRule()}
}

func TestParse(t *testing.T) {
	sc, err := Parse([]byte(sample), defaults())
	require.NoError(t, err)
	p := sc.Plan

	assert.Equal(t, "week-42", p.Name)
	assert.Equal(t, 4, p.Horizon.Size())
	assert.Equal(t, []string{"I-L1", "I-L2", "J-L1"}, p.Lines)
	assert.True(t, p.IsCompatible("ABC1", "I-L2"))
	assert.True(t, p.IsCompatible("XYZ1", "J-L1"))

	c, ok := p.SlotCapacity("I-L1", 1)
	require.True(t, ok)
	assert.Equal(t, 60.0, c)
	_, ok = p.SlotCapacity("I-L1", 2)
	assert.False(t, ok, "null 单元格为缺失")
	_, ok = p.SlotCapacity("J-L1", 1)
	assert.False(t, ok, "NaN 单元格为缺失")

	lines, ok := p.MaxLines("I", 2)
	require.True(t, ok)
	assert.Equal(t, 1.0, lines)
	eff, ok := p.EffectiveCapacity("J-L1", 2)
	require.True(t, ok)
	assert.Zero(t, eff, "厂房产量上限为 0 时禁产")

	d, ok := p.Item("XYZ1")
	require.True(t, ok)
	assert.Equal(t, "R-7", d.RMC)
	assert.Equal(t, "XYZ", d.Project)

	u, ok := p.UtilizationCap(1)
	require.True(t, ok)
	assert.Equal(t, 0.9, u)

	require.Len(t, sc.Directives, 2)
	assert.Equal(t, model.ListOf("1,3"), sc.Directives[0].Shift)
	assert.Equal(t, model.Literal(20), sc.Directives[0].Quantity)
	assert.False(t, sc.Directives[1].Line.Set, "缺失字段保持未设置")
	assert.Equal(t, model.All(), sc.Directives[1].Quantity)

	require.Len(t, sc.Periodic, 1)
	assert.Equal(t, []string{"I-L2"}, sc.Periodic[0].Line.Items())
}

func TestParse_DefaultHorizon(t *testing.T) {
	sc, err := Parse([]byte("demand: [{item: ABC1, quantity: 1}]\n"), defaults())
	require.NoError(t, err)
	assert.Equal(t, 14, sc.Plan.Horizon.Size())
	assert.Equal(t, "plan", sc.Plan.Name)
}

func TestParse_Errors(t *testing.T) {
	cases := []struct {
		name string
		doc  string
		code errors.Code
	}{
		{"格式错误", "demand: [", errors.CodeInvalidInput},
		{"产能列过多", "horizon: {shifts_per_day: 1, days: 1, weeks: 1}\ncapacity: {I-L1: [1, 2]}\n", errors.CodeValidationFail},
		{"负产能", "capacity: {I-L1: [-1]}\n", errors.CodeValidationFail},
		{"稼动率班次越界", "utilization: {99: 0.5}\n", errors.CodeValidationFail},
		{"重复物料", "demand: [{item: A, quantity: 1}, {item: A, quantity: 2}]\n", errors.CodeValidationFail},
		{"占比区间无效", "portions: {I: {lower: 0.6, upper: 0.4}}\n", errors.CodeValidationFail},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.doc), defaults())
			require.Error(t, err)
			assert.Equal(t, tc.code, errors.GetCode(err))
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	sc, err := Load(path, defaults())
	require.NoError(t, err)
	assert.Equal(t, sample, sc.Source)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"), defaults())
	assert.True(t, errors.Is(err, errors.CodeInvalidInput))
}
