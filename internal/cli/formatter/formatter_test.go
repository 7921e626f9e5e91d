package formatter

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paiban/lineplan/pkg/model"
	"github.com/paiban/lineplan/pkg/resolver"
	"github.com/paiban/lineplan/pkg/scheduler/constraint"
)

func TestMain(m *testing.M) {
	SetPlain(true)
	m.Run()
}

func TestRenderTable_AlignsByVisibleWidth(t *testing.T) {
	out := RenderTable([]string{"产线", "数量"}, [][]string{
		{"I-L1", "60"},
		{"J-LONG-1", "5"},
	})
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "产线      数量", lines[0])
	assert.Equal(t, "I-L1      60", lines[1])
	assert.Equal(t, "J-LONG-1  5", lines[2])
}

func TestRenderTable_Empty(t *testing.T) {
	assert.Equal(t, "", RenderTable(nil, nil))
}

func TestQty(t *testing.T) {
	assert.Equal(t, "140", Qty(140))
	assert.Equal(t, "12.50", Qty(12.5))
}

func TestFormatResolve_ListsRejected(t *testing.T) {
	out := FormatResolve(&resolver.Result{
		Requests: []model.Request{{Pattern: "ABC1", Lines: []string{"I-L1"}, Shifts: []int{1, 2}, Quantity: 20}},
		Invalid:  []model.DirectiveError{{Kind: model.DirectiveInvalidLine, Directive: 2, Target: "XYZ1", Field: "line", Reason: "产线不合法"}},
	})
	assert.Contains(t, out, "预分配请求 (1)")
	assert.Contains(t, out, "1,2")
	assert.Contains(t, out, "被拒绝的指令")
	assert.Contains(t, out, "产线不合法")
}

func TestFormatAudit(t *testing.T) {
	ok := FormatAudit(&constraint.Result{IsValid: true, CheckedRules: 8})
	assert.Contains(t, ok, "通过 8 项约束检查")

	bad := FormatAudit(&constraint.Result{
		HardViolations: []model.Violation{{
			Reason: model.ReasonCapacity,
			Target: "I-L1",
			Shift:  2,
			Bound:  model.Amount(30),
			Actual: model.Amount(40),
			Amount: model.Amount(10),
		}},
	})
	assert.Contains(t, bad, "违反 1 项硬约束")
	assert.Contains(t, bad, string(model.ReasonCapacity))
	assert.Contains(t, bad, "I-L1")
}
