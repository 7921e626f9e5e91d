package formatter

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/paiban/lineplan/pkg/model"
	"github.com/paiban/lineplan/pkg/planner"
	"github.com/paiban/lineplan/pkg/resolver"
	"github.com/paiban/lineplan/pkg/scheduler/constraint"
	"github.com/paiban/lineplan/pkg/scheduler/diagnose"
	"github.com/paiban/lineplan/pkg/scheduler/optimizer"
)

// FormatResolve 渲染指令解析结果
func FormatResolve(r *resolver.Result) string {
	var b strings.Builder
	b.WriteString(Header(fmt.Sprintf("预分配请求 (%d)", len(r.Requests))))
	rows := make([][]string, 0, len(r.Requests))
	for _, req := range r.Requests {
		rows = append(rows, []string{
			req.Pattern,
			string(req.Kind),
			strings.Join(req.Lines, ","),
			joinInts(req.Shifts),
			Qty(req.Quantity),
		})
	}
	b.WriteString(RenderTable([]string{"模式", "类型", "产线", "班次", "数量"}, rows))

	if len(r.Missing) > 0 || len(r.Invalid) > 0 {
		b.WriteString("\n")
		b.WriteString(Header("被拒绝的指令"))
		rows = rows[:0]
		for _, errs := range [][]model.DirectiveError{r.Missing, r.Invalid} {
			for _, e := range errs {
				rows = append(rows, []string{
					strconv.Itoa(e.Directive + 1),
					string(e.Kind),
					e.Target,
					e.Field,
					e.Reason,
				})
			}
		}
		b.WriteString(RenderTable([]string{"序号", "错误", "对象", "字段", "原因"}, rows))
	}
	return b.String()
}

// FormatViolations 渲染违反列表
func FormatViolations(violations []model.Violation) string {
	rows := make([][]string, 0, len(violations))
	for _, v := range violations {
		shift := "-"
		if v.Shift > 0 {
			shift = strconv.Itoa(v.Shift)
		}
		rows = append(rows, []string{
			string(v.Reason),
			v.Target,
			shift,
			v.Bound.String(),
			v.Actual.String(),
			render(StyleRed, v.Amount.String()),
		})
	}
	return RenderTable([]string{"约束", "对象", "班次", "上限", "实际", "违反量"}, rows)
}

// FormatReport 渲染诊断报告
func FormatReport(r *diagnose.Report) string {
	var b strings.Builder
	b.WriteString(Header("可行性诊断"))
	if r.Feasible() {
		b.WriteString(OK("预分配可同时满足") + "\n")
	} else {
		b.WriteString(Fail(fmt.Sprintf("发现 %d 处违反，总松弛 %s", len(r.Violations), r.TotalSlack.String())) + "\n\n")
		b.WriteString(FormatViolations(r.Violations))
	}
	if !r.Optimal {
		b.WriteString(Warn("求解达到限制，结果为当前最优可行解") + "\n")
	}
	b.WriteString(Dim(fmt.Sprintf("状态 %s，耗时 %s", r.Status, r.Duration)) + "\n")
	return b.String()
}

// FormatStage 渲染单阶段求解摘要
func FormatStage(title string, r *optimizer.Result) string {
	if r == nil {
		return ""
	}
	line := fmt.Sprintf("%s: 状态 %s，排产 %s，目标值 %s，节点 %d，耗时 %s",
		title, r.Status, Qty(r.Scheduled), Qty(r.Objective), r.Nodes, r.Duration)
	if len(r.Shipped) > 0 {
		line += fmt.Sprintf("，可发运物料 %d", len(r.Shipped))
	}
	return Dim(line) + "\n"
}

// FormatSchedule 渲染排产表
func FormatSchedule(s *model.Schedule) string {
	sorted := s.Clone()
	sorted.Sort()
	rows := make([][]string, 0, sorted.Len())
	for _, e := range sorted.Entries {
		pin := ""
		if e.Pinned {
			pin = "预分配"
		}
		rows = append(rows, []string{e.Line, strconv.Itoa(e.Shift), e.Item, Qty(e.Quantity), pin})
	}
	var b strings.Builder
	b.WriteString(RenderTable([]string{"产线", "班次", "物料", "数量", "来源"}, rows))
	b.WriteString(fmt.Sprintf("合计 %s\n", Qty(sorted.Total())))
	return b.String()
}

// FormatOptimize 渲染两阶段排产结果
func FormatOptimize(r *planner.OptimizeResult, live *model.Schedule) string {
	var b strings.Builder
	b.WriteString(Header("排产结果"))
	b.WriteString(FormatStage("预分配阶段", r.PreAssign))
	b.WriteString(FormatStage("完整排产", r.Full))
	b.WriteString("\n")
	b.WriteString(FormatSchedule(live))
	return b.String()
}

// FormatAudit 渲染全表审计结果
func FormatAudit(r *constraint.Result) string {
	var b strings.Builder
	b.WriteString(Header("排产表审计"))
	switch {
	case r.IsValid && len(r.SoftViolations) == 0:
		b.WriteString(OK(fmt.Sprintf("通过 %d 项约束检查", r.CheckedRules)) + "\n")
	case r.IsValid:
		b.WriteString(Warn(fmt.Sprintf("通过硬约束检查，%d 项提示", len(r.SoftViolations))) + "\n\n")
		b.WriteString(FormatViolations(r.SoftViolations))
	default:
		b.WriteString(Fail(fmt.Sprintf("违反 %d 项硬约束", len(r.HardViolations))) + "\n\n")
		b.WriteString(FormatViolations(r.AllViolations()))
	}
	return b.String()
}

func joinInts(vs []int) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}
