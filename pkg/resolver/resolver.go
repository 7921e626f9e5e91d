// Package resolver 将人工预分配指令解析为固定分配请求
package resolver

import (
	"fmt"
	"sort"
	"strings"

	"github.com/paiban/lineplan/pkg/logger"
	"github.com/paiban/lineplan/pkg/model"
)

// Result 解析结果：有效请求与两类被拒绝指令
type Result struct {
	Requests []model.Request        `json:"requests"`
	Missing  []model.DirectiveError `json:"missing"`
	Invalid  []model.DirectiveError `json:"invalid"`
}

// HasErrors 是否存在被拒绝的指令
func (r *Result) HasErrors() bool {
	return len(r.Missing) > 0 || len(r.Invalid) > 0
}

// Resolver 预分配指令解析器
type Resolver struct {
	plan   *model.Plan
	logger *logger.PlannerLogger
}

// New 创建解析器
func New(plan *model.Plan) *Resolver {
	return &Resolver{
		plan:   plan,
		logger: logger.NewPlannerLogger("resolver"),
	}
}

// Resolve 解析固定指令与周期指令
func (r *Resolver) Resolve(directives []model.RawDirective, periodic []model.PeriodicDirective) *Result {
	result := &Result{}
	var resolved []model.Request

	for i, d := range directives {
		req, derr := r.resolveOne(i, model.OriginFixed, d)
		if derr != nil {
			r.reject(result, *derr)
			continue
		}
		resolved = append(resolved, req)
	}
	for i, p := range periodic {
		reqs, derr := r.expandPeriodic(i, p)
		if derr != nil {
			r.reject(result, *derr)
			continue
		}
		resolved = append(resolved, reqs...)
	}

	for i, req := range r.deduplicate(resolved) {
		if req.Quantity <= 0 {
			requested := resolved[i].Quantity
			reason := fmt.Sprintf("数量 %g 被精确指令占用 %g，剩余 %g", requested, requested-req.Quantity, req.Quantity)
			r.reject(result, model.DirectiveError{
				Kind:      model.DirectiveMissing,
				Directive: req.Directive,
				Origin:    req.Origin,
				Target:    req.Pattern,
				Field:     "quantity",
				Reason:    reason,
				Amount:    -req.Quantity,
			})
			continue
		}
		result.Requests = append(result.Requests, req)
	}
	return result
}

// resolveOne 缺省补全：纯函数，从原始指令得到完整请求
func (r *Resolver) resolveOne(index int, origin model.Origin, d model.RawDirective) (model.Request, *model.DirectiveError) {
	fail := func(kind model.DirectiveErrorKind, field, reason string) *model.DirectiveError {
		return &model.DirectiveError{
			Kind:      kind,
			Directive: index,
			Origin:    origin,
			Target:    d.Pattern,
			Field:     field,
			Reason:    reason,
		}
	}

	pattern := strings.TrimSpace(d.Pattern)
	if pattern == "" {
		return model.Request{}, fail(model.DirectiveMissing, "pattern", "物料模式为空")
	}
	items := r.matchItems(pattern)
	if len(items) == 0 {
		return model.Request{}, fail(model.DirectiveMissing, "group", "没有匹配的需求物料")
	}
	projects := r.projectsOf(pattern, items)

	var lines []string
	if d.Line.Set {
		lines = unique(d.Line.Items())
	} else {
		lines = r.legalLines(projects)
	}
	if len(lines) == 0 {
		return model.Request{}, fail(model.DirectiveMissing, "line", "产线为空")
	}

	var shifts []int
	if d.Shift.Set {
		parsed, err := d.Shift.Ints()
		if err != nil {
			return model.Request{}, fail(model.DirectiveMissing, "shift", err.Error())
		}
		shifts = uniqueInts(parsed)
		for _, s := range shifts {
			if !r.plan.Horizon.Contains(s) {
				return model.Request{}, fail(model.DirectiveMissing, "shift", fmt.Sprintf("班次 %d 超出范围 1..%d", s, r.plan.Horizon.Size()))
			}
		}
	} else {
		shifts = r.plan.Horizon.All()
	}
	if len(shifts) == 0 {
		return model.Request{}, fail(model.DirectiveMissing, "shift", "班次为空")
	}

	var qty float64
	switch d.Quantity.Kind {
	case model.QuantityMissing:
		return model.Request{}, fail(model.DirectiveMissing, "quantity", "数量缺失")
	case model.QuantityAll:
		for _, item := range items {
			qty += r.plan.DemandOf(item)
		}
	default:
		qty = d.Quantity.Value
	}
	if !model.Bounded(qty) || qty <= 0 {
		return model.Request{}, fail(model.DirectiveMissing, "quantity", fmt.Sprintf("数量 %v 无效", qty))
	}

	if illegal := r.illegalLines(lines, projects); len(illegal) > 0 {
		derr := fail(model.DirectiveInvalidLine, "line",
			fmt.Sprintf("产线 %s 不能生产项目 %s", strings.Join(illegal, ","), strings.Join(projects, ",")))
		derr.Lines = illegal
		return model.Request{}, derr
	}

	kind := model.RequestExact
	if IsPattern(pattern) {
		kind = model.RequestWildcard
	}
	return model.Request{
		Pattern:   pattern,
		Items:     items,
		Projects:  projects,
		Lines:     lines,
		Shifts:    shifts,
		Quantity:  qty,
		Kind:      kind,
		Origin:    origin,
		Directive: index,
	}, nil
}

// deduplicate 通配请求扣除与其重叠的精确请求数量
func (r *Resolver) deduplicate(requests []model.Request) []model.Request {
	out := make([]model.Request, len(requests))
	copy(out, requests)
	for i := range out {
		w := &out[i]
		if w.Kind != model.RequestWildcard {
			continue
		}
		for _, e := range requests {
			if e.Kind != model.RequestExact || !Match(w.Pattern, e.Pattern) {
				continue
			}
			if overlapsStrings(w.Lines, e.Lines) && overlapsInts(w.Shifts, e.Shifts) {
				w.Quantity -= e.Quantity
			}
		}
	}
	return out
}

func (r *Resolver) reject(result *Result, derr model.DirectiveError) {
	r.logger.DirectiveRejected(derr.Target, derr.Field)
	if derr.Kind == model.DirectiveInvalidLine {
		result.Invalid = append(result.Invalid, derr)
		return
	}
	result.Missing = append(result.Missing, derr)
}

// matchItems 返回匹配模式的需求物料（按需求表顺序）
func (r *Resolver) matchItems(pattern string) []string {
	var items []string
	for _, d := range r.plan.Demand {
		if Match(pattern, d.Item) {
			items = append(items, d.Item)
		}
	}
	return items
}

// projectsOf 项目代码取自模式的固定位置；该位置含通配符时取匹配物料项目的并集
func (r *Resolver) projectsOf(pattern string, items []string) []string {
	if p := r.plan.Project(pattern); p != "" && !IsPattern(p) {
		return []string{p}
	}
	set := make(map[string]bool)
	for _, item := range items {
		set[r.plan.Project(item)] = true
	}
	projects := make([]string, 0, len(set))
	for p := range set {
		projects = append(projects, p)
	}
	sort.Strings(projects)
	return projects
}

func (r *Resolver) legalLines(projects []string) []string {
	set := make(map[string]bool)
	for _, p := range projects {
		for _, l := range r.plan.LegalLines(p) {
			set[l] = true
		}
	}
	lines := make([]string, 0, len(set))
	for l := range set {
		lines = append(lines, l)
	}
	sort.Strings(lines)
	return lines
}

// illegalLines 返回不能生产任何一个项目的产线
func (r *Resolver) illegalLines(lines, projects []string) []string {
	var illegal []string
	for _, l := range lines {
		ok := false
		for _, p := range projects {
			if r.plan.IsLegal(p, l) {
				ok = true
				break
			}
		}
		if !ok {
			illegal = append(illegal, l)
		}
	}
	return illegal
}

func unique(list []string) []string {
	seen := make(map[string]bool, len(list))
	out := make([]string, 0, len(list))
	for _, s := range list {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

func uniqueInts(list []int) []int {
	seen := make(map[int]bool, len(list))
	out := make([]int, 0, len(list))
	for _, v := range list {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

func overlapsStrings(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}

func overlapsInts(a, b []int) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}
