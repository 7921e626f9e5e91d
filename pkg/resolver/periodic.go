package resolver

import (
	"fmt"

	"github.com/paiban/lineplan/pkg/model"
)

// expandPeriodic 将周循环声明展开为每个扁平班次一条请求
func (r *Resolver) expandPeriodic(index int, p model.PeriodicDirective) ([]model.Request, *model.DirectiveError) {
	h := r.plan.Horizon
	fail := func(field, reason string) *model.DirectiveError {
		return &model.DirectiveError{
			Kind:      model.DirectiveMissing,
			Directive: index,
			Origin:    model.OriginPeriodic,
			Target:    p.Pattern,
			Field:     field,
			Reason:    reason,
		}
	}
	if p.Quantity.Kind == model.QuantityAll {
		return nil, fail("quantity", "周期指令不支持 ALL")
	}

	days, err := listOrRange(p.Days, 1, h.Days)
	if err != nil {
		return nil, fail("days", err.Error())
	}
	dayShifts, err := listOrRange(p.DayShifts, 1, h.ShiftsPerDay)
	if err != nil {
		return nil, fail("day_shifts", err.Error())
	}
	weeks, err := listOrRange(p.Weeks, 0, h.Weeks-1)
	if err != nil {
		return nil, fail("weeks", err.Error())
	}

	var flat []int
	for _, w := range weeks {
		for _, d := range days {
			for _, s := range dayShifts {
				shift, ok := h.Flat(w, d, s)
				if !ok {
					return nil, fail("shift", fmt.Sprintf("周 %d 第 %d 天 第 %d 班 超出排产周期", w, d, s))
				}
				flat = append(flat, shift)
			}
		}
	}
	if len(flat) == 0 {
		return nil, fail("shift", "班次为空")
	}

	requests := make([]model.Request, 0, len(flat))
	for _, shift := range flat {
		raw := model.RawDirective{
			Pattern:  p.Pattern,
			Line:     p.Line,
			Shift:    model.ListOf(fmt.Sprint(shift)),
			Quantity: p.Quantity,
		}
		req, derr := r.resolveOne(index, model.OriginPeriodic, raw)
		if derr != nil {
			return nil, derr
		}
		requests = append(requests, req)
	}
	return requests, nil
}

// listOrRange 缺失时返回 [lo, hi] 全范围
func listOrRange(field model.OptionalList, lo, hi int) ([]int, error) {
	if !field.Set {
		out := make([]int, 0, hi-lo+1)
		for v := lo; v <= hi; v++ {
			out = append(out, v)
		}
		return out, nil
	}
	values, err := field.Ints()
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("字段为空")
	}
	return uniqueInts(values), nil
}
