// Package builtin 提供内置约束族实现
package builtin

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/paiban/lineplan/pkg/model"
	"github.com/paiban/lineplan/pkg/scheduler/constraint"
)

// BaseConstraint 约束基类
type BaseConstraint struct {
	name     string
	typ      constraint.Type
	category constraint.Category
	order    int
}

// NewBaseConstraint 创建基础约束
func NewBaseConstraint(name string, typ constraint.Type, cat constraint.Category, order int) *BaseConstraint {
	return &BaseConstraint{
		name:     name,
		typ:      typ,
		category: cat,
		order:    order,
	}
}

// Name 返回约束名称
func (c *BaseConstraint) Name() string { return c.name }

// Type 返回约束类型
func (c *BaseConstraint) Type() constraint.Type { return c.typ }

// Category 返回约束类别
func (c *BaseConstraint) Category() constraint.Category { return c.category }

// Order 返回校验顺序
func (c *BaseConstraint) Order() int { return c.order }

// exceeds 构造上限违反
func exceeds(reason model.Reason, target string, shift int, actual, bound float64) *model.Violation {
	v := model.Exceeds(reason, target, shift, model.Amount(actual), model.Amount(bound))
	return &v
}

// ratioExceeds 构造比例上限违反，比例按精确小数计算
func ratioExceeds(reason model.Reason, target string, shift int, num, den, bound float64) *model.Violation {
	v := model.Exceeds(reason, target, shift, ratio(num, den), model.Amount(bound))
	return &v
}

// ratio 精确比值
func ratio(num, den float64) decimal.Decimal {
	return model.Amount(num).DivRound(model.Amount(den), 8)
}

// refusal 构造不涉及数量上限的违反
func refusal(reason model.Reason, target string, shift int, quantity float64, format string, args ...interface{}) *model.Violation {
	return &model.Violation{
		Reason:  reason,
		Target:  target,
		Shift:   shift,
		Bound:   decimal.Zero,
		Actual:  model.Amount(quantity),
		Amount:  model.Amount(quantity),
		Message: fmt.Sprintf("%s: %s", reason, fmt.Sprintf(format, args...)),
	}
}
