package model

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Reason 约束违反原因
type Reason string

const (
	ReasonCapacity        Reason = "equipment capacity"
	ReasonConcurrentLines Reason = "concurrent line count"
	ReasonMaxQuantity     Reason = "maximum production quantity"
	ReasonUnmet           Reason = "unmet request"
	ReasonDemand          Reason = "demand exceeded"
	ReasonCompatibility   Reason = "line compatibility"
	ReasonDueDate         Reason = "due date"
	ReasonUtilization     Reason = "utilization cap"
	ReasonPortionUpper    Reason = "portion above upper limit"
	ReasonPortionLower    Reason = "portion below lower limit"
	ReasonNotFound        Reason = "entry not found"
	ReasonInvalidEdit     Reason = "invalid edit"
)

// Violation 约束违反记录
type Violation struct {
	Reason  Reason          `json:"reason"`
	Target  string          `json:"target"`          // 产线、厂房或物料
	Shift   int             `json:"shift,omitempty"` // 0 表示与班次无关
	Bound   decimal.Decimal `json:"bound"`
	Actual  decimal.Decimal `json:"actual"`
	Amount  decimal.Decimal `json:"violation_amt"`
	Message string          `json:"message"`
}

// Amount 将浮点数转换为精确小数
func Amount(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v)
}

// Exceeds 构造 "实际值超过上限" 的违反记录
func Exceeds(reason Reason, target string, shift int, actual, bound decimal.Decimal) Violation {
	v := Violation{
		Reason: reason,
		Target: target,
		Shift:  shift,
		Bound:  bound,
		Actual: actual,
		Amount: actual.Sub(bound),
	}
	v.Message = v.describe()
	return v
}

// Below 构造 "实际值低于下限" 的违反记录
func Below(reason Reason, target string, shift int, actual, bound decimal.Decimal) Violation {
	v := Violation{
		Reason: reason,
		Target: target,
		Shift:  shift,
		Bound:  bound,
		Actual: actual,
		Amount: bound.Sub(actual),
	}
	v.Message = v.describe()
	return v
}

func (v Violation) describe() string {
	where := v.Target
	if v.Shift > 0 {
		where = fmt.Sprintf("%s@%d", v.Target, v.Shift)
	}
	return fmt.Sprintf("%s: %s 实际 %s，限制 %s，差额 %s",
		v.Reason, where, v.Actual.String(), v.Bound.String(), v.Amount.String())
}

// String 实现 fmt.Stringer
func (v Violation) String() string {
	if v.Message != "" {
		return v.Message
	}
	return v.describe()
}
