// Package constraint 定义约束接口和管理器
package constraint

import (
	"github.com/paiban/lineplan/pkg/model"
)

// Type 约束类型标识
type Type string

const (
	TypeDueDate          Type = "due_date"
	TypeCompatibility    Type = "compatibility"
	TypeDemand           Type = "demand"
	TypeSlotCapacity     Type = "slot_capacity"
	TypeConcurrentLines  Type = "concurrent_lines"
	TypeBuildingQuantity Type = "building_quantity"
	TypeUtilization      Type = "utilization"
	TypePortion          Type = "portion"
)

// Category 约束类别
type Category string

const (
	CategoryHard Category = "hard" // 硬约束（必须满足）
	CategorySoft Category = "soft" // 软约束（仅报告）
)

// Constraint 约束族接口
type Constraint interface {
	// Name 返回约束名称
	Name() string

	// Type 返回约束类型
	Type() Type

	// Category 返回约束类别
	Category() Category

	// Order 返回校验顺序，越小越先校验
	Order() int

	// CheckEdit 闭式校验单次编辑，nil 表示通过
	CheckEdit(ctx *Context, edit *Edit) *model.Violation

	// Audit 全表校验
	Audit(ctx *Context) []model.Violation
}

// Result 全表校验结果
type Result struct {
	IsValid        bool              `json:"is_valid"`
	HardViolations []model.Violation `json:"hard_violations"`
	SoftViolations []model.Violation `json:"soft_violations"`
	CheckedRules   int               `json:"checked_rules"`
}

// AllViolations 返回所有违反
func (r *Result) AllViolations() []model.Violation {
	all := make([]model.Violation, 0, len(r.HardViolations)+len(r.SoftViolations))
	all = append(all, r.HardViolations...)
	return append(all, r.SoftViolations...)
}
