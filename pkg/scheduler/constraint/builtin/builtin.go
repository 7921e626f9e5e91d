package builtin

import (
	"github.com/paiban/lineplan/pkg/scheduler/constraint"
)

// 固定校验顺序
const (
	OrderDueDate = iota * 10
	OrderCompatibility
	OrderDemand
	OrderSlotCapacity
	OrderConcurrentLines
	OrderBuildingQuantity
	OrderUtilization
	OrderPortion
)

// RegisterDefaultConstraints 注册全部约束族
func RegisterDefaultConstraints(manager *constraint.Manager) {
	manager.Register(NewDueDateConstraint())
	manager.Register(NewCompatibilityConstraint())
	manager.Register(NewDemandConstraint())
	manager.Register(NewSlotCapacityConstraint())
	manager.Register(NewConcurrentLinesConstraint())
	manager.Register(NewBuildingQuantityConstraint())
	manager.Register(NewUtilizationConstraint())
	manager.Register(NewPortionConstraint())
}

// NewDefaultManager 创建已注册全部约束族的管理器
func NewDefaultManager() *constraint.Manager {
	m := constraint.NewManager()
	RegisterDefaultConstraints(m)
	return m
}
