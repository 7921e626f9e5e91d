// Package constraints 约束库：对外描述排产引擎支持的约束族
package constraints

import (
	"github.com/paiban/lineplan/pkg/scheduler/constraint"
)

// ConstraintParam 约束参数定义
type ConstraintParam struct {
	Name        string `json:"name"`
	Type        string `json:"type"` // int, float, string, bool, array
	Source      string `json:"source"` // 参数所在的计划表
	Description string `json:"description"`
	Default     string `json:"default,omitempty"`
	Min         string `json:"min,omitempty"`
	Max         string `json:"max,omitempty"`
}

// ConstraintDefinition 约束定义
type ConstraintDefinition struct {
	Name        constraint.Type     `json:"name"`
	DisplayName string              `json:"display_name"`
	Type        constraint.Category `json:"type"`
	Category    string              `json:"category"`
	Order       int                 `json:"order"` // 编辑校验顺序
	Description string              `json:"description"`
	Params      []ConstraintParam   `json:"params"`
}

// LibraryResponse 约束库响应
type LibraryResponse struct {
	Library []ConstraintDefinition `json:"library"`
}

// GetLibrary 获取完整的约束库，顺序与编辑校验顺序一致
func GetLibrary() []ConstraintDefinition {
	return []ConstraintDefinition{
		{
			Name:        constraint.TypeDueDate,
			DisplayName: "交期",
			Type:        constraint.CategoryHard,
			Category:    "物料",
			Order:       1,
			Description: "带交期的物料只能排在交期班次及之前。",
			Params: []ConstraintParam{
				{Name: "due_lt", Type: "int", Source: "demand", Description: "最晚班次，0 表示无交期", Default: "0", Min: "0"},
			},
		},
		{
			Name:        constraint.TypeCompatibility,
			DisplayName: "产线兼容",
			Type:        constraint.CategoryHard,
			Category:    "物料",
			Order:       2,
			Description: "物料所属项目只能在可生产产线上排产。",
			Params: []ConstraintParam{
				{Name: "availability", Type: "array", Source: "availability", Description: "项目 -> 可生产产线"},
			},
		},
		{
			Name:        constraint.TypeDemand,
			DisplayName: "需求上限",
			Type:        constraint.CategoryHard,
			Category:    "物料",
			Order:       3,
			Description: "物料全周期累计排产量不超过需求量，未列入需求表的物料需求视为 0。",
			Params: []ConstraintParam{
				{Name: "quantity", Type: "float", Source: "demand", Description: "需求量", Min: "0"},
			},
		},
		{
			Name:        constraint.TypeSlotCapacity,
			DisplayName: "产线班次产能",
			Type:        constraint.CategoryHard,
			Category:    "产能",
			Order:       4,
			Description: "同一产线同一班次的累计量不超过产能；所在厂房禁产时产能为 0。",
			Params: []ConstraintParam{
				{Name: "capacity", Type: "float", Source: "capacity", Description: "产线×班次产能，缺失表示不受限", Min: "0"},
			},
		},
		{
			Name:        constraint.TypeConcurrentLines,
			DisplayName: "同时开线数",
			Type:        constraint.CategoryHard,
			Category:    "厂房",
			Order:       5,
			Description: "同一厂房同一班次有排产的产线数不超过上限。",
			Params: []ConstraintParam{
				{Name: "Max_line_<厂房>", Type: "float", Source: "capacity", Description: "厂房×班次最大开线数", Min: "0"},
			},
		},
		{
			Name:        constraint.TypeBuildingQuantity,
			DisplayName: "厂房产量",
			Type:        constraint.CategoryHard,
			Category:    "厂房",
			Order:       6,
			Description: "同一厂房同一班次的累计量不超过上限。",
			Params: []ConstraintParam{
				{Name: "Max_qty_<厂房>", Type: "float", Source: "capacity", Description: "厂房×班次最大产量", Min: "0"},
			},
		},
		{
			Name:        constraint.TypeUtilization,
			DisplayName: "稼动率",
			Type:        constraint.CategoryHard,
			Category:    "产能",
			Order:       7,
			Description: "产线班次累计量不超过 稼动率上限 × 产能。",
			Params: []ConstraintParam{
				{Name: "utilization", Type: "float", Source: "utilization", Description: "班次稼动率上限", Default: "1", Min: "0", Max: "1"},
			},
		},
		{
			Name:        constraint.TypePortion,
			DisplayName: "厂房占比",
			Type:        constraint.CategoryHard,
			Category:    "厂房",
			Order:       8,
			Description: "厂房全周期产量占总产量的比例落在上下限之间；删除不受此约束阻止。",
			Params: []ConstraintParam{
				{Name: "lower", Type: "float", Source: "portions", Description: "占比下限", Default: "0", Min: "0", Max: "1"},
				{Name: "upper", Type: "float", Source: "portions", Description: "占比上限", Default: "1", Min: "0", Max: "1"},
			},
		},
	}
}

// Find 按约束类型查找定义
func Find(t constraint.Type) (ConstraintDefinition, bool) {
	for _, d := range GetLibrary() {
		if d.Name == t {
			return d, true
		}
	}
	return ConstraintDefinition{}, false
}
