// Package model 定义排产引擎的核心数据模型
package model

import (
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
)

// BaseModel 基础模型（包含通用字段）
type BaseModel struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// NewBaseModel 创建新的基础模型
func NewBaseModel() BaseModel {
	now := time.Now().UTC()
	return BaseModel{
		ID:        uuid.New(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Slot 产线×班次，最小产能单元
type Slot struct {
	Line  string `json:"line" yaml:"line"`
	Shift int    `json:"shift" yaml:"shift"`
}

// BuildingShift 厂房×班次
type BuildingShift struct {
	Building string `json:"building"`
	Shift    int    `json:"shift"`
}

// Bounded 判断数值是否构成有效上限；缺失、NaN、+Inf 均视为不受限
func Bounded(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 1)
}

// Float 返回指针，用于构造可选上限
func Float(v float64) *float64 {
	return &v
}

// limitOf 解析可选上限
func limitOf(v *float64) (float64, bool) {
	if v == nil || !Bounded(*v) {
		return 0, false
	}
	return *v, true
}

// sortedKeys 返回排序后的键
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// containsString 检查切片是否包含字符串
func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
