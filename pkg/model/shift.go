package model

// Horizon 排产周期：每天班次数 × 天数 × 周数
type Horizon struct {
	ShiftsPerDay int `json:"shifts_per_day" yaml:"shifts_per_day"`
	Days         int `json:"days" yaml:"days"`
	Weeks        int `json:"weeks" yaml:"weeks"`
}

// DefaultHorizon 默认一周两班制（1..14）
func DefaultHorizon() Horizon {
	return Horizon{ShiftsPerDay: 2, Days: 7, Weeks: 1}
}

// Size 返回班次总数
func (h Horizon) Size() int {
	return h.ShiftsPerDay * h.Days * h.Weeks
}

// All 返回完整班次范围 1..Size
func (h Horizon) All() []int {
	shifts := make([]int, h.Size())
	for i := range shifts {
		shifts[i] = i + 1
	}
	return shifts
}

// Contains 检查班次是否在范围内
func (h Horizon) Contains(shift int) bool {
	return shift >= 1 && shift <= h.Size()
}

// Flat 将 (周偏移, 星期几, 当天班次) 转换为扁平班次编号
// week 从 0 开始，day 与 dayShift 从 1 开始
func (h Horizon) Flat(week, day, dayShift int) (int, bool) {
	if week < 0 || week >= h.Weeks || day < 1 || day > h.Days || dayShift < 1 || dayShift > h.ShiftsPerDay {
		return 0, false
	}
	return (week*h.Days+(day-1))*h.ShiftsPerDay + dayShift, true
}

// Day 返回班次所在的 (周偏移, 星期几, 当天班次)
func (h Horizon) Day(shift int) (week, day, dayShift int) {
	idx := shift - 1
	dayShift = idx%h.ShiftsPerDay + 1
	dayIdx := idx / h.ShiftsPerDay
	return dayIdx / h.Days, dayIdx%h.Days + 1, dayShift
}
