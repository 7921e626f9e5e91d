package model

import (
	"sort"

	"github.com/google/uuid"
)

// Snapshot 排产表快照类型
type Snapshot string

const (
	SnapshotLive     Snapshot = "live"
	SnapshotOriginal Snapshot = "original"
)

// ScheduleEntry 排产表的一行
type ScheduleEntry struct {
	ID       uuid.UUID `json:"id"`
	Line     string    `json:"line"`
	Shift    int       `json:"shift"`
	Item     string    `json:"item"`
	Quantity float64   `json:"quantity"`
	Project  string    `json:"project,omitempty"`
	Building string    `json:"building,omitempty"`
	RMC      string    `json:"rmc,omitempty"`
	DueLT    int       `json:"due_lt,omitempty"`
	Pinned   bool      `json:"pinned,omitempty"` // 来自预分配
}

// NewEntry 创建带唯一标识的排产行
func NewEntry(line string, shift int, item string, quantity float64) ScheduleEntry {
	return ScheduleEntry{
		ID:       uuid.New(),
		Line:     line,
		Shift:    shift,
		Item:     item,
		Quantity: quantity,
	}
}

// Slot 返回所在产线班次
func (e ScheduleEntry) Slot() Slot {
	return Slot{Line: e.Line, Shift: e.Shift}
}

// Schedule 排产表
type Schedule struct {
	Entries []ScheduleEntry `json:"entries"`
}

// NewSchedule 创建排产表
func NewSchedule(entries []ScheduleEntry) *Schedule {
	return &Schedule{Entries: entries}
}

// Clone 深拷贝
func (s *Schedule) Clone() *Schedule {
	if s == nil {
		return &Schedule{}
	}
	entries := make([]ScheduleEntry, len(s.Entries))
	copy(entries, s.Entries)
	return &Schedule{Entries: entries}
}

// Len 行数
func (s *Schedule) Len() int {
	return len(s.Entries)
}

// IndexOf 按标识查找行下标
func (s *Schedule) IndexOf(id uuid.UUID) int {
	if id == uuid.Nil {
		return -1
	}
	for i := range s.Entries {
		if s.Entries[i].ID == id {
			return i
		}
	}
	return -1
}

// Find 按 (产线, 班次, 物料) 查找第一行
func (s *Schedule) Find(line string, shift int, item string) int {
	for i := range s.Entries {
		e := &s.Entries[i]
		if e.Line == line && e.Shift == shift && e.Item == item {
			return i
		}
	}
	return -1
}

// Total 总排产量
func (s *Schedule) Total() float64 {
	var total float64
	for _, e := range s.Entries {
		total += e.Quantity
	}
	return total
}

// SlotTotal 产线班次累计量
func (s *Schedule) SlotTotal(line string, shift int) float64 {
	var total float64
	for _, e := range s.Entries {
		if e.Line == line && e.Shift == shift {
			total += e.Quantity
		}
	}
	return total
}

// ItemTotal 物料累计量
func (s *Schedule) ItemTotal(item string) float64 {
	var total float64
	for _, e := range s.Entries {
		if e.Item == item {
			total += e.Quantity
		}
	}
	return total
}

// BuildingShiftTotal 厂房班次累计量
func (s *Schedule) BuildingShiftTotal(building string, shift int) float64 {
	var total float64
	for _, e := range s.Entries {
		if e.Building == building && e.Shift == shift {
			total += e.Quantity
		}
	}
	return total
}

// ActiveLines 厂房班次中产量大于 0 的产线集合
func (s *Schedule) ActiveLines(building string, shift int) map[string]float64 {
	lines := make(map[string]float64)
	for _, e := range s.Entries {
		if e.Building == building && e.Shift == shift {
			lines[e.Line] += e.Quantity
		}
	}
	for l, q := range lines {
		if q <= 0 {
			delete(lines, l)
		}
	}
	return lines
}

// BuildingTotals 各厂房累计量
func (s *Schedule) BuildingTotals() map[string]float64 {
	totals := make(map[string]float64)
	for _, e := range s.Entries {
		totals[e.Building] += e.Quantity
	}
	return totals
}

// ItemTotals 各物料累计量
func (s *Schedule) ItemTotals() map[string]float64 {
	totals := make(map[string]float64)
	for _, e := range s.Entries {
		totals[e.Item] += e.Quantity
	}
	return totals
}

// SlotTotals 各产线班次累计量
func (s *Schedule) SlotTotals() map[Slot]float64 {
	totals := make(map[Slot]float64)
	for _, e := range s.Entries {
		totals[e.Slot()] += e.Quantity
	}
	return totals
}

// Sort 按 班次/产线/物料 排序，便于稳定输出
func (s *Schedule) Sort() {
	sort.SliceStable(s.Entries, func(i, j int) bool {
		a, b := s.Entries[i], s.Entries[j]
		if a.Shift != b.Shift {
			return a.Shift < b.Shift
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Item < b.Item
	})
}

// ChangeKind 差异类型
type ChangeKind string

const (
	ChangeAdded   ChangeKind = "added"
	ChangeRemoved ChangeKind = "removed"
	ChangeMoved   ChangeKind = "moved"
	ChangeUpdated ChangeKind = "updated"
)

// Change 排产行差异
type Change struct {
	Kind   ChangeKind     `json:"kind"`
	ID     uuid.UUID      `json:"id"`
	Before *ScheduleEntry `json:"before,omitempty"`
	After  *ScheduleEntry `json:"after,omitempty"`
}

// Diff 比较两张排产表（按标识）
func Diff(original, live *Schedule) []Change {
	var changes []Change
	before := make(map[uuid.UUID]ScheduleEntry, len(original.Entries))
	for _, e := range original.Entries {
		before[e.ID] = e
	}
	seen := make(map[uuid.UUID]bool, len(live.Entries))
	for _, e := range live.Entries {
		after := e
		seen[e.ID] = true
		old, ok := before[e.ID]
		if !ok {
			changes = append(changes, Change{Kind: ChangeAdded, ID: e.ID, After: &after})
			continue
		}
		prev := old
		switch {
		case old.Line != e.Line || old.Shift != e.Shift:
			changes = append(changes, Change{Kind: ChangeMoved, ID: e.ID, Before: &prev, After: &after})
		case old.Quantity != e.Quantity:
			changes = append(changes, Change{Kind: ChangeUpdated, ID: e.ID, Before: &prev, After: &after})
		}
	}
	for _, e := range original.Entries {
		if !seen[e.ID] {
			prev := e
			changes = append(changes, Change{Kind: ChangeRemoved, ID: e.ID, Before: &prev})
		}
	}
	return changes
}
