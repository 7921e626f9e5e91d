package diagnose

import (
	"math"
	"sort"

	"github.com/paiban/lineplan/pkg/model"
	"github.com/paiban/lineplan/pkg/scheduler/solver"
)

var inf = math.Inf(1)

// requestCombos 请求可达的 (厂房, 班次) 组合，按厂房、班次排序
func requestCombos(plan *model.Plan, req model.Request) []model.BuildingShift {
	seen := make(map[model.BuildingShift]bool)
	var combos []model.BuildingShift
	for _, line := range req.Lines {
		building := plan.Building(line)
		for _, shift := range req.Shifts {
			bs := model.BuildingShift{Building: building, Shift: shift}
			if !seen[bs] {
				seen[bs] = true
				combos = append(combos, bs)
			}
		}
	}
	sort.Slice(combos, func(i, j int) bool {
		if combos[i].Building != combos[j].Building {
			return combos[i].Building < combos[j].Building
		}
		return combos[i].Shift < combos[j].Shift
	})
	return combos
}

func sortedSlots(m map[model.Slot][]solver.Term) []model.Slot {
	slots := make([]model.Slot, 0, len(m))
	for s := range m {
		slots = append(slots, s)
	}
	sort.Slice(slots, func(i, j int) bool {
		if slots[i].Line != slots[j].Line {
			return slots[i].Line < slots[j].Line
		}
		return slots[i].Shift < slots[j].Shift
	})
	return slots
}

func sortedBuildingShifts(m map[model.BuildingShift][]solver.Term) []model.BuildingShift {
	keys := make([]model.BuildingShift, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Building != keys[j].Building {
			return keys[i].Building < keys[j].Building
		}
		return keys[i].Shift < keys[j].Shift
	})
	return keys
}

func cloneTerms(terms []solver.Term) []solver.Term {
	out := make([]solver.Term, len(terms), len(terms)+1)
	copy(out, terms)
	return out
}

func roundFloat(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
