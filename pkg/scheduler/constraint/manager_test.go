package constraint

import (
	"testing"

	"github.com/paiban/lineplan/pkg/model"
)

func testPlan(t *testing.T) *model.Plan {
	t.Helper()
	p := model.NewPlan("constraint", model.DefaultNamingRule(), model.DefaultHorizon())
	p.Demand = []model.DemandItem{{Item: "ABC1", Quantity: 100}}
	p.Availability = map[string][]string{"ABC": {"I-L1", "I-L2"}}
	if err := p.Normalize(); err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	return p
}

func TestManager_RegisterKeepsOrder(t *testing.T) {
	manager := NewManager()
	manager.Register(&MockConstraint{name: "c3", typ: Type("c3"), category: CategoryHard, order: 30})
	manager.Register(&MockConstraint{name: "c1", typ: Type("c1"), category: CategoryHard, order: 10})
	manager.Register(&MockConstraint{name: "c2", typ: Type("c2"), category: CategoryHard, order: 20})

	all := manager.GetAll()
	if len(all) != 3 {
		t.Fatalf("Expected 3 constraints, got %d", len(all))
	}
	for i, want := range []string{"c1", "c2", "c3"} {
		if all[i].Name() != want {
			t.Errorf("位置 %d = %s, want %s", i, all[i].Name(), want)
		}
	}

	manager.Register(&MockConstraint{name: "c1-new", typ: Type("c1"), category: CategoryHard, order: 40})
	all = manager.GetAll()
	if len(all) != 3 || all[2].Name() != "c1-new" {
		t.Errorf("同类型应替换并重新排序: %v", all[2].Name())
	}
}

func TestManager_CheckEditReturnsFirstViolation(t *testing.T) {
	manager := NewManager()
	manager.Register(&MockConstraint{name: "pass", typ: Type("pass"), category: CategoryHard, order: 1, pass: true})
	manager.Register(&MockConstraint{name: "second", typ: Type("second"), category: CategoryHard, order: 3})
	manager.Register(&MockConstraint{name: "first", typ: Type("first"), category: CategoryHard, order: 2})
	manager.Register(&MockConstraint{name: "soft", typ: Type("soft"), category: CategorySoft, order: 0})

	ctx := NewContext(testPlan(t), model.NewSchedule(nil))
	v, c := manager.CheckEdit(ctx, &Edit{Kind: EditAdd, Index: -1})
	if v == nil || c == nil {
		t.Fatal("Expected violation")
	}
	if c.Name() != "first" {
		t.Errorf("Expected first violated constraint, got %s", c.Name())
	}
}

func TestManager_Audit(t *testing.T) {
	manager := NewManager()
	manager.Register(&MockConstraint{name: "pass", typ: Type("pass"), category: CategoryHard, pass: true})
	ctx := NewContext(testPlan(t), model.NewSchedule(nil))

	result := manager.Audit(ctx)
	if !result.IsValid {
		t.Error("Expected valid result")
	}

	manager.Register(&MockConstraint{name: "soft", typ: Type("soft"), category: CategorySoft})
	result = manager.Audit(ctx)
	if !result.IsValid || len(result.SoftViolations) != 1 {
		t.Errorf("软约束不影响有效性: %+v", result)
	}

	manager.Register(&MockConstraint{name: "hard", typ: Type("hard"), category: CategoryHard})
	result = manager.Audit(ctx)
	if result.IsValid || len(result.HardViolations) != 1 {
		t.Errorf("硬约束违反应使结果无效: %+v", result)
	}
	if len(result.AllViolations()) != 2 {
		t.Errorf("Expected 2 violations, got %d", len(result.AllViolations()))
	}
}

func TestManager_ClearAndCount(t *testing.T) {
	manager := NewManager()
	if manager.Count() != 0 {
		t.Error("Expected 0 count for empty manager")
	}

	manager.Register(&MockConstraint{name: "c1", typ: Type("c1"), category: CategoryHard})
	manager.Register(&MockConstraint{name: "c2", typ: Type("c2"), category: CategorySoft})
	if manager.Count() != 2 {
		t.Errorf("Expected 2 count, got %d", manager.Count())
	}

	manager.Unregister(Type("c1"))
	if manager.GetConstraint(Type("c1")) != nil {
		t.Error("Expected c1 removed")
	}

	manager.Clear()
	if len(manager.GetAll()) != 0 {
		t.Error("Expected 0 constraints after clear")
	}
}

func TestEdit_DestinationBase(t *testing.T) {
	plan := testPlan(t)
	a := model.NewEntry("I-L1", 3, "ABC1", 10)
	b := model.NewEntry("I-L1", 3, "ABC1", 5)
	schedule := model.NewSchedule([]model.ScheduleEntry{a, b})
	ctx := NewContext(plan, schedule)

	tests := []struct {
		name string
		edit Edit
		base float64
		slot float64
	}{
		{
			name: "同槽改数量",
			edit: Edit{Kind: EditQuantity, Before: &a, After: withQty(a, 20)},
			base: 5,
			slot: 25,
		},
		{
			name: "移入其他产线",
			edit: Edit{Kind: EditMove, Before: &a, After: moved(a, "I-L2", 3)},
			base: 0,
			slot: 10,
		},
		{
			name: "新增到已有槽位",
			edit: Edit{Kind: EditAdd, Index: -1, After: model.NewEntry("I-L1", 3, "ABC1", 1)},
			base: 15,
			slot: 16,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.edit.DestinationBase(ctx); got != tt.base {
				t.Errorf("DestinationBase() = %v, want %v", got, tt.base)
			}
			if got := tt.edit.SlotAfter(ctx); got != tt.slot {
				t.Errorf("SlotAfter() = %v, want %v", got, tt.slot)
			}
		})
	}

	move := Edit{Kind: EditMove, Before: &a, After: moved(a, "I-L2", 3)}
	lines := move.LinesAfter(ctx)
	if lines["I-L1"] != 5 || lines["I-L2"] != 10 {
		t.Errorf("LinesAfter() = %v", lines)
	}
	if move.BuildingShiftAfter(ctx) != 15 {
		t.Errorf("同厂房移动不改变厂房累计量")
	}
}

func withQty(e model.ScheduleEntry, q float64) model.ScheduleEntry {
	e.Quantity = q
	return e
}

func moved(e model.ScheduleEntry, line string, shift int) model.ScheduleEntry {
	e.Line, e.Shift = line, shift
	return e
}

// MockConstraint 用于测试的模拟约束
type MockConstraint struct {
	name     string
	typ      Type
	category Category
	order    int
	pass     bool
}

func (m *MockConstraint) Name() string       { return m.name }
func (m *MockConstraint) Type() Type         { return m.typ }
func (m *MockConstraint) Category() Category { return m.category }
func (m *MockConstraint) Order() int         { return m.order }

func (m *MockConstraint) CheckEdit(ctx *Context, edit *Edit) *model.Violation {
	if m.pass {
		return nil
	}
	return &model.Violation{Reason: model.ReasonInvalidEdit, Target: m.name, Message: "违反约束"}
}

func (m *MockConstraint) Audit(ctx *Context) []model.Violation {
	if v := m.CheckEdit(ctx, nil); v != nil {
		return []model.Violation{*v}
	}
	return nil
}
