package constraint

import (
	"sort"
	"sync"

	"github.com/paiban/lineplan/pkg/logger"
	"github.com/paiban/lineplan/pkg/model"
)

// Manager 约束管理器，按固定顺序校验
type Manager struct {
	constraints []Constraint
	mu          sync.RWMutex
	logger      *logger.PlannerLogger
}

// NewManager 创建约束管理器
func NewManager() *Manager {
	return &Manager{
		constraints: make([]Constraint, 0),
		logger:      logger.NewPlannerLogger("constraint"),
	}
}

// Register 注册约束，同类型替换
func (m *Manager) Register(c Constraint) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, existing := range m.constraints {
		if existing.Type() == c.Type() {
			m.constraints[i] = c
			m.sortLocked()
			return
		}
	}
	m.constraints = append(m.constraints, c)
	m.sortLocked()
}

// sortLocked 按校验顺序排序
func (m *Manager) sortLocked() {
	sort.SliceStable(m.constraints, func(i, j int) bool {
		return m.constraints[i].Order() < m.constraints[j].Order()
	})
}

// Unregister 注销约束
func (m *Manager) Unregister(t Type) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, c := range m.constraints {
		if c.Type() == t {
			m.constraints = append(m.constraints[:i], m.constraints[i+1:]...)
			return
		}
	}
}

// GetConstraint 获取约束
func (m *Manager) GetConstraint(t Type) Constraint {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, c := range m.constraints {
		if c.Type() == t {
			return c
		}
	}
	return nil
}

// GetAll 获取所有约束（按校验顺序）
func (m *Manager) GetAll() []Constraint {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]Constraint, len(m.constraints))
	copy(result, m.constraints)
	return result
}

// CheckEdit 按顺序校验编辑，返回第一个违反及其约束
func (m *Manager) CheckEdit(ctx *Context, edit *Edit) (*model.Violation, Constraint) {
	for _, c := range m.GetAll() {
		if c.Category() != CategoryHard {
			continue
		}
		if v := c.CheckEdit(ctx, edit); v != nil {
			return v, c
		}
	}
	return nil, nil
}

// Audit 全表校验所有约束
func (m *Manager) Audit(ctx *Context) *Result {
	constraints := m.GetAll()
	result := &Result{
		IsValid:        true,
		HardViolations: make([]model.Violation, 0),
		SoftViolations: make([]model.Violation, 0),
		CheckedRules:   len(constraints),
	}

	for _, c := range constraints {
		for _, v := range c.Audit(ctx) {
			if c.Category() == CategoryHard {
				result.IsValid = false
				result.HardViolations = append(result.HardViolations, v)
				amt, _ := v.Amount.Float64()
				m.logger.ConstraintViolation(c.Name(), v.Target, amt)
			} else {
				result.SoftViolations = append(result.SoftViolations, v)
			}
		}
	}
	return result
}

// Clear 清除所有约束
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.constraints = make([]Constraint, 0)
}

// Count 返回约束数量
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.constraints)
}
