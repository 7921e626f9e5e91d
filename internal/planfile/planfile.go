// Package planfile 读取 YAML 计划文件：产线、需求、产能、厂房策略与预分配指令
package planfile

import (
	"fmt"
	"math"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/paiban/lineplan/pkg/errors"
	"github.com/paiban/lineplan/pkg/model"
)

// Document 计划文件结构
type Document struct {
	Name         string                        `yaml:"name"`
	Horizon      *model.Horizon                `yaml:"horizon,omitempty"`
	Naming       *model.NamingRule             `yaml:"naming,omitempty"`
	Lines        []string                      `yaml:"lines,omitempty"`
	Availability map[string]model.OptionalList `yaml:"availability"`
	Demand       []model.DemandItem            `yaml:"demand"`
	Capacity     map[string][]*float64         `yaml:"capacity"` // 行 -> 按班次的产能，null 为缺失
	Portions     map[string]model.PortionBound `yaml:"portions,omitempty"`
	Utilization  map[int]float64               `yaml:"utilization,omitempty"`
	Directives   []model.RawDirective          `yaml:"directives,omitempty"`
	Periodic     []model.PeriodicDirective     `yaml:"periodic,omitempty"`
}

// Defaults 文件未给出时使用的周期与命名规则
type Defaults struct {
	Horizon model.Horizon
	Naming  model.NamingRule
}

// Scenario 计划与待解析的指令
type Scenario struct {
	Plan       *model.Plan
	Directives []model.RawDirective
	Periodic   []model.PeriodicDirective
	Source     string // 原始文件内容
}

// Load 读取并解析计划文件
func Load(path string, defaults Defaults) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalidInput, fmt.Sprintf("读取计划文件 %s 失败", path))
	}
	return Parse(data, defaults)
}

// Parse 解析计划文件内容
func Parse(data []byte, defaults Defaults) (*Scenario, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalidInput, "计划文件格式错误")
	}
	plan, err := doc.Plan(defaults)
	if err != nil {
		return nil, err
	}
	return &Scenario{
		Plan:       plan,
		Directives: doc.Directives,
		Periodic:   doc.Periodic,
		Source:     string(data),
	}, nil
}

// Plan 转换为已整理的计划
func (d *Document) Plan(defaults Defaults) (*model.Plan, error) {
	horizon := defaults.Horizon
	if d.Horizon != nil {
		horizon = *d.Horizon
	}
	naming := defaults.Naming
	if d.Naming != nil {
		naming = *d.Naming
	}
	name := d.Name
	if name == "" {
		name = "plan"
	}

	plan := model.NewPlan(name, naming, horizon)
	plan.Lines = append(plan.Lines, d.Lines...)
	plan.Demand = append(plan.Demand, d.Demand...)

	for project, lines := range d.Availability {
		plan.Availability[project] = lines.Items()
	}

	ve := &errors.ValidationErrors{}
	size := horizon.Size()
	for _, row := range sortedRows(d.Capacity) {
		cells := d.Capacity[row]
		if len(cells) > size {
			ve.Add("capacity."+row, fmt.Sprintf("共 %d 列，超过 %d 个班次", len(cells), size))
			continue
		}
		for i, v := range cells {
			if v == nil || math.IsNaN(*v) {
				continue
			}
			if *v < 0 {
				ve.Add(fmt.Sprintf("capacity.%s[%d]", row, i+1), "产能不能为负")
				continue
			}
			plan.Capacity[model.Slot{Line: row, Shift: i + 1}] = *v
		}
	}

	for b, bound := range d.Portions {
		plan.Portions[b] = bound
	}
	for shift, u := range d.Utilization {
		if !horizon.Contains(shift) {
			ve.Add(fmt.Sprintf("utilization.%d", shift), "班次超出范围")
			continue
		}
		plan.Utilization[shift] = u
	}
	if ve.HasErrors() {
		return nil, ve.ToAppError()
	}

	if err := plan.Normalize(); err != nil {
		return nil, err
	}
	return plan, nil
}

func sortedRows(m map[string][]*float64) []string {
	rows := make([]string, 0, len(m))
	for k := range m {
		rows = append(rows, k)
	}
	sort.Strings(rows)
	return rows
}
