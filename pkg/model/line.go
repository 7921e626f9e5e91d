package model

import "strings"

// NamingRule 产线/物料命名规则
// 厂房由产线编号前缀得到，项目代码由物料编号固定位置截取
type NamingRule struct {
	BuildingSeparator string `json:"building_separator" yaml:"building_separator"`
	BuildingPrefixLen int    `json:"building_prefix_len" yaml:"building_prefix_len"` // >0 时按固定长度截取
	ProjectOffset     int    `json:"project_offset" yaml:"project_offset"`
	ProjectLength     int    `json:"project_length" yaml:"project_length"`
}

// DefaultNamingRule 默认规则：厂房取 "-" 之前部分，项目取前三位
func DefaultNamingRule() NamingRule {
	return NamingRule{
		BuildingSeparator: "-",
		ProjectOffset:     0,
		ProjectLength:     3,
	}
}

// Building 返回产线所属厂房
func (r NamingRule) Building(line string) string {
	if r.BuildingPrefixLen > 0 {
		runes := []rune(line)
		if len(runes) <= r.BuildingPrefixLen {
			return line
		}
		return string(runes[:r.BuildingPrefixLen])
	}
	if r.BuildingSeparator == "" {
		return line
	}
	if idx := strings.Index(line, r.BuildingSeparator); idx > 0 {
		return line[:idx]
	}
	return line
}

// Project 返回物料（或物料模式）的项目代码
func (r NamingRule) Project(item string) string {
	runes := []rune(item)
	start := r.ProjectOffset
	if start < 0 {
		start = 0
	}
	if start >= len(runes) {
		return ""
	}
	end := len(runes)
	if r.ProjectLength > 0 && start+r.ProjectLength < end {
		end = start + r.ProjectLength
	}
	return string(runes[start:end])
}
