package stats

import (
	"math"
	"sort"

	"github.com/paiban/lineplan/pkg/model"
)

// BalanceMetrics 产线负荷均衡指标
type BalanceMetrics struct {
	LoadGini     float64 `json:"load_gini"` // 各产线产量的基尼系数
	FillGini     float64 `json:"fill_gini"` // 有上限产线利用率的基尼系数
	MeanLoad     float64 `json:"mean_load"`
	StdDev       float64 `json:"std_dev"`
	MaxLoad      float64 `json:"max_load"`
	MinLoad      float64 `json:"min_load"`
	OverallScore float64 `json:"overall_score"` // 0-100，越高越均衡
}

// BalanceAnalyzer 负荷均衡分析器
type BalanceAnalyzer struct {
	coverage *CoverageAnalyzer
}

// NewBalanceAnalyzer 创建负荷均衡分析器
func NewBalanceAnalyzer(plan *model.Plan) *BalanceAnalyzer {
	return &BalanceAnalyzer{coverage: NewCoverageAnalyzer(plan)}
}

// Analyze 分析排产表的产线负荷
func (b *BalanceAnalyzer) Analyze(s *model.Schedule) *BalanceMetrics {
	m := &BalanceMetrics{}
	lines := b.coverage.Analyze(s).Lines
	if len(lines) == 0 {
		m.OverallScore = 100
		return m
	}

	loads := make([]float64, 0, len(lines))
	var fills []float64
	for _, l := range lines {
		loads = append(loads, l.Scheduled)
		if l.Capacity > 0 {
			fills = append(fills, l.FillRate)
		}
	}

	m.LoadGini = calculateGini(loads)
	m.FillGini = calculateGini(fills)
	m.MeanLoad = calculateMean(loads)
	m.StdDev = math.Sqrt(calculateVariance(loads, m.MeanLoad))
	m.MaxLoad, m.MinLoad = calculateRange(loads)
	m.OverallScore = math.Max(0, 100*(1-m.FillGini))
	return m
}

// CompareSchedules 比较两张排产表，返回各指标的变化量（after - before）
func (b *BalanceAnalyzer) CompareSchedules(before, after *model.Schedule) map[string]float64 {
	m1, m2 := b.Analyze(before), b.Analyze(after)
	return map[string]float64{
		"load_gini_change":     m2.LoadGini - m1.LoadGini,
		"fill_gini_change":     m2.FillGini - m1.FillGini,
		"std_dev_change":       m2.StdDev - m1.StdDev,
		"overall_score_change": m2.OverallScore - m1.OverallScore,
		"scheduled_change":     after.Total() - before.Total(),
	}
}

// calculateGini 计算基尼系数
func calculateGini(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	sum := 0.0
	for _, v := range sorted {
		sum += v
	}
	if sum == 0 {
		return 0
	}

	gini := 0.0
	for i, v := range sorted {
		gini += (2*float64(i+1) - float64(n) - 1) * v
	}
	gini = gini / (float64(n) * sum)
	return math.Max(0, math.Min(1, gini))
}

func calculateMean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func calculateVariance(values []float64, mean float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += (v - mean) * (v - mean)
	}
	return sum / float64(len(values))
}

func calculateRange(values []float64) (max, min float64) {
	if len(values) == 0 {
		return 0, 0
	}
	max, min = values[0], values[0]
	for _, v := range values[1:] {
		if v > max {
			max = v
		}
		if v < min {
			min = v
		}
	}
	return max, min
}
