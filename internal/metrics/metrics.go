// Package metrics 提供Prometheus文本格式的监控指标
package metrics

import (
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// 指标名
const (
	HTTPRequestsTotal   = "lineplan_http_requests_total"
	HTTPRequestDuration = "lineplan_http_request_duration_seconds"
	SolveTotal          = "lineplan_solve_total"
	SolveDuration       = "lineplan_solve_duration_seconds"
	SolverNodes         = "lineplan_solver_nodes"
	EditDecisionsTotal  = "lineplan_edit_decisions_total"
	DirectiveErrors     = "lineplan_directive_errors_total"
	LiveEntries         = "lineplan_live_entries"
)

// Registry 指标注册表
type Registry struct {
	counters   map[string]*Counter
	gauges     map[string]*Gauge
	histograms map[string]*Histogram
	mu         sync.RWMutex
}

// Counter 计数器
type Counter struct {
	Name   string
	Help   string
	Labels []string
	values map[string]float64
	mu     sync.RWMutex
}

// Gauge 仪表盘
type Gauge struct {
	Name   string
	Help   string
	Labels []string
	values map[string]float64
	mu     sync.RWMutex
}

// Histogram 直方图
type Histogram struct {
	Name    string
	Help    string
	Labels  []string
	Buckets []float64
	counts  map[string][]int
	sums    map[string]float64
	mu      sync.RWMutex
}

var (
	registry *Registry
	once     sync.Once
)

// NewRegistry 创建注册表并登记排产指标
func NewRegistry() *Registry {
	r := &Registry{
		counters:   make(map[string]*Counter),
		gauges:     make(map[string]*Gauge),
		histograms: make(map[string]*Histogram),
	}
	r.registerDefaults()
	return r
}

// GetRegistry 获取全局注册表
func GetRegistry() *Registry {
	once.Do(func() {
		registry = NewRegistry()
	})
	return registry
}

func (r *Registry) registerDefaults() {
	r.NewCounter(HTTPRequestsTotal, "HTTP请求总数", []string{"method", "path", "status"})
	r.NewHistogram(HTTPRequestDuration, "HTTP请求延迟",
		[]string{"method", "path"},
		[]float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0})

	// 求解：stage 为 diagnose / pre_assign / full
	r.NewCounter(SolveTotal, "求解次数", []string{"stage", "status"})
	r.NewHistogram(SolveDuration, "求解耗时",
		[]string{"stage"},
		[]float64{0.01, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0})
	r.NewGauge(SolverNodes, "最近一次求解的分支节点数", []string{"stage"})

	r.NewCounter(EditDecisionsTotal, "编辑校验结果", []string{"kind", "result", "rule"})
	r.NewCounter(DirectiveErrors, "被拒绝的预分配指令", []string{"kind"})
	r.NewGauge(LiveEntries, "现行排产表行数", nil)
}

// NewCounter 创建计数器
func (r *Registry) NewCounter(name, help string, labels []string) *Counter {
	r.mu.Lock()
	defer r.mu.Unlock()

	counter := &Counter{
		Name:   name,
		Help:   help,
		Labels: labels,
		values: make(map[string]float64),
	}
	r.counters[name] = counter
	return counter
}

// NewGauge 创建仪表盘
func (r *Registry) NewGauge(name, help string, labels []string) *Gauge {
	r.mu.Lock()
	defer r.mu.Unlock()

	gauge := &Gauge{
		Name:   name,
		Help:   help,
		Labels: labels,
		values: make(map[string]float64),
	}
	r.gauges[name] = gauge
	return gauge
}

// NewHistogram 创建直方图
func (r *Registry) NewHistogram(name, help string, labels []string, buckets []float64) *Histogram {
	r.mu.Lock()
	defer r.mu.Unlock()

	histogram := &Histogram{
		Name:    name,
		Help:    help,
		Labels:  labels,
		Buckets: buckets,
		counts:  make(map[string][]int),
		sums:    make(map[string]float64),
	}
	r.histograms[name] = histogram
	return histogram
}

// GetCounter 获取计数器
func (r *Registry) GetCounter(name string) *Counter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.counters[name]
}

// GetGauge 获取仪表盘
func (r *Registry) GetGauge(name string) *Gauge {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.gauges[name]
}

// GetHistogram 获取直方图
func (r *Registry) GetHistogram(name string) *Histogram {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.histograms[name]
}

// Inc 增加计数
func (c *Counter) Inc(labelValues ...string) {
	c.Add(1, labelValues...)
}

// Add 增加指定值
func (c *Counter) Add(value float64, labelValues ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[labelKey(labelValues)] += value
}

// Value 读取当前值
func (c *Counter) Value(labelValues ...string) float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.values[labelKey(labelValues)]
}

// Set 设置值
func (g *Gauge) Set(value float64, labelValues ...string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.values[labelKey(labelValues)] = value
}

// Value 读取当前值
func (g *Gauge) Value(labelValues ...string) float64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.values[labelKey(labelValues)]
}

// Observe 记录观测值
func (h *Histogram) Observe(value float64, labelValues ...string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	key := labelKey(labelValues)
	if _, exists := h.counts[key]; !exists {
		h.counts[key] = make([]int, len(h.Buckets)+1)
	}
	// 各桶只记本桶，输出时累加
	i := sort.SearchFloat64s(h.Buckets, value)
	h.counts[key][i]++
	h.sums[key] += value
}

// labelKey 生成标签键
func labelKey(labels []string) string {
	return strings.Join(labels, "\x1f")
}

// Handler 返回Prometheus格式的指标HTTP处理器
func (r *Registry) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		r.WriteTo(w)
	})
}

// Handler 全局注册表的处理器
func Handler() http.Handler {
	return GetRegistry().Handler()
}

// WriteTo 按名称排序输出全部指标
func (r *Registry) WriteTo(w io.Writer) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, name := range sortedNames(r.counters) {
		c := r.counters[name]
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s counter\n", c.Name, c.Help, c.Name)
		c.mu.RLock()
		for _, key := range sortedNames(c.values) {
			fmt.Fprintf(w, "%s%s %s\n", c.Name, braces(formatLabels(c.Labels, key)), formatFloat(c.values[key]))
		}
		c.mu.RUnlock()
	}

	for _, name := range sortedNames(r.gauges) {
		g := r.gauges[name]
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s gauge\n", g.Name, g.Help, g.Name)
		g.mu.RLock()
		for _, key := range sortedNames(g.values) {
			fmt.Fprintf(w, "%s%s %s\n", g.Name, braces(formatLabels(g.Labels, key)), formatFloat(g.values[key]))
		}
		g.mu.RUnlock()
	}

	for _, name := range sortedNames(r.histograms) {
		h := r.histograms[name]
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s histogram\n", h.Name, h.Help, h.Name)
		h.mu.RLock()
		for _, key := range sortedNames(h.counts) {
			counts := h.counts[key]
			labels := formatLabels(h.Labels, key)
			prefix := labels
			if prefix != "" {
				prefix += ","
			}
			cumulative := 0
			for i, bucket := range h.Buckets {
				cumulative += counts[i]
				fmt.Fprintf(w, "%s_bucket{%sle=\"%s\"} %d\n", h.Name, prefix, formatFloat(bucket), cumulative)
			}
			cumulative += counts[len(h.Buckets)]
			fmt.Fprintf(w, "%s_bucket{%sle=\"+Inf\"} %d\n", h.Name, prefix, cumulative)
			fmt.Fprintf(w, "%s_sum%s %s\n", h.Name, braces(labels), formatFloat(h.sums[key]))
			fmt.Fprintf(w, "%s_count%s %d\n", h.Name, braces(labels), cumulative)
		}
		h.mu.RUnlock()
	}
}

func sortedNames[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func braces(labels string) string {
	if labels == "" {
		return ""
	}
	return "{" + labels + "}"
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// formatLabels 格式化标签
func formatLabels(names []string, key string) string {
	if len(names) == 0 {
		return ""
	}
	vals := strings.Split(key, "\x1f")
	parts := make([]string, len(names))
	for i, name := range names {
		val := ""
		if i < len(vals) {
			val = vals[i]
		}
		parts[i] = fmt.Sprintf("%s=%q", name, val)
	}
	return strings.Join(parts, ",")
}

// RecordRequest 记录请求指标
func RecordRequest(method, path string, status int, duration time.Duration) {
	r := GetRegistry()
	r.GetCounter(HTTPRequestsTotal).Inc(method, path, strconv.Itoa(status))
	r.GetHistogram(HTTPRequestDuration).Observe(duration.Seconds(), method, path)
}

// RecordSolve 记录一次求解，nodes 为负时不更新节点数
func RecordSolve(stage, status string, nodes int, duration time.Duration) {
	r := GetRegistry()
	r.GetCounter(SolveTotal).Inc(stage, status)
	r.GetHistogram(SolveDuration).Observe(duration.Seconds(), stage)
	if nodes >= 0 {
		r.GetGauge(SolverNodes).Set(float64(nodes), stage)
	}
}

// RecordEditDecision 记录编辑校验结果，rule 在接受时为空
func RecordEditDecision(kind string, accepted bool, rule string) {
	result := "accepted"
	if !accepted {
		result = "rejected"
	}
	GetRegistry().GetCounter(EditDecisionsTotal).Inc(kind, result, rule)
}

// RecordDirectiveErrors 记录被拒绝的指令数
func RecordDirectiveErrors(missing, invalid int) {
	c := GetRegistry().GetCounter(DirectiveErrors)
	if missing > 0 {
		c.Add(float64(missing), "missing")
	}
	if invalid > 0 {
		c.Add(float64(invalid), "invalid")
	}
}

// SetLiveEntries 设置现行排产表行数
func SetLiveEntries(n int) {
	GetRegistry().GetGauge(LiveEntries).Set(float64(n))
}
