package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// QuantityKind 数量类型
type QuantityKind int

const (
	QuantityMissing QuantityKind = iota
	QuantityLiteral
	QuantityAll
)

// KeywordAll 表示使用全部剩余需求
const KeywordAll = "ALL"

// Quantity 指令数量：缺失、数值或 "ALL"
type Quantity struct {
	Kind  QuantityKind
	Value float64
}

// Literal 构造数值数量
func Literal(v float64) Quantity {
	return Quantity{Kind: QuantityLiteral, Value: v}
}

// All 构造 ALL 数量
func All() Quantity {
	return Quantity{Kind: QuantityAll}
}

// ParseQuantity 解析数量文本
func ParseQuantity(raw string) (Quantity, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Quantity{}, nil
	}
	if strings.EqualFold(raw, KeywordAll) {
		return All(), nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return Quantity{}, fmt.Errorf("无法解析数量 %q: %w", raw, err)
	}
	return Literal(v), nil
}

// String 文本形式
func (q Quantity) String() string {
	switch q.Kind {
	case QuantityAll:
		return KeywordAll
	case QuantityLiteral:
		return strconv.FormatFloat(q.Value, 'f', -1, 64)
	default:
		return ""
	}
}

// MarshalJSON 实现 json.Marshaler
func (q Quantity) MarshalJSON() ([]byte, error) {
	switch q.Kind {
	case QuantityAll:
		return json.Marshal(KeywordAll)
	case QuantityLiteral:
		return json.Marshal(q.Value)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON 实现 json.Unmarshaler
func (q *Quantity) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*q = Quantity{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		parsed, err := ParseQuantity(s)
		if err != nil {
			return err
		}
		*q = parsed
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("数量必须是数字或 %q", KeywordAll)
	}
	*q = Literal(v)
	return nil
}

// UnmarshalYAML 实现 yaml.Unmarshaler
func (q *Quantity) UnmarshalYAML(n *yaml.Node) error {
	if n.Tag == "!!null" {
		*q = Quantity{}
		return nil
	}
	parsed, err := ParseQuantity(n.Value)
	if err != nil {
		return err
	}
	*q = parsed
	return nil
}

// OptionalList 可缺失的逗号分隔字段；Set=false 表示字段缺失
type OptionalList struct {
	Raw string
	Set bool
}

// ListOf 构造已设置的字段
func ListOf(raw string) OptionalList {
	return OptionalList{Raw: raw, Set: true}
}

// Items 拆分为去空白的元素
func (o OptionalList) Items() []string {
	if !o.Set {
		return nil
	}
	var items []string
	for _, part := range strings.Split(o.Raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			items = append(items, part)
		}
	}
	return items
}

// Ints 拆分为整数
func (o OptionalList) Ints() ([]int, error) {
	var out []int
	for _, part := range o.Items() {
		v, err := strconv.Atoi(part)
		if err != nil {
			f, ferr := strconv.ParseFloat(part, 64)
			if ferr != nil || f != float64(int(f)) {
				return nil, fmt.Errorf("无法解析班次 %q", part)
			}
			v = int(f)
		}
		out = append(out, v)
	}
	return out, nil
}

// MarshalJSON 实现 json.Marshaler
func (o OptionalList) MarshalJSON() ([]byte, error) {
	if !o.Set {
		return []byte("null"), nil
	}
	return json.Marshal(o.Raw)
}

// UnmarshalJSON 实现 json.Unmarshaler，接受字符串或数字
func (o *OptionalList) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*o = OptionalList{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*o = ListOf(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("字段必须是字符串或数字")
	}
	*o = ListOf(n.String())
	return nil
}

// UnmarshalYAML 实现 yaml.Unmarshaler
func (o *OptionalList) UnmarshalYAML(n *yaml.Node) error {
	if n.Tag == "!!null" {
		*o = OptionalList{}
		return nil
	}
	if n.Kind == yaml.SequenceNode {
		parts := make([]string, 0, len(n.Content))
		for _, c := range n.Content {
			parts = append(parts, c.Value)
		}
		*o = ListOf(strings.Join(parts, ","))
		return nil
	}
	*o = ListOf(n.Value)
	return nil
}

// IsZero 供 yaml omitempty 使用
func (o OptionalList) IsZero() bool {
	return !o.Set
}

// RawDirective 人工预分配指令，字段可缺失
type RawDirective struct {
	Pattern  string       `json:"pattern" yaml:"pattern"`
	Line     OptionalList `json:"line" yaml:"line,omitempty"`
	Shift    OptionalList `json:"shift" yaml:"shift,omitempty"`
	Quantity Quantity     `json:"quantity" yaml:"quantity"`
}

// PeriodicDirective 按周循环的预分配声明
// Days 为星期几（1..Days），DayShifts 为当天班次（1..ShiftsPerDay），Weeks 为周偏移（从 0 开始，缺失表示每周）
type PeriodicDirective struct {
	Pattern   string       `json:"pattern" yaml:"pattern"`
	Line      OptionalList `json:"line" yaml:"line,omitempty"`
	Days      OptionalList `json:"days" yaml:"days,omitempty"`
	DayShifts OptionalList `json:"day_shifts" yaml:"day_shifts,omitempty"`
	Weeks     OptionalList `json:"weeks" yaml:"weeks,omitempty"`
	Quantity  Quantity     `json:"quantity" yaml:"quantity"`
}

// RequestKind 请求类型
type RequestKind string

const (
	RequestExact    RequestKind = "exact"
	RequestWildcard RequestKind = "wildcard"
)

// Origin 请求来源
type Origin string

const (
	OriginFixed    Origin = "fixed"
	OriginPeriodic Origin = "periodic"
)

// Request 解析后的固定分配请求
type Request struct {
	Pattern   string      `json:"pattern"`
	Items     []string    `json:"items"`
	Projects  []string    `json:"projects"`
	Lines     []string    `json:"lines"`
	Shifts    []int       `json:"shifts"`
	Quantity  float64     `json:"quantity"`
	Kind      RequestKind `json:"kind"`
	Origin    Origin      `json:"origin"`
	Directive int         `json:"directive"` // 来源指令序号
}

// Target 用于报告的目标描述
func (r Request) Target() string {
	return r.Pattern
}

// AllowsLine 请求是否允许该产线
func (r Request) AllowsLine(line string) bool {
	return containsString(r.Lines, line)
}

// AllowsShift 请求是否允许该班次
func (r Request) AllowsShift(shift int) bool {
	for _, s := range r.Shifts {
		if s == shift {
			return true
		}
	}
	return false
}

// DirectiveErrorKind 指令错误类型
type DirectiveErrorKind string

const (
	DirectiveMissing     DirectiveErrorKind = "missing"
	DirectiveInvalidLine DirectiveErrorKind = "invalid_line"
)

// DirectiveError 被拒绝的指令
type DirectiveError struct {
	Kind      DirectiveErrorKind `json:"kind"`
	Directive int                `json:"directive"`
	Origin    Origin             `json:"origin"`
	Target    string             `json:"target"`
	Field     string             `json:"field"`
	Reason    string             `json:"reason"`
	Lines     []string           `json:"lines,omitempty"`  // 非法产线
	Amount    float64            `json:"amount,omitempty"` // 超出可用数量的部分
}

// Error 实现 error 接口
func (e DirectiveError) Error() string {
	return fmt.Sprintf("指令 #%d '%s' 字段 %s: %s", e.Directive, e.Target, e.Field, e.Reason)
}
