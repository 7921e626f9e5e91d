package model

// DemandItem 需求物料
type DemandItem struct {
	Item       string  `json:"item" yaml:"item"`
	Quantity   float64 `json:"quantity" yaml:"quantity"`                           // MFG 需求量
	DueLT      int     `json:"due_lt" yaml:"due_lt"`                               // 交期班次，0 表示无交期
	ShipTarget float64 `json:"ship_target,omitempty" yaml:"ship_target,omitempty"` // 出货目标，0 表示按需求量
	RMC        string  `json:"rmc,omitempty" yaml:"rmc,omitempty"`
	Project    string  `json:"project,omitempty" yaml:"-"`
}

// Target 返回出货目标量
func (d DemandItem) Target() float64 {
	if d.ShipTarget > 0 && d.ShipTarget <= d.Quantity {
		return d.ShipTarget
	}
	return d.Quantity
}

// HasDueDate 是否设置了交期
func (d DemandItem) HasDueDate() bool {
	return d.DueLT > 0
}

// PortionBound 厂房占比上下限
type PortionBound struct {
	Lower float64 `json:"lower" yaml:"lower"`
	Upper float64 `json:"upper" yaml:"upper"`
}

// Policy 厂房×班次策略，nil 表示不受限
type Policy struct {
	MaxLines *float64 `json:"max_lines,omitempty"`
	MaxQty   *float64 `json:"max_qty,omitempty"`
}
