// Package reconcile 对账引擎：比较外部数据与已存数据，为每个周期给出导入动作
package reconcile

import (
	"math"

	"eedc/internal/model"
)

// MaterialThreshold 差异阈值（字段原始单位）
// 低于该绝对值的偏差视为显示层舍入噪声，不构成冲突；≥ 1 记为实质差异
const MaterialThreshold = 1.0

// Engine 对账引擎，持有一次预览加载的只读周期快照
type Engine struct {
	periods map[model.PeriodKey]model.PeriodData
	order   []model.PeriodKey
}

// NewEngine 基于周期快照创建引擎
func NewEngine(periods []model.PeriodData) *Engine {
	e := &Engine{
		periods: make(map[model.PeriodKey]model.PeriodData, len(periods)),
		order:   make([]model.PeriodKey, 0, len(periods)),
	}
	for _, p := range periods {
		if _, ok := e.periods[p.Key]; ok {
			continue
		}
		e.periods[p.Key] = p
		e.order = append(e.order, p.Key)
	}
	return e
}

// Periods 按加载顺序返回全部周期 key
func (e *Engine) Periods() []model.PeriodKey {
	out := make([]model.PeriodKey, len(e.order))
	copy(out, e.order)
	return out
}

// Period 查找单个周期快照
func (e *Engine) Period(key model.PeriodKey) (model.PeriodData, bool) {
	p, ok := e.periods[key]
	return p, ok
}

// Decide 计算单个周期的对账动作
//
// 优先级链严格按序生效，后面的规则只在前面全部不匹配时适用：
//  1. 外部完全无数据（基础 + 全部组件）→ skip，即使本地也没有数据
//  2. 本地无任何已存数据 → import
//  3. 两侧共有字段的偏差全部低于阈值 → import（视为一致）
//  4. 否则 → conflict
//
// 未知周期按 skip 处理（外部数据天然不完整，不抛错）
func (e *Engine) Decide(key model.PeriodKey) model.ReconciliationAction {
	p, ok := e.periods[key]
	if !ok {
		return model.ActionSkip
	}

	if !p.HasExternal() {
		return model.ActionSkip
	}

	if !p.HasPersisted() {
		return model.ActionImport
	}

	if e.hasMaterialDelta(p) {
		return model.ActionConflict
	}
	return model.ActionImport
}

// hasMaterialDelta 判断周期内是否存在任一实质差异字段
func (e *Engine) hasMaterialDelta(p model.PeriodData) bool {
	if setHasMaterialDelta(p.External, p.Persisted) {
		return true
	}
	for _, c := range p.Components {
		if setHasMaterialDelta(c.External, c.Persisted) {
			return true
		}
	}
	return false
}

func setHasMaterialDelta(external, persisted model.ValueSet) bool {
	for key, ext := range external {
		per, ok := persisted[key]
		if !ok {
			continue
		}
		if IsMaterial(ext - per) {
			return true
		}
	}
	return false
}

// IsMaterial 判断偏差是否达到实质差异阈值
func IsMaterial(delta float64) bool {
	return math.Abs(delta) >= MaterialThreshold
}

// FieldDelta 基础字段偏差（外部 − 已存）
// 任一侧缺少该字段时返回 nil；返回值仅用于界面高亮，不影响周期动作
func (e *Engine) FieldDelta(key model.PeriodKey, fieldKey string) *float64 {
	p, ok := e.periods[key]
	if !ok {
		return nil
	}
	return setDelta(p.External, p.Persisted, fieldKey)
}

// ComponentFieldDelta 组件字段偏差（外部 − 已存）
func (e *Engine) ComponentFieldDelta(key model.PeriodKey, componentID, fieldKey string) *float64 {
	p, ok := e.periods[key]
	if !ok {
		return nil
	}
	for _, c := range p.Components {
		if c.ComponentID == componentID {
			return setDelta(c.External, c.Persisted, fieldKey)
		}
	}
	return nil
}

func setDelta(external, persisted model.ValueSet, fieldKey string) *float64 {
	ext, ok := external[fieldKey]
	if !ok {
		return nil
	}
	per, ok := persisted[fieldKey]
	if !ok {
		return nil
	}
	d := ext - per
	return &d
}

// CountsByAction 统计全部周期的动作分布
func (e *Engine) CountsByAction() model.ActionCounts {
	var counts model.ActionCounts
	for _, key := range e.order {
		switch e.Decide(key) {
		case model.ActionSkip:
			counts.Skip++
		case model.ActionImport:
			counts.Import++
		case model.ActionConflict:
			counts.Conflict++
		}
	}
	return counts
}
