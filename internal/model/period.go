package model

import "fmt"

// PeriodKey 统计周期标识（年 + 月），值类型可直接作为 map key 比较
type PeriodKey struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

// String 格式化为 "2024-03" 形式（仅用于展示与日志，不作为存储 key）
func (k PeriodKey) String() string {
	return fmt.Sprintf("%04d-%02d", k.Year, k.Month)
}

// Valid 校验年月合法性
func (k PeriodKey) Valid() bool {
	return k.Year > 0 && k.Month >= 1 && k.Month <= 12
}

// ReconciliationAction 对账动作
type ReconciliationAction string

const (
	ActionSkip      ReconciliationAction = "skip"      // 外部无数据，跳过
	ActionImport    ReconciliationAction = "import"    // 可直接导入
	ActionConflict  ReconciliationAction = "conflict"  // 与已有数据冲突，需用户确认
	ActionOverwrite ReconciliationAction = "overwrite" // 冲突已确认，执行覆盖
)

// ValueSet 字段值集合，key 为字段名；不存在的 key 表示该字段在数据源中未知
type ValueSet map[string]float64

// Has 判断字段是否存在
func (v ValueSet) Has(key string) bool {
	_, ok := v[key]
	return ok
}

// Empty 判断集合是否为空
func (v ValueSet) Empty() bool {
	return len(v) == 0
}

// Clone 复制一份集合
func (v ValueSet) Clone() ValueSet {
	if v == nil {
		return nil
	}
	out := make(ValueSet, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}

// NormalizeValues 把接口层的 number|null 映射规整为 ValueSet（null 即未知，直接丢弃）
func NormalizeValues(raw map[string]*float64) ValueSet {
	out := make(ValueSet, len(raw))
	for k, v := range raw {
		if v != nil {
			out[k] = *v
		}
	}
	return out
}

// ComponentData 单个组件（投资项）在一个周期内的外部/已存数据
type ComponentData struct {
	ComponentID   string   `json:"componentId"`
	ComponentType string   `json:"componentType"`
	Label         string   `json:"label"`
	External      ValueSet `json:"-"`
	Persisted     ValueSet `json:"-"`
}

// PeriodData 单个周期的对账输入快照
type PeriodData struct {
	Key        PeriodKey       `json:"key"`
	External   ValueSet        `json:"-"`
	Persisted  ValueSet        `json:"-"`
	Components []ComponentData `json:"-"`
}

// HasExternal 判断该周期是否存在任何外部数据（基础字段或任一组件字段）
func (p PeriodData) HasExternal() bool {
	if !p.External.Empty() {
		return true
	}
	for _, c := range p.Components {
		if !c.External.Empty() {
			return true
		}
	}
	return false
}

// HasPersisted 判断该周期是否已有任何持久化数据
func (p PeriodData) HasPersisted() bool {
	if !p.Persisted.Empty() {
		return true
	}
	for _, c := range p.Components {
		if !c.Persisted.Empty() {
			return true
		}
	}
	return false
}
