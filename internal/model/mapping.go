package model

import "encoding/json"

// Strategy 字段取值策略
type Strategy string

const (
	StrategySensor   Strategy = "sensor"   // 直接来自单个外部传感器
	StrategyComputed Strategy = "computed" // 由多个外部来源按公式推导
	StrategyExcluded Strategy = "excluded" // 显式排除，不自动填充
	StrategyManual   Strategy = "manual"   // 只允许手工录入
)

// FieldMapping 单个目标字段的取值映射（带标签联合）
// 按策略只有部分字段有效：
//   - sensor:   SourceKey
//   - computed: FormulaID + SourceKeys（占位符 → 传感器 key）
//   - excluded / manual: 无附加数据
type FieldMapping struct {
	Strategy   Strategy          `json:"strategy"`
	SourceKey  string            `json:"sourceKey,omitempty"`
	FormulaID  string            `json:"formulaId,omitempty"`
	SourceKeys map[string]string `json:"sourceKeys,omitempty"`
}

// UnmarshalJSON 兼容历史格式：裸字符串视为 sensor 映射的简写
func (m *FieldMapping) UnmarshalJSON(data []byte) error {
	var legacy string
	if err := json.Unmarshal(data, &legacy); err == nil {
		*m = FieldMapping{Strategy: StrategySensor, SourceKey: legacy}
		return nil
	}

	type plain FieldMapping
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*m = FieldMapping(p)
	return nil
}

// MappingSaveRequest 传感器映射保存请求
type MappingSaveRequest struct {
	BaseMapping       map[string]FieldMapping `json:"baseMapping"`
	ComponentMappings []ComponentMapping      `json:"componentMappings"`
}

// ComponentMapping 单个投资项的字段映射集合
type ComponentMapping struct {
	ComponentID string                  `json:"componentId"`
	Fields      map[string]FieldMapping `json:"fields"`
}
