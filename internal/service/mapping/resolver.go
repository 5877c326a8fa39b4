// Package mapping 字段映射解析：决定目标字段通过哪种策略取值，并校验结构完整性
package mapping

import (
	"errors"
	"fmt"

	"eedc/internal/model"
)

// ErrInvalidStrategyOperation 在错误策略上执行了只属于其他策略的修改
// 属于调用方前置条件错误，不是用户可见错误
var ErrInvalidStrategyOperation = errors.New("映射操作与当前策略不符")

// Resolver 字段映射解析器，持有公式目录用于完整性校验
// 解析器本身不求值公式，只保证结构完整
type Resolver struct {
	formulas map[string]model.Formula
}

// NewResolver 使用内置公式目录创建解析器
func NewResolver() *Resolver {
	return &Resolver{formulas: model.FormulaCatalog()}
}

// NewResolverWithFormulas 使用自定义公式目录创建解析器（测试用）
func NewResolverWithFormulas(formulas map[string]model.Formula) *Resolver {
	return &Resolver{formulas: formulas}
}

// AvailableStrategies 返回字段声明下合法的策略列表
//
// manualOnly 覆盖其他一切标志，只返回 manual；
// 否则 sensor 永远可选，computed 需要 computable 且声明了公式，
// excluded 需要 optional
func (r *Resolver) AvailableStrategies(desc model.FieldDescriptor) []model.Strategy {
	if desc.ManualOnly {
		return []model.Strategy{model.StrategyManual}
	}

	strategies := []model.Strategy{model.StrategySensor}
	if desc.Computable && desc.FormulaID != "" {
		strategies = append(strategies, model.StrategyComputed)
	}
	if desc.Optional {
		strategies = append(strategies, model.StrategyExcluded)
	}
	return strategies
}

// SetStrategy 切换字段映射的取值策略
//
// 切入 sensor 保留之前选过的传感器 key；切入 computed 从字段声明种子化
// 公式 ID 并清空占位符绑定；切入 excluded / manual 丢弃全部来源数据
// 目标策略对该字段不合法时返回错误
func (r *Resolver) SetStrategy(desc model.FieldDescriptor, current model.FieldMapping, strategy model.Strategy) (model.FieldMapping, error) {
	if !r.strategyAllowed(desc, strategy) {
		return model.FieldMapping{}, fmt.Errorf("字段 %s 不支持策略 %s", desc.Key, strategy)
	}

	switch strategy {
	case model.StrategySensor:
		return model.FieldMapping{
			Strategy:  model.StrategySensor,
			SourceKey: current.SourceKey,
		}, nil
	case model.StrategyComputed:
		return model.FieldMapping{
			Strategy:   model.StrategyComputed,
			FormulaID:  desc.FormulaID,
			SourceKeys: make(map[string]string),
		}, nil
	case model.StrategyExcluded:
		return model.FieldMapping{Strategy: model.StrategyExcluded}, nil
	case model.StrategyManual:
		return model.FieldMapping{Strategy: model.StrategyManual}, nil
	default:
		return model.FieldMapping{}, fmt.Errorf("未知策略: %s", strategy)
	}
}

func (r *Resolver) strategyAllowed(desc model.FieldDescriptor, strategy model.Strategy) bool {
	for _, s := range r.AvailableStrategies(desc) {
		if s == strategy {
			return true
		}
	}
	return false
}

// SetSourceKey 替换 sensor 映射的来源 key；其他策略上调用属于前置条件违规
func (r *Resolver) SetSourceKey(m model.FieldMapping, sourceKey string) (model.FieldMapping, error) {
	if m.Strategy != model.StrategySensor {
		return model.FieldMapping{}, fmt.Errorf("%w: SetSourceKey 只适用于 sensor，当前为 %s", ErrInvalidStrategyOperation, m.Strategy)
	}
	m.SourceKey = sourceKey
	return m, nil
}

// SetComputedSource 写入/替换 computed 映射中单个占位符的来源 key
func (r *Resolver) SetComputedSource(m model.FieldMapping, placeholder, sourceKey string) (model.FieldMapping, error) {
	if m.Strategy != model.StrategyComputed {
		return model.FieldMapping{}, fmt.Errorf("%w: SetComputedSource 只适用于 computed，当前为 %s", ErrInvalidStrategyOperation, m.Strategy)
	}

	keys := make(map[string]string, len(m.SourceKeys)+1)
	for k, v := range m.SourceKeys {
		keys[k] = v
	}
	keys[placeholder] = sourceKey
	m.SourceKeys = keys
	return m, nil
}

// IsComplete 判断映射结构是否完整
//
// sensor 需要非空来源 key；computed 需要注册公式的每个占位符都已绑定
// 非空来源；excluded / manual 永远视为完整
// 不完整的 computed 映射绝不能当作有效映射提交
func (r *Resolver) IsComplete(m model.FieldMapping, desc model.FieldDescriptor) bool {
	switch m.Strategy {
	case model.StrategySensor:
		return m.SourceKey != ""
	case model.StrategyComputed:
		formula, ok := r.formulas[m.FormulaID]
		if !ok {
			return false
		}
		for _, placeholder := range formula.Placeholders {
			if m.SourceKeys[placeholder] == "" {
				return false
			}
		}
		return true
	case model.StrategyExcluded, model.StrategyManual:
		return true
	default:
		return false
	}
}
