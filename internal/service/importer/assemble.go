package importer

import (
	"eedc/internal/model"
	"eedc/internal/service/mapping"
	"eedc/internal/source"
)

// assembleInput 预览快照组装的全部输入
type assembleInput struct {
	From, To    model.PeriodKey
	Mapping     model.MappingSaveRequest
	Investments []model.Investment
	Stats       []source.SensorMonthly
	Readings    []model.MonthlyReading
	InvReadings []model.InvestmentReading
}

// assemblePeriods 把外部逐月统计 + 已存读数组装为对账输入快照
// 映射在这里落到具体数值：sensor 直接取传感器月值，computed 按公式求值
// （解析器只负责结构完整性，数值求值发生在导入流水线，即此处）
func assemblePeriods(resolver *mapping.Resolver, in assembleInput) []model.PeriodData {
	statsByEntity := make(map[string]map[model.PeriodKey]float64, len(in.Stats))
	for _, sm := range in.Stats {
		statsByEntity[sm.EntityID] = sm.Periods
	}

	readingsByKey := make(map[model.PeriodKey]model.ValueSet, len(in.Readings))
	for i := range in.Readings {
		r := in.Readings[i]
		readingsByKey[r.Key()] = r.Values()
	}

	invReadings := make(map[string]map[model.PeriodKey]model.ValueSet)
	for _, r := range in.InvReadings {
		byKey, ok := invReadings[r.InvestmentID]
		if !ok {
			byKey = make(map[model.PeriodKey]model.ValueSet)
			invReadings[r.InvestmentID] = byKey
		}
		byKey[r.Key()] = r.Values.Clone()
	}

	componentFields := make(map[string]map[string]model.FieldMapping, len(in.Mapping.ComponentMappings))
	for _, cm := range in.Mapping.ComponentMappings {
		componentFields[cm.ComponentID] = cm.Fields
	}

	baseCatalog := model.BaseFieldCatalog()

	var out []model.PeriodData
	for _, key := range periodRange(in.From, in.To) {
		p := model.PeriodData{
			Key:       key,
			External:  make(model.ValueSet),
			Persisted: readingsByKey[key].Clone(),
		}
		if p.Persisted == nil {
			p.Persisted = make(model.ValueSet)
		}

		for fieldKey, fm := range in.Mapping.BaseMapping {
			desc, ok := model.FindField(baseCatalog, fieldKey)
			if !ok {
				continue
			}
			if v, ok := resolveValue(resolver, desc, fm, key, statsByEntity); ok {
				p.External[fieldKey] = v
			}
		}

		for _, inv := range in.Investments {
			if !inv.Active {
				continue
			}
			c := model.ComponentData{
				ComponentID:   inv.ID,
				ComponentType: inv.Type,
				Label:         inv.Label,
				External:      make(model.ValueSet),
				Persisted:     invReadings[inv.ID][key].Clone(),
			}
			if c.Persisted == nil {
				c.Persisted = make(model.ValueSet)
			}

			catalog := model.ComponentFieldCatalog(inv.Type)
			for fieldKey, fm := range componentFields[inv.ID] {
				desc, ok := model.FindField(catalog, fieldKey)
				if !ok {
					continue
				}
				if v, ok := resolveValue(resolver, desc, fm, key, statsByEntity); ok {
					c.External[fieldKey] = v
				}
			}
			p.Components = append(p.Components, c)
		}

		out = append(out, p)
	}
	return out
}

// resolveValue 按映射策略求该周期的外部值
// excluded / manual 不产生外部值；不完整的映射一律跳过
func resolveValue(resolver *mapping.Resolver, desc model.FieldDescriptor, fm model.FieldMapping, key model.PeriodKey, stats map[string]map[model.PeriodKey]float64) (float64, bool) {
	if !resolver.IsComplete(fm, desc) {
		return 0, false
	}

	switch fm.Strategy {
	case model.StrategySensor:
		v, ok := stats[fm.SourceKey][key]
		return v, ok
	case model.StrategyComputed:
		return evaluateFormula(fm, key, stats)
	default:
		return 0, false
	}
}

// evaluateFormula 对已绑定占位符求值；任一占位符当月无数据则整体无值
func evaluateFormula(fm model.FieldMapping, key model.PeriodKey, stats map[string]map[model.PeriodKey]float64) (float64, bool) {
	bound := make(map[string]float64, len(fm.SourceKeys))
	for placeholder, entityID := range fm.SourceKeys {
		v, ok := stats[entityID][key]
		if !ok {
			return 0, false
		}
		bound[placeholder] = v
	}

	switch fm.FormulaID {
	case model.FormulaSolarShare:
		return bound["total_charged"] * bound["solar_percentage"] / 100, true
	case model.FormulaCOPHeat:
		return bound["consumed"] * bound["cop"], true
	default:
		return 0, false
	}
}

// periodRange 闭区间展开为逐月周期序列（from 晚于 to 时为空）
func periodRange(from, to model.PeriodKey) []model.PeriodKey {
	var out []model.PeriodKey
	y, m := from.Year, from.Month
	for y < to.Year || (y == to.Year && m <= to.Month) {
		out = append(out, model.PeriodKey{Year: y, Month: m})
		m++
		if m > 12 {
			m = 1
			y++
		}
	}
	return out
}
