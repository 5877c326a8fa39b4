// Package selection 导入向导的选择状态：哪些周期、周期内哪些字段参与导入
package selection

import (
	"sort"
	"sync"

	"eedc/internal/model"
)

// BulkMode 批量选择模式
// Manual 只会由细粒度编辑自动进入，不会作为批量操作主动应用
type BulkMode string

const (
	ModeAll            BulkMode = "all"
	ModeBaseOnly       BulkMode = "baseOnly"
	ModeComponentsOnly BulkMode = "componentsOnly"
	ModeManual         BulkMode = "manual"
)

// periodSelection 单个周期的选择状态
type periodSelection struct {
	enabled    bool
	baseFields map[string]bool
	components map[string]map[string]bool // componentId → fieldKey 集合
}

// Store 选择状态存储（单个向导会话独占，仍加锁以配合 HTTP 处理器）
type Store struct {
	mu      sync.RWMutex
	mode    BulkMode
	periods map[model.PeriodKey]*periodSelection
	order   []model.PeriodKey
	// declaredComponentFields 活跃组件的声明字段数，用于 totalFieldCount
	declaredComponentFields map[string]int
}

// NewStore 创建空的选择状态
func NewStore() *Store {
	return &Store{
		mode:                    ModeAll,
		periods:                 make(map[model.PeriodKey]*periodSelection),
		declaredComponentFields: make(map[string]int),
	}
}

// Initialize 按对账动作预置选择状态
// 动作为 import / conflict 的周期默认启用；外部数据中出现的字段全部预选
func (s *Store) Initialize(periods []model.PeriodData, decide func(model.PeriodKey) model.ReconciliationAction) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.mode = ModeAll
	s.periods = make(map[model.PeriodKey]*periodSelection, len(periods))
	s.order = s.order[:0]
	s.declaredComponentFields = make(map[string]int)

	for _, p := range periods {
		action := decide(p.Key)
		sel := &periodSelection{
			enabled:    action == model.ActionImport || action == model.ActionConflict,
			baseFields: make(map[string]bool),
			components: make(map[string]map[string]bool),
		}
		for key := range p.External {
			sel.baseFields[key] = true
		}
		for _, c := range p.Components {
			fields := make(map[string]bool)
			for key := range c.External {
				fields[key] = true
			}
			sel.components[c.ComponentID] = fields

			if _, ok := s.declaredComponentFields[c.ComponentID]; !ok {
				s.declaredComponentFields[c.ComponentID] = len(model.ComponentFieldCatalog(c.ComponentType))
			}
		}
		s.periods[p.Key] = sel
		s.order = append(s.order, p.Key)
	}
}

// Mode 当前批量模式
func (s *Store) Mode() BulkMode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode
}

// ApplyBulkMode 应用批量模式，完全覆盖之前的细粒度调整
// manual 不做任何改动（它只作为细粒度编辑的结果状态存在）
func (s *Store) ApplyBulkMode(mode BulkMode, periods []model.PeriodData) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if mode == ModeManual {
		s.mode = ModeManual
		return
	}

	for _, p := range periods {
		sel, ok := s.periods[p.Key]
		if !ok {
			continue
		}

		sel.baseFields = make(map[string]bool)
		if mode == ModeAll || mode == ModeBaseOnly {
			for key := range p.External {
				sel.baseFields[key] = true
			}
		}

		sel.components = make(map[string]map[string]bool)
		for _, c := range p.Components {
			fields := make(map[string]bool)
			if mode == ModeAll || mode == ModeComponentsOnly {
				for key := range c.External {
					fields[key] = true
				}
			}
			sel.components[c.ComponentID] = fields
		}
	}

	s.mode = mode
}

// TogglePeriod 翻转周期级开关，不影响周期内字段的预选
func (s *Store) TogglePeriod(year, month int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sel, ok := s.periods[model.PeriodKey{Year: year, Month: month}]; ok {
		sel.enabled = !sel.enabled
	}
}

// PeriodEnabled 查询周期开关
func (s *Store) PeriodEnabled(year, month int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sel, ok := s.periods[model.PeriodKey{Year: year, Month: month}]
	return ok && sel.enabled
}

// ToggleBaseField 翻转单个基础字段；任何细粒度编辑都会把批量模式降为 manual
func (s *Store) ToggleBaseField(year, month int, fieldKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sel, ok := s.periods[model.PeriodKey{Year: year, Month: month}]
	if !ok {
		return
	}
	if sel.baseFields[fieldKey] {
		delete(sel.baseFields, fieldKey)
	} else {
		sel.baseFields[fieldKey] = true
	}
	s.mode = ModeManual
}

// ToggleComponentField 翻转单个组件字段；同样降级为 manual
func (s *Store) ToggleComponentField(year, month int, componentID, fieldKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sel, ok := s.periods[model.PeriodKey{Year: year, Month: month}]
	if !ok {
		return
	}
	fields, ok := sel.components[componentID]
	if !ok {
		fields = make(map[string]bool)
		sel.components[componentID] = fields
	}
	if fields[fieldKey] {
		delete(fields, fieldKey)
	} else {
		fields[fieldKey] = true
	}
	s.mode = ModeManual
}

// BaseFieldSelected 查询单个基础字段是否选中
func (s *Store) BaseFieldSelected(year, month int, fieldKey string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sel, ok := s.periods[model.PeriodKey{Year: year, Month: month}]
	return ok && sel.baseFields[fieldKey]
}

// ComponentFieldSelected 查询单个组件字段是否选中
func (s *Store) ComponentFieldSelected(year, month int, componentID, fieldKey string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sel, ok := s.periods[model.PeriodKey{Year: year, Month: month}]
	if !ok {
		return false
	}
	return sel.components[componentID][fieldKey]
}

// SelectedCount 当前选中的字段总数（基础 + 组件，不区分周期开关）
func (s *Store) SelectedCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, sel := range s.periods {
		count += len(sel.baseFields)
		for _, fields := range sel.components {
			count += len(fields)
		}
	}
	return count
}

// TotalFieldCount 全部周期的声明字段总数
// 口径为「3 个基础字段 + 每个活跃组件的声明字段数」，与数据源实际提供什么无关
func (s *Store) TotalFieldCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	perPeriod := len(model.BaseFieldCatalog())
	for _, n := range s.declaredComponentFields {
		perPeriod += n
	}
	return perPeriod * len(s.periods)
}

// BuildImportBatch 生成最终导入批次
//
// 过滤规则：周期开关关闭、动作为 skip、或基础与组件字段列表同时为空的周期
// 一律不进入批次——提交的周期必须至少携带一个待写字段
// 空选择产生空批次，由调用方按「无事可做」处理，不是错误
func (s *Store) BuildImportBatch(decide func(model.PeriodKey) model.ReconciliationAction) model.ImportBatch {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var batch model.ImportBatch
	for _, key := range s.order {
		sel := s.periods[key]
		if !sel.enabled {
			continue
		}
		if decide(key) == model.ActionSkip {
			continue
		}

		entry := model.ImportBatchEntry{
			Year:               key.Year,
			Month:              key.Month,
			BaseFieldKeys:      sortedKeys(sel.baseFields),
			ComponentFieldKeys: make(map[string][]string),
		}
		for componentID, fields := range sel.components {
			if len(fields) == 0 {
				continue
			}
			entry.ComponentFieldKeys[componentID] = sortedKeys(fields)
		}

		if len(entry.BaseFieldKeys) == 0 && len(entry.ComponentFieldKeys) == 0 {
			continue
		}
		batch.Entries = append(batch.Entries, entry)
	}
	return batch
}

func sortedKeys(set map[string]bool) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
