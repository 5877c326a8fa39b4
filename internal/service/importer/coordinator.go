// Package importer 历史数据导入协调器：拉取预览、组装快照、执行提交
package importer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"eedc/internal/model"
	"eedc/internal/service/mapping"
	"eedc/internal/service/reconcile"
	"eedc/internal/service/session"
	"eedc/internal/source"
	"eedc/internal/store"
)

// ErrSuperseded 预览响应已被更新的加载请求超越（last-request-wins）
var ErrSuperseded = errors.New("预览已被更新的加载请求取代")

// ErrNoSession 安装没有活动的向导会话
var ErrNoSession = errors.New("没有活动的导入会话，请先加载预览")

// ErrEmptyBatch 空批次在调用处拒绝，不发往数据写入
var ErrEmptyBatch = errors.New("导入批次为空：没有选中任何周期或字段")

// ErrOverwriteNotAllowed 批次含冲突周期但未确认覆盖
var ErrOverwriteNotAllowed = errors.New("批次包含冲突周期，必须显式确认覆盖")

// Coordinator 导入协调器
type Coordinator struct {
	store    *store.Store
	source   SourceClient
	sessions *session.Manager
	resolver *mapping.Resolver
}

// SourceClient 协调器需要的数据源能力（source.Client 的子集）
type SourceClient interface {
	MonthlyStatistics(ctx context.Context, entityIDs []string, from, to model.PeriodKey) ([]source.SensorMonthly, error)
}

// NewCoordinator 创建导入协调器
func NewCoordinator(st *store.Store, src SourceClient, sessions *session.Manager) *Coordinator {
	return &Coordinator{
		store:    st,
		source:   src,
		sessions: sessions,
		resolver: mapping.NewResolver(),
	}
}

// LoadPreview 拉取外部统计并组装预览
//
// 每次加载使快照身份变更：正在进行的选择编辑随旧会话一起作废，
// 不会并入新快照；迟到的旧响应被直接丢弃（ErrSuperseded）
func (c *Coordinator) LoadPreview(ctx context.Context, anlageID string, from, to model.PeriodKey) (*model.PreviewResponse, error) {
	generation := c.sessions.BeginLoad(anlageID)

	saved, err := c.store.LoadMapping(anlageID)
	if err != nil {
		return nil, fmt.Errorf("读取传感器映射失败: %w", err)
	}

	investments, err := c.store.ListInvestments(anlageID)
	if err != nil {
		return nil, fmt.Errorf("读取投资项失败: %w", err)
	}

	entityIDs := collectEntityIDs(saved)
	stats, err := c.fetchStats(ctx, entityIDs, from, to)
	if err != nil {
		// 外部源不可用时预览视为「没有周期、没有动作」，由界面回落到手工录入
		return nil, fmt.Errorf("拉取外部统计失败: %w", err)
	}

	readings, err := c.store.ListReadings(anlageID)
	if err != nil {
		return nil, fmt.Errorf("读取已存读数失败: %w", err)
	}
	invReadings, err := c.store.ListInvestmentReadings(anlageID)
	if err != nil {
		return nil, fmt.Errorf("读取投资项读数失败: %w", err)
	}

	periods := assemblePeriods(c.resolver, assembleInput{
		From:        from,
		To:          to,
		Mapping:     saved,
		Investments: investments,
		Stats:       stats,
		Readings:    readings,
		InvReadings: invReadings,
	})

	s := session.NewSession(anlageID, generation, periods)
	if !c.sessions.Install(s) {
		return nil, ErrSuperseded
	}

	resp := BuildPreviewResponse(s)
	return &resp, nil
}

func (c *Coordinator) fetchStats(ctx context.Context, entityIDs []string, from, to model.PeriodKey) ([]source.SensorMonthly, error) {
	if len(entityIDs) == 0 {
		return nil, nil
	}
	return c.source.MonthlyStatistics(ctx, entityIDs, from, to)
}

// collectEntityIDs 汇总映射引用到的全部传感器实体
func collectEntityIDs(saved model.MappingSaveRequest) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(id string) {
		if id != "" && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}

	for _, fm := range saved.BaseMapping {
		add(fm.SourceKey)
		for _, id := range fm.SourceKeys {
			add(id)
		}
	}
	for _, cm := range saved.ComponentMappings {
		for _, fm := range cm.Fields {
			add(fm.SourceKey)
			for _, id := range fm.SourceKeys {
				add(id)
			}
		}
	}
	return out
}

// BuildPreviewResponse 把会话快照渲染为预览响应
func BuildPreviewResponse(s *session.Session) model.PreviewResponse {
	resp := model.PreviewResponse{
		Periods:        make([]model.PreviewPeriod, 0, len(s.Periods)),
		CountsByAction: s.Engine.CountsByAction(),
	}

	for _, p := range s.Periods {
		pp := model.PreviewPeriod{
			Year:           p.Key.Year,
			Month:          p.Key.Month,
			Action:         s.Engine.Decide(p.Key),
			ExternalValues: toNullableValues(p.External),
		}
		if !p.Persisted.Empty() {
			pp.PersistedValues = toNullableValues(p.Persisted)
		}
		for _, comp := range p.Components {
			pc := model.PreviewComponent{
				ComponentID:      comp.ComponentID,
				ComponentType:    comp.ComponentType,
				Label:            comp.Label,
				ExternalValues:   toNullableValues(comp.External),
				HasMaterialDelta: componentHasMaterialDelta(comp),
			}
			if !comp.Persisted.Empty() {
				pc.PersistedValues = toNullableValues(comp.Persisted)
			}
			pp.Components = append(pp.Components, pc)
		}
		resp.Periods = append(resp.Periods, pp)
	}
	return resp
}

func componentHasMaterialDelta(c model.ComponentData) bool {
	for key, ext := range c.External {
		per, ok := c.Persisted[key]
		if ok && reconcile.IsMaterial(ext-per) {
			return true
		}
	}
	return false
}

func toNullableValues(v model.ValueSet) map[string]*float64 {
	out := make(map[string]*float64, len(v))
	for k, val := range v {
		val := val
		out[k] = &val
	}
	return out
}

// Submit 执行导入提交
//
// 空批次与未确认的覆盖在这里拒绝；单个周期写入失败记入 Errors 并继续，
// 批次按稳定身份（年月 + 字段 key）寻址，可安全重试重提交
func (c *Coordinator) Submit(anlageID string, req model.ImportSubmitRequest) (model.ImportSubmitResponse, error) {
	s, ok := c.sessions.Get(anlageID)
	if !ok {
		return model.ImportSubmitResponse{}, ErrNoSession
	}
	if req.Batch.Empty() {
		return model.ImportSubmitResponse{}, ErrEmptyBatch
	}

	// 覆盖确认检查先于一切写入
	hasConflict := false
	for _, entry := range req.Batch.Entries {
		key := model.PeriodKey{Year: entry.Year, Month: entry.Month}
		if s.Engine.Decide(key) == model.ActionConflict {
			hasConflict = true
			break
		}
	}
	if hasConflict && !req.AllowOverwrite {
		return model.ImportSubmitResponse{}, ErrOverwriteNotAllowed
	}

	logID, logErr := c.store.CreateImportLog(anlageID, len(req.Batch.Entries))

	resp := model.ImportSubmitResponse{Errors: []string{}}
	submitted := make(map[model.PeriodKey]bool, len(req.Batch.Entries))

	for _, entry := range req.Batch.Entries {
		key := model.PeriodKey{Year: entry.Year, Month: entry.Month}
		submitted[key] = true

		p, ok := s.Engine.Period(key)
		if !ok {
			resp.Errors = append(resp.Errors, fmt.Sprintf("%s: 周期不在预览快照中", key))
			continue
		}

		if err := c.writeEntry(anlageID, p, entry); err != nil {
			resp.Errors = append(resp.Errors, fmt.Sprintf("%s: %v", key, err))
			continue
		}

		if s.Engine.Decide(key) == model.ActionConflict {
			resp.Overwritten++
		} else {
			resp.Imported++
		}
	}

	// 快照中未提交的周期记为跳过
	for _, key := range s.Engine.Periods() {
		if !submitted[key] {
			resp.Skipped++
		}
	}

	resp.Success = len(resp.Errors) == 0

	if logErr == nil {
		status := "completed"
		if !resp.Success {
			status = "partial"
		}
		_ = c.store.FinishImportLog(logID, resp.Imported, resp.Skipped, resp.Overwritten, status)
	}

	return resp, nil
}

// writeEntry 写入单个周期条目（基础字段 + 各组件字段）
func (c *Coordinator) writeEntry(anlageID string, p model.PeriodData, entry model.ImportBatchEntry) error {
	if len(entry.BaseFieldKeys) > 0 {
		values := make(model.ValueSet, len(entry.BaseFieldKeys))
		for _, fieldKey := range entry.BaseFieldKeys {
			if v, ok := p.External[fieldKey]; ok {
				values[fieldKey] = v
			}
		}
		if err := c.store.UpsertReadingValues(anlageID, p.Key.Year, p.Key.Month, values); err != nil {
			return fmt.Errorf("写入基础读数失败: %w", err)
		}
	}

	for componentID, fieldKeys := range entry.ComponentFieldKeys {
		comp, ok := findComponent(p, componentID)
		if !ok {
			return fmt.Errorf("组件 %s 不在周期快照中", componentID)
		}
		values := make(model.ValueSet, len(fieldKeys))
		for _, fieldKey := range fieldKeys {
			if v, ok := comp.External[fieldKey]; ok {
				values[fieldKey] = v
			}
		}
		if err := c.store.UpsertInvestmentReadingValues(componentID, p.Key.Year, p.Key.Month, values); err != nil {
			return fmt.Errorf("写入组件读数失败: %w", err)
		}
	}
	return nil
}

func findComponent(p model.PeriodData, componentID string) (model.ComponentData, bool) {
	for _, c := range p.Components {
		if c.ComponentID == componentID {
			return c, true
		}
	}
	return model.ComponentData{}, false
}

// ProgressEvent 提交进度事件（SSE 推送）
type ProgressEvent struct {
	Type      string      `json:"type"` // start/period/done/error
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// SubmitStream 流式提交：逐周期推送进度，最后一个 done 事件携带完整结果
func (c *Coordinator) SubmitStream(anlageID string, req model.ImportSubmitRequest) <-chan ProgressEvent {
	ch := make(chan ProgressEvent, 16)

	go func() {
		defer close(ch)

		send := func(e ProgressEvent) {
			select {
			case ch <- e:
			default:
				// 通道已满，丢弃事件
			}
		}

		send(ProgressEvent{
			Type:      "start",
			Message:   fmt.Sprintf("开始导入 %d 个周期", len(req.Batch.Entries)),
			Timestamp: time.Now(),
		})

		resp, err := c.Submit(anlageID, req)
		if err != nil {
			send(ProgressEvent{
				Type:      "error",
				Message:   err.Error(),
				Timestamp: time.Now(),
			})
			return
		}

		for _, entry := range req.Batch.Entries {
			send(ProgressEvent{
				Type:      "period",
				Message:   fmt.Sprintf("周期 %04d-%02d 已处理", entry.Year, entry.Month),
				Timestamp: time.Now(),
			})
		}

		send(ProgressEvent{
			Type:      "done",
			Message:   "导入完成",
			Data:      resp,
			Timestamp: time.Now(),
		})
	}()

	return ch
}
