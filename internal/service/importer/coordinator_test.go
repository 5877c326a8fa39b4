package importer

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"eedc/internal/model"
	"eedc/internal/service/session"
	"eedc/internal/source"
	"eedc/internal/store"
)

// fakeSource 返回预置的逐月统计；onFetch 钩子用于在拉取期间制造竞争
type fakeSource struct {
	stats   []source.SensorMonthly
	err     error
	onFetch func()
}

func (f *fakeSource) MonthlyStatistics(ctx context.Context, entityIDs []string, from, to model.PeriodKey) ([]source.SensorMonthly, error) {
	if f.onFetch != nil {
		f.onFetch()
	}
	return f.stats, f.err
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.New(filepath.Join(t.TempDir(), "eedc.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func seedAnlage(t *testing.T, st *store.Store) string {
	t.Helper()
	a := &model.Anlage{ID: "anlage-1", Name: "Testanlage", KWp: 9.9, Active: true}
	if err := st.CreateAnlage(a); err != nil {
		t.Fatalf("create anlage: %v", err)
	}
	return a.ID
}

func monthly(entityID string, values map[model.PeriodKey]float64) source.SensorMonthly {
	return source.SensorMonthly{EntityID: entityID, Periods: values}
}

func sensorMapping(fields map[string]string) model.MappingSaveRequest {
	base := make(map[string]model.FieldMapping, len(fields))
	for key, entity := range fields {
		base[key] = model.FieldMapping{Strategy: model.StrategySensor, SourceKey: entity}
	}
	return model.MappingSaveRequest{BaseMapping: base}
}

// TestLoadPreviewImportAndConflict 预览把外部统计与已存读数按周期对账
func TestLoadPreviewImportAndConflict(t *testing.T) {
	st := newTestStore(t)
	anlageID := seedAnlage(t, st)

	if err := st.SaveMapping(anlageID, sensorMapping(map[string]string{
		"einspeisung": "sensor.grid_export",
		"netzbezug":   "sensor.grid_import",
	})); err != nil {
		t.Fatalf("save mapping: %v", err)
	}

	// 2024-03 已存读数与外部数据存在实质偏差
	if err := st.UpsertReadingValues(anlageID, 2024, 3, model.ValueSet{
		"einspeisung": 450.2,
		"netzbezug":   95,
	}); err != nil {
		t.Fatalf("seed reading: %v", err)
	}

	mar := model.PeriodKey{Year: 2024, Month: 3}
	apr := model.PeriodKey{Year: 2024, Month: 4}
	src := &fakeSource{stats: []source.SensorMonthly{
		monthly("sensor.grid_export", map[model.PeriodKey]float64{mar: 450, apr: 500}),
		monthly("sensor.grid_import", map[model.PeriodKey]float64{mar: 120, apr: 130}),
	}}

	sessions := session.NewManager()
	coord := NewCoordinator(st, src, sessions)

	resp, err := coord.LoadPreview(context.Background(), anlageID, mar, apr)
	if err != nil {
		t.Fatalf("LoadPreview: %v", err)
	}

	if len(resp.Periods) != 2 {
		t.Fatalf("periods = %d, want 2", len(resp.Periods))
	}
	if resp.Periods[0].Action != model.ActionConflict {
		t.Errorf("2024-03 action = %s, want conflict", resp.Periods[0].Action)
	}
	if resp.Periods[1].Action != model.ActionImport {
		t.Errorf("2024-04 action = %s, want import", resp.Periods[1].Action)
	}
	if resp.CountsByAction.Conflict != 1 || resp.CountsByAction.Import != 1 {
		t.Errorf("counts = %+v, want conflict=1 import=1", resp.CountsByAction)
	}

	if _, ok := sessions.Get(anlageID); !ok {
		t.Error("LoadPreview should install a session")
	}
}

// TestLoadPreviewSuperseded 加载期间出现更新的加载请求时，迟到的响应直接丢弃
func TestLoadPreviewSuperseded(t *testing.T) {
	st := newTestStore(t)
	anlageID := seedAnlage(t, st)

	if err := st.SaveMapping(anlageID, sensorMapping(map[string]string{
		"einspeisung": "sensor.grid_export",
	})); err != nil {
		t.Fatalf("save mapping: %v", err)
	}

	sessions := session.NewManager()
	src := &fakeSource{
		stats: []source.SensorMonthly{
			monthly("sensor.grid_export", map[model.PeriodKey]float64{{Year: 2024, Month: 3}: 450}),
		},
		// 统计还在路上时又来了一次加载
		onFetch: func() { sessions.BeginLoad(anlageID) },
	}
	coord := NewCoordinator(st, src, sessions)

	_, err := coord.LoadPreview(context.Background(), anlageID,
		model.PeriodKey{Year: 2024, Month: 3}, model.PeriodKey{Year: 2024, Month: 3})
	if !errors.Is(err, ErrSuperseded) {
		t.Fatalf("err = %v, want ErrSuperseded", err)
	}
	if _, ok := sessions.Get(anlageID); ok {
		t.Error("superseded load must not install a session")
	}
}

// TestLoadPreviewIncompleteMappingSkipped 不完整的 computed 映射不参与取值
func TestLoadPreviewIncompleteMappingSkipped(t *testing.T) {
	st := newTestStore(t)
	anlageID := seedAnlage(t, st)

	inv := &model.Investment{ID: "inv-1", AnlageID: anlageID, Type: model.InvestmentWallbox, Label: "Wallbox", Active: true}
	if err := st.CreateInvestment(inv); err != nil {
		t.Fatalf("create investment: %v", err)
	}

	// geladen_solar 的公式只绑定了一个占位符
	m := sensorMapping(map[string]string{"einspeisung": "sensor.grid_export"})
	m.ComponentMappings = []model.ComponentMapping{{
		ComponentID: inv.ID,
		Fields: map[string]model.FieldMapping{
			"geladen_gesamt": {Strategy: model.StrategySensor, SourceKey: "sensor.wallbox_total"},
			"geladen_solar": {
				Strategy:   model.StrategyComputed,
				FormulaID:  model.FormulaSolarShare,
				SourceKeys: map[string]string{"total_charged": "sensor.wallbox_total"},
			},
		},
	}}
	if err := st.SaveMapping(anlageID, m); err != nil {
		t.Fatalf("save mapping: %v", err)
	}

	mar := model.PeriodKey{Year: 2024, Month: 3}
	src := &fakeSource{stats: []source.SensorMonthly{
		monthly("sensor.grid_export", map[model.PeriodKey]float64{mar: 450}),
		monthly("sensor.wallbox_total", map[model.PeriodKey]float64{mar: 200}),
	}}
	sessions := session.NewManager()
	coord := NewCoordinator(st, src, sessions)

	resp, err := coord.LoadPreview(context.Background(), anlageID, mar, mar)
	if err != nil {
		t.Fatalf("LoadPreview: %v", err)
	}

	if len(resp.Periods) != 1 || len(resp.Periods[0].Components) != 1 {
		t.Fatalf("unexpected preview shape: %+v", resp.Periods)
	}
	comp := resp.Periods[0].Components[0]
	if comp.ExternalValues["geladen_gesamt"] == nil {
		t.Error("complete sensor mapping should produce a value")
	}
	if _, ok := comp.ExternalValues["geladen_solar"]; ok {
		t.Error("incomplete computed mapping must not produce a value")
	}
}

// TestLoadPreviewComputedFormula 完整绑定的公式在组装时求值
func TestLoadPreviewComputedFormula(t *testing.T) {
	st := newTestStore(t)
	anlageID := seedAnlage(t, st)

	inv := &model.Investment{ID: "inv-1", AnlageID: anlageID, Type: model.InvestmentWallbox, Label: "Wallbox", Active: true}
	if err := st.CreateInvestment(inv); err != nil {
		t.Fatalf("create investment: %v", err)
	}

	m := model.MappingSaveRequest{
		BaseMapping: map[string]model.FieldMapping{},
		ComponentMappings: []model.ComponentMapping{{
			ComponentID: inv.ID,
			Fields: map[string]model.FieldMapping{
				"geladen_solar": {
					Strategy:  model.StrategyComputed,
					FormulaID: model.FormulaSolarShare,
					SourceKeys: map[string]string{
						"total_charged":    "sensor.wallbox_total",
						"solar_percentage": "sensor.solar_pct",
					},
				},
			},
		}},
	}
	if err := st.SaveMapping(anlageID, m); err != nil {
		t.Fatalf("save mapping: %v", err)
	}

	mar := model.PeriodKey{Year: 2024, Month: 3}
	src := &fakeSource{stats: []source.SensorMonthly{
		monthly("sensor.wallbox_total", map[model.PeriodKey]float64{mar: 200}),
		monthly("sensor.solar_pct", map[model.PeriodKey]float64{mar: 40}),
	}}
	sessions := session.NewManager()
	coord := NewCoordinator(st, src, sessions)

	resp, err := coord.LoadPreview(context.Background(), anlageID, mar, mar)
	if err != nil {
		t.Fatalf("LoadPreview: %v", err)
	}

	comp := resp.Periods[0].Components[0]
	got := comp.ExternalValues["geladen_solar"]
	if got == nil || *got != 80 {
		t.Errorf("geladen_solar = %v, want 80 (200 * 40 / 100)", got)
	}
}

// TestSubmitRequiresSessionAndBatch 无会话与空批次在提交入口拒绝
func TestSubmitRequiresSessionAndBatch(t *testing.T) {
	st := newTestStore(t)
	anlageID := seedAnlage(t, st)
	sessions := session.NewManager()
	coord := NewCoordinator(st, &fakeSource{}, sessions)

	_, err := coord.Submit(anlageID, model.ImportSubmitRequest{})
	if !errors.Is(err, ErrNoSession) {
		t.Errorf("no session: err = %v, want ErrNoSession", err)
	}

	// 装一个空快照会话后，空批次同样拒绝
	s := session.NewSession(anlageID, sessions.BeginLoad(anlageID), nil)
	sessions.Install(s)

	_, err = coord.Submit(anlageID, model.ImportSubmitRequest{})
	if !errors.Is(err, ErrEmptyBatch) {
		t.Errorf("empty batch: err = %v, want ErrEmptyBatch", err)
	}
}

// TestSubmitConflictRequiresOverwrite 含冲突周期的批次必须显式确认覆盖
func TestSubmitConflictRequiresOverwrite(t *testing.T) {
	st := newTestStore(t)
	anlageID := seedAnlage(t, st)
	sessions := session.NewManager()
	coord := NewCoordinator(st, &fakeSource{}, sessions)

	periods := []model.PeriodData{{
		Key:       model.PeriodKey{Year: 2024, Month: 3},
		External:  model.ValueSet{"einspeisung": 450, "netzbezug": 120},
		Persisted: model.ValueSet{"einspeisung": 450.2, "netzbezug": 95},
	}}
	s := session.NewSession(anlageID, sessions.BeginLoad(anlageID), periods)
	sessions.Install(s)

	req := model.ImportSubmitRequest{
		Batch: model.ImportBatch{Entries: []model.ImportBatchEntry{
			{Year: 2024, Month: 3, BaseFieldKeys: []string{"netzbezug"}},
		}},
	}

	if _, err := coord.Submit(anlageID, req); !errors.Is(err, ErrOverwriteNotAllowed) {
		t.Fatalf("err = %v, want ErrOverwriteNotAllowed", err)
	}

	// 拒绝发生在任何写入之前
	readings, err := st.ListReadings(anlageID)
	if err != nil {
		t.Fatalf("list readings: %v", err)
	}
	if len(readings) != 0 {
		t.Errorf("rejected submit must not write, got %d readings", len(readings))
	}
}

// TestSubmitSelectedFieldsOnly 冲突场景：只选 netzbezug 提交，einspeisung 保持已存值
func TestSubmitSelectedFieldsOnly(t *testing.T) {
	st := newTestStore(t)
	anlageID := seedAnlage(t, st)

	if err := st.UpsertReadingValues(anlageID, 2024, 3, model.ValueSet{
		"einspeisung": 450.2,
		"netzbezug":   95,
	}); err != nil {
		t.Fatalf("seed reading: %v", err)
	}

	sessions := session.NewManager()
	coord := NewCoordinator(st, &fakeSource{}, sessions)

	periods := []model.PeriodData{{
		Key:       model.PeriodKey{Year: 2024, Month: 3},
		External:  model.ValueSet{"einspeisung": 450, "netzbezug": 120},
		Persisted: model.ValueSet{"einspeisung": 450.2, "netzbezug": 95},
	}}
	s := session.NewSession(anlageID, sessions.BeginLoad(anlageID), periods)
	sessions.Install(s)

	req := model.ImportSubmitRequest{
		Batch: model.ImportBatch{Entries: []model.ImportBatchEntry{
			{Year: 2024, Month: 3, BaseFieldKeys: []string{"netzbezug"}},
		}},
		AllowOverwrite: true,
	}

	resp, err := coord.Submit(anlageID, req)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !resp.Success {
		t.Errorf("success = false, errors = %v", resp.Errors)
	}
	if resp.Overwritten != 1 || resp.Imported != 0 {
		t.Errorf("overwritten = %d imported = %d, want 1/0", resp.Overwritten, resp.Imported)
	}

	readings, err := st.ListReadings(anlageID)
	if err != nil {
		t.Fatalf("list readings: %v", err)
	}
	if len(readings) != 1 {
		t.Fatalf("readings = %d, want 1", len(readings))
	}
	r := readings[0]
	if r.Netzbezug == nil || *r.Netzbezug != 120 {
		t.Errorf("netzbezug = %v, want overwritten to 120", r.Netzbezug)
	}
	if r.Einspeisung == nil || *r.Einspeisung != 450.2 {
		t.Errorf("einspeisung = %v, want untouched 450.2", r.Einspeisung)
	}
}

// TestSubmitCountsSkipped 快照中未提交的周期记为跳过
func TestSubmitCountsSkipped(t *testing.T) {
	st := newTestStore(t)
	anlageID := seedAnlage(t, st)
	sessions := session.NewManager()
	coord := NewCoordinator(st, &fakeSource{}, sessions)

	periods := []model.PeriodData{
		{
			Key:      model.PeriodKey{Year: 2024, Month: 3},
			External: model.ValueSet{"einspeisung": 450},
		},
		{
			Key:      model.PeriodKey{Year: 2024, Month: 4},
			External: model.ValueSet{"einspeisung": 500},
		},
	}
	s := session.NewSession(anlageID, sessions.BeginLoad(anlageID), periods)
	sessions.Install(s)

	req := model.ImportSubmitRequest{
		Batch: model.ImportBatch{Entries: []model.ImportBatchEntry{
			{Year: 2024, Month: 3, BaseFieldKeys: []string{"einspeisung"}},
		}},
	}

	resp, err := coord.Submit(anlageID, req)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if resp.Imported != 1 || resp.Skipped != 1 || resp.Overwritten != 0 {
		t.Errorf("imported/skipped/overwritten = %d/%d/%d, want 1/1/0",
			resp.Imported, resp.Skipped, resp.Overwritten)
	}
}

// TestSubmitWritesComponentFields 组件字段写入投资项读数表
func TestSubmitWritesComponentFields(t *testing.T) {
	st := newTestStore(t)
	anlageID := seedAnlage(t, st)

	inv := &model.Investment{ID: "inv-1", AnlageID: anlageID, Type: model.InvestmentWallbox, Label: "Wallbox", Active: true}
	if err := st.CreateInvestment(inv); err != nil {
		t.Fatalf("create investment: %v", err)
	}

	sessions := session.NewManager()
	coord := NewCoordinator(st, &fakeSource{}, sessions)

	periods := []model.PeriodData{{
		Key:      model.PeriodKey{Year: 2024, Month: 3},
		External: model.ValueSet{},
		Components: []model.ComponentData{{
			ComponentID:   inv.ID,
			ComponentType: inv.Type,
			Label:         inv.Label,
			External:      model.ValueSet{"geladen_gesamt": 200},
			Persisted:     model.ValueSet{},
		}},
	}}
	s := session.NewSession(anlageID, sessions.BeginLoad(anlageID), periods)
	sessions.Install(s)

	req := model.ImportSubmitRequest{
		Batch: model.ImportBatch{Entries: []model.ImportBatchEntry{
			{
				Year:  2024,
				Month: 3,
				ComponentFieldKeys: map[string][]string{
					inv.ID: {"geladen_gesamt"},
				},
			},
		}},
	}

	resp, err := coord.Submit(anlageID, req)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !resp.Success || resp.Imported != 1 {
		t.Fatalf("resp = %+v", resp)
	}

	invReadings, err := st.ListInvestmentReadings(anlageID)
	if err != nil {
		t.Fatalf("list investment readings: %v", err)
	}
	if len(invReadings) != 1 {
		t.Fatalf("investment readings = %d, want 1", len(invReadings))
	}
	if got := invReadings[0].Values["geladen_gesamt"]; got != 200 {
		t.Errorf("geladen_gesamt = %v, want 200", got)
	}
}

// TestSubmitStream 流式提交最后的 done 事件携带完整结果
func TestSubmitStream(t *testing.T) {
	st := newTestStore(t)
	anlageID := seedAnlage(t, st)
	sessions := session.NewManager()
	coord := NewCoordinator(st, &fakeSource{}, sessions)

	periods := []model.PeriodData{{
		Key:      model.PeriodKey{Year: 2024, Month: 3},
		External: model.ValueSet{"einspeisung": 450},
	}}
	s := session.NewSession(anlageID, sessions.BeginLoad(anlageID), periods)
	sessions.Install(s)

	req := model.ImportSubmitRequest{
		Batch: model.ImportBatch{Entries: []model.ImportBatchEntry{
			{Year: 2024, Month: 3, BaseFieldKeys: []string{"einspeisung"}},
		}},
	}

	var events []ProgressEvent
	for e := range coord.SubmitStream(anlageID, req) {
		events = append(events, e)
	}

	if len(events) < 2 {
		t.Fatalf("events = %d, want at least start + done", len(events))
	}
	if events[0].Type != "start" {
		t.Errorf("first event = %s, want start", events[0].Type)
	}
	last := events[len(events)-1]
	if last.Type != "done" {
		t.Fatalf("last event = %s, want done", last.Type)
	}
	resp, ok := last.Data.(model.ImportSubmitResponse)
	if !ok {
		t.Fatalf("done data type = %T, want ImportSubmitResponse", last.Data)
	}
	if resp.Imported != 1 {
		t.Errorf("imported = %d, want 1", resp.Imported)
	}
}

// TestPeriodRange 闭区间跨年展开
func TestPeriodRange(t *testing.T) {
	got := periodRange(model.PeriodKey{Year: 2023, Month: 11}, model.PeriodKey{Year: 2024, Month: 2})
	want := []model.PeriodKey{
		{Year: 2023, Month: 11}, {Year: 2023, Month: 12},
		{Year: 2024, Month: 1}, {Year: 2024, Month: 2},
	}
	if len(got) != len(want) {
		t.Fatalf("range length = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("range[%d] = %s, want %s", i, got[i], want[i])
		}
	}

	if r := periodRange(model.PeriodKey{Year: 2024, Month: 5}, model.PeriodKey{Year: 2024, Month: 4}); len(r) != 0 {
		t.Errorf("inverted range should be empty, got %v", r)
	}
}
