package store

import (
	"path/filepath"
	"testing"

	"eedc/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := New(filepath.Join(t.TempDir(), "eedc.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

// TestLoadMappingEmpty 未保存过映射时返回空映射而非错误
func TestLoadMappingEmpty(t *testing.T) {
	st := newTestStore(t)

	m, err := st.LoadMapping("anlage-1")
	if err != nil {
		t.Fatalf("LoadMapping: %v", err)
	}
	if m.BaseMapping == nil || len(m.BaseMapping) != 0 {
		t.Errorf("baseMapping = %v, want empty map", m.BaseMapping)
	}
}

// TestSaveLoadMappingRoundTrip 保存后读取结构不变
func TestSaveLoadMappingRoundTrip(t *testing.T) {
	st := newTestStore(t)

	in := model.MappingSaveRequest{
		BaseMapping: map[string]model.FieldMapping{
			"einspeisung": {Strategy: model.StrategySensor, SourceKey: "sensor.grid_export"},
			"pv_erzeugung": {Strategy: model.StrategyManual},
		},
		ComponentMappings: []model.ComponentMapping{{
			ComponentID: "inv-1",
			Fields: map[string]model.FieldMapping{
				"geladen_solar": {
					Strategy:  model.StrategyComputed,
					FormulaID: model.FormulaSolarShare,
					SourceKeys: map[string]string{
						"total_charged":    "sensor.total",
						"solar_percentage": "sensor.pct",
					},
				},
			},
		}},
	}
	if err := st.SaveMapping("anlage-1", in); err != nil {
		t.Fatalf("SaveMapping: %v", err)
	}

	out, err := st.LoadMapping("anlage-1")
	if err != nil {
		t.Fatalf("LoadMapping: %v", err)
	}
	if got := out.BaseMapping["einspeisung"]; got.Strategy != model.StrategySensor || got.SourceKey != "sensor.grid_export" {
		t.Errorf("einspeisung = %+v", got)
	}
	if got := out.BaseMapping["pv_erzeugung"]; got.Strategy != model.StrategyManual {
		t.Errorf("pv_erzeugung = %+v", got)
	}
	if len(out.ComponentMappings) != 1 {
		t.Fatalf("componentMappings = %d, want 1", len(out.ComponentMappings))
	}
	got := out.ComponentMappings[0].Fields["geladen_solar"]
	if got.FormulaID != model.FormulaSolarShare || got.SourceKeys["solar_percentage"] != "sensor.pct" {
		t.Errorf("geladen_solar = %+v", got)
	}
}

// TestLoadMappingLegacyFormat 历史裸字符串格式读取时规整为 sensor 映射
func TestLoadMappingLegacyFormat(t *testing.T) {
	st := newTestStore(t)

	legacy := `{"baseMapping":{"einspeisung":"sensor.grid_export","netzbezug":"sensor.grid_import"}}`
	if err := st.Exec(`
		INSERT INTO sensor_mappings (anlage_id, mapping) VALUES (?, ?)
	`, "anlage-1", legacy); err != nil {
		t.Fatalf("seed legacy mapping: %v", err)
	}

	m, err := st.LoadMapping("anlage-1")
	if err != nil {
		t.Fatalf("LoadMapping: %v", err)
	}
	got := m.BaseMapping["einspeisung"]
	if got.Strategy != model.StrategySensor || got.SourceKey != "sensor.grid_export" {
		t.Errorf("legacy mapping = %+v, want sensor/sensor.grid_export", got)
	}
}

// TestUpsertReadingValuesPartial 导入路径只覆盖给定字段
func TestUpsertReadingValuesPartial(t *testing.T) {
	st := newTestStore(t)

	if err := st.UpsertReadingValues("anlage-1", 2024, 3, model.ValueSet{
		"einspeisung": 450.2,
		"netzbezug":   95,
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := st.UpsertReadingValues("anlage-1", 2024, 3, model.ValueSet{
		"netzbezug": 120,
	}); err != nil {
		t.Fatalf("partial update: %v", err)
	}

	readings, err := st.ListReadings("anlage-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(readings) != 1 {
		t.Fatalf("readings = %d, want 1", len(readings))
	}
	r := readings[0]
	if r.Netzbezug == nil || *r.Netzbezug != 120 {
		t.Errorf("netzbezug = %v, want 120", r.Netzbezug)
	}
	if r.Einspeisung == nil || *r.Einspeisung != 450.2 {
		t.Errorf("einspeisung = %v, want untouched 450.2", r.Einspeisung)
	}
	if r.PVErzeugung != nil {
		t.Errorf("pv_erzeugung = %v, want still null", *r.PVErzeugung)
	}
}

// TestUpsertReadingValuesUnknownField 未知字段 key 拒绝
func TestUpsertReadingValuesUnknownField(t *testing.T) {
	st := newTestStore(t)

	err := st.UpsertReadingValues("anlage-1", 2024, 3, model.ValueSet{"bogus": 1})
	if err == nil {
		t.Error("unknown field key should be rejected")
	}
}
