package model

import (
	"encoding/json"
	"testing"
)

// TestFieldMappingUnmarshalLegacyString 历史格式：裸字符串等价于 sensor 映射
func TestFieldMappingUnmarshalLegacyString(t *testing.T) {
	var m FieldMapping
	if err := json.Unmarshal([]byte(`"sensor.grid_export"`), &m); err != nil {
		t.Fatalf("unmarshal legacy string: %v", err)
	}
	if m.Strategy != StrategySensor {
		t.Errorf("strategy = %s, want sensor", m.Strategy)
	}
	if m.SourceKey != "sensor.grid_export" {
		t.Errorf("sourceKey = %q, want sensor.grid_export", m.SourceKey)
	}
}

// TestFieldMappingUnmarshalObject 结构化格式原样解析
func TestFieldMappingUnmarshalObject(t *testing.T) {
	raw := `{"strategy":"computed","formulaId":"solar_share","sourceKeys":{"total_charged":"sensor.total","solar_percentage":"sensor.pct"}}`

	var m FieldMapping
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		t.Fatalf("unmarshal object: %v", err)
	}
	if m.Strategy != StrategyComputed || m.FormulaID != FormulaSolarShare {
		t.Errorf("mapping = %+v", m)
	}
	if m.SourceKeys["solar_percentage"] != "sensor.pct" {
		t.Errorf("sourceKeys = %v", m.SourceKeys)
	}
}

// TestFieldMappingUnmarshalInsideRequest 保存请求里混用两种格式也能解析
func TestFieldMappingUnmarshalInsideRequest(t *testing.T) {
	raw := `{
		"baseMapping": {
			"einspeisung": "sensor.grid_export",
			"netzbezug": {"strategy":"sensor","sourceKey":"sensor.grid_import"},
			"pv_erzeugung": {"strategy":"manual"}
		},
		"componentMappings": [
			{"componentId":"inv-1","fields":{"geladen_solar":{"strategy":"excluded"}}}
		]
	}`

	var req MappingSaveRequest
	if err := json.Unmarshal([]byte(raw), &req); err != nil {
		t.Fatalf("unmarshal request: %v", err)
	}

	if got := req.BaseMapping["einspeisung"]; got.Strategy != StrategySensor || got.SourceKey != "sensor.grid_export" {
		t.Errorf("einspeisung = %+v", got)
	}
	if got := req.BaseMapping["pv_erzeugung"]; got.Strategy != StrategyManual {
		t.Errorf("pv_erzeugung = %+v", got)
	}
	if len(req.ComponentMappings) != 1 {
		t.Fatalf("componentMappings = %d, want 1", len(req.ComponentMappings))
	}
	if got := req.ComponentMappings[0].Fields["geladen_solar"]; got.Strategy != StrategyExcluded {
		t.Errorf("geladen_solar = %+v", got)
	}
}

// TestNormalizeValues nil 指针剔除，有值指针落入值集
func TestNormalizeValues(t *testing.T) {
	v := 450.0
	values := NormalizeValues(map[string]*float64{
		"einspeisung": &v,
		"netzbezug":   nil,
	})

	if !values.Has("einspeisung") || values["einspeisung"] != 450 {
		t.Errorf("einspeisung = %v", values["einspeisung"])
	}
	if values.Has("netzbezug") {
		t.Error("nil pointer should not appear in the value set")
	}
}

// TestPeriodKey 字符串格式与合法性
func TestPeriodKey(t *testing.T) {
	key := PeriodKey{Year: 2024, Month: 3}
	if got := key.String(); got != "2024-03" {
		t.Errorf("String() = %q, want 2024-03", got)
	}
	if !key.Valid() {
		t.Error("2024-03 should be valid")
	}
	if (PeriodKey{Year: 2024, Month: 13}).Valid() {
		t.Error("month 13 should be invalid")
	}
	if (PeriodKey{Year: 0, Month: 1}).Valid() {
		t.Error("year 0 should be invalid")
	}
}
