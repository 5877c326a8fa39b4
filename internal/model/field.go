package model

// 基础字段 key（安装级指标，与导入接口的字段名保持一致）
const (
	FieldEinspeisung = "einspeisung"  // 上网电量
	FieldNetzbezug   = "netzbezug"    // 电网取电量
	FieldPVErzeugung = "pv_erzeugung" // 光伏发电量
)

// FieldDescriptor 目标字段的静态声明
type FieldDescriptor struct {
	Key       string `json:"key"`
	Label     string `json:"label"`
	Unit      string `json:"unit"`
	Required  bool   `json:"required"`  // 必须有值
	Optional  bool   `json:"optional"`  // 允许显式排除
	Computable bool  `json:"computable"` // 允许通过公式推导
	ManualOnly bool  `json:"manualOnly"` // 只能手工录入，禁止自动来源
	FormulaID string `json:"formulaId,omitempty"` // Computable 时声明的公式
}

// BaseFieldCatalog 基础字段目录（固定 3 个字段，顺序即展示顺序）
func BaseFieldCatalog() []FieldDescriptor {
	return []FieldDescriptor{
		{Key: FieldEinspeisung, Label: "上网电量", Unit: "kWh", Required: true},
		{Key: FieldNetzbezug, Label: "电网取电量", Unit: "kWh", Required: true},
		{Key: FieldPVErzeugung, Label: "光伏发电量", Unit: "kWh", Required: true},
	}
}

// ComponentFieldCatalog 按投资项类型返回组件字段目录
// 未知类型返回空目录（该组件不参与字段选择）
func ComponentFieldCatalog(componentType string) []FieldDescriptor {
	switch componentType {
	case InvestmentWallbox:
		return []FieldDescriptor{
			{Key: "geladen_gesamt", Label: "充电总量", Unit: "kWh", Required: true},
			{Key: "geladen_solar", Label: "光伏充电量", Unit: "kWh", Optional: true, Computable: true, FormulaID: FormulaSolarShare},
			{Key: "gefahrene_km", Label: "行驶里程", Unit: "km", Optional: true, ManualOnly: true},
		}
	case InvestmentBattery:
		return []FieldDescriptor{
			{Key: "ladung", Label: "电池充电量", Unit: "kWh", Required: true},
			{Key: "entladung", Label: "电池放电量", Unit: "kWh", Required: true},
			{Key: "restkapazitaet", Label: "剩余容量", Unit: "%", Optional: true, ManualOnly: true},
		}
	case InvestmentHeatPump:
		return []FieldDescriptor{
			{Key: "verbrauch", Label: "热泵耗电量", Unit: "kWh", Required: true},
			{Key: "waermemenge", Label: "产热量", Unit: "kWh", Optional: true, Computable: true, FormulaID: FormulaCOPHeat},
		}
	default:
		return nil
	}
}

// FindField 在目录中按 key 查找字段声明
func FindField(catalog []FieldDescriptor, key string) (FieldDescriptor, bool) {
	for _, d := range catalog {
		if d.Key == key {
			return d, true
		}
	}
	return FieldDescriptor{}, false
}
