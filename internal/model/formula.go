package model

// 公式 ID
const (
	FormulaSolarShare = "solar_share"   // 充电总量 × 光伏占比 / 100
	FormulaCOPHeat    = "cop_heat"      // 耗电量 × COP
)

// Formula 推导公式的声明性描述
// 这里只声明占位符结构，不包含任何求值逻辑；求值由导入流水线完成
type Formula struct {
	ID           string   `json:"id"`
	Label        string   `json:"label"`
	Description  string   `json:"description"`
	Placeholders []string `json:"requiredPlaceholders"` // 固定顺序的必填占位符
}

// FormulaCatalog 公式目录（静态参考数据）
func FormulaCatalog() map[string]Formula {
	return map[string]Formula{
		FormulaSolarShare: {
			ID:           FormulaSolarShare,
			Label:        "光伏充电占比",
			Description:  "充电总量乘以光伏占比再除以 100",
			Placeholders: []string{"total_charged", "solar_percentage"},
		},
		FormulaCOPHeat: {
			ID:           FormulaCOPHeat,
			Label:        "COP 产热",
			Description:  "热泵耗电量乘以 COP 系数",
			Placeholders: []string{"consumed", "cop"},
		},
	}
}

// LookupFormula 按 ID 查公式
func LookupFormula(id string) (Formula, bool) {
	f, ok := FormulaCatalog()[id]
	return f, ok
}
