package model

// InvestmentType 投资项类型
const (
	InvestmentWallbox  = "wallbox"          // 充电桩 / 电动车
	InvestmentBattery  = "batteriespeicher" // 储能电池
	InvestmentHeatPump = "waermepumpe"      // 热泵
)

// Anlage 光伏安装（装置）
type Anlage struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Location string  `json:"location"`
	KWp      float64 `json:"kwp"` // 装机容量
	Active   bool    `json:"active"`
}

// Investment 附属投资项（充电桩、电池、热泵等）
type Investment struct {
	ID       string `json:"id"`
	AnlageID string `json:"anlageId"`
	Type     string `json:"type"`
	Label    string `json:"label"`
	Active   bool   `json:"active"`
}

// Validate 校验安装数据
func (a *Anlage) Validate() []string {
	var errs []string
	if a.Name == "" {
		errs = append(errs, "名称不能为空")
	}
	if a.KWp < 0 {
		errs = append(errs, "装机容量不能为负数")
	}
	return errs
}

// Validate 校验投资项数据
func (i *Investment) Validate() []string {
	var errs []string
	if i.AnlageID == "" {
		errs = append(errs, "缺少所属安装")
	}
	switch i.Type {
	case InvestmentWallbox, InvestmentBattery, InvestmentHeatPump:
	default:
		errs = append(errs, "未知投资项类型: "+i.Type)
	}
	return errs
}
