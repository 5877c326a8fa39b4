package model

// MonthlyReading 单个安装在一个周期内的基础读数
type MonthlyReading struct {
	AnlageID    string   `json:"anlageId"`
	Year        int      `json:"year"`
	Month       int      `json:"month"`
	Einspeisung *float64 `json:"einspeisung"`
	Netzbezug   *float64 `json:"netzbezug"`
	PVErzeugung *float64 `json:"pvErzeugung"`
}

// Key 读数所属周期
func (r *MonthlyReading) Key() PeriodKey {
	return PeriodKey{Year: r.Year, Month: r.Month}
}

// Values 转为字段值集合（nil 字段视为缺失）
func (r *MonthlyReading) Values() ValueSet {
	out := make(ValueSet, 3)
	if r.Einspeisung != nil {
		out[FieldEinspeisung] = *r.Einspeisung
	}
	if r.Netzbezug != nil {
		out[FieldNetzbezug] = *r.Netzbezug
	}
	if r.PVErzeugung != nil {
		out[FieldPVErzeugung] = *r.PVErzeugung
	}
	return out
}

// SetValue 按字段 key 写入读数
func (r *MonthlyReading) SetValue(key string, value float64) bool {
	switch key {
	case FieldEinspeisung:
		r.Einspeisung = &value
	case FieldNetzbezug:
		r.Netzbezug = &value
	case FieldPVErzeugung:
		r.PVErzeugung = &value
	default:
		return false
	}
	return true
}

// InvestmentReading 单个投资项在一个周期内的组件读数
type InvestmentReading struct {
	InvestmentID string   `json:"investmentId"`
	Year         int      `json:"year"`
	Month        int      `json:"month"`
	Values       ValueSet `json:"values"`
}

// Key 读数所属周期
func (r *InvestmentReading) Key() PeriodKey {
	return PeriodKey{Year: r.Year, Month: r.Month}
}
