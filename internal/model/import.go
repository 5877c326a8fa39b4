package model

// PreviewComponent 预览响应中的单个组件
type PreviewComponent struct {
	ComponentID      string              `json:"componentId"`
	ComponentType    string              `json:"componentType"`
	Label            string              `json:"label"`
	ExternalValues   map[string]*float64 `json:"externalValues"`
	PersistedValues  map[string]*float64 `json:"persistedValues,omitempty"`
	HasMaterialDelta bool                `json:"hasMaterialDelta"`
}

// PreviewPeriod 预览响应中的单个周期
type PreviewPeriod struct {
	Year            int                  `json:"year"`
	Month           int                  `json:"month"`
	Action          ReconciliationAction `json:"action"`
	ExternalValues  map[string]*float64  `json:"externalValues"`
	PersistedValues map[string]*float64  `json:"persistedValues,omitempty"`
	Components      []PreviewComponent   `json:"components"`
}

// ActionCounts 按动作统计的周期数
type ActionCounts struct {
	Skip     int `json:"skip"`
	Import   int `json:"import"`
	Conflict int `json:"conflict"`
}

// PreviewResponse 导入预览响应
type PreviewResponse struct {
	Periods        []PreviewPeriod `json:"periods"`
	CountsByAction ActionCounts    `json:"countsByAction"`
}

// ImportBatchEntry 导入批次中的一个周期条目
// 不变量：BaseFieldKeys 与 ComponentFieldKeys 不会同时为空
type ImportBatchEntry struct {
	Year               int                 `json:"year"`
	Month              int                 `json:"month"`
	BaseFieldKeys      []string            `json:"baseFieldKeys"`
	ComponentFieldKeys map[string][]string `json:"componentFieldKeys"`
}

// ImportBatch 最终导入载荷
type ImportBatch struct {
	Entries []ImportBatchEntry `json:"entries"`
}

// Empty 判断批次是否为空
func (b ImportBatch) Empty() bool {
	return len(b.Entries) == 0
}

// ImportSubmitRequest 导入提交请求
// 批次内含 conflict 周期时 AllowOverwrite 必须为 true
type ImportSubmitRequest struct {
	Batch          ImportBatch `json:"batch"`
	AllowOverwrite bool        `json:"allowOverwrite"`
}

// ImportSubmitResponse 导入提交结果
type ImportSubmitResponse struct {
	Success     bool     `json:"success"`
	Imported    int      `json:"imported"`
	Skipped     int      `json:"skipped"`
	Overwritten int      `json:"overwritten"`
	Errors      []string `json:"errors"`
}
