// Package source 家庭自动化平台（Home Assistant）数据源客户端
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"eedc/internal/model"
)

// Sensor 外部平台上的一个可选传感器
type Sensor struct {
	EntityID     string `json:"entityId"`
	FriendlyName string `json:"friendlyName"`
	Unit         string `json:"unit"`
	DeviceClass  string `json:"deviceClass"`
}

// SensorMonthly 单个传感器的逐月统计值
type SensorMonthly struct {
	EntityID string
	Periods  map[model.PeriodKey]float64
}

// Client 数据源客户端接口
// 每个向导会话同一时刻只有一个未完成的预览拉取和一个未完成的提交
type Client interface {
	// ListSensors 列出平台上的能源类传感器（映射向导的候选来源）
	ListSensors(ctx context.Context) ([]Sensor, error)
	// MonthlyStatistics 拉取指定传感器在时间范围内的逐月统计
	MonthlyStatistics(ctx context.Context, entityIDs []string, from, to model.PeriodKey) ([]SensorMonthly, error)
}

// HomeAssistantClient 基于 Home Assistant REST API 的实现
// 传感器列表走 /api/states；逐月统计走配套集成提供的统计端点
type HomeAssistantClient struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewHomeAssistantClient 创建客户端
func NewHomeAssistantClient(baseURL, token string) *HomeAssistantClient {
	return &HomeAssistantClient{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

type haState struct {
	EntityID   string `json:"entity_id"`
	State      string `json:"state"`
	Attributes struct {
		FriendlyName      string `json:"friendly_name"`
		UnitOfMeasurement string `json:"unit_of_measurement"`
		DeviceClass       string `json:"device_class"`
		StateClass        string `json:"state_class"`
	} `json:"attributes"`
}

// ListSensors 列出能源类传感器
// 只保留 device_class 为 energy 且参与长期统计的实体
func (c *HomeAssistantClient) ListSensors(ctx context.Context) ([]Sensor, error) {
	var states []haState
	if err := c.getJSON(ctx, "/api/states", nil, &states); err != nil {
		return nil, fmt.Errorf("获取传感器列表失败: %w", err)
	}

	var out []Sensor
	for _, st := range states {
		if st.Attributes.DeviceClass != "energy" {
			continue
		}
		if st.Attributes.StateClass == "" {
			continue
		}
		out = append(out, Sensor{
			EntityID:     st.EntityID,
			FriendlyName: st.Attributes.FriendlyName,
			Unit:         st.Attributes.UnitOfMeasurement,
			DeviceClass:  st.Attributes.DeviceClass,
		})
	}
	return out, nil
}

type haMonthlyRow struct {
	EntityID string   `json:"entity_id"`
	Year     int      `json:"year"`
	Month    int      `json:"month"`
	Sum      *float64 `json:"sum"`
}

// MonthlyStatistics 拉取逐月统计
// 平台端无数据的月份（sum 为 null）不会出现在结果里
func (c *HomeAssistantClient) MonthlyStatistics(ctx context.Context, entityIDs []string, from, to model.PeriodKey) ([]SensorMonthly, error) {
	if len(entityIDs) == 0 {
		return nil, nil
	}

	query := url.Values{}
	for _, id := range entityIDs {
		query.Add("entity_id", id)
	}
	query.Set("start", from.String())
	query.Set("end", to.String())

	var rows []haMonthlyRow
	if err := c.getJSON(ctx, "/api/eedc/statistics/monthly", query, &rows); err != nil {
		return nil, fmt.Errorf("获取逐月统计失败: %w", err)
	}

	byEntity := make(map[string]*SensorMonthly)
	order := make([]string, 0)
	for _, row := range rows {
		if row.Sum == nil {
			continue
		}
		sm, ok := byEntity[row.EntityID]
		if !ok {
			sm = &SensorMonthly{
				EntityID: row.EntityID,
				Periods:  make(map[model.PeriodKey]float64),
			}
			byEntity[row.EntityID] = sm
			order = append(order, row.EntityID)
		}
		sm.Periods[model.PeriodKey{Year: row.Year, Month: row.Month}] = *row.Sum
	}

	out := make([]SensorMonthly, 0, len(order))
	for _, id := range order {
		out = append(out, *byEntity[id])
	}
	return out, nil
}

func (c *HomeAssistantClient) getJSON(ctx context.Context, path string, query url.Values, v interface{}) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("平台返回状态 %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}
