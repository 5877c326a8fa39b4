package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"eedc/internal/model"
)

// SaveMapping 保存安装的传感器映射（整体 JSON 覆盖）
func (s *Store) SaveMapping(anlageID string, m model.MappingSaveRequest) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal mapping: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO sensor_mappings (anlage_id, mapping) VALUES (?, ?)
		ON CONFLICT(anlage_id) DO UPDATE SET
			mapping = excluded.mapping,
			updated_at = CURRENT_TIMESTAMP
	`, anlageID, string(data))
	if err != nil {
		return fmt.Errorf("failed to save mapping: %w", err)
	}
	return nil
}

// LoadMapping 读取安装的传感器映射
// 尚未保存过映射时返回空映射，不作为错误
// 历史格式（字段值为裸字符串）在反序列化时规整为 sensor 映射
func (s *Store) LoadMapping(anlageID string) (model.MappingSaveRequest, error) {
	var raw string
	err := s.db.QueryRow(`
		SELECT mapping FROM sensor_mappings WHERE anlage_id = ?
	`, anlageID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return model.MappingSaveRequest{BaseMapping: map[string]model.FieldMapping{}}, nil
	}
	if err != nil {
		return model.MappingSaveRequest{}, fmt.Errorf("failed to load mapping: %w", err)
	}

	var m model.MappingSaveRequest
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return model.MappingSaveRequest{}, fmt.Errorf("failed to unmarshal mapping: %w", err)
	}
	if m.BaseMapping == nil {
		m.BaseMapping = map[string]model.FieldMapping{}
	}
	return m, nil
}
