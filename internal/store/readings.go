package store

import (
	"fmt"

	"eedc/internal/model"
)

// ListReadings 列出安装的全部月度基础读数（按年月升序）
func (s *Store) ListReadings(anlageID string) ([]model.MonthlyReading, error) {
	rows, err := s.db.Query(`
		SELECT anlage_id, year, month, einspeisung, netzbezug, pv_erzeugung
		FROM readings WHERE anlage_id = ?
		ORDER BY year, month
	`, anlageID)
	if err != nil {
		return nil, fmt.Errorf("failed to list readings: %w", err)
	}
	defer rows.Close()

	var out []model.MonthlyReading
	for rows.Next() {
		var r model.MonthlyReading
		if err := rows.Scan(&r.AnlageID, &r.Year, &r.Month, &r.Einspeisung, &r.Netzbezug, &r.PVErzeugung); err != nil {
			return nil, fmt.Errorf("failed to scan reading: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// UpsertReading 写入/更新一条月度读数（手工录入路径）
func (s *Store) UpsertReading(r *model.MonthlyReading) error {
	_, err := s.db.Exec(`
		INSERT INTO readings (anlage_id, year, month, einspeisung, netzbezug, pv_erzeugung)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(anlage_id, year, month) DO UPDATE SET
			einspeisung = excluded.einspeisung,
			netzbezug = excluded.netzbezug,
			pv_erzeugung = excluded.pv_erzeugung,
			updated_at = CURRENT_TIMESTAMP
	`, r.AnlageID, r.Year, r.Month, r.Einspeisung, r.Netzbezug, r.PVErzeugung)
	if err != nil {
		return fmt.Errorf("failed to upsert reading: %w", err)
	}
	return nil
}

// UpsertReadingValues 按字段 key 写入读数（导入路径，只覆盖给定字段）
func (s *Store) UpsertReadingValues(anlageID string, year, month int, values model.ValueSet) error {
	if len(values) == 0 {
		return nil
	}

	// 保证行存在
	if _, err := s.db.Exec(`
		INSERT OR IGNORE INTO readings (anlage_id, year, month) VALUES (?, ?, ?)
	`, anlageID, year, month); err != nil {
		return fmt.Errorf("failed to ensure reading row: %w", err)
	}

	columns := map[string]string{
		model.FieldEinspeisung: "einspeisung",
		model.FieldNetzbezug:   "netzbezug",
		model.FieldPVErzeugung: "pv_erzeugung",
	}
	for fieldKey, value := range values {
		column, ok := columns[fieldKey]
		if !ok {
			return fmt.Errorf("unknown base field: %s", fieldKey)
		}
		q := fmt.Sprintf(`
			UPDATE readings SET %s = ?, updated_at = CURRENT_TIMESTAMP
			WHERE anlage_id = ? AND year = ? AND month = ?
		`, column)
		if _, err := s.db.Exec(q, value, anlageID, year, month); err != nil {
			return fmt.Errorf("failed to update reading field %s: %w", fieldKey, err)
		}
	}
	return nil
}

// DeleteReading 删除一条月度读数
func (s *Store) DeleteReading(anlageID string, year, month int) error {
	if _, err := s.db.Exec(`
		DELETE FROM readings WHERE anlage_id = ? AND year = ? AND month = ?
	`, anlageID, year, month); err != nil {
		return fmt.Errorf("failed to delete reading: %w", err)
	}
	return nil
}

// ListInvestmentReadings 列出安装下全部投资项的月度读数
func (s *Store) ListInvestmentReadings(anlageID string) ([]model.InvestmentReading, error) {
	rows, err := s.db.Query(`
		SELECT ir.investment_id, ir.year, ir.month, ir.field_key, ir.value
		FROM investment_readings ir
		JOIN investments i ON i.id = ir.investment_id
		WHERE i.anlage_id = ?
		ORDER BY ir.investment_id, ir.year, ir.month
	`, anlageID)
	if err != nil {
		return nil, fmt.Errorf("failed to list investment readings: %w", err)
	}
	defer rows.Close()

	type groupKey struct {
		id          string
		year, month int
	}
	grouped := make(map[groupKey]model.ValueSet)
	var order []groupKey

	for rows.Next() {
		var (
			id          string
			year, month int
			fieldKey    string
			value       float64
		)
		if err := rows.Scan(&id, &year, &month, &fieldKey, &value); err != nil {
			return nil, fmt.Errorf("failed to scan investment reading: %w", err)
		}
		k := groupKey{id: id, year: year, month: month}
		if _, ok := grouped[k]; !ok {
			grouped[k] = make(model.ValueSet)
			order = append(order, k)
		}
		grouped[k][fieldKey] = value
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]model.InvestmentReading, 0, len(order))
	for _, k := range order {
		out = append(out, model.InvestmentReading{
			InvestmentID: k.id,
			Year:         k.year,
			Month:        k.month,
			Values:       grouped[k],
		})
	}
	return out, nil
}

// UpsertInvestmentReadingValues 按字段 key 写入投资项读数
func (s *Store) UpsertInvestmentReadingValues(investmentID string, year, month int, values model.ValueSet) error {
	for fieldKey, value := range values {
		if _, err := s.db.Exec(`
			INSERT INTO investment_readings (investment_id, year, month, field_key, value)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(investment_id, year, month, field_key) DO UPDATE SET
				value = excluded.value,
				updated_at = CURRENT_TIMESTAMP
		`, investmentID, year, month, fieldKey, value); err != nil {
			return fmt.Errorf("failed to upsert investment reading %s: %w", fieldKey, err)
		}
	}
	return nil
}
