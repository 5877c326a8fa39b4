package store

import (
	"database/sql"
	"errors"
	"fmt"

	"eedc/internal/model"
)

// ErrNotFound 记录不存在
var ErrNotFound = errors.New("record not found")

// CreateAnlage 新建安装
func (s *Store) CreateAnlage(a *model.Anlage) error {
	_, err := s.db.Exec(`
		INSERT INTO anlagen (id, name, location, kwp, active)
		VALUES (?, ?, ?, ?, ?)
	`, a.ID, a.Name, a.Location, a.KWp, a.Active)
	if err != nil {
		return fmt.Errorf("failed to create anlage: %w", err)
	}
	return nil
}

// GetAnlage 获取单个安装
func (s *Store) GetAnlage(id string) (*model.Anlage, error) {
	var a model.Anlage
	err := s.db.QueryRow(`
		SELECT id, name, location, kwp, active FROM anlagen WHERE id = ?
	`, id).Scan(&a.ID, &a.Name, &a.Location, &a.KWp, &a.Active)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get anlage: %w", err)
	}
	return &a, nil
}

// ListAnlagen 列出全部安装
func (s *Store) ListAnlagen() ([]model.Anlage, error) {
	rows, err := s.db.Query(`
		SELECT id, name, location, kwp, active FROM anlagen ORDER BY created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list anlagen: %w", err)
	}
	defer rows.Close()

	var out []model.Anlage
	for rows.Next() {
		var a model.Anlage
		if err := rows.Scan(&a.ID, &a.Name, &a.Location, &a.KWp, &a.Active); err != nil {
			return nil, fmt.Errorf("failed to scan anlage: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// UpdateAnlage 更新安装
func (s *Store) UpdateAnlage(a *model.Anlage) error {
	res, err := s.db.Exec(`
		UPDATE anlagen SET name = ?, location = ?, kwp = ?, active = ? WHERE id = ?
	`, a.Name, a.Location, a.KWp, a.Active, a.ID)
	if err != nil {
		return fmt.Errorf("failed to update anlage: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteAnlage 删除安装及其附属数据
func (s *Store) DeleteAnlage(id string) error {
	stmts := []string{
		`DELETE FROM investment_readings WHERE investment_id IN (SELECT id FROM investments WHERE anlage_id = ?)`,
		`DELETE FROM investments WHERE anlage_id = ?`,
		`DELETE FROM readings WHERE anlage_id = ?`,
		`DELETE FROM sensor_mappings WHERE anlage_id = ?`,
		`DELETE FROM anlagen WHERE id = ?`,
	}
	for _, q := range stmts {
		if _, err := s.db.Exec(q, id); err != nil {
			return fmt.Errorf("failed to delete anlage: %w", err)
		}
	}
	return nil
}

// CreateInvestment 新建投资项
func (s *Store) CreateInvestment(inv *model.Investment) error {
	_, err := s.db.Exec(`
		INSERT INTO investments (id, anlage_id, type, label, active)
		VALUES (?, ?, ?, ?, ?)
	`, inv.ID, inv.AnlageID, inv.Type, inv.Label, inv.Active)
	if err != nil {
		return fmt.Errorf("failed to create investment: %w", err)
	}
	return nil
}

// ListInvestments 列出安装下的全部投资项
func (s *Store) ListInvestments(anlageID string) ([]model.Investment, error) {
	rows, err := s.db.Query(`
		SELECT id, anlage_id, type, label, active FROM investments
		WHERE anlage_id = ? ORDER BY created_at
	`, anlageID)
	if err != nil {
		return nil, fmt.Errorf("failed to list investments: %w", err)
	}
	defer rows.Close()

	var out []model.Investment
	for rows.Next() {
		var inv model.Investment
		if err := rows.Scan(&inv.ID, &inv.AnlageID, &inv.Type, &inv.Label, &inv.Active); err != nil {
			return nil, fmt.Errorf("failed to scan investment: %w", err)
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

// UpdateInvestment 更新投资项
func (s *Store) UpdateInvestment(inv *model.Investment) error {
	res, err := s.db.Exec(`
		UPDATE investments SET type = ?, label = ?, active = ? WHERE id = ?
	`, inv.Type, inv.Label, inv.Active, inv.ID)
	if err != nil {
		return fmt.Errorf("failed to update investment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteInvestment 删除投资项及其读数
func (s *Store) DeleteInvestment(id string) error {
	if _, err := s.db.Exec(`DELETE FROM investment_readings WHERE investment_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete investment readings: %w", err)
	}
	if _, err := s.db.Exec(`DELETE FROM investments WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete investment: %w", err)
	}
	return nil
}
