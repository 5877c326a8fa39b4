package store

import "fmt"

// CreateImportLog 创建导入日志，返回日志 ID
func (s *Store) CreateImportLog(anlageID string, periodCount int) (int64, error) {
	res, err := s.db.Exec(`
		INSERT INTO import_logs (anlage_id, period_count, status)
		VALUES (?, ?, 'processing')
	`, anlageID, periodCount)
	if err != nil {
		return 0, fmt.Errorf("failed to create import log: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get import log id: %w", err)
	}
	return id, nil
}

// FinishImportLog 完成导入日志更新
func (s *Store) FinishImportLog(id int64, imported, skipped, overwritten int, status string) error {
	_, err := s.db.Exec(`
		UPDATE import_logs SET
			imported = ?,
			skipped = ?,
			overwritten = ?,
			status = ?,
			completed_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, imported, skipped, overwritten, status, id)
	if err != nil {
		return fmt.Errorf("failed to finish import log: %w", err)
	}
	return nil
}
