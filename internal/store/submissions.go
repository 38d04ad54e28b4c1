package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"esgscope/internal/model"
)

// ErrSubmissionNotFound 上传记录不存在
var ErrSubmissionNotFound = errors.New("submission log not found")

const defaultSubmissionLimit = 50

// CreateSubmissionLog 创建上传记录（pending），返回记录 ID
func (s *Store) CreateSubmissionLog(filename string, fileSize int64, fileHash string) (string, error) {
	id := uuid.NewString()
	_, err := s.db.Exec(`
		INSERT INTO submission_logs (id, filename, file_size, file_hash, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, id, filename, fileSize, fileHash, model.SubmissionPending, s.now().UTC())
	if err != nil {
		return "", fmt.Errorf("failed to create submission log: %w", err)
	}
	return id, nil
}

// CompleteSubmissionLog 记录上传结果
func (s *Store) CompleteSubmissionLog(id, status string, categoryCount int, errorMessage string) error {
	res, err := s.db.Exec(`
		UPDATE submission_logs SET
			status = ?,
			category_count = ?,
			error_message = ?,
			completed_at = ?
		WHERE id = ?
	`, status, categoryCount, errorMessage, s.now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to complete submission log: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to complete submission log: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrSubmissionNotFound, id)
	}
	return nil
}

// GetSubmissionLog 按 ID 查询上传记录
func (s *Store) GetSubmissionLog(id string) (*model.SubmissionLog, error) {
	row := s.db.QueryRow(`
		SELECT id, filename, file_size, file_hash, status, category_count, error_message, created_at, completed_at
		FROM submission_logs WHERE id = ?
	`, id)
	entry, err := scanSubmissionLog(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrSubmissionNotFound, id)
	}
	return entry, err
}

// ListSubmissionLogs 最近的上传记录，新的在前
func (s *Store) ListSubmissionLogs(limit int) ([]model.SubmissionLog, error) {
	if limit <= 0 {
		limit = defaultSubmissionLimit
	}
	rows, err := s.db.Query(`
		SELECT id, filename, file_size, file_hash, status, category_count, error_message, created_at, completed_at
		FROM submission_logs
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list submission logs: %w", err)
	}
	defer rows.Close()

	logs := []model.SubmissionLog{}
	for rows.Next() {
		entry, err := scanSubmissionLog(rows)
		if err != nil {
			return nil, err
		}
		logs = append(logs, *entry)
	}
	return logs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSubmissionLog(r rowScanner) (*model.SubmissionLog, error) {
	var (
		entry     model.SubmissionLog
		completed sql.NullTime
	)
	if err := r.Scan(
		&entry.ID,
		&entry.Filename,
		&entry.FileSize,
		&entry.FileHash,
		&entry.Status,
		&entry.CategoryCount,
		&entry.ErrorMessage,
		&entry.CreatedAt,
		&completed,
	); err != nil {
		return nil, err
	}
	if completed.Valid {
		t := completed.Time
		entry.CompletedAt = &t
	}
	return &entry, nil
}
