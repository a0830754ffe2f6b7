package sqlite

import (
	"database/sql"
	"errors"
	"time"

	"github.com/vertextoedge/aaxfetch/internal/domain"
)

// StartTransfer inserts a running transfer
func (s *Store) StartTransfer(rec *domain.TransferRecord) error {
	if rec.ID == "" {
		return domain.ErrInvalidInput
	}
	if rec.Status == "" {
		rec.Status = domain.JournalStatusRunning
	}
	if rec.StartedAt.IsZero() {
		rec.StartedAt = time.Now()
	}

	query := `
		INSERT INTO transfers (id, source, path, status, total_bytes, attempts, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.Exec(query,
		rec.ID, rec.Source, rec.Path, rec.Status, rec.TotalBytes, rec.Attempts, rec.StartedAt)
	return err
}

// RecordAttempt appends one attempt to a transfer
func (s *Store) RecordAttempt(rec *domain.AttemptRecord) error {
	query := `
		INSERT INTO attempts (
			transfer_id, attempt, plan, offset_bytes, bytes_written,
			outcome, error, started_at, finished_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.Exec(query,
		rec.TransferID, rec.Attempt, rec.Plan, rec.Offset, rec.BytesWritten,
		rec.Outcome, nullString(rec.Error), rec.StartedAt, rec.FinishedAt)
	return err
}

// FinishTransfer stores the terminal status of a transfer
func (s *Store) FinishTransfer(rec *domain.TransferRecord) error {
	query := `
		UPDATE transfers
		SET status = ?, total_bytes = ?, attempts = ?, last_error = ?, finished_at = ?
		WHERE id = ?
	`
	result, err := s.db.Exec(query,
		rec.Status, rec.TotalBytes, rec.Attempts, nullString(rec.LastError), rec.FinishedAt, rec.ID)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GetTransfer returns a transfer by ID
func (s *Store) GetTransfer(id string) (*domain.TransferRecord, error) {
	query := `
		SELECT id, source, path, status, total_bytes, attempts, last_error, started_at, finished_at
		FROM transfers
		WHERE id = ?
	`
	rec, err := scanTransfer(s.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return rec, err
}

// ListAttempts returns the attempts of a transfer in order
func (s *Store) ListAttempts(transferID string) ([]*domain.AttemptRecord, error) {
	query := `
		SELECT transfer_id, attempt, plan, offset_bytes, bytes_written,
			   outcome, error, started_at, finished_at
		FROM attempts
		WHERE transfer_id = ?
		ORDER BY attempt ASC, id ASC
	`
	rows, err := s.db.Query(query, transferID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []*domain.AttemptRecord
	for rows.Next() {
		rec := &domain.AttemptRecord{}
		var errText sql.NullString
		if err := rows.Scan(
			&rec.TransferID, &rec.Attempt, &rec.Plan, &rec.Offset, &rec.BytesWritten,
			&rec.Outcome, &errText, &rec.StartedAt, &rec.FinishedAt,
		); err != nil {
			return nil, err
		}
		rec.Error = errText.String
		attempts = append(attempts, rec)
	}
	return attempts, rows.Err()
}

// RecentTransfers returns the newest transfers first
func (s *Store) RecentTransfers(limit int) ([]*domain.TransferRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, source, path, status, total_bytes, attempts, last_error, started_at, finished_at
		FROM transfers
		ORDER BY started_at DESC
		LIMIT ?
	`
	rows, err := s.db.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transfers []*domain.TransferRecord
	for rows.Next() {
		rec, err := scanTransfer(rows)
		if err != nil {
			return nil, err
		}
		transfers = append(transfers, rec)
	}
	return transfers, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTransfer(row rowScanner) (*domain.TransferRecord, error) {
	rec := &domain.TransferRecord{}
	var lastError sql.NullString
	var finishedAt sql.NullTime

	if err := row.Scan(
		&rec.ID, &rec.Source, &rec.Path, &rec.Status, &rec.TotalBytes,
		&rec.Attempts, &lastError, &rec.StartedAt, &finishedAt,
	); err != nil {
		return nil, err
	}

	rec.LastError = lastError.String
	if finishedAt.Valid {
		t := finishedAt.Time
		rec.FinishedAt = &t
	}
	return rec, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
