package repository

import (
	"github.com/vertextoedge/aaxfetch/internal/domain"
)

// JournalRepository records transfer history
type JournalRepository interface {
	// StartTransfer inserts a running transfer
	StartTransfer(rec *domain.TransferRecord) error

	// RecordAttempt appends one attempt to a transfer
	RecordAttempt(rec *domain.AttemptRecord) error

	// FinishTransfer stores the terminal status of a transfer
	FinishTransfer(rec *domain.TransferRecord) error

	// GetTransfer returns a transfer by ID
	// Returns domain.ErrNotFound if it does not exist
	GetTransfer(id string) (*domain.TransferRecord, error)

	// ListAttempts returns the attempts of a transfer in order
	ListAttempts(transferID string) ([]*domain.AttemptRecord, error)

	// RecentTransfers returns the newest transfers first
	RecentTransfers(limit int) ([]*domain.TransferRecord, error)
}

// Store combines all repository interfaces
type Store interface {
	JournalRepository

	// Close closes the database connection
	Close() error

	// Ping checks database connectivity
	Ping() error
}
