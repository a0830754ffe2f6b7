package port

import (
	"github.com/vertextoedge/aaxfetch/internal/domain/repository"
)

// JournalRepository is an alias to the domain repository interface
type JournalRepository = repository.JournalRepository

// Store is an alias to the domain repository interface
type Store = repository.Store
