package api

import (
	"github.com/promptvault/promptvault/internal/domain"
)

// DataStore abstracts the repository accessor pattern for handler testing.
// *postgres.Store and *memory.Store satisfy this interface.
type DataStore interface {
	Logs() domain.LogRepository
}
