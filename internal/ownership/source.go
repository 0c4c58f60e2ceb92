package ownership

import (
	"context"
	"time"

	"github.com/rohankatakam/bugrouter/internal/models"
)

// EventSource supplies change events for a repository. Implementations
// paginate: an empty page or an error signals the end of pagination.
type EventSource interface {
	// FetchEvents returns one page of change events with timestamps at
	// or after since. Pages are 1-indexed.
	FetchEvents(ctx context.Context, repoID string, since time.Time, page int) ([]models.ChangeEvent, error)

	// LastTouched returns the timestamp of the most recent event that
	// touched the given file path.
	LastTouched(ctx context.Context, repoID, filePath string) (time.Time, error)
}
