package journey

import (
	"context"

	"github.com/alem-hub/learning-journey/internal/domain/catalog"
	"github.com/alem-hub/learning-journey/internal/domain/completion"
)

// PathEntry - активность плана вместе с её статусом для пользователя.
type PathEntry struct {
	Activity  catalog.Activity  `json:"activity"`
	Status    completion.Status `json:"status"`
	Score     *int              `json:"score,omitempty"`
	IsCurrent bool              `json:"is_current"`
}

// Path строит упорядоченный путь по плану.
// Статус берётся из записи о выполнении, если она есть; иначе
// активность считается unlocked или locked по состоянию пути.
func (s *State) Path(activities []catalog.Activity, records map[string]*completion.Record) []PathEntry {
	ordered := sorted(activities)
	path := make([]PathEntry, 0, len(ordered))
	for _, a := range ordered {
		entry := PathEntry{
			Activity:  a,
			Status:    completion.StatusLocked,
			IsCurrent: a.ID == s.CurrentActivityID,
		}
		if rec, ok := records[a.ID]; ok && rec != nil {
			entry.Status = rec.Status
			entry.Score = rec.Score
		} else if s.IsUnlocked(a.ID) {
			entry.Status = completion.StatusUnlocked
		}
		path = append(path, entry)
	}
	return path
}

// Repository определяет хранилище путей.
type Repository interface {
	// Get возвращает путь пользователя.
	// Возвращает shared.ErrJourneyNotFound, если путь ещё не создан.
	Get(ctx context.Context, userID string) (*State, error)

	// Save сохраняет путь (upsert).
	Save(ctx context.Context, state *State) error
}
