package storage

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/matt-wisdom/WhoDat/domain"
)

type articleKey struct {
	category string
	title    string
}

// MemoryRepo is a process-local store with the same contract as PostgresRepo.
// It is used when no database is configured and in tests.
type MemoryRepo struct {
	mu       sync.RWMutex
	rooms    map[string]domain.RoomRow
	history  []domain.GameHistoryRow
	articles map[articleKey]domain.SecretIdentity
	now      func() time.Time
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		rooms:    make(map[string]domain.RoomRow),
		articles: make(map[articleKey]domain.SecretIdentity),
		now:      time.Now,
	}
}

func copyRow(r domain.RoomRow) domain.RoomRow {
	r.PlayersJSON = slices.Clone(r.PlayersJSON)
	return r
}

func (m *MemoryRepo) InsertRoom(ctx context.Context, row domain.RoomRow) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.rooms[row.ID]; exists {
		return domain.ErrDuplicateRoomID
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = m.now()
	}
	m.rooms[row.ID] = copyRow(row)
	return nil
}

func (m *MemoryRepo) GetRoom(ctx context.Context, id string) (domain.RoomRow, error) {
	if err := ctx.Err(); err != nil {
		return domain.RoomRow{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	row, ok := m.rooms[id]
	if !ok {
		return domain.RoomRow{}, domain.ErrRoomNotFound
	}
	return copyRow(row), nil
}

func (m *MemoryRepo) UpdateRoom(ctx context.Context, row domain.RoomRow) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.rooms[row.ID]
	if !ok {
		return domain.ErrRoomNotFound
	}
	row.CreatedAt = existing.CreatedAt
	m.rooms[row.ID] = copyRow(row)
	return nil
}

func (m *MemoryRepo) DeleteRoom(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.rooms[id]; !ok {
		return domain.ErrRoomNotFound
	}
	delete(m.rooms, id)
	return nil
}

func newestFirst(a, b domain.RoomRow) int {
	return b.CreatedAt.Compare(a.CreatedAt)
}

func (m *MemoryRepo) ListPublicLobbies(ctx context.Context, limit int) ([]domain.RoomRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	rows := []domain.RoomRow{}
	for _, r := range m.rooms {
		if r.IsPublic && r.State == string(domain.StateLobby) {
			rows = append(rows, copyRow(r))
		}
	}
	slices.SortFunc(rows, newestFirst)
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func (m *MemoryRepo) DeleteStaleLobbies(ctx context.Context, ttl time.Duration) ([]domain.RoomRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.now().Add(-ttl)
	reaped := []domain.RoomRow{}
	for id, r := range m.rooms {
		if r.State == string(domain.StateLobby) && r.CreatedAt.Before(cutoff) {
			reaped = append(reaped, r)
			delete(m.rooms, id)
		}
	}
	return reaped, nil
}

func (m *MemoryRepo) InsertGameHistory(ctx context.Context, h domain.GameHistoryRow) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	h.PlayersJSON = slices.Clone(h.PlayersJSON)
	h.CreatedAt = m.now()
	m.history = append(m.history, h)
	return nil
}

func (m *MemoryRepo) ListGameHistory(ctx context.Context, roomID string, limit int) ([]domain.GameHistoryRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := []domain.GameHistoryRow{}
	for i := len(m.history) - 1; i >= 0 && len(result) < limit; i-- {
		if m.history[i].RoomID == roomID {
			result = append(result, m.history[i])
		}
	}
	return result, nil
}

func (m *MemoryRepo) GetArticle(ctx context.Context, category, title string) (domain.SecretIdentity, error) {
	if err := ctx.Err(); err != nil {
		return domain.SecretIdentity{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.articles[articleKey{category, lookupKey(title)}]
	if !ok {
		return domain.SecretIdentity{}, domain.ErrArticleNotFound
	}
	return a, nil
}

func (m *MemoryRepo) UpsertArticle(ctx context.Context, category, requestedTitle string, a domain.SecretIdentity) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.articles[articleKey{category, lookupKey(requestedTitle)}] = a
	return nil
}
