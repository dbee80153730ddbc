// Package storage holds the non-relational URL stores: an in-process map
// store and a Redis backed store.
package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/atinyakov/shortlink/internal/errx"
	"github.com/atinyakov/shortlink/internal/models"
)

// MemoryStorage keeps records in maps guarded by a single lock. Every
// mutation happens inside one critical section, so uniqueness checks and
// writes are atomic.
type MemoryStorage struct {
	mu     sync.RWMutex
	nextID int64
	byID   map[int64]*models.URL
	byCode map[string]int64
	now    func() time.Time
}

func CreateMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		byID:   make(map[int64]*models.URL),
		byCode: make(map[string]int64),
		now:    time.Now,
	}
}

func (m *MemoryStorage) Create(ctx context.Context, longURL, shortCode string) (*models.URL, error) {
	const op = "storage.memory.Create"

	if err := ctx.Err(); err != nil {
		return nil, errx.E(op, errx.Unavailable, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, taken := m.byCode[shortCode]; taken {
		return nil, errx.Errorf(op, errx.Conflict, "short code %q already exists", shortCode)
	}

	m.nextID++
	record := &models.URL{
		ID:        m.nextID,
		ShortCode: shortCode,
		LongURL:   longURL,
		CreatedAt: m.now().UTC(),
	}
	m.byID[record.ID] = record
	m.byCode[shortCode] = record.ID

	res := *record
	return &res, nil
}

func (m *MemoryStorage) FindByCode(ctx context.Context, shortCode string) (*models.URL, error) {
	if err := ctx.Err(); err != nil {
		return nil, errx.E("storage.memory.FindByCode", errx.Unavailable, err)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byCode[shortCode]
	if !ok {
		return nil, nil
	}
	res := *m.byID[id]
	return &res, nil
}

func (m *MemoryStorage) FindByID(ctx context.Context, id int64) (*models.URL, error) {
	if err := ctx.Err(); err != nil {
		return nil, errx.E("storage.memory.FindByID", errx.Unavailable, err)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	record, ok := m.byID[id]
	if !ok {
		return nil, nil
	}
	res := *record
	return &res, nil
}

// List returns a snapshot ordered by creation time, newest first.
func (m *MemoryStorage) List(ctx context.Context) ([]models.URL, error) {
	if err := ctx.Err(); err != nil {
		return nil, errx.E("storage.memory.List", errx.Unavailable, err)
	}

	m.mu.RLock()
	records := make([]models.URL, 0, len(m.byID))
	for _, r := range m.byID {
		records = append(records, *r)
	}
	m.mu.RUnlock()

	sort.Slice(records, func(i, j int) bool {
		if !records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].CreatedAt.After(records[j].CreatedAt)
		}
		return records[i].ID > records[j].ID
	})

	return records, nil
}

func (m *MemoryStorage) ExistsByCode(ctx context.Context, shortCode string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, errx.E("storage.memory.ExistsByCode", errx.Unavailable, err)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.byCode[shortCode]
	return ok, nil
}

func (m *MemoryStorage) Update(ctx context.Context, id int64, shortCode, longURL string) (*models.URL, error) {
	const op = "storage.memory.Update"

	if err := ctx.Err(); err != nil {
		return nil, errx.E(op, errx.Unavailable, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	record, ok := m.byID[id]
	if !ok {
		return nil, nil
	}
	if owner, taken := m.byCode[shortCode]; taken && owner != id {
		return nil, errx.E(op, errx.Conflict, fmt.Errorf("short code %q belongs to url %d", shortCode, owner))
	}

	delete(m.byCode, record.ShortCode)
	record.ShortCode = shortCode
	record.LongURL = longURL
	m.byCode[shortCode] = id

	res := *record
	return &res, nil
}

func (m *MemoryStorage) Delete(ctx context.Context, id int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, errx.E("storage.memory.Delete", errx.Unavailable, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	record, ok := m.byID[id]
	if !ok {
		return false, nil
	}
	delete(m.byCode, record.ShortCode)
	delete(m.byID, id)

	return true, nil
}

func (m *MemoryStorage) PingContext(ctx context.Context) error {
	return ctx.Err()
}
