package notifications

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryRepo stores notifications in memory.
type MemoryRepo struct {
	mu     sync.RWMutex
	nextID int64
	rows   map[int64]Notification
}

// NewMemoryRepo constructs an empty MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{rows: make(map[int64]Notification)}
}

func (r *MemoryRepo) Create(ctx context.Context, n Notification) (Notification, error) {
	if err := ctx.Err(); err != nil {
		return Notification{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	n.ID = r.nextID
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	r.rows[n.ID] = n
	return n, nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, id int64) (Notification, error) {
	if err := ctx.Err(); err != nil {
		return Notification{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	n, ok := r.rows[id]
	if !ok {
		return Notification{}, ErrNotFound
	}
	return n, nil
}

func (r *MemoryRepo) ListVisible(ctx context.Context, userID, role string, limit int) ([]Notification, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Notification
	for _, n := range r.rows {
		if n.Hidden {
			continue
		}
		if (n.RecipientUserID != nil && *n.RecipientUserID == userID) ||
			(n.RecipientRole != nil && role != "" && strings.EqualFold(*n.RecipientRole, role)) {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryRepo) SetRead(ctx context.Context, id int64) error {
	return r.update(ctx, id, func(n *Notification) { n.Read = true })
}

func (r *MemoryRepo) SetHidden(ctx context.Context, id int64) error {
	return r.update(ctx, id, func(n *Notification) { n.Hidden = true })
}

func (r *MemoryRepo) update(ctx context.Context, id int64, fn func(*Notification)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.rows[id]
	if !ok {
		return ErrNotFound
	}
	fn(&n)
	r.rows[id] = n
	return nil
}
