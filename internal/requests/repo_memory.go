package requests

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo stores requests in memory.
type MemoryRepo struct {
	mu     sync.RWMutex
	nextID int64
	rows   map[int64]Request
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{rows: make(map[int64]Request)}
}

var _ Repo = (*MemoryRepo)(nil)

func (r *MemoryRepo) Create(ctx context.Context, req Request) (Request, error) {
	if err := ctx.Err(); err != nil {
		return Request{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	req.ID = r.nextID
	req.Status = StatusPending
	req.Version = 1
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now().UTC()
	}
	r.rows[req.ID] = clone(req)
	return clone(req), nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, id int64) (Request, error) {
	if err := ctx.Err(); err != nil {
		return Request{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	req, ok := r.rows[id]
	if !ok {
		return Request{}, ErrNotFound
	}
	return clone(req), nil
}

func (r *MemoryRepo) List(ctx context.Context, filter ListFilter) ([]Request, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Request
	for _, req := range r.rows {
		if filter.RequesterID != "" && req.RequesterID != filter.RequesterID {
			continue
		}
		if filter.Status != "" && req.Status != filter.Status {
			continue
		}
		out = append(out, clone(req))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *MemoryRepo) Decide(ctx context.Context, id int64, version int, d Decision) (Request, error) {
	if err := ctx.Err(); err != nil {
		return Request{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.rows[id]
	if !ok {
		return Request{}, ErrNotFound
	}
	if req.Status != StatusPending || req.Version != version {
		return Request{}, ErrConflict
	}
	respondedAt := d.RespondedAt
	reviewer := d.ReviewerID
	req.Status = d.Status
	req.ReviewerID = &reviewer
	req.ReviewerComment = copyString(d.Comment)
	req.SignedDocumentPath = copyString(d.SignedDocumentPath)
	req.RespondedAt = &respondedAt
	req.Version++
	r.rows[id] = req
	return clone(req), nil
}

func (r *MemoryRepo) SetSignedDocument(ctx context.Context, id int64, version int, path string) (Request, error) {
	if err := ctx.Err(); err != nil {
		return Request{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.rows[id]
	if !ok {
		return Request{}, ErrNotFound
	}
	if req.Version != version || req.Status != StatusApproved || req.OriginalDocumentPath == nil {
		return Request{}, ErrConflict
	}
	req.SignedDocumentPath = &path
	req.Version++
	r.rows[id] = req
	return clone(req), nil
}

func clone(req Request) Request {
	req.OriginalDocumentPath = copyString(req.OriginalDocumentPath)
	req.SignedDocumentPath = copyString(req.SignedDocumentPath)
	req.ReviewerID = copyString(req.ReviewerID)
	req.ReviewerComment = copyString(req.ReviewerComment)
	if req.RespondedAt != nil {
		t := *req.RespondedAt
		req.RespondedAt = &t
	}
	return req
}

func copyString(v *string) *string {
	if v == nil {
		return nil
	}
	s := *v
	return &s
}
