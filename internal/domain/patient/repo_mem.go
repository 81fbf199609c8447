package patient

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// profileRepoMem is the in-memory ProfileRepository used in tests and when
// the server runs with STORE=memory.
type profileRepoMem struct {
	mu    sync.RWMutex
	items map[uuid.UUID]*Profile
}

func NewProfileRepoMem() ProfileRepository {
	return &profileRepoMem{items: make(map[uuid.UUID]*Profile)}
}

func (r *profileRepoMem) Create(_ context.Context, p *Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	stored := *p
	r.items[p.ID] = &stored
	return nil
}

func (r *profileRepoMem) GetByID(_ context.Context, id uuid.UUID) (*Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := *p // return a copy
	return &c, nil
}

func (r *profileRepoMem) GetByEmail(_ context.Context, email string) (*Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.items {
		if strings.EqualFold(p.Email, email) {
			c := *p
			return &c, nil
		}
	}
	return nil, ErrNotFound
}

func (r *profileRepoMem) List(_ context.Context, limit, offset int) ([]*Profile, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]*Profile, 0, len(r.items))
	for _, p := range r.items {
		c := *p
		all = append(all, &c)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID.String() < all[j].ID.String()
	})

	total := len(all)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if limit <= 0 || end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (r *profileRepoMem) Delete(_ context.Context, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return false, nil
	}
	delete(r.items, id)
	return true, nil
}

// documentRepoMem is the in-memory DocumentRepository.
type documentRepoMem struct {
	mu    sync.RWMutex
	items map[uuid.UUID]*Document
}

func NewDocumentRepoMem() DocumentRepository {
	return &documentRepoMem{items: make(map[uuid.UUID]*Document)}
}

func (r *documentRepoMem) Create(_ context.Context, d *Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	if d.UploadDate.IsZero() {
		d.UploadDate = time.Now()
	}
	stored := *d
	r.items[d.ID] = &stored
	return nil
}

func (r *documentRepoMem) GetByID(_ context.Context, id uuid.UUID) (*Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := *d
	return &c, nil
}

func (r *documentRepoMem) ListByPatient(_ context.Context, patientID uuid.UUID) ([]*Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var docs []*Document
	for _, d := range r.items {
		if d.PatientID == patientID {
			c := *d
			docs = append(docs, &c)
		}
	}
	sort.Slice(docs, func(i, j int) bool {
		if !docs[i].UploadDate.Equal(docs[j].UploadDate) {
			return docs[i].UploadDate.Before(docs[j].UploadDate)
		}
		return docs[i].ID.String() < docs[j].ID.String()
	})
	return docs, nil
}

func (r *documentRepoMem) Delete(_ context.Context, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return false, nil
	}
	delete(r.items, id)
	return true, nil
}

func (r *documentRepoMem) DeleteByPatient(_ context.Context, patientID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, d := range r.items {
		if d.PatientID == patientID {
			delete(r.items, id)
		}
	}
	return nil
}
