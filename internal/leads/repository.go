package leads

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// ListLeadsFilter narrows a lead listing.
type ListLeadsFilter struct {
	Status Status
	Search string
}

// Repository defines the interface for lead storage. Every method is scoped
// to the owning user; a lead owned by someone else behaves as missing.
type Repository interface {
	Create(ctx context.Context, lead *Lead) (*Lead, error)
	GetByID(ctx context.Context, ownerID, id int64) (*Lead, error)
	List(ctx context.Context, ownerID int64, filter ListLeadsFilter) ([]*Lead, error)
	Update(ctx context.Context, lead *Lead) (*Lead, error)
	UpdateStatus(ctx context.Context, ownerID, id int64, status Status) (*Lead, error)
	Delete(ctx context.Context, ownerID, id int64) error
	CountByStatus(ctx context.Context, ownerID int64) (map[Status]int64, error)
	EmailExists(ctx context.Context, email string, excludeID int64) (bool, error)
}

// InMemoryRepository is a Repository backed by process memory, used when no
// database is configured and in tests.
type InMemoryRepository struct {
	mu     sync.RWMutex
	nextID int64
	leads  map[int64]*Lead
	now    func() time.Time
}

// NewInMemoryRepository creates a new in-memory repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		leads: make(map[int64]*Lead),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Create stores a copy of lead and assigns its id and timestamps.
func (r *InMemoryRepository) Create(ctx context.Context, lead *Lead) (*Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	stored := *lead
	stored.ID = r.nextID
	stored.CreatedAt = r.now()
	stored.UpdatedAt = stored.CreatedAt
	r.leads[stored.ID] = &stored

	out := stored
	return &out, nil
}

// GetByID retrieves a lead owned by ownerID
func (r *InMemoryRepository) GetByID(ctx context.Context, ownerID, id int64) (*Lead, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	lead, ok := r.leads[id]
	if !ok || lead.CreatedBy != ownerID {
		return nil, ErrLeadNotFound
	}
	out := *lead
	return &out, nil
}

// List returns the owner's leads newest first.
func (r *InMemoryRepository) List(ctx context.Context, ownerID int64, filter ListLeadsFilter) ([]*Lead, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	search := strings.ToLower(strings.TrimSpace(filter.Search))
	out := make([]*Lead, 0)
	for _, lead := range r.leads {
		if lead.CreatedBy != ownerID {
			continue
		}
		if filter.Status != "" && lead.Status != filter.Status {
			continue
		}
		if search != "" && !matchesSearch(lead, search) {
			continue
		}
		cp := *lead
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func matchesSearch(lead *Lead, needle string) bool {
	return strings.Contains(strings.ToLower(lead.Name), needle) ||
		strings.Contains(strings.ToLower(lead.Email), needle) ||
		strings.Contains(strings.ToLower(lead.Phone), needle)
}

// Update replaces the writable fields of an owned lead.
func (r *InMemoryRepository) Update(ctx context.Context, lead *Lead) (*Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.leads[lead.ID]
	if !ok || existing.CreatedBy != lead.CreatedBy {
		return nil, ErrLeadNotFound
	}
	existing.Name = lead.Name
	existing.Phone = lead.Phone
	existing.Email = lead.Email
	existing.Source = lead.Source
	existing.Status = lead.Status
	existing.Notes = lead.Notes
	existing.UpdatedAt = r.now()

	out := *existing
	return &out, nil
}

// UpdateStatus changes only the status of an owned lead.
func (r *InMemoryRepository) UpdateStatus(ctx context.Context, ownerID, id int64, status Status) (*Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.leads[id]
	if !ok || existing.CreatedBy != ownerID {
		return nil, ErrLeadNotFound
	}
	existing.Status = status
	existing.UpdatedAt = r.now()

	out := *existing
	return &out, nil
}

// Delete removes an owned lead.
func (r *InMemoryRepository) Delete(ctx context.Context, ownerID, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.leads[id]
	if !ok || existing.CreatedBy != ownerID {
		return ErrLeadNotFound
	}
	delete(r.leads, id)
	return nil
}

// CountByStatus counts the owner's leads per status.
func (r *InMemoryRepository) CountByStatus(ctx context.Context, ownerID int64) (map[Status]int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := make(map[Status]int64, len(Statuses))
	for _, lead := range r.leads {
		if lead.CreatedBy == ownerID {
			counts[lead.Status]++
		}
	}
	return counts, nil
}

// EmailExists reports whether any lead other than excludeID uses email.
func (r *InMemoryRepository) EmailExists(ctx context.Context, email string, excludeID int64) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for id, lead := range r.leads {
		if id != excludeID && strings.EqualFold(lead.Email, email) {
			return true, nil
		}
	}
	return false, nil
}
