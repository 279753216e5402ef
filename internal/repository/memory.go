package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/civicdesk/issue-reporter/internal/domain"
)

// MemoryStore keeps the three credential collections in process memory. It mirrors the
// unique constraints of the SQL schema and backs the service when no database is configured.
type MemoryStore struct {
	mu     sync.RWMutex
	users  map[string]domain.User
	staff  map[string]domain.Staff
	admins map[string]domain.Admin
	now    func() time.Time
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:  make(map[string]domain.User),
		staff:  make(map[string]domain.Staff),
		admins: make(map[string]domain.Admin),
		now:    time.Now,
	}
}

// Users exposes the citizen collection.
func (m *MemoryStore) Users() UserRepository { return memoryUsers{m} }

// Staff exposes the field worker collection.
func (m *MemoryStore) Staff() StaffRepository { return memoryStaff{m} }

// Admins exposes the administrator collection.
func (m *MemoryStore) Admins() AdminRepository { return memoryAdmins{m} }

// Delete removes a principal with the given id from every collection.
func (m *MemoryStore) Delete(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.users, id)
	delete(m.staff, id)
	delete(m.admins, id)
}

type memoryUsers struct{ m *MemoryStore }

func (r memoryUsers) Create(_ context.Context, user *domain.User) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	for _, existing := range r.m.users {
		if existing.Email == user.Email {
			return &ConflictError{Field: "email"}
		}
		if user.Phone != "" && existing.Phone == user.Phone {
			return &ConflictError{Field: "phone"}
		}
	}
	now := r.m.now()
	user.CreatedAt, user.UpdatedAt = now, now
	r.m.users[user.ID] = *user
	return nil
}

func (r memoryUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	user, ok := r.m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &user, nil
}

func (r memoryUsers) FindByIdentifier(_ context.Context, identifier string) (*domain.User, error) {
	email, phone := lookupKeys(identifier)
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	for _, user := range r.m.users {
		if user.Email == email || (phone != "" && user.Phone == phone) {
			u := user
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

type memoryStaff struct{ m *MemoryStore }

func (r memoryStaff) Create(_ context.Context, staff *domain.Staff) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if err := r.checkUnique(staff); err != nil {
		return err
	}
	now := r.m.now()
	staff.CreatedAt, staff.UpdatedAt = now, now
	r.m.staff[staff.ID] = *staff
	return nil
}

func (r memoryStaff) Update(_ context.Context, staff *domain.Staff) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if _, ok := r.m.staff[staff.ID]; !ok {
		return ErrNotFound
	}
	if err := r.checkUnique(staff); err != nil {
		return err
	}
	staff.UpdatedAt = r.m.now()
	r.m.staff[staff.ID] = *staff
	return nil
}

func (r memoryStaff) checkUnique(staff *domain.Staff) error {
	for id, existing := range r.m.staff {
		if id == staff.ID {
			continue
		}
		if existing.Email == staff.Email {
			return &ConflictError{Field: "email"}
		}
		if existing.StaffID == staff.StaffID {
			return &ConflictError{Field: "staffId"}
		}
	}
	return nil
}

func (r memoryStaff) GetByID(_ context.Context, id string) (*domain.Staff, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	staff, ok := r.m.staff[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &staff, nil
}

func (r memoryStaff) FindByIdentifier(_ context.Context, identifier string) (*domain.Staff, error) {
	email, _ := lookupKeys(identifier)
	staffID := strings.TrimSpace(identifier)
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	for _, staff := range r.m.staff {
		if staff.Email == email || staff.StaffID == staffID {
			s := staff
			return &s, nil
		}
	}
	return nil, ErrNotFound
}

func (r memoryStaff) List(_ context.Context, filter StaffFilter) ([]domain.Staff, error) {
	r.m.mu.RLock()
	all := make([]domain.Staff, 0, len(r.m.staff))
	for _, staff := range r.m.staff {
		if filter.Approved != nil && staff.Approved != *filter.Approved {
			continue
		}
		all = append(all, staff)
	}
	r.m.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	limit, offset := pageBounds(filter.Limit, filter.Offset)
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

type memoryAdmins struct{ m *MemoryStore }

func (r memoryAdmins) Create(_ context.Context, admin *domain.Admin) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	for _, existing := range r.m.admins {
		if existing.Email == admin.Email {
			return &ConflictError{Field: "email"}
		}
		if admin.Phone != "" && existing.Phone == admin.Phone {
			return &ConflictError{Field: "phone"}
		}
	}
	now := r.m.now()
	admin.CreatedAt, admin.UpdatedAt = now, now
	stored := *admin
	stored.Permissions = clonePermissions(admin.Permissions)
	r.m.admins[admin.ID] = stored
	return nil
}

func (r memoryAdmins) GetByID(_ context.Context, id string) (*domain.Admin, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	admin, ok := r.m.admins[id]
	if !ok {
		return nil, ErrNotFound
	}
	admin.Permissions = clonePermissions(admin.Permissions)
	return &admin, nil
}

func (r memoryAdmins) FindByIdentifier(_ context.Context, identifier string) (*domain.Admin, error) {
	email, phone := lookupKeys(identifier)
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	for _, admin := range r.m.admins {
		if admin.Email == email || (phone != "" && admin.Phone == phone) {
			a := admin
			a.Permissions = clonePermissions(admin.Permissions)
			return &a, nil
		}
	}
	return nil, ErrNotFound
}

func (r memoryAdmins) TouchLastLogin(_ context.Context, id string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	admin, ok := r.m.admins[id]
	if !ok {
		return ErrNotFound
	}
	now := r.m.now()
	admin.LastLoginAt = &now
	r.m.admins[id] = admin
	return nil
}

func clonePermissions(p domain.Permissions) domain.Permissions {
	out := make(domain.Permissions, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}
