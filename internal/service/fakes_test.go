package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/guardline/workforce-service/internal/domain"
	"github.com/guardline/workforce-service/internal/notify"
	"github.com/guardline/workforce-service/internal/repository"
)

// memoryUserRepo is an in-memory UserRepository that mirrors the SQL
// implementation's semantics closely enough for service tests: copies in,
// copies out, all-or-nothing batch updates, supervisor graph upkeep on role
// changes. Every call is appended to calls so tests can assert ordering.
type memoryUserRepo struct {
	mu        sync.Mutex
	users     map[string]*domain.User
	seq       int
	calls     []string
	failBatch error
}

func newMemoryUserRepo(users ...*domain.User) *memoryUserRepo {
	repo := &memoryUserRepo{users: make(map[string]*domain.User)}
	for _, user := range users {
		copied := *user
		if copied.ID == "" {
			repo.seq++
			copied.ID = fmt.Sprintf("u-%d", repo.seq)
		}
		repo.users[copied.ID] = &copied
	}
	return repo
}

func (r *memoryUserRepo) logCall(name string) {
	r.calls = append(r.calls, name)
}

func (r *memoryUserRepo) calledAny(names ...string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, call := range r.calls {
		for _, name := range names {
			if call == name {
				return true
			}
		}
	}
	return false
}

func (r *memoryUserRepo) get(id string) *domain.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user, ok := r.users[id]; ok {
		copied := *user
		return &copied
	}
	return nil
}

func (r *memoryUserRepo) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logCall("Create")
	r.seq++
	user.ID = fmt.Sprintf("u-%d", r.seq)
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	copied := *user
	r.users[copied.ID] = &copied
	return nil
}

func (r *memoryUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logCall("GetByID")
	user, ok := r.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *user
	return &copied, nil
}

func (r *memoryUserRepo) FindByExternalID(_ context.Context, externalID string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logCall("FindByExternalID")
	var retired *domain.User
	for _, user := range r.users {
		if user.ExternalID != externalID {
			continue
		}
		if user.IsActive() {
			copied := *user
			return &copied, nil
		}
		retired = user
	}
	if retired != nil {
		copied := *retired
		return &copied, nil
	}
	return nil, pgx.ErrNoRows
}

func (r *memoryUserRepo) FindActiveByExternalID(_ context.Context, externalID string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logCall("FindActiveByExternalID")
	for _, user := range r.users {
		if user.ExternalID == externalID && user.IsActive() {
			copied := *user
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *memoryUserRepo) FindActiveByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logCall("FindActiveByEmail")
	for _, user := range r.users {
		if user.Email == email && user.IsActive() {
			copied := *user
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *memoryUserRepo) FindActiveByEmails(_ context.Context, emails []string) ([]domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logCall("FindActiveByEmails")
	var result []domain.User
	for _, email := range emails {
		for _, user := range r.users {
			if user.Email == email && user.IsActive() {
				result = append(result, *user)
				break
			}
		}
	}
	return result, nil
}

func (r *memoryUserRepo) FindByIDs(_ context.Context, ids []string) ([]domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logCall("FindByIDs")
	var result []domain.User
	for _, id := range ids {
		if user, ok := r.users[id]; ok {
			result = append(result, *user)
		}
	}
	return result, nil
}

func (r *memoryUserRepo) List(_ context.Context, filter repository.UserFilter) ([]domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logCall("List")
	var result []domain.User
	for _, user := range r.users {
		if filter.Role != nil && user.Role != *filter.Role {
			continue
		}
		if filter.SupervisorID != nil && (user.SupervisorID == nil || *user.SupervisorID != *filter.SupervisorID) {
			continue
		}
		if !filter.IncludeDeleted && !user.IsActive() {
			continue
		}
		result = append(result, *user)
	}
	return result, nil
}

func (r *memoryUserRepo) ListReports(_ context.Context, supervisorID string) ([]domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logCall("ListReports")
	var result []domain.User
	for _, user := range r.users {
		if user.SupervisorID != nil && *user.SupervisorID == supervisorID && user.IsActive() {
			result = append(result, *user)
		}
	}
	return result, nil
}

func (r *memoryUserRepo) UpdateProfile(_ context.Context, id, email, firstName, lastName string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logCall("UpdateProfile")
	user, ok := r.users[id]
	if !ok || !user.IsActive() {
		return nil, pgx.ErrNoRows
	}
	user.Email = email
	user.FirstName = firstName
	user.LastName = lastName
	user.UpdatedAt = time.Now()
	copied := *user
	return &copied, nil
}

func (r *memoryUserRepo) UpdateSupervisorBatch(_ context.Context, targetIDs []string, supervisorID *string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logCall("UpdateSupervisorBatch")
	if r.failBatch != nil {
		return 0, r.failBatch
	}

	// all-or-nothing: verify before mutating anything
	for _, id := range targetIDs {
		user, ok := r.users[id]
		if !ok || !user.IsActive() {
			return 0, fmt.Errorf("supervisor batch touched %d of %d users", 0, len(targetIDs))
		}
	}
	for _, id := range targetIDs {
		r.users[id].SupervisorID = cloneID(supervisorID)
		r.users[id].UpdatedAt = time.Now()
	}
	return int64(len(targetIDs)), nil
}

func (r *memoryUserRepo) ApplyRoleChange(_ context.Context, userID string, change domain.RoleChange) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logCall("ApplyRoleChange")
	user, ok := r.users[userID]
	if !ok || !user.IsActive() {
		return nil, pgx.ErrNoRows
	}

	newRole := change.ResultingRole()
	if user.Role == domain.RoleSupervisor && newRole != domain.RoleSupervisor {
		for _, report := range r.users {
			if report.SupervisorID != nil && *report.SupervisorID == user.ID && report.IsActive() {
				report.SupervisorID = nil
			}
		}
	}
	if change.IsUnassign() {
		now := time.Now()
		user.DeletedAt = &now
		user.SupervisorID = nil
	} else if newRole != domain.RoleEmployee {
		user.SupervisorID = nil
	}
	user.Role = newRole
	user.UpdatedAt = time.Now()

	copied := *user
	return &copied, nil
}

func cloneID(id *string) *string {
	if id == nil {
		return nil
	}
	copied := *id
	return &copied
}

// memoryAuditRepo collects audit entries in order.
type memoryAuditRepo struct {
	mu      sync.Mutex
	entries []domain.AuditEntry
	err     error
}

func (r *memoryAuditRepo) Create(_ context.Context, entry *domain.AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	entry.ID = fmt.Sprintf("a-%d", len(r.entries)+1)
	entry.CreatedAt = time.Now()
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *memoryAuditRepo) ListByEntity(_ context.Context, entityName, entityID string) ([]domain.AuditEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.AuditEntry
	for _, entry := range r.entries {
		if entry.EntityName == entityName && entry.EntityID == entityID {
			result = append(result, entry)
		}
	}
	return result, nil
}

func (r *memoryAuditRepo) ListRecent(_ context.Context, limit int) ([]domain.AuditEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := append([]domain.AuditEntry{}, r.entries...)
	for i, j := 0, len(result)-1; i < j; i, j = i+1, j-1 {
		result[i], result[j] = result[j], result[i]
	}
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// recordingNotifier captures user notifications and can fail per recipient.
type recordingNotifier struct {
	mu        sync.Mutex
	delivered []notify.Notification
	failFor   map[string]error
}

func (n *recordingNotifier) NotifyUser(_ context.Context, notification notify.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err, ok := n.failFor[notification.RecipientEmail]; ok {
		return err
	}
	n.delivered = append(n.delivered, notification)
	return nil
}

// recordingBroadcaster captures presence events.
type recordingBroadcaster struct {
	mu     sync.Mutex
	events []notify.PresenceEvent
}

func (b *recordingBroadcaster) Broadcast(_ context.Context, event notify.PresenceEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
	return nil
}
