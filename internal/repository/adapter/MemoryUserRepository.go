package adapter

import (
	"context"
	"sync"

	chat "marketplace-chat/internal/pkg/chat/application/domain"
	repository "marketplace-chat/internal/repository/port"
)

// MemoryUserRepository is an in-process UserDirectory/ApplicationLinks used
// by tests and single-node development runs.
type MemoryUserRepository struct {
	mu           sync.RWMutex
	profiles     map[string]chat.Profile
	pushDisabled map[string]bool
	applications map[string][2]string
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		profiles:     make(map[string]chat.Profile),
		pushDisabled: make(map[string]bool),
		applications: make(map[string][2]string),
	}
}

var (
	_ repository.UserDirectory    = (*MemoryUserRepository)(nil)
	_ repository.ApplicationLinks = (*MemoryUserRepository)(nil)
)

func (r *MemoryUserRepository) PutProfile(p chat.Profile, pushEnabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.profiles[p.UserID] = p
	r.pushDisabled[p.UserID] = !pushEnabled
}

func (r *MemoryUserRepository) PutApplication(id, applicantID, employerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.applications[id] = [2]string{applicantID, employerID}
}

func (r *MemoryUserRepository) Profiles(_ context.Context, userIDs ...string) (map[string]chat.Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]chat.Profile, len(userIDs))
	for _, id := range userIDs {
		if p, ok := r.profiles[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (r *MemoryUserRepository) PushEnabled(_ context.Context, userID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return !r.pushDisabled[userID], nil
}

func (r *MemoryUserRepository) Parties(_ context.Context, applicationID string) (string, string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.applications[applicationID]
	if !ok {
		return "", "", repository.ErrApplicationNotFound
	}
	return p[0], p[1], nil
}
