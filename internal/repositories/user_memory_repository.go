package repositories

import (
	"fmt"
	"sync"

	"userapi/internal/models"
)

// MemoryUserRepository is an in-memory implementation of UserRepository.
// All access is serialized behind a single RWMutex.
type MemoryUserRepository struct {
	users map[string]models.User
	mu    sync.RWMutex
}

// NewMemoryUserRepository creates a new instance of MemoryUserRepository.
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		users: make(map[string]models.User),
	}
}

// Contains reports whether a user exists under the given email.
func (r *MemoryUserRepository) Contains(email string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.users[email]
	return ok, nil
}

// Get returns the user stored under the given email.
func (r *MemoryUserRepository) Get(email string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[email]
	if !ok {
		return nil, fmt.Errorf("user with email %s not found", email)
	}
	return &user, nil
}

// Put inserts or overwrites the entry at the user's email.
func (r *MemoryUserRepository) Put(user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.users[user.Email] = *user
	return nil
}

// Remove deletes the entry at the given email and returns the removed user.
func (r *MemoryUserRepository) Remove(email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[email]
	if !ok {
		return nil, fmt.Errorf("user with email %s not found for deletion", email)
	}
	delete(r.users, email)
	return &user, nil
}

// Rekey removes the entry at oldEmail and inserts user under its current
// email, under one lock, so no stale key is ever observable.
func (r *MemoryUserRepository) Rekey(oldEmail string, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[oldEmail]; !ok {
		return fmt.Errorf("user with email %s not found for rekey", oldEmail)
	}
	delete(r.users, oldEmail)
	r.users[user.Email] = *user
	return nil
}

// Values returns all users, order not significant.
func (r *MemoryUserRepository) Values() ([]models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	userList := make([]models.User, 0, len(r.users))
	for _, u := range r.users {
		userList = append(userList, u)
	}
	return userList, nil
}

// IsEmpty reports whether the repository holds no users.
func (r *MemoryUserRepository) IsEmpty() (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.users) == 0, nil
}
