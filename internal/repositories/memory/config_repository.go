package memory

import (
	"context"
	"strings"
	"time"

	"github.com/ArowuTest/raffle-backend/internal/models"
	"github.com/ArowuTest/raffle-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	_ repositories.AdminUserRepository    = (*AdminUserRepository)(nil)
	_ repositories.SystemConfigRepository = (*SystemConfigRepository)(nil)
)

// AdminUserRepository implements repositories.AdminUserRepository
type AdminUserRepository struct {
	s *Store
}

// Create stores an admin user; emails are unique
func (r *AdminUserRepository) Create(_ context.Context, adminUser *models.AdminUser) (*models.AdminUser, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	email := strings.ToLower(adminUser.Email)
	if _, exists := r.s.admins[email]; exists {
		return nil, repositories.ErrDuplicate
	}
	adminUser.ID = primitive.NewObjectID()
	adminUser.Email = email
	adminUser.CreatedAt = time.Now().UTC()
	adminUser.UpdatedAt = adminUser.CreatedAt
	cp := *adminUser
	r.s.admins[email] = &cp
	return adminUser, nil
}

// FindByEmail finds an admin user by email
func (r *AdminUserRepository) FindByEmail(_ context.Context, email string) (*models.AdminUser, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.admins[strings.ToLower(email)]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

// SystemConfigRepository implements repositories.SystemConfigRepository
type SystemConfigRepository struct {
	s *Store
}

// FindByKey finds a config entry by key
func (r *SystemConfigRepository) FindByKey(_ context.Context, key string) (*models.SystemConfig, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	c, ok := r.s.configs[key]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

// UpsertByKey creates or replaces a config entry
func (r *SystemConfigRepository) UpsertByKey(_ context.Context, key string, value interface{}, description, updatedBy string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := time.Now().UTC()
	c, ok := r.s.configs[key]
	if !ok {
		c = &models.SystemConfig{ID: primitive.NewObjectID(), Key: key, CreatedAt: now}
		r.s.configs[key] = c
	}
	c.Value = value
	c.Description = description
	c.UpdatedBy = updatedBy
	c.UpdatedAt = now
	return nil
}
