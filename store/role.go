package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/spire-panel/spire/models"
	"github.com/spire-panel/spire/permission"
)

type RoleStore struct{ DB *gorm.DB }

func NewRoleStore(db *gorm.DB) *RoleStore { return &RoleStore{DB: db} }

// InvalidPermissionError reports a token that is not in the grantable
// catalogue.
type InvalidPermissionError struct{ Token string }

func (e *InvalidPermissionError) Error() string {
	return "store: permission " + e.Token + " is not grantable"
}

// UpsertRole creates or replaces a role by name. Permission tokens are
// validated against the catalogue before anything is written.
func (s *RoleStore) UpsertRole(ctx context.Context, role models.Role) (*models.Role, error) {
	role.Name = strings.TrimSpace(role.Name)
	if role.Name == "" {
		return nil, gorm.ErrInvalidData
	}
	for _, p := range role.Permissions {
		if !permission.IsGrantable(p) {
			return nil, &InvalidPermissionError{Token: p}
		}
	}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Role
		err := tx.Where("name = ?", role.Name).First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			role.ID = models.NewID()
			role.CreatedAt = time.Now().UTC()
			return tx.Create(&role).Error
		} else if err != nil {
			return err
		}
		role.ID = existing.ID
		updates := map[string]interface{}{
			"sort_order":       role.Order,
			"permissions":      role.Permissions,
			"inherit_children": role.InheritChildren,
		}
		return tx.Model(&models.Role{}).Where("id = ?", existing.ID).Updates(updates).Error
	})
	if err != nil {
		return nil, err
	}
	return &role, nil
}

func (s *RoleStore) ListRoles(ctx context.Context) ([]models.Role, error) {
	var roles []models.Role
	err := s.DB.WithContext(ctx).Order("sort_order ASC, name ASC").Find(&roles).Error
	return roles, err
}

func (s *RoleStore) GetRole(ctx context.Context, name string) (*models.Role, error) {
	var role models.Role
	if err := s.DB.WithContext(ctx).Where("name = ?", name).First(&role).Error; err != nil {
		return nil, err
	}
	return &role, nil
}

func (s *RoleStore) RoleExists(ctx context.Context, name string) (bool, error) {
	var count int64
	err := s.DB.WithContext(ctx).Model(&models.Role{}).Where("name = ?", name).Count(&count).Error
	return count > 0, err
}

// Grants loads every role in engine form for an authorization decision.
func (s *RoleStore) Grants(ctx context.Context) ([]permission.Role, error) {
	roles, err := s.ListRoles(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]permission.Role, 0, len(roles))
	for _, r := range roles {
		out = append(out, r.Grant())
	}
	return out, nil
}
