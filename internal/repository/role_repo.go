package repository

import (
	"context"
	"time"

	"workoutauth/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RoleRepository struct {
	db  *gorm.DB
	now func() time.Time
}

func (r *RoleRepository) FindActiveByName(ctx context.Context, name string) (*domain.Role, error) {
	var role domain.Role
	err := r.db.WithContext(ctx).Scopes(notDeleted).
		Where("normalized_name = ? AND is_active = ?", domain.NormalizeRoleName(name), true).
		First(&role).Error
	if err != nil {
		return nil, translate(err)
	}
	return &role, nil
}

func (r *RoleRepository) FindByName(ctx context.Context, name string) (*domain.Role, error) {
	var role domain.Role
	err := r.db.WithContext(ctx).
		Where("normalized_name = ?", domain.NormalizeRoleName(name)).
		First(&role).Error
	if err != nil {
		return nil, translate(err)
	}
	return &role, nil
}

func (r *RoleRepository) Create(ctx context.Context, role *domain.Role) error {
	if role.ID == "" {
		role.ID = uuid.NewString()
	}
	role.NormalizedName = domain.NormalizeRoleName(role.Name)
	now := stamp(r.now)
	role.CreatedAt = now
	role.UpdatedAt = now
	return translate(r.db.WithContext(ctx).Create(role).Error)
}
