package repository

import (
	"context"
	"strings"
	"time"

	"workoutauth/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserRepository struct {
	db  *gorm.DB
	now func() time.Time
}

func liveUsers(db *gorm.DB) *gorm.DB {
	return db.Where("users.is_active = ? AND users.is_deleted = ?", true, false)
}

func notDeleted(db *gorm.DB) *gorm.DB {
	return db.Where("is_deleted = ?", false)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (r *UserRepository) withRoles(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Scopes(liveUsers).Preload("UserRoles.Role")
}

func (r *UserRepository) first(tx *gorm.DB) (*domain.User, error) {
	var u domain.User
	if err := tx.First(&u).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (r *UserRepository) FindByUsernameOrEmail(ctx context.Context, login string) (*domain.User, error) {
	login = strings.TrimSpace(login)
	return r.first(r.withRoles(ctx).
		Where("users.username = ? OR LOWER(users.email) = ?", login, normalizeEmail(login)))
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	return r.first(r.withRoles(ctx).Where("users.id = ?", id))
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.first(r.withRoles(ctx).Where("LOWER(users.email) = ?", normalizeEmail(email)))
}

func (r *UserRepository) FindByEmailAndStamp(ctx context.Context, email, securityStamp string) (*domain.User, error) {
	if strings.TrimSpace(securityStamp) == "" {
		return nil, domain.ErrNotFound
	}
	return r.first(r.withRoles(ctx).
		Where("LOWER(users.email) = ? AND users.security_stamp = ?", normalizeEmail(email), securityStamp))
}

func (r *UserRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.User{}).Scopes(notDeleted).
		Where("username = ?", strings.TrimSpace(username)).
		Count(&count).Error
	return count > 0, err
}

func (r *UserRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.User{}).Scopes(notDeleted).
		Where("LOWER(email) = ?", normalizeEmail(email)).
		Count(&count).Error
	return count > 0, err
}

func (r *UserRepository) Create(ctx context.Context, u *domain.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.Username = strings.TrimSpace(u.Username)
	u.Email = normalizeEmail(u.Email)
	now := stamp(r.now)
	u.CreatedAt = now
	u.UpdatedAt = now

	return translate(r.db.WithContext(ctx).Omit(clause.Associations).Create(u).Error)
}

// Save writes the mutable columns, using updated_at as the concurrency token.
func (r *UserRepository) Save(ctx context.Context, u *domain.User) error {
	now := stamp(r.now)
	res := r.db.WithContext(ctx).Model(&domain.User{}).
		Where("id = ? AND updated_at = ?", u.ID, u.UpdatedAt).
		Updates(map[string]any{
			"email_confirmed":     u.EmailConfirmed,
			"password_hash":       u.PasswordHash,
			"security_stamp":      u.SecurityStamp,
			"first_name":          u.FirstName,
			"last_name":           u.LastName,
			"phone_number":        u.PhoneNumber,
			"lockout_enabled":     u.LockoutEnabled,
			"lockout_end":         u.LockoutEnd,
			"access_failed_count": u.AccessFailedCount,
			"last_login_at":       u.LastLoginAt,
			"is_active":           u.IsActive,
			"is_deleted":          u.IsDeleted,
			"deleted_at":          u.DeletedAt,
			"updated_at":          now,
		})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrStaleRecord
	}
	u.UpdatedAt = now
	return nil
}

func (r *UserRepository) AssignRole(ctx context.Context, userID, roleID string, assignedBy *string) error {
	ur := domain.UserRole{
		UserID:     userID,
		RoleID:     roleID,
		AssignedAt: stamp(r.now),
		AssignedBy: assignedBy,
		IsActive:   true,
	}
	return translate(r.db.WithContext(ctx).Omit(clause.Associations).Create(&ur).Error)
}
