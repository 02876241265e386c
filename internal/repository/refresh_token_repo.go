package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"workoutauth/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RefreshTokenRepository is the refresh-token ledger. Rows are never deleted.
type RefreshTokenRepository struct {
	db  *gorm.DB
	now func() time.Time
}

func (r *RefreshTokenRepository) Issue(ctx context.Context, userID, token, jwtID string, ttl time.Duration) (*domain.RefreshToken, error) {
	now := stamp(r.now)
	t := &domain.RefreshToken{
		UserID:    userID,
		Token:     token,
		JwtID:     jwtID,
		ExpiresAt: now.Add(ttl),
	}
	if err := r.insert(r.db.WithContext(ctx), t, now); err != nil {
		return nil, err
	}
	return t, nil
}

func (r *RefreshTokenRepository) insert(tx *gorm.DB, t *domain.RefreshToken, now time.Time) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	t.CreatedAt = now
	t.UpdatedAt = now
	return translate(tx.Create(t).Error)
}

func (r *RefreshTokenRepository) FindByToken(ctx context.Context, token string) (*domain.RefreshToken, error) {
	var t domain.RefreshToken
	if err := r.db.WithContext(ctx).Where("token = ?", token).First(&t).Error; err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

// Consume exchanges presented for replacement. The used flag is flipped with a
// conditional update, so of two racing callers exactly one sees a row change.
func (r *RefreshTokenRepository) Consume(ctx context.Context, presented, presentedJwtID string, replacement *domain.RefreshToken) (*domain.RefreshToken, error) {
	if strings.TrimSpace(presented) == "" || replacement == nil {
		return nil, domain.ErrTokenUnavailable
	}

	var current domain.RefreshToken
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := stamp(r.now)

		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("token = ?", presented).
			First(&current).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrTokenUnavailable
			}
			return err
		}

		if current.JwtID != presentedJwtID || !current.Usable(now) {
			return domain.ErrTokenUnavailable
		}
		if replacement.UserID != "" && replacement.UserID != current.UserID {
			return domain.ErrTokenUnavailable
		}

		res := tx.Model(&domain.RefreshToken{}).
			Where("id = ? AND is_used = ? AND is_revoked = ?", current.ID, false, false).
			Updates(map[string]any{
				"is_used":           true,
				"replaced_by_token": replacement.Token,
				"updated_at":        now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return domain.ErrTokenUnavailable
		}

		replacement.UserID = current.UserID
		return r.insert(tx, replacement, now)
	})
	if err != nil {
		return nil, translate(err)
	}

	current.IsUsed = true
	current.ReplacedByToken = &replacement.Token
	return &current, nil
}

// Revoke returns false when the token is unknown or already revoked.
func (r *RefreshTokenRepository) Revoke(ctx context.Context, token, ip string) (bool, error) {
	now := stamp(r.now)
	res := r.db.WithContext(ctx).Model(&domain.RefreshToken{}).
		Where("token = ? AND is_revoked = ?", token, false).
		Updates(revocation(now, ip))
	if res.Error != nil {
		return false, translate(res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *RefreshTokenRepository) RevokeAllForUser(ctx context.Context, userID, ip string) (int64, error) {
	now := stamp(r.now)
	res := r.db.WithContext(ctx).Model(&domain.RefreshToken{}).
		Where("user_id = ? AND is_revoked = ?", userID, false).
		Updates(revocation(now, ip))
	if res.Error != nil {
		return 0, translate(res.Error)
	}
	return res.RowsAffected, nil
}

// CountActiveForUser counts tokens that are not revoked, whether used or not.
func (r *RefreshTokenRepository) CountActiveForUser(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.RefreshToken{}).
		Where("user_id = ? AND is_revoked = ?", userID, false).
		Count(&count).Error
	return count, translate(err)
}

func revocation(now time.Time, ip string) map[string]any {
	updates := map[string]any{
		"is_revoked": true,
		"revoked_at": now,
		"updated_at": now,
	}
	if ip = strings.TrimSpace(ip); ip != "" {
		updates["revoked_by_ip"] = ip
	}
	return updates
}
