package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/veritas_shop/internal/models"
)

func (r *GormRepo) CreateUserIfNotExists(ctx context.Context, u *models.User) error {
	tx := r.DB.WithContext(ctx).Where("email = ?", u.Email).FirstOrCreate(u)
	if tx.Error != nil {
		return duplicate(tx.Error)
	}
	if tx.RowsAffected == 0 {
		return ErrDuplicate
	}
	return nil
}

func (r *GormRepo) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *GormRepo) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *GormRepo) GetUserByVerificationHash(ctx context.Context, hash string) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).Where("verification_token_hash = ? AND verification_token_hash <> ''", hash).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *GormRepo) GetUserByResetHash(ctx context.Context, hash string) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).Where("reset_token_hash = ? AND reset_token_hash <> ''", hash).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *GormRepo) UpdateUser(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	res := r.DB.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *GormRepo) SetUserPlan(ctx context.Context, id uuid.UUID, plan string) error {
	return r.UpdateUser(ctx, id, map[string]any{"plan": plan})
}

func (r *GormRepo) ListUsers(ctx context.Context, offset, limit int) (int64, []models.User, error) {
	var total int64
	if err := r.DB.WithContext(ctx).Model(&models.User{}).Count(&total).Error; err != nil {
		return 0, nil, err
	}

	var users []models.User
	if err := r.DB.WithContext(ctx).Order("created_at DESC").Offset(offset).Limit(limit).Find(&users).Error; err != nil {
		return 0, nil, err
	}
	return total, users, nil
}

func (r *GormRepo) BanUser(ctx context.Context, u *models.User) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.User{}).Where("id = ?", u.ID).Update("is_banned", true).Error; err != nil {
			return err
		}
		ban := models.BannedUser{UserID: u.ID, UserEmail: u.Email, BannedAt: time.Now().UTC()}
		return tx.Where("user_id = ?", u.ID).FirstOrCreate(&ban).Error
	})
}

func (r *GormRepo) UnbanUser(ctx context.Context, id uuid.UUID) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.User{}).Where("id = ?", id).Update("is_banned", false).Error; err != nil {
			return err
		}
		return tx.Where("user_id = ?", id).Delete(&models.BannedUser{}).Error
	})
}

func (r *GormRepo) AddPurchaseHistory(ctx context.Context, entries []models.PurchaseHistory) error {
	if len(entries) == 0 {
		return nil
	}
	return r.DB.WithContext(ctx).Create(&entries).Error
}

func (r *GormRepo) HasPurchased(ctx context.Context, userID, productID uuid.UUID) (bool, error) {
	var count int64
	if err := r.DB.WithContext(ctx).Model(&models.PurchaseHistory{}).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *GormRepo) ListPurchaseHistory(ctx context.Context, userID uuid.UUID) ([]models.PurchaseHistory, error) {
	var out []models.PurchaseHistory
	if err := r.DB.WithContext(ctx).Where("user_id = ?", userID).Order("purchased_at DESC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
