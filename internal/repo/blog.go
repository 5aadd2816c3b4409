package repo

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/veritas_shop/internal/models"
)

func (r *GormRepo) CreateBlog(ctx context.Context, b *models.Blog) error {
	return r.DB.WithContext(ctx).Omit("Author", "Comments").Create(b).Error
}

func (r *GormRepo) GetBlog(ctx context.Context, id uuid.UUID) (*models.Blog, error) {
	var b models.Blog
	if err := r.DB.WithContext(ctx).
		Preload("Author").
		Preload("Comments", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Where("id = ?", id).First(&b).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *GormRepo) ListBlogs(ctx context.Context, status models.BlogStatus, offset, limit int) (int64, []models.Blog, error) {
	q := r.DB.WithContext(ctx).Model(&models.Blog{})
	if status != "" {
		q = q.Where("status = ?", status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return 0, nil, err
	}

	var items []models.Blog
	if err := q.Preload("Author").Order("created_at DESC").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return 0, nil, err
	}
	return total, items, nil
}

func (r *GormRepo) SaveBlog(ctx context.Context, b *models.Blog) error {
	return r.DB.WithContext(ctx).Omit("Author", "Comments").Save(b).Error
}

func (r *GormRepo) DeleteBlog(ctx context.Context, id uuid.UUID) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&models.Blog{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Where("blog_id = ?", id).Delete(&models.BlogComment{}).Error
	})
}

func (r *GormRepo) AddBlogComment(ctx context.Context, c *models.BlogComment) error {
	return r.DB.WithContext(ctx).Create(c).Error
}
