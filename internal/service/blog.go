package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/Skotchmaster/veritas_shop/internal/models"
	"github.com/Skotchmaster/veritas_shop/internal/repo"
	"github.com/Skotchmaster/veritas_shop/internal/transport"
)

type BlogService struct {
	Repo *repo.GormRepo
}

// List returns published posts, newest first.
func (s *BlogService) List(ctx context.Context, offset, limit int) (int64, []models.Blog, error) {
	return s.Repo.ListBlogs(ctx, models.BlogStatusPublished, offset, limit)
}

func (s *BlogService) Get(ctx context.Context, id uuid.UUID) (*models.Blog, error) {
	b, err := s.Repo.GetBlog(ctx, id)
	if err != nil {
		return nil, notFound(err, "blog")
	}
	return b, nil
}

func applyBlog(b *models.Blog, req transport.BlogRequest) error {
	if req.Title != nil {
		b.Title = strings.TrimSpace(*req.Title)
	}
	if req.Content != nil {
		b.Content = *req.Content
	}
	if req.CoverImage != nil {
		b.CoverImage = strings.TrimSpace(*req.CoverImage)
	}
	if req.Category != nil {
		b.Category = strings.TrimSpace(*req.Category)
	}
	if req.Tags != nil {
		tags := make(pq.StringArray, 0, len(req.Tags))
		for _, t := range req.Tags {
			if t = strings.TrimSpace(t); t != "" {
				tags = append(tags, t)
			}
		}
		b.Tags = tags
	}
	if req.Status != nil {
		st := models.BlogStatus(strings.ToLower(strings.TrimSpace(*req.Status)))
		if st != models.BlogStatusDraft && st != models.BlogStatusPublished {
			return fmt.Errorf("%w: invalid status %q", ErrValidation, *req.Status)
		}
		b.Status = st
	}

	switch {
	case b.Title == "":
		return fmt.Errorf("%w: title is required", ErrValidation)
	case strings.TrimSpace(b.Content) == "":
		return fmt.Errorf("%w: content is required", ErrValidation)
	case b.Category == "":
		return fmt.Errorf("%w: category is required", ErrValidation)
	}
	return nil
}

func (s *BlogService) Create(ctx context.Context, authorID uuid.UUID, req transport.BlogRequest) (*models.Blog, error) {
	b := &models.Blog{AuthorID: authorID, Status: models.BlogStatusPublished, Tags: pq.StringArray{}}
	if err := applyBlog(b, req); err != nil {
		return nil, err
	}
	if err := s.Repo.CreateBlog(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *BlogService) ownBlog(ctx context.Context, authorID, id uuid.UUID) (*models.Blog, error) {
	b, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.AuthorID != authorID {
		return nil, fmt.Errorf("%w: only the author can change this post", ErrForbidden)
	}
	return b, nil
}

func (s *BlogService) Update(ctx context.Context, authorID, id uuid.UUID, req transport.BlogRequest) (*models.Blog, error) {
	b, err := s.ownBlog(ctx, authorID, id)
	if err != nil {
		return nil, err
	}
	if err := applyBlog(b, req); err != nil {
		return nil, err
	}
	if err := s.Repo.SaveBlog(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *BlogService) Delete(ctx context.Context, authorID, id uuid.UUID) error {
	if _, err := s.ownBlog(ctx, authorID, id); err != nil {
		return err
	}
	if err := s.Repo.DeleteBlog(ctx, id); err != nil {
		return notFound(err, "blog")
	}
	return nil
}

func (s *BlogService) AddComment(ctx context.Context, blogID uuid.UUID, req transport.CommentRequest) (*models.BlogComment, error) {
	name := strings.TrimSpace(req.Name)
	content := strings.TrimSpace(req.Content)
	if name == "" || content == "" {
		return nil, fmt.Errorf("%w: name and content are required", ErrValidation)
	}
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, err
	}

	b, err := s.Get(ctx, blogID)
	if err != nil {
		return nil, err
	}
	if b.Status != models.BlogStatusPublished {
		return nil, fmt.Errorf("%w: blog not found", ErrNotFound)
	}

	c := &models.BlogComment{
		BlogID:  blogID,
		Name:    name,
		Email:   email,
		Content: content,
		Website: strings.TrimSpace(req.Website),
	}
	if err := s.Repo.AddBlogComment(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}
