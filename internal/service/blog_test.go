package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/veritas_shop/internal/models"
	"github.com/Skotchmaster/veritas_shop/internal/repo"
	"github.com/Skotchmaster/veritas_shop/internal/testutil"
	"github.com/Skotchmaster/veritas_shop/internal/transport"
)

func TestBlogService_Lifecycle(t *testing.T) {
	t.Parallel()
	gdb := testutil.NewDB(t)
	svc := &BlogService{Repo: repo.New(gdb)}
	ctx := context.Background()

	author := testutil.CreateUser(t, gdb, "author@example.com", models.RoleAdmin)
	other := testutil.CreateUser(t, gdb, "other@example.com", models.RoleAdmin)

	post, err := svc.Create(ctx, author.ID, transport.BlogRequest{
		Title:    ptr("Winter routine"),
		Content:  ptr("Layer your moisturiser."),
		Category: ptr("routines"),
		Tags:     []string{"winter", " ", "dry skin"},
	})
	require.NoError(t, err)
	assert.Equal(t, models.BlogStatusPublished, post.Status)
	assert.Equal(t, []string{"winter", "dry skin"}, []string(post.Tags))

	draft, err := svc.Create(ctx, author.ID, transport.BlogRequest{
		Title:    ptr("Coming soon"),
		Content:  ptr("..."),
		Category: ptr("news"),
		Status:   ptr("draft"),
	})
	require.NoError(t, err)

	total, items, err := svc.List(ctx, 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total, "drafts are not listed")
	require.Len(t, items, 1)
	assert.Equal(t, post.ID, items[0].ID)

	_, err = svc.Update(ctx, other.ID, post.ID, transport.BlogRequest{Title: ptr("Hijack")})
	assert.ErrorIs(t, err, ErrForbidden)

	updated, err := svc.Update(ctx, author.ID, post.ID, transport.BlogRequest{Title: ptr("Winter skincare routine")})
	require.NoError(t, err)
	assert.Equal(t, "Winter skincare routine", updated.Title)
	assert.Equal(t, "routines", updated.Category)

	_, err = svc.Update(ctx, author.ID, post.ID, transport.BlogRequest{Status: ptr("archived")})
	assert.ErrorIs(t, err, ErrValidation)

	assert.ErrorIs(t, svc.Delete(ctx, other.ID, draft.ID), ErrForbidden)
	require.NoError(t, svc.Delete(ctx, author.ID, draft.ID))
	_, err = svc.Get(ctx, draft.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBlogService_CreateValidation(t *testing.T) {
	t.Parallel()
	gdb := testutil.NewDB(t)
	svc := &BlogService{Repo: repo.New(gdb)}
	author := uuid.New()

	tests := []struct {
		name string
		req  transport.BlogRequest
	}{
		{"no title", transport.BlogRequest{Content: ptr("c"), Category: ptr("x")}},
		{"blank content", transport.BlogRequest{Title: ptr("t"), Content: ptr("  "), Category: ptr("x")}},
		{"no category", transport.BlogRequest{Title: ptr("t"), Content: ptr("c")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), author, tt.req)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestBlogService_AddComment(t *testing.T) {
	t.Parallel()
	gdb := testutil.NewDB(t)
	svc := &BlogService{Repo: repo.New(gdb)}
	ctx := context.Background()

	author := testutil.CreateUser(t, gdb, "writer@example.com", models.RoleAdmin)
	post, err := svc.Create(ctx, author.ID, transport.BlogRequest{
		Title: ptr("SPF daily"), Content: ptr("Always."), Category: ptr("sun"),
	})
	require.NoError(t, err)
	draft, err := svc.Create(ctx, author.ID, transport.BlogRequest{
		Title: ptr("Hidden"), Content: ptr("Draft."), Category: ptr("sun"), Status: ptr("draft"),
	})
	require.NoError(t, err)

	c, err := svc.AddComment(ctx, post.ID, transport.CommentRequest{Name: "Reader", Email: "Reader@Example.com", Content: "Thanks!"})
	require.NoError(t, err)
	assert.Equal(t, "reader@example.com", c.Email)

	got, err := svc.Get(ctx, post.ID)
	require.NoError(t, err)
	require.Len(t, got.Comments, 1)
	assert.Equal(t, "Thanks!", got.Comments[0].Content)

	_, err = svc.AddComment(ctx, post.ID, transport.CommentRequest{Name: "R", Email: "nope", Content: "x"})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.AddComment(ctx, post.ID, transport.CommentRequest{Email: "r@example.com", Content: "x"})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.AddComment(ctx, draft.ID, transport.CommentRequest{Name: "R", Email: "r@example.com", Content: "x"})
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.AddComment(ctx, uuid.New(), transport.CommentRequest{Name: "R", Email: "r@example.com", Content: "x"})
	assert.ErrorIs(t, err, ErrNotFound)
}
