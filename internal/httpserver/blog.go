package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/veritas_shop/internal/service"
	"github.com/Skotchmaster/veritas_shop/internal/transport"
	"github.com/Skotchmaster/veritas_shop/pkg/logging"
)

type BlogHTTP struct {
	Svc *service.BlogService
}

func (h *BlogHTTP) ListBlogs(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "blog.list")

	p := pagination(c)
	total, items, err := h.Svc.List(ctx, p.Offset, p.Limit)
	if err != nil {
		return fail(l, "list_blogs_error", err)
	}
	return c.JSON(http.StatusOK, transport.NewPage(items, p.meta(total)))
}

func (h *BlogHTTP) GetBlog(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "blog.get")

	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	b, err := h.Svc.Get(ctx, id)
	if err != nil {
		return fail(l, "get_blog_error", err)
	}
	return c.JSON(http.StatusOK, b)
}

func (h *BlogHTTP) CreateBlog(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "blog.create")

	authorID, err := GetID(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	var req transport.BlogRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	b, err := h.Svc.Create(ctx, authorID, req)
	if err != nil {
		return fail(l, "create_blog_error", err)
	}
	l.Info("create_blog_success", "blog_id", b.ID)
	return c.JSON(http.StatusCreated, b)
}

func (h *BlogHTTP) UpdateBlog(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "blog.update")

	authorID, err := GetID(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req transport.BlogRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	b, err := h.Svc.Update(ctx, authorID, id, req)
	if err != nil {
		return fail(l, "update_blog_error", err)
	}
	return c.JSON(http.StatusOK, b)
}

func (h *BlogHTTP) DeleteBlog(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "blog.delete")

	authorID, err := GetID(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := h.Svc.Delete(ctx, authorID, id); err != nil {
		return fail(l, "delete_blog_error", err)
	}
	return c.JSON(http.StatusOK, transport.OK("Blog deleted"))
}

func (h *BlogHTTP) AddComment(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "blog.comment")

	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req transport.CommentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	comment, err := h.Svc.AddComment(ctx, id, req)
	if err != nil {
		return fail(l, "add_comment_error", err)
	}
	return c.JSON(http.StatusCreated, comment)
}
