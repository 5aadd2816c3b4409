package httpserver

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/veritas_shop/internal/util"
)

var errNoUser = errors.New("unauthorized")

// GetID returns the authenticated user id set by the auth middleware.
func GetID(c echo.Context) (uuid.UUID, error) {
	s, ok := c.Get("user_id").(string)
	if !ok || s == "" {
		return uuid.Nil, errNoUser
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, errNoUser
	}
	return id, nil
}

func paramID(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, name+" is not a valid uuid")
	}
	return id, nil
}

type pageParams struct {
	Page   int
	Offset int
	Limit  int
}

// pagination reads page and size (or limit) from the query string.
func pagination(c echo.Context) pageParams {
	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), 0)
	if size == 0 {
		size = util.ParseIntDefault(c.QueryParam("limit"), util.DefaultPageSize)
	}
	offset, limit := util.Calculate(page, size)
	return pageParams{Page: offset/limit + 1, Offset: offset, Limit: limit}
}

func (p pageParams) meta(total int64) util.Meta {
	return util.NewMeta(p.Page, p.Offset, p.Limit, total)
}
