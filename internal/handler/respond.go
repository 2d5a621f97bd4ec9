package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/auth-service/internal/autherr"
)

// fail renders a taxonomy error as the documented response envelope:
// {error:{code,message,detail}, status, request_id, timestamp}. Errors
// outside the taxonomy collapse to an opaque 500 so internals never leak.
func fail(c echo.Context, err error) error {
	ae := autherr.As(err)
	if ae == nil {
		c.Logger().Errorf("unexpected error: %v", err)
		ae = &autherr.Error{Code: "internal", Status: http.StatusInternalServerError, Message: "internal error"}
	} else if cause := ae.Unwrap(); cause != nil {
		c.Logger().Warnf("%s: %v", ae.Code, cause)
	}
	return c.JSON(ae.Status, echo.Map{
		"error": echo.Map{
			"code":    ae.Code,
			"message": ae.Message,
			"detail":  ae.Detail,
		},
		"status":     ae.Status,
		"request_id": c.Response().Header().Get(echo.HeaderXRequestID),
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
	})
}

// pageParams reads ?page= and ?per_page= with sane clamps.
func pageParams(c echo.Context) (offset, limit, page int) {
	page = 1
	if v, err := strconv.Atoi(c.QueryParam("page")); err == nil && v > 0 {
		page = v
	}
	limit = 20
	if v, err := strconv.Atoi(c.QueryParam("per_page")); err == nil && v > 0 {
		limit = v
	}
	if limit > 100 {
		limit = 100
	}
	return (page - 1) * limit, limit, page
}

// paginated shapes a list response with its pagination block.
func paginated(items any, page, perPage, total int) echo.Map {
	pages := (total + perPage - 1) / perPage
	return echo.Map{
		"items": items,
		"pagination": echo.Map{
			"page":     page,
			"per_page": perPage,
			"total":    total,
			"pages":    pages,
		},
	}
}
