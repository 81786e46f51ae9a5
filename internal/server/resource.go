package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/bizcore/internal/authorization"
	"github.com/smallbiznis/bizcore/internal/crud"
	"github.com/smallbiznis/bizcore/pkg/db/option"
	"github.com/smallbiznis/bizcore/pkg/db/pagination"
)

// filter turns one query parameter into a query option; nil means not set.
type filter func(c *gin.Context) (option.QueryOption, error)

// resource exposes a crud.Store as list/get/create/update/delete routes.
type resource[T any] struct {
	path     string
	object   string
	store    crud.Store[T]
	filters  []filter
	readOnly bool
}

func (r resource[T]) mount(s *Server, g *gin.RouterGroup) *gin.RouterGroup {
	rg := g.Group("/" + r.path)
	rg.GET("", s.authorize(r.object, authorization.ActionRead), r.list)
	rg.GET("/:id", s.authorize(r.object, authorization.ActionRead), r.get)
	if r.readOnly {
		return rg
	}
	rg.POST("", s.authorize(r.object, authorization.ActionWrite), r.create)
	rg.PUT("/:id", s.authorize(r.object, authorization.ActionWrite), r.replace)
	rg.PATCH("/:id", s.authorize(r.object, authorization.ActionWrite), r.update)
	rg.DELETE("/:id", s.authorize(r.object, authorization.ActionWrite), r.delete)
	return rg
}

func (r resource[T]) list(c *gin.Context) {
	var page pagination.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	opts := make([]option.QueryOption, 0, len(r.filters))
	for _, f := range r.filters {
		opt, err := f(c)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		if opt != nil {
			opts = append(opts, opt)
		}
	}

	items, pageInfo, err := r.store.List(c.Request.Context(), page, opts...)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": items, "page_info": pageInfo})
}

func (r resource[T]) get(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	item, err := r.store.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": item})
}

func (r resource[T]) create(c *gin.Context) {
	body, err := bindBody(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	item, err := r.store.Build(body)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	created, err := r.store.Create(c.Request.Context(), item)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": created})
}

func (r resource[T]) update(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	body, err := bindBody(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	updated, err := r.store.Update(c.Request.Context(), id, body)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": updated})
}

func (r resource[T]) replace(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	body, err := bindBody(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	replaced, err := r.store.Replace(c.Request.Context(), id, body)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": replaced})
}

func (r resource[T]) delete(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if err := r.store.Delete(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// bindBody reads a JSON object body as raw fields for merge-style decoding.
func bindBody(c *gin.Context) (map[string]json.RawMessage, error) {
	var body map[string]json.RawMessage
	if err := c.ShouldBindJSON(&body); err != nil {
		return nil, invalidRequestError()
	}
	if body == nil {
		body = map[string]json.RawMessage{}
	}
	return body, nil
}

func textFilter(param, column string) filter {
	return func(c *gin.Context) (option.QueryOption, error) {
		value := strings.TrimSpace(c.Query(param))
		if value == "" {
			return nil, nil
		}
		return option.WithWhere(column+" = ?", value), nil
	}
}

func boolFilter(param, column string) filter {
	return func(c *gin.Context) (option.QueryOption, error) {
		value, err := parseOptionalBool(c.Query(param))
		if err != nil {
			return nil, invalidParamError(param)
		}
		if value == nil {
			return nil, nil
		}
		return option.WithWhere(column+" = ?", *value), nil
	}
}

func idFilter(param, column string) filter {
	return func(c *gin.Context) (option.QueryOption, error) {
		value, err := parseOptionalSnowflakeID(c.Query(param))
		if err != nil {
			return nil, invalidParamError(param)
		}
		if value == nil {
			return nil, nil
		}
		return option.WithWhere(column+" = ?", *value), nil
	}
}

// searchFilter matches ?search= case-insensitively against any of columns.
func searchFilter(columns ...string) filter {
	return func(c *gin.Context) (option.QueryOption, error) {
		term := strings.ToLower(strings.TrimSpace(c.Query("search")))
		if term == "" {
			return nil, nil
		}
		pattern := "%" + term + "%"
		clauses := make([]string, 0, len(columns))
		args := make([]any, 0, len(columns))
		for _, column := range columns {
			clauses = append(clauses, "LOWER("+column+") LIKE ?")
			args = append(args, pattern)
		}
		return option.WithWhere("("+strings.Join(clauses, " OR ")+")", args...), nil
	}
}

// flagFilter applies where when ?param=true.
func flagFilter(param, where string, args ...any) filter {
	return func(c *gin.Context) (option.QueryOption, error) {
		value, err := parseOptionalBool(c.Query(param))
		if err != nil {
			return nil, invalidParamError(param)
		}
		if value == nil || !*value {
			return nil, nil
		}
		return option.WithWhere(where, args...), nil
	}
}

// dateRange bounds column by ?start_date= and ?end_date=.
func dateRange(column string) filter {
	return func(c *gin.Context) (option.QueryOption, error) {
		start, err := parseOptionalTime(c.Query("start_date"), false)
		if err != nil {
			return nil, invalidParamError("start_date")
		}
		end, err := parseOptionalTime(c.Query("end_date"), true)
		if err != nil {
			return nil, invalidParamError("end_date")
		}
		if start == nil && end == nil {
			return nil, nil
		}
		if start != nil && end != nil && end.Before(*start) {
			return nil, invalidParamError("end_date")
		}
		return option.WithDateRange(column, start, end), nil
	}
}
