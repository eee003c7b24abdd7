package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

// resource wires the five standard routes of an owned entity. T is the
// model and I its input schema.
type resource[T any, I any] struct {
	h      *Handler
	entity string
	list   func(ctx context.Context, filters map[string]string) ([]*T, error)
	get    func(ctx context.Context, id int) (*T, error)
	create func(ctx context.Context, input *I) (*T, error)
	update func(ctx context.Context, id int, input *I) (*T, error)
	remove func(ctx context.Context, id int) (*T, error)

	afterSave   func(ctx context.Context, item *T)
	afterDelete func(ctx context.Context, item *T)
}

func (r resource[T, I]) register(g *gin.RouterGroup, path string) {
	g.GET(path, r.handleList)
	g.GET(path+"/:id", r.handleGet)
	g.POST(path, r.handleCreate)
	g.PUT(path+"/:id", r.handleUpdate)
	g.PATCH(path+"/:id", r.handleUpdate)
	g.DELETE(path+"/:id", r.handleDelete)
}

func (r resource[T, I]) handleList(c *gin.Context) {
	items, err := r.list(c.Request.Context(), queryFilters(c))
	if err != nil {
		r.h.respondError(c, r.entity, "list "+r.entity, err)
		return
	}
	if items == nil {
		items = []*T{}
	}
	c.JSON(http.StatusOK, items)
}

func (r resource[T, I]) handleGet(c *gin.Context) {
	id, ok := paramId(c, "id", r.entity)
	if !ok {
		return
	}
	item, err := r.get(c.Request.Context(), id)
	if err != nil {
		r.h.respondError(c, r.entity, "get "+r.entity, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (r resource[T, I]) handleCreate(c *gin.Context) {
	var input I
	if !r.h.bindJSON(c, &input) {
		return
	}
	ctx := c.Request.Context()
	item, err := r.create(ctx, &input)
	if err != nil {
		r.h.respondError(c, r.entity, "create "+r.entity, err)
		return
	}
	if r.afterSave != nil {
		r.afterSave(ctx, item)
	}
	c.JSON(http.StatusCreated, item)
}

func (r resource[T, I]) handleUpdate(c *gin.Context) {
	id, ok := paramId(c, "id", r.entity)
	if !ok {
		return
	}
	var input I
	if !r.h.bindJSON(c, &input) {
		return
	}
	ctx := c.Request.Context()
	item, err := r.update(ctx, id, &input)
	if err != nil {
		r.h.respondError(c, r.entity, "update "+r.entity, err)
		return
	}
	if r.afterSave != nil {
		r.afterSave(ctx, item)
	}
	c.JSON(http.StatusOK, item)
}

func (r resource[T, I]) handleDelete(c *gin.Context) {
	id, ok := paramId(c, "id", r.entity)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	item, err := r.remove(ctx, id)
	if err != nil {
		r.h.respondError(c, r.entity, "delete "+r.entity, err)
		return
	}
	if r.afterDelete != nil {
		r.afterDelete(ctx, item)
	}
	c.Status(http.StatusNoContent)
}
