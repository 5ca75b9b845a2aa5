package api

import (
	"context"
	"net/http"

	"fincli/internal/core"
)

const categoriesPath = "/categories/"

type CategoriesAPI struct{ c *Client }

func (a *CategoriesAPI) List(ctx context.Context) ([]core.Category, error) {
	return list[core.Category](ctx, a.c, categoriesPath, nil, true)
}

func (a *CategoriesAPI) Create(ctx context.Context, in core.CategoryInput) (core.Category, error) {
	var out core.Category
	if err := in.Validate(); err != nil {
		return out, err
	}
	err := a.c.send(ctx, http.MethodPost, categoriesPath, in, &out)
	return out, err
}

func (a *CategoriesAPI) Update(ctx context.Context, id string, in core.CategoryInput) (core.Category, error) {
	var out core.Category
	if err := in.Validate(); err != nil {
		return out, err
	}
	err := a.c.send(ctx, http.MethodPut, itemPath(categoriesPath, id), in, &out)
	return out, err
}

func (a *CategoriesAPI) Delete(ctx context.Context, id string) error {
	return a.c.send(ctx, http.MethodDelete, itemPath(categoriesPath, id), nil, nil)
}
