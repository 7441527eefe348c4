package dto

import (
	"time"

	"github.com/fekuna/omnipos-catalog-service/internal/model"
)

// CategoryResponse is the wire shape of a category. Parent carries the
// parent's name. Children is omitted when the relation was not loaded.
type CategoryResponse struct {
	ID            string              `json:"id"`
	Name          string              `json:"name"`
	Slug          string              `json:"slug"`
	ParentID      *string             `json:"parent_id"`
	Parent        *string             `json:"parent"`
	HasChildren   bool                `json:"has_children"`
	TotalChildren int                 `json:"total_children"`
	Children      *[]CategoryResponse `json:"children,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

func NewCategoryResponse(c model.Category) CategoryResponse {
	var parentName *string
	if c.Parent != nil {
		name := c.Parent.Name
		parentName = &name
	}
	return newCategoryResponse(c, parentName)
}

func NewCategoryResponses(categories []model.Category) []CategoryResponse {
	out := make([]CategoryResponse, len(categories))
	for i, c := range categories {
		out[i] = NewCategoryResponse(c)
	}
	return out
}

func newCategoryResponse(c model.Category, parentName *string) CategoryResponse {
	resp := CategoryResponse{
		ID:            c.ID,
		Name:          c.Name,
		Slug:          c.Slug,
		ParentID:      c.ParentID,
		Parent:        parentName,
		HasChildren:   len(c.Children) > 0,
		TotalChildren: len(c.Children),
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
	if c.Children != nil {
		name := c.Name
		children := make([]CategoryResponse, len(c.Children))
		for i, child := range c.Children {
			children[i] = newCategoryResponse(child, &name)
		}
		resp.Children = &children
	}
	return resp
}
