package model

type Category struct {
	BaseModel
	Name     string     `db:"name" json:"name"`
	Slug     string     `db:"slug" json:"slug"`
	ParentID *string    `db:"parent_id" json:"parent_id"` // Nullable, nil marks a root
	Parent   *Category  `db:"-" json:"parent,omitempty"`
	Children []Category `db:"-" json:"children"` // Loaded on demand, not a column
}

// IsRoot reports whether c has no parent.
func (c *Category) IsRoot() bool {
	return c.ParentID == nil
}

// Summary returns a copy of c without its relations.
func (c Category) Summary() Category {
	c.Parent = nil
	c.Children = nil
	return c
}
