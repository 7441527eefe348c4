package dto

type CreateProductInput struct {
	Name        string
	Description *string
	Price       float64
	Stock       int
	SKU         *string
	IsActive    bool
	ImagePath   *string
	CategoryIDs []string
}

// UpdateProductInput changes only the non-nil fields. CategoryIDs replaces
// the attached set when non-nil; an empty slice detaches every category.
type UpdateProductInput struct {
	ID          string
	Name        *string
	Description *string
	Price       *float64
	Stock       *int
	SKU         *string
	IsActive    *bool
	ImagePath   *string
	CategoryIDs *[]string
}
