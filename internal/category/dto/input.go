package dto

type CreateCategoryTreeInput struct {
	Name          string  // Optional when Subcategories is set
	ParentID      *string // Parent of the new node, or of the subcategories when Name is empty
	Subcategories []string
}

type UpdateCategoryTreeInput struct {
	ID            string
	Name          *string    // Nil leaves the name unchanged
	ParentID      OptionalID // Absent leaves the parent unchanged, explicit null detaches to root
	Subcategories []SubcategoryInput
}
