package tree

import "github.com/fekuna/omnipos-catalog-service/internal/model"

// Build nests flat into the children of parentID (the roots when parentID
// is nil), keeping the order of flat among siblings. Every returned node
// has a non-nil Children slice.
func Build(flat []model.Category, parentID *string) []model.Category {
	byParent := make(map[string][]model.Category)
	var roots []model.Category
	for _, c := range flat {
		if c.IsRoot() {
			roots = append(roots, c)
			continue
		}
		byParent[*c.ParentID] = append(byParent[*c.ParentID], c)
	}

	visited := make(map[string]struct{})
	if parentID == nil {
		return attach(roots, byParent, visited)
	}
	visited[*parentID] = struct{}{}
	return attach(byParent[*parentID], byParent, visited)
}

func attach(nodes []model.Category, byParent map[string][]model.Category, visited map[string]struct{}) []model.Category {
	result := make([]model.Category, 0, len(nodes))
	for _, n := range nodes {
		if _, seen := visited[n.ID]; seen {
			continue
		}
		visited[n.ID] = struct{}{}
		n.Children = attach(byParent[n.ID], byParent, visited)
		result = append(result, n)
	}
	return result
}
