// Package tree holds the shape rules of the category forest: the cycle
// check run before every parent change and the assembly of flat rows into
// nested nodes.
package tree

import (
	"context"

	"github.com/fekuna/omnipos-catalog-service/internal/apperror"
)

// ParentLookup returns the parent id of a node, nil for a root. A missing
// node is reported as an apperror NotFound.
type ParentLookup interface {
	ParentID(ctx context.Context, id string) (*string, error)
}

type Validator struct {
	lookup ParentLookup
}

func NewValidator(lookup ParentLookup) *Validator {
	return &Validator{lookup: lookup}
}

// WouldCreateCycle reports whether making proposedParentID the parent of
// nodeID breaks the forest: either the node would parent itself or the
// proposed parent sits below the node. A nil proposal (detach to root)
// never does.
//
// The walk follows the persisted ancestor chain of the proposed parent and
// relies on that chain being acyclic. If it ever revisits a node the tree
// is already corrupt and the walk stops with a StoreFailure.
func (v *Validator) WouldCreateCycle(ctx context.Context, nodeID string, proposedParentID *string) (bool, error) {
	if proposedParentID == nil {
		return false, nil
	}
	if *proposedParentID == nodeID {
		return true, nil
	}

	visited := make(map[string]struct{})
	current := *proposedParentID
	for {
		if current == nodeID {
			return true, nil
		}
		if _, seen := visited[current]; seen {
			return false, apperror.New(apperror.KindStoreFailure, "ancestor chain of category %s loops at %s", *proposedParentID, current)
		}
		visited[current] = struct{}{}

		parent, err := v.lookup.ParentID(ctx, current)
		if err != nil {
			return false, err
		}
		if parent == nil {
			return false, nil
		}
		current = *parent
	}
}
