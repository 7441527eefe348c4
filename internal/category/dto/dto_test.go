package dto

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptionalIDPresence(t *testing.T) {
	var body struct {
		ParentID OptionalID `json:"parent_id"`
	}

	require.NoError(t, json.Unmarshal([]byte(`{}`), &body))
	assert.False(t, body.ParentID.Set)

	require.NoError(t, json.Unmarshal([]byte(`{"parent_id": null}`), &body))
	assert.True(t, body.ParentID.Set)
	assert.Nil(t, body.ParentID.Value)

	require.NoError(t, json.Unmarshal([]byte(`{"parent_id": "abc"}`), &body))
	assert.True(t, body.ParentID.Set)
	require.NotNil(t, body.ParentID.Value)
	assert.Equal(t, "abc", *body.ParentID.Value)

	assert.Error(t, json.Unmarshal([]byte(`{"parent_id": 12}`), &body))
}

func TestSubcategoryInputVariants(t *testing.T) {
	var subs []SubcategoryInput
	err := json.Unmarshal([]byte(`["Phones", {"name": "Laptops"}, {"id": "c-1", "name": "Tablets"}, {"id": "c-2"}]`), &subs)
	require.NoError(t, err)

	assert.Equal(t, []SubcategoryInput{
		{Name: "Phones"},
		{Name: "Laptops"},
		{ID: "c-1", Name: "Tablets"},
		{ID: "c-2"},
	}, subs)
}

func TestSubcategoryInputRejectsOtherShapes(t *testing.T) {
	var subs []SubcategoryInput
	assert.Error(t, json.Unmarshal([]byte(`[42]`), &subs))
	assert.Error(t, json.Unmarshal([]byte(`[["nested"]]`), &subs))
}
