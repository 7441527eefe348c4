package dto

import (
	"bytes"
	"encoding/json"
	"errors"
)

// OptionalID tells an absent JSON field apart from an explicit null.
type OptionalID struct {
	Set   bool
	Value *string
}

func SomeID(id string) OptionalID { return OptionalID{Set: true, Value: &id} }

func NullID() OptionalID { return OptionalID{Set: true} }

// UnmarshalJSON only runs when the field is present in the document.
func (o *OptionalID) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Value = nil
		return nil
	}
	var id string
	if err := json.Unmarshal(data, &id); err != nil {
		return errors.New("parent_id must be a string or null")
	}
	o.Value = &id
	return nil
}

// SubcategoryInput is either a bare name ("Phones") or an upsert record
// ({"id": "...", "name": "Phones"}). Without an ID it creates a child.
type SubcategoryInput struct {
	ID   string `json:"id" validate:"omitempty,uuid"`
	Name string `json:"name" validate:"required_without=ID,max=255"`
}

func (s *SubcategoryInput) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var name string
		if err := json.Unmarshal(data, &name); err != nil {
			return err
		}
		*s = SubcategoryInput{Name: name}
		return nil
	}

	type record SubcategoryInput
	var r record
	if err := json.Unmarshal(data, &r); err != nil {
		return errors.New("subcategory must be a name or an object with id and name")
	}
	*s = SubcategoryInput(r)
	return nil
}
