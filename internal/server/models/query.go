package models

// ListFilter narrows an administrative listing. Nil pointers mean "any".
type ListFilter struct {
	Admin         *bool
	Banned        *bool
	Active        *bool
	EmailContains string
}

// SortField names a sortable column.
type SortField string

const (
	SortByCreatedAt    SortField = "created_at"
	SortByEmail        SortField = "email"
	SortByLastLogin    SortField = "last_login"
	SortByVisionTokens SortField = "vision_tokens"
)

// Sort orders a listing. The zero value sorts by creation time, oldest first.
type Sort struct {
	Field SortField
	Desc  bool
}

// Valid reports whether the field is one of the known columns.
func (s Sort) Valid() bool {
	switch s.Field {
	case "", SortByCreatedAt, SortByEmail, SortByLastLogin, SortByVisionTokens:
		return true
	}
	return false
}
