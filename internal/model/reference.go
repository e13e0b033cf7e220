package model

// Tag is a recipe category. Color is a "#RRGGBB" hex string.
type Tag struct {
	ID    int64  `json:"id"    db:"id"`
	Name  string `json:"name"  db:"name"`
	Slug  string `json:"slug"  db:"slug"`
	Color string `json:"color" db:"color"`
}

// Ingredient is a named product with its measurement unit. The pair
// (Name, MeasurementUnit) is unique.
type Ingredient struct {
	ID              int64  `json:"id"               db:"id"`
	Name            string `json:"name"             db:"name"`
	MeasurementUnit string `json:"measurement_unit" db:"measurement_unit"`
}
