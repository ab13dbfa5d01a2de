package domain

// Collection groups courses. It is read-only through the API.
type Collection struct {
	ID      int64    `json:"id" db:"id"`
	Name    string   `json:"name" db:"name"`
	Courses []Course `json:"courses"`
}
